package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// GroqConfig configures an OpenAI-compatible chat completion provider. The
// default base URL points at Groq, but any compatible endpoint works.
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

type groqGenerator struct {
	config GroqConfig
	client *openai.Client
}

func NewGroq(config GroqConfig) Generator {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.groq.com/openai/v1"
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL

	return &groqGenerator{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (g *groqGenerator) Name() string {
	return g.config.Model
}

func (g *groqGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.config.Model,
		Temperature: float32(g.config.Temperature),
		MaxTokens:   g.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	rsp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", GatewayError{Provider: "groq", Err: err}
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", GatewayError{Provider: "groq", Err: errors.New("empty completion")}
	}

	return rsp.Choices[0].Message.Content, nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

type geminiGenerator struct {
	config GeminiConfig
	client *genai.Client
}

func NewGemini(ctx context.Context, config GeminiConfig) (Generator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	return &geminiGenerator{
		config: config,
		client: client,
	}, nil
}

func (g *geminiGenerator) Name() string {
	return g.config.Model
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.config.Model)
	model.SetTemperature(float32(g.config.Temperature))
	if g.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.config.MaxTokens))
	}

	rsp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", GatewayError{Provider: "gemini", Err: err}
	}

	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return "", GatewayError{Provider: "gemini", Err: errors.New("empty completion")}
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	if b.Len() == 0 {
		return "", GatewayError{Provider: "gemini", Err: errors.New("no text parts in completion")}
	}

	return b.String(), nil
}

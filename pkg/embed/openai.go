package embed

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/neuradynamics/neurarag/pkg/llm"
)

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	RateLimit float64 // requests per second against the embeddings endpoint
}

type openAIEmbedder struct {
	embedder embeddings.Embedder
	limiter  *rate.Limiter
}

func NewOpenAI(config OpenAIConfig) (Embedder, error) {
	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embeddings client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	if config.RateLimit <= 0 {
		config.RateLimit = 5.0
	}

	return &openAIEmbedder{
		embedder: emb,
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

func (e *openAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, llm.GatewayError{Provider: "embeddings", Err: err}
	}
	return vec, nil
}

func (e *openAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, llm.GatewayError{Provider: "embeddings", Err: err}
	}
	return vecs, nil
}

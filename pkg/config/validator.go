package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// knownPromptVersions mirrors the registry in pkg/prompt. Duplicated here so
// an unknown version is rejected at startup, not at render time.
var knownPromptVersions = map[string]bool{"v1": true, "v2": true}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Chunker.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if !knownPromptVersions[c.Prompt.Version] {
		errors = append(errors, ValidationError{
			Field:   "prompt.version",
			Message: fmt.Sprintf("unknown prompt version: %s", c.Prompt.Version),
		})
	}

	if c.Embedding.Provider != "openai" && c.Embedding.Provider != "hash" {
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown embedding provider: %s", c.Embedding.Provider),
		})
	}

	if c.Embedding.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	switch c.Store.Type {
	case "local":
		if c.Store.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "store.path",
				Message: "path is required for the local store",
			})
		}
	case "pgvector":
		if c.Store.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "connection URL is required for the pgvector store",
			})
		} else if _, err := url.Parse(c.Store.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "invalid database URL",
			})
		}
		if c.Store.VectorDim < 1 {
			errors = append(errors, ValidationError{
				Field:   "store.vector_dim",
				Message: "vector_dim must be positive",
			})
		}
		if c.Store.BatchSize < 1 {
			errors = append(errors, ValidationError{
				Field:   "store.batch_size",
				Message: "batch_size must be positive",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "store.type",
			Message: fmt.Sprintf("unknown store type: %s", c.Store.Type),
		})
	}

	if c.Agent.HistorySize < 1 {
		errors = append(errors, ValidationError{
			Field:   "agent.history_size",
			Message: "history_size must be positive",
		})
	}

	if c.Agent.Classifier != "llm" && c.Agent.Classifier != "rules" {
		errors = append(errors, ValidationError{
			Field:   "agent.classifier",
			Message: fmt.Sprintf("unknown classifier: %s", c.Agent.Classifier),
		})
	}

	return errors
}

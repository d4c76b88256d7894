package embed

import "context"

// Embedder converts text into fixed-length vectors. Both methods may block on
// network calls and honor context cancellation.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

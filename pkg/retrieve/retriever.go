package retrieve

import (
	"context"

	"github.com/neuradynamics/neurarag/internal/models"
	"github.com/neuradynamics/neurarag/pkg/embed"
	"github.com/neuradynamics/neurarag/pkg/store"
)

// Retriever owns the query-embedding round trip and the k-selection contract:
// top-k by cosine similarity, non-increasing, ties by insertion order.
type Retriever struct {
	embedder embed.Embedder
	index    store.VectorIndex
	topK     int
}

func New(embedder embed.Embedder, index store.VectorIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// Retrieve returns the topK nearest chunks to the query. Returns
// store.ErrEmptyIndex before spending an embedding call when nothing has been
// indexed yet.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.ScoredChunk, error) {
	n, err := r.index.Len(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrEmptyIndex
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	return r.index.Search(ctx, vec, r.topK)
}

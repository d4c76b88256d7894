package store

import (
	"context"
	"errors"

	"github.com/neuradynamics/neurarag/internal/models"
)

// ErrEmptyIndex is returned when a query arrives before any index build.
var ErrEmptyIndex = errors.New("vector index is empty: run 'neurarag index' first")

// VectorIndex stores (vector, chunk) tuples and answers nearest-neighbor
// queries by cosine similarity. Implementations must return results in
// non-increasing similarity order with ties broken by insertion order.
type VectorIndex interface {
	Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close()
}

package retrieve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuradynamics/neurarag/internal/models"
	"github.com/neuradynamics/neurarag/pkg/embed"
	"github.com/neuradynamics/neurarag/pkg/retrieve"
	"github.com/neuradynamics/neurarag/pkg/store"
)

func seedIndex(t *testing.T, embedder embed.Embedder, texts []string) store.VectorIndex {
	t.Helper()
	ctx := context.Background()

	index := store.NewLocal(t.TempDir())
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{Text: text, Source: "doc.md", Index: i}
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	require.NoError(t, err)
	require.NoError(t, index.Add(ctx, chunks, vectors))
	return index
}

func TestRetrieveSortedByScore(t *testing.T) {
	embedder := embed.NewHash(64)
	index := seedIndex(t, embedder, []string{
		"refunds are processed within 7-10 business days",
		"standard shipping takes 5-7 business days",
		"custom orders can be cancelled within 2 hours",
		"subscriptions renew automatically each month",
	})

	r := retrieve.New(embedder, index, 3)
	results, err := r.Retrieve(context.Background(), "how long are refunds processed")
	require.NoError(t, err)

	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Contains(t, results[0].Chunk.Text, "refunds")
}

func TestRetrieveClampsToIndexSize(t *testing.T) {
	embedder := embed.NewHash(64)
	index := seedIndex(t, embedder, []string{"only one chunk here"})

	r := retrieve.New(embedder, index, 5)
	results, err := r.Retrieve(context.Background(), "one chunk")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	embedder := embed.NewHash(64)
	r := retrieve.New(embedder, store.NewLocal(t.TempDir()), 3)

	_, err := r.Retrieve(context.Background(), "anything")
	assert.ErrorIs(t, err, store.ErrEmptyIndex)
}

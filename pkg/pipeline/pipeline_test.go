package pipeline_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuradynamics/neurarag/internal/models"
	"github.com/neuradynamics/neurarag/pkg/chunker"
	"github.com/neuradynamics/neurarag/pkg/config"
	"github.com/neuradynamics/neurarag/pkg/embed"
	"github.com/neuradynamics/neurarag/pkg/pipeline"
	"github.com/neuradynamics/neurarag/pkg/prompt"
	"github.com/neuradynamics/neurarag/pkg/store"
)

type fakeModel struct {
	text    string
	err     error
	calls   int
	prompts []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", "", f.err
	}
	return f.text, "fake-model", nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	docs := map[string]string{
		"refund_policy.md": "# Refund Policy\n\n" +
			"## Return Window\n\n" +
			"Products may be returned within 30 days of delivery for a full refund. " +
			"Returns requested after 30 days are not eligible for a refund.\n\n" +
			"## Processing Time\n\n" +
			"Approved refunds are typically processed within 7-10 business days to the " +
			"original payment method.\n",
		"shipping_policy.md": "# Shipping Policy\n\n" +
			"## Delivery Times\n\n" +
			"Standard shipping takes 5-7 business days. Expedited shipping takes 2-3 " +
			"business days at an additional cost.\n",
		"cancellation_policy.md": "# Cancellation Policy\n\n" +
			"## Project Cancellation\n\n" +
			"After a project starts, clients pay for all work completed and any committed " +
			"third-party costs before cancellation takes effect.\n",
	}
	for name, text := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	return dir
}

func newTestPipeline(t *testing.T, dataDir string, model pipeline.TextModel, opts pipeline.Options) *pipeline.Pipeline {
	t.Helper()

	splitter, err := chunker.New(200, 20, 50)
	require.NoError(t, err)

	indexDir := t.TempDir()
	index, err := store.OpenLocal(indexDir)
	require.NoError(t, err)

	opts.DataDir = dataDir
	if opts.PromptVersion == "" {
		opts.PromptVersion = "v2"
	}

	p, err := pipeline.New(
		splitter,
		embed.NewHash(64),
		model,
		prompt.NewRegistry(),
		index,
		func(context.Context) (store.VectorIndex, error) {
			return store.NewLocal(indexDir), nil
		},
		opts,
		quietLogger(),
	)
	require.NoError(t, err)
	return p
}

func TestNewRejectsUnknownPromptVersion(t *testing.T) {
	splitter, err := chunker.New(200, 20, 50)
	require.NoError(t, err)

	_, err = pipeline.New(
		splitter,
		embed.NewHash(64),
		&fakeModel{},
		prompt.NewRegistry(),
		store.NewLocal(t.TempDir()),
		nil,
		pipeline.Options{PromptVersion: "v9"},
		quietLogger(),
	)
	var verr config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "prompt.version", verr.Field)
}

func TestAskBeforeRebuildReturnsEmptyIndex(t *testing.T) {
	p := newTestPipeline(t, writeCorpus(t), &fakeModel{text: "hi"}, pipeline.Options{TopK: 3})

	_, err := p.Ask(context.Background(), "Can I return a product after 30 days?", nil)
	assert.ErrorIs(t, err, store.ErrEmptyIndex)
}

func TestRebuildThenAsk(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{text: "Products may be returned within 30 days of delivery."}
	var progress []int
	p := newTestPipeline(t, writeCorpus(t), model, pipeline.Options{
		TopK:   3,
		Rerank: true,
		OnProgress: func(done, total int) {
			progress = append(progress, done)
			assert.LessOrEqual(t, done, total)
		},
	})
	defer p.Close()

	count, err := p.Rebuild(ctx)
	require.NoError(t, err)
	assert.Greater(t, count, 3, "three documents should split into several chunks")
	require.NotEmpty(t, progress)
	assert.Equal(t, count, progress[len(progress)-1])

	answer, err := p.Ask(ctx, "Can I return a product after 30 days for a refund?", nil)
	require.NoError(t, err)

	assert.Equal(t, model.text, answer.Text)
	assert.Equal(t, "fake-model", answer.Model)
	assert.Equal(t, "v2", answer.PromptVersion)
	assert.False(t, answer.Degraded)
	assert.Equal(t, models.IntentInquiry, answer.Intent)
	assert.Len(t, answer.Scores, 3)
	require.NotEmpty(t, answer.Sources)
	assert.Contains(t, answer.Sources, "refund_policy.md")

	// The rendered prompt must carry the retrieved context and citations.
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "returned within 30 days")
	assert.Contains(t, model.prompts[0], "[Source: refund_policy.md]")
}

func TestAskPassesHistoryIntoPrompt(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{text: "7-10 business days."}
	p := newTestPipeline(t, writeCorpus(t), model, pipeline.Options{TopK: 2})
	defer p.Close()

	_, err := p.Rebuild(ctx)
	require.NoError(t, err)

	history := []models.Turn{{Question: "Can I return a product?", Answer: "Yes, within 30 days."}}
	_, err = p.Ask(ctx, "How long until I get my money back?", history)
	require.NoError(t, err)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Can I return a product?")
	assert.Contains(t, model.prompts[0], "Yes, within 30 days.")
}

func TestAskDegradesWhenGenerationFails(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{err: errors.New("both providers down")}
	p := newTestPipeline(t, writeCorpus(t), model, pipeline.Options{TopK: 3})
	defer p.Close()

	_, err := p.Rebuild(ctx)
	require.NoError(t, err)

	answer, err := p.Ask(ctx, "Can I return a product after 30 days?", nil)
	require.NoError(t, err, "a degraded answer is still an answer")

	assert.True(t, answer.Degraded)
	assert.Equal(t, "none (degraded)", answer.Model)
	assert.Contains(t, answer.Text, "currently unavailable")
	assert.Contains(t, answer.Text, "[refund_policy.md]", "raw context must name its source")
	assert.NotEmpty(t, answer.Sources)
}

func TestRebuildPersistsIndex(t *testing.T) {
	ctx := context.Background()
	dataDir := writeCorpus(t)
	indexDir := t.TempDir()

	splitter, err := chunker.New(200, 20, 50)
	require.NoError(t, err)
	embedder := embed.NewHash(64)
	registry := prompt.NewRegistry()
	factory := func(context.Context) (store.VectorIndex, error) {
		return store.NewLocal(indexDir), nil
	}

	first, err := pipeline.New(splitter, embedder, &fakeModel{text: "ok"}, registry,
		store.NewLocal(indexDir), factory,
		pipeline.Options{DataDir: dataDir, PromptVersion: "v1", TopK: 3}, quietLogger())
	require.NoError(t, err)

	count, err := first.Rebuild(ctx)
	require.NoError(t, err)
	first.Close()

	// A second pipeline opening the same directory sees the persisted index.
	reopened, err := store.OpenLocal(indexDir)
	require.NoError(t, err)
	second, err := pipeline.New(splitter, embedder, &fakeModel{text: "ok"}, registry,
		reopened, factory,
		pipeline.Options{DataDir: dataDir, PromptVersion: "v1", TopK: 3}, quietLogger())
	require.NoError(t, err)
	defer second.Close()

	n, err := reopened.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, count, n)

	answer, err := second.Ask(ctx, "How long does standard shipping take?", nil)
	require.NoError(t, err)
	assert.Contains(t, answer.Sources, "shipping_policy.md")
}

// recordingIndex wraps a Local index and logs the lifecycle calls a rebuild
// makes, mirroring what a staged database rebuild would receive.
type recordingIndex struct {
	*store.Local
	log      *[]string
	promoted bool
	closed   bool
}

func (r *recordingIndex) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	*r.log = append(*r.log, "add")
	return r.Local.Add(ctx, chunks, vectors)
}

func (r *recordingIndex) Promote(ctx context.Context) error {
	*r.log = append(*r.log, "promote")
	r.promoted = true
	return r.Local.Promote(ctx)
}

func (r *recordingIndex) Close() {
	*r.log = append(*r.log, "close")
	r.closed = true
}

func TestRebuildPromotesFreshIndexBeforeSwap(t *testing.T) {
	ctx := context.Background()
	dataDir := writeCorpus(t)

	splitter, err := chunker.New(200, 20, 50)
	require.NoError(t, err)

	var log []string
	old := &recordingIndex{Local: store.NewLocal(t.TempDir()), log: &log}
	fresh := &recordingIndex{Local: store.NewLocal(t.TempDir()), log: &log}

	p, err := pipeline.New(
		splitter,
		embed.NewHash(64),
		&fakeModel{text: "ok"},
		prompt.NewRegistry(),
		old,
		func(context.Context) (store.VectorIndex, error) { return fresh, nil },
		pipeline.Options{DataDir: dataDir, PromptVersion: "v1", TopK: 3, BatchSize: 2},
		quietLogger(),
	)
	require.NoError(t, err)

	_, err = p.Rebuild(ctx)
	require.NoError(t, err)

	// The old index stays live untouched until the new one is complete:
	// every add lands on the fresh index, promote runs after the last add,
	// and only then is the old index released.
	assert.True(t, fresh.promoted)
	assert.False(t, old.promoted)
	assert.True(t, old.closed)
	assert.False(t, fresh.closed)

	require.GreaterOrEqual(t, len(log), 3)
	assert.Equal(t, "promote", log[len(log)-2])
	assert.Equal(t, "close", log[len(log)-1])
	for _, call := range log[:len(log)-2] {
		assert.Equal(t, "add", call)
	}

	// Queries after the swap hit the fresh index.
	answer, err := p.Ask(ctx, "Can I return a product after 30 days?", nil)
	require.NoError(t, err)
	assert.Contains(t, answer.Sources, "refund_policy.md")
}

func TestAskDeduplicatesSources(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, writeCorpus(t), &fakeModel{text: "ok"}, pipeline.Options{TopK: 5})
	defer p.Close()

	_, err := p.Rebuild(ctx)
	require.NoError(t, err)

	answer, err := p.Ask(ctx, "refund refund refund", nil)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, s := range answer.Sources {
		assert.False(t, seen[s], "source %s listed twice", s)
		seen[s] = true
		assert.True(t, strings.HasSuffix(s, ".md"))
	}
}

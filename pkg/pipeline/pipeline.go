package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/neuradynamics/neurarag/internal/models"
	"github.com/neuradynamics/neurarag/pkg/chunker"
	"github.com/neuradynamics/neurarag/pkg/embed"
	"github.com/neuradynamics/neurarag/pkg/loader"
	"github.com/neuradynamics/neurarag/pkg/prompt"
	"github.com/neuradynamics/neurarag/pkg/rerank"
	"github.com/neuradynamics/neurarag/pkg/retrieve"
	"github.com/neuradynamics/neurarag/pkg/store"
)

// TextModel is the generation gateway the pipeline speaks to. Satisfied by
// *llm.Fallback: generate once, fall back once, no retry loop.
type TextModel interface {
	Generate(ctx context.Context, prompt string) (text, model string, err error)
}

// IndexFactory produces a fresh, empty index for a rebuild. Rebuilds are
// full-replace: the new index is populated and then swapped in; readers never
// see a partially built one.
type IndexFactory func(ctx context.Context) (store.VectorIndex, error)

type Options struct {
	DataDir       string
	TopK          int
	Rerank        bool
	PromptVersion string
	BatchSize     int
	// OnProgress is called after each embedded batch during a rebuild.
	OnProgress func(done, total int)
}

type Pipeline struct {
	opts      Options
	splitter  *chunker.Splitter
	embedder  embed.Embedder
	generator TextModel
	version   *prompt.Version
	newIndex  IndexFactory
	logger    *logrus.Logger

	mu    sync.RWMutex
	index store.VectorIndex
}

// New resolves the configured prompt version up front so an unknown tag fails
// at construction, not at render time.
func New(
	splitter *chunker.Splitter,
	embedder embed.Embedder,
	generator TextModel,
	registry *prompt.Registry,
	index store.VectorIndex,
	newIndex IndexFactory,
	opts Options,
	logger *logrus.Logger,
) (*Pipeline, error) {
	version, err := registry.Get(opts.PromptVersion)
	if err != nil {
		return nil, err
	}

	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Pipeline{
		opts:      opts,
		splitter:  splitter,
		embedder:  embedder,
		generator: generator,
		version:   version,
		newIndex:  newIndex,
		index:     index,
		logger:    logger,
	}, nil
}

// Rebuild loads the document directory, chunks and embeds everything into a
// fresh index, persists it, and swaps it in. Returns the chunk count.
func (p *Pipeline) Rebuild(ctx context.Context) (int, error) {
	docs, err := loader.LoadDir(p.opts.DataDir)
	if err != nil {
		return 0, err
	}

	var chunks []models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, p.splitter.Split(doc.Text, doc.Source)...)
	}

	p.logger.WithFields(logrus.Fields{
		"documents": len(docs),
		"chunks":    len(chunks),
	}).Info("rebuilding index")

	fresh, err := p.newIndex(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to create index: %w", err)
	}

	for start := 0; start < len(chunks); start += p.opts.BatchSize {
		end := start + p.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}

		vectors, err := p.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end, err)
		}

		if err := fresh.Add(ctx, batch, vectors); err != nil {
			return 0, fmt.Errorf("failed to store chunks %d-%d: %w", start, end, err)
		}

		if p.opts.OnProgress != nil {
			p.opts.OnProgress(end, len(chunks))
		}
	}

	// Publish the fully built index before the reference swap: the local
	// store writes its snapshot, pgvector swaps its staging table over the
	// live one. Readers only ever see the old index or the complete new one.
	if promoter, ok := fresh.(interface{ Promote(context.Context) error }); ok {
		if err := promoter.Promote(ctx); err != nil {
			return 0, err
		}
	}

	p.mu.Lock()
	old := p.index
	p.index = fresh
	p.mu.Unlock()

	if old != nil && old != fresh {
		old.Close()
	}

	return len(chunks), nil
}

func (p *Pipeline) currentIndex() store.VectorIndex {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.index
}

// Ask runs retrieve -> rerank -> prompt -> generate for one question. When
// both generation providers fail, the answer degrades to the raw retrieved
// context with an explanation; nothing is ever fabricated.
func (p *Pipeline) Ask(ctx context.Context, question string, history []models.Turn) (*models.Answer, error) {
	idx := p.currentIndex()

	retriever := retrieve.New(p.embedder, idx, p.opts.TopK)
	results, err := retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	if p.opts.Rerank {
		results = rerank.Rerank(question, results)
	}

	rendered, err := p.version.Render(question, results, history)
	if err != nil {
		return nil, err
	}

	answer := &models.Answer{
		Intent:        models.IntentInquiry,
		PromptVersion: p.version.Tag,
	}
	for _, sc := range results {
		answer.Scores = append(answer.Scores, sc.Score)
	}
	answer.Sources = dedupeSources(results)

	text, model, err := p.generator.Generate(ctx, rendered)
	if err != nil {
		p.logger.WithField("error", err).Error("generation unavailable, returning raw context")
		answer.Text = degradedAnswer(results)
		answer.Model = "none (degraded)"
		answer.Degraded = true
		return answer, nil
	}

	answer.Text = text
	answer.Model = model

	p.logger.WithFields(logrus.Fields{
		"question": question,
		"sources":  answer.Sources,
		"model":    model,
		"prompt":   p.version.Tag,
	}).Info("query answered")

	return answer, nil
}

// Close releases the current index.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index != nil {
		p.index.Close()
		p.index = nil
	}
}

func dedupeSources(results []models.ScoredChunk) []string {
	var sources []string
	seen := map[string]bool{}
	for _, sc := range results {
		if !seen[sc.Chunk.Source] {
			seen[sc.Chunk.Source] = true
			sources = append(sources, sc.Chunk.Source)
		}
	}
	return sources
}

func degradedAnswer(results []models.ScoredChunk) string {
	text := "The language model service is currently unavailable. " +
		"Here is the raw context retrieved from the policy documents:\n\n"
	for _, sc := range results {
		text += fmt.Sprintf("[%s] %s\n\n", sc.Chunk.Source, sc.Chunk.Text)
	}
	return text + "Please review the above context to find your answer."
}

package chunker_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuradynamics/neurarag/internal/models"
	"github.com/neuradynamics/neurarag/pkg/chunker"
	"github.com/neuradynamics/neurarag/pkg/config"
)

const policyText = `# Refund Policy

## Eligibility

Products may be returned within 30 days of delivery for a full refund.
Items must be unused and in their original packaging.

## Processing

Approved refunds are typically processed within 7-10 business days.
Refunds are issued to the original payment method where possible.

## Exclusions

Custom orders and digital goods are non-refundable once delivered.
Monthly and annual subscription fees are non-refundable once a billing
period has started.
`

func TestSplitReconstructsInput(t *testing.T) {
	texts := []string{
		policyText,
		strings.Repeat(policyText, 10),
		"no structural boundaries here just one very long run of words " + strings.Repeat("word ", 300),
		"multibyte café naïve ensuring rune-safe cuts " + strings.Repeat("héllo wörld ", 200),
	}

	for _, size := range []int{100, 250, 500} {
		for _, overlap := range []int{0, 10, 50} {
			if overlap >= size {
				continue
			}
			s, err := chunker.New(size, overlap, 0)
			require.NoError(t, err)

			for _, text := range texts {
				chunks := s.Split(text, "doc.md")
				require.NotEmpty(t, chunks)

				// Concatenating with overlaps removed must rebuild
				// the exact input.
				var b strings.Builder
				prevEnd := 0
				for i, ch := range chunks {
					assert.Equal(t, i, ch.Index)
					assert.Equal(t, "doc.md", ch.Source)
					assert.Equal(t, ch.Text, text[ch.Start:ch.Start+len(ch.Text)])
					if i == 0 {
						b.WriteString(ch.Text)
					} else {
						ov := prevEnd - ch.Start
						require.GreaterOrEqual(t, ov, 0, "gap between chunks")
						b.WriteString(ch.Text[ov:])
					}
					prevEnd = ch.Start + len(ch.Text)
				}
				assert.Equal(t, text, b.String())
			}
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	s, err := chunker.New(200, 20, 0)
	require.NoError(t, err)

	a := s.Split(policyText, "refund_policy.md")
	b := s.Split(policyText, "refund_policy.md")
	assert.Equal(t, a, b)
}

func TestSplitEmptyInput(t *testing.T) {
	s, err := chunker.New(500, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, s.Split("", "empty.md"))
}

func TestSplitShortInput(t *testing.T) {
	s, err := chunker.New(500, 50, 0)
	require.NoError(t, err)

	chunks := s.Split("A single short note.", "note.md")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A single short note.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
}

func TestNewRejectsOverlapAtLeastSize(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{
		{100, 100},
		{100, 150},
		{1, 1},
	} {
		_, err := chunker.New(tc.size, tc.overlap, 0)
		require.Error(t, err)
		var verr config.ValidationError
		assert.ErrorAs(t, err, &verr)
	}
}

func TestSplitPrefersHeadingBoundary(t *testing.T) {
	// The heading falls inside the look-back window of the first cut, so the
	// first chunk should end right before it instead of mid-sentence.
	text := strings.Repeat("a", 460) + "\n## Shipping\n" + strings.Repeat("b", 200)

	s, err := chunker.New(500, 0, 100)
	require.NoError(t, err)

	chunks := s.Split(text, "doc.md")
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n"))
	assert.True(t, strings.HasPrefix(chunks[1].Text, "## Shipping"))
}

func TestSplitOverlapInvariant(t *testing.T) {
	// Plain text with no separators at all: every cut is a hard cut and every
	// chunk after the first starts exactly overlap bytes before the previous end.
	text := strings.Repeat("x", 2000)

	s, err := chunker.New(500, 50, 0)
	require.NoError(t, err)

	chunks := s.Split(text, "doc.md")
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].Start + len(chunks[i-1].Text)
		assert.Equal(t, 50, prevEnd-chunks[i].Start)
	}
}

func TestSplitTinySizeMultibyte(t *testing.T) {
	// Chunk sizes smaller than a UTF-8 rune are valid configuration; the
	// splitter must still advance one whole rune at a time and terminate.
	text := "日本語のテキストを分割する"

	for _, tc := range []struct{ size, overlap int }{
		{1, 0},
		{2, 0},
		{2, 1},
		{3, 2},
	} {
		s, err := chunker.New(tc.size, tc.overlap, 0)
		require.NoError(t, err)

		done := make(chan []models.Chunk, 1)
		go func() { done <- s.Split(text, "doc.md") }()

		var chunks []models.Chunk
		select {
		case chunks = <-done:
		case <-time.After(3 * time.Second):
			t.Fatalf("Split did not terminate for size=%d overlap=%d", tc.size, tc.overlap)
		}

		require.NotEmpty(t, chunks)
		var b strings.Builder
		prevEnd := 0
		for i, ch := range chunks {
			require.NotEmpty(t, ch.Text, "chunk %d is empty", i)
			if i == 0 {
				b.WriteString(ch.Text)
			} else {
				ov := prevEnd - ch.Start
				require.GreaterOrEqual(t, ov, 0)
				b.WriteString(ch.Text[ov:])
			}
			prevEnd = ch.Start + len(ch.Text)
		}
		assert.Equal(t, text, b.String())
	}
}

func TestSplitCorpusChunkCount(t *testing.T) {
	// Three policy documents totalling ~10KB at 500/50 should land in the
	// 20-30 chunk range, every chunk within the size limit.
	paragraph := strings.Repeat("Policy terms apply to all orders placed. ", 3)
	paragraph = paragraph[:99] + "\n\n"

	var docs []string
	for i := 0; i < 3; i++ {
		docs = append(docs, strings.Repeat(paragraph, 34))
	}

	s, err := chunker.New(500, 50, 100)
	require.NoError(t, err)

	total := 0
	for _, doc := range docs {
		chunks := s.Split(doc, "policy.md")
		for _, ch := range chunks {
			assert.LessOrEqual(t, len(ch.Text), 500)
		}
		total += len(chunks)
	}

	assert.GreaterOrEqual(t, total, 20)
	assert.LessOrEqual(t, total, 30)
}

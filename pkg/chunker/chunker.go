package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/neuradynamics/neurarag/internal/models"
	"github.com/neuradynamics/neurarag/pkg/config"
)

// separators in preference order, markdown-aware. Heading, rule and paragraph
// breaks are tried before sentence and word breaks so chunks line up with
// document structure whenever a break falls inside the look-back window.
var separators = []string{"\n## ", "\n### ", "\n---", "\n\n", "\n", ". ", " "}

// Splitter cuts document text into chunks of at most Size bytes, each chunk
// after the first starting Overlap bytes before the end of the previous one.
// Split is a pure function of (text, config): the same input always produces
// the same chunk sequence.
type Splitter struct {
	size     int
	overlap  int
	lookBack int
}

func New(size, overlap, lookBack int) (*Splitter, error) {
	if size < 1 {
		return nil, config.ValidationError{
			Field:   "chunker.chunk_size",
			Message: "chunk_size must be positive",
		}
	}
	if overlap < 0 || overlap >= size {
		return nil, config.ValidationError{
			Field:   "chunker.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		}
	}
	if lookBack <= 0 {
		lookBack = 100
	}
	if lookBack >= size {
		lookBack = size - 1
	}
	return &Splitter{size: size, overlap: overlap, lookBack: lookBack}, nil
}

// Split produces an ordered gap-free chunk sequence covering text. Empty input
// yields no chunks; input shorter than the chunk size yields exactly one.
func (s *Splitter) Split(text, source string) []models.Chunk {
	if text == "" {
		return nil
	}

	var chunks []models.Chunk
	start := 0

	for start < len(text) {
		end := start + s.size
		if end >= len(text) {
			chunks = append(chunks, models.Chunk{
				Text:   text[start:],
				Source: source,
				Index:  len(chunks),
				Start:  start,
			})
			break
		}

		cut := s.findBoundary(text, start, end)
		if cut <= start {
			cut = alignRuneStart(text, end)
		}
		if cut <= start {
			// The rune at start is wider than the chunk size; emit it
			// whole so the walk always advances.
			_, runeLen := utf8.DecodeRuneInString(text[start:])
			cut = start + runeLen
		}

		chunks = append(chunks, models.Chunk{
			Text:   text[start:cut],
			Source: source,
			Index:  len(chunks),
			Start:  start,
		})

		next := alignRuneStart(text, cut-s.overlap)
		if next <= start {
			next = cut
		}
		start = next
	}

	return chunks
}

// findBoundary searches backwards from the size limit, within the look-back
// window, for the highest-priority separator. Returns 0 when none is found.
func (s *Splitter) findBoundary(text string, start, end int) int {
	windowStart := end - s.lookBack
	if windowStart <= start {
		windowStart = start + 1
	}
	window := text[windowStart:end]

	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		pos := windowStart + idx
		if strings.HasPrefix(sep, "\n") {
			// Keep the newline in the current chunk; the heading or
			// paragraph starts the next one.
			return pos + 1
		}
		// Sentence and word breaks stay with the current chunk.
		return pos + len(sep)
	}

	return 0
}

// alignRuneStart backs a cut position up to the nearest UTF-8 rune boundary so
// hard cuts never split a multi-byte character.
func alignRuneStart(text string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

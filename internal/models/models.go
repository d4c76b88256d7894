package models

// Document is one markdown policy file loaded from the data directory.
type Document struct {
	Source string // base filename, e.g. "refund_policy.md"
	Text   string
}

// Chunk is an immutable slice of a single document. Start is the byte offset
// of the chunk text within the source document.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Index  int    `json:"index"`
	Start  int    `json:"start"`
}

// ScoredChunk pairs a chunk with a similarity (or rerank) score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Intent is the closed set of message categories the router dispatches on.
type Intent string

const (
	IntentGreeting   Intent = "GREETING"
	IntentInquiry    Intent = "INQUIRY"
	IntentOutOfScope Intent = "OUT_OF_SCOPE"
)

// Turn is one completed question/answer exchange kept in conversation history.
type Turn struct {
	Question string
	Answer   string
}

// Answer is the full result of running a question through the pipeline.
type Answer struct {
	Text          string
	Sources       []string
	Scores        []float64
	Intent        Intent
	Model         string
	PromptVersion string
	// Degraded marks an answer produced without a working generation
	// gateway: raw retrieved context instead of generated text.
	Degraded bool
}

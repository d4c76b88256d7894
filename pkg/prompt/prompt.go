package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/neuradynamics/neurarag/internal/models"
	"github.com/neuradynamics/neurarag/pkg/config"
)

// Decline is the canned response for questions the policy documents cannot
// answer. v2 instructs the model to emit it verbatim; the evaluator checks
// unanswerable questions against it.
const Decline = "This information is not available in the provided policy documents."

// contextDelimiter separates chunk texts inside a rendered prompt.
const contextDelimiter = "\n\n---\n\n"

const templateV1 = `You are a helpful assistant for Neura Dynamics company policies.

Use the following context to answer the question. If the answer is not
in the context, say "I don't have enough information to answer this."
{{.History}}
Context:
{{.Context}}

Question: {{.Question}}

Answer:`

const templateV2 = `You are a precise policy assistant for Neura Dynamics. Your job is to
answer questions ONLY using the provided context from company policy documents.

RULES:
1. ONLY use information explicitly stated in the context below.
2. Do NOT add any information, assumptions, or details beyond the context.
3. If the context does not contain the answer, respond with:
   "` + Decline + `"
4. If only part of the question can be answered, answer what you can and
   clearly state which part cannot be answered from the available context.
5. Cite the source document for each piece of information using [Source: filename].
6. Use bullet points for multi-part answers.
{{.History}}
CONTEXT:
{{.Context}}

QUESTION: {{.Question}}

Respond in this format:
**Answer:**
<your answer here, with [Source: filename] citations>

**Sources:** <list the source document(s) used>

**Confidence:** <High / Medium / Low — based on how well the context covers the question>`

// Version is one member of the closed template set. annotateSources controls
// whether chunk texts carry a [Source: file] header in the rendered context.
type Version struct {
	Tag             string
	annotateSources bool
	tmpl            *template.Template
}

type templateData struct {
	Context  string
	Question string
	History  string
}

// Registry holds the static tag -> template mapping.
type Registry struct {
	versions map[string]*Version
	order    []string
}

func NewRegistry() *Registry {
	r := &Registry{versions: map[string]*Version{}}
	r.register(&Version{
		Tag:  "v1",
		tmpl: template.Must(template.New("v1").Parse(templateV1)),
	})
	r.register(&Version{
		Tag:             "v2",
		annotateSources: true,
		tmpl:            template.Must(template.New("v2").Parse(templateV2)),
	})
	return r
}

func (r *Registry) register(v *Version) {
	r.versions[v.Tag] = v
	r.order = append(r.order, v.Tag)
}

// Get fails fast on an unknown tag; this is a configuration error.
func (r *Registry) Get(tag string) (*Version, error) {
	v, ok := r.versions[tag]
	if !ok {
		return nil, config.ValidationError{
			Field:   "prompt.version",
			Message: fmt.Sprintf("unknown prompt version: %s (available: %s)", tag, strings.Join(r.order, ", ")),
		}
	}
	return v, nil
}

// Versions lists the registered tags in registration order.
func (r *Registry) Versions() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Render assembles the final prompt: chunk texts joined in the given order,
// the question substituted, and prior turns included for multi-turn context.
func (v *Version) Render(question string, chunks []models.ScoredChunk, history []models.Turn) (string, error) {
	var ctxParts []string
	for _, sc := range chunks {
		if v.annotateSources {
			ctxParts = append(ctxParts, fmt.Sprintf("[Source: %s]\n%s", sc.Chunk.Source, sc.Chunk.Text))
		} else {
			ctxParts = append(ctxParts, sc.Chunk.Text)
		}
	}

	data := templateData{
		Context:  strings.Join(ctxParts, contextDelimiter),
		Question: question,
		History:  renderHistory(history),
	}

	var b strings.Builder
	if err := v.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", v.Tag, err)
	}
	return b.String(), nil
}

func renderHistory(history []models.Turn) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nCONVERSATION SO FAR:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.Question, turn.Answer)
	}
	return b.String()
}

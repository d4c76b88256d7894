package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/neuradynamics/neurarag/internal/models"
)

// Responder answers a single question. *agent.Router satisfies it.
type Responder interface {
	Respond(ctx context.Context, message string) (*models.Answer, error)
}

// Result is the scored outcome for one evaluation question.
type Result struct {
	QuestionID    int      `json:"question_id"`
	Question      string   `json:"question"`
	Category      Category `json:"category"`
	Score         Score    `json:"score"`
	AnswerPreview string   `json:"answer_preview,omitempty"`
	Sources       []string `json:"sources,omitempty"`
	JudgeVerdict  Verdict  `json:"judge_verdict,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Report aggregates one full evaluation run.
type Report struct {
	PromptVersion string   `json:"prompt_version"`
	Rerank        bool     `json:"rerank"`
	Results       []Result `json:"results"`
	Passed        int      `json:"passed"`
	Partial       int      `json:"partial"`
	Failed        int      `json:"failed"`
}

// Runner drives the fixed question set through a Responder and scores each
// answer with the rule matrix, or with the configured Judge when present.
type Runner struct {
	responder Responder
	judge     Judge
	logger    *logrus.Logger
}

func NewRunner(responder Responder, judge Judge, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{responder: responder, judge: judge, logger: logger}
}

// Run evaluates every question. A failed pipeline call scores FAIL for that
// question and the run continues; Run itself fails only on context errors.
func (r *Runner) Run(ctx context.Context, questions []Question, promptVersion string, rerank bool) (*Report, error) {
	report := &Report{PromptVersion: promptVersion, Rerank: rerank}

	for _, q := range questions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := Result{QuestionID: q.ID, Question: q.Question, Category: q.Category}

		answer, err := r.responder.Respond(ctx, q.Question)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"question_id": q.ID,
				"error":       err,
			}).Error("evaluation question failed")
			result.Error = err.Error()
			result.Score = Score{Accuracy: Fail, Hallucination: Fail, Clarity: Fail, Overall: Fail}
			report.Results = append(report.Results, result)
			report.Failed++
			continue
		}

		result.Score = scoreAnswer(q, answer.Text)
		result.AnswerPreview = preview(answer.Text, 200)
		result.Sources = answer.Sources

		if r.judge != nil {
			verdict, jerr := r.judge.Judge(ctx, q, answer.Text)
			if jerr != nil {
				r.logger.WithField("error", jerr).Warn("judge unavailable, keeping rule verdict")
			} else {
				result.JudgeVerdict = verdict
				result.Score.Overall = verdict
			}
		}

		switch result.Score.Overall {
		case Pass:
			report.Passed++
		case Partial:
			report.Partial++
		default:
			report.Failed++
		}

		report.Results = append(report.Results, result)
	}

	return report, nil
}

// Save writes the report as indented JSON, creating parent directories.
func (rep *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

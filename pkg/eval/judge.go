package eval

import (
	"context"
	"fmt"
	"strings"
)

const judgePrompt = `You are grading an answer produced by a policy question-answering assistant.

Question: %s
Category: %s
Reference answer: %s

Assistant's answer:
%s

Grade the assistant's answer against the reference. An UNANSWERABLE question passes only if the assistant declined to answer. Respond with ONLY one word: PASS, PARTIAL, or FAIL. No other text.`

type textModel interface {
	Generate(ctx context.Context, prompt string) (text, model string, err error)
}

// LLMJudge grades answers with a hosted model instead of the rule matrix.
type LLMJudge struct {
	model textModel
}

func NewLLMJudge(model textModel) *LLMJudge {
	return &LLMJudge{model: model}
}

func (j *LLMJudge) Judge(ctx context.Context, question Question, answer string) (Verdict, error) {
	prompt := fmt.Sprintf(judgePrompt, question.Question, question.Category, question.GroundTruth, answer)

	text, _, err := j.model.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	label := strings.ToUpper(strings.TrimSpace(text))
	switch {
	case strings.Contains(label, string(Partial)):
		return Partial, nil
	case strings.Contains(label, string(Fail)):
		return Fail, nil
	case strings.Contains(label, string(Pass)):
		return Pass, nil
	default:
		return "", fmt.Errorf("unrecognized judge verdict %q", text)
	}
}

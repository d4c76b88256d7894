package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/neuradynamics/neurarag/internal/models"
)

// Classifier decides which handler a message is routed to.
type Classifier interface {
	Classify(ctx context.Context, message string) (models.Intent, error)
}

// textModel matches *llm.Fallback so classification gets the same
// primary-then-fallback behavior as generation.
type textModel interface {
	Generate(ctx context.Context, prompt string) (text, model string, err error)
}

const classifierPrompt = `You are an intent classifier for queries to Neura Dynamics. Classify the user's intent into one of the following categories:
- GREETING: Casual hello or hi messages or bye.
- INQUIRY: Questions about products, pricing, features, or policies.
- OUT_OF_SCOPE: Messages that are irrelevant to Neura Dynamics or cannot be answered.

Respond with ONLY one word: GREETING, INQUIRY, or OUT_OF_SCOPE. No other text.

Message: %s`

// LLMClassifier asks a hosted model for the intent label.
type LLMClassifier struct {
	model textModel
}

func NewLLMClassifier(model textModel) *LLMClassifier {
	return &LLMClassifier{model: model}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string) (models.Intent, error) {
	text, _, err := c.model.Generate(ctx, fmt.Sprintf(classifierPrompt, message))
	if err != nil {
		return "", err
	}

	// OUT_OF_SCOPE is checked first because it contains no other label as a
	// substring; anything unrecognized is treated as a greeting.
	label := strings.ToUpper(strings.TrimSpace(text))
	switch {
	case strings.Contains(label, string(models.IntentOutOfScope)):
		return models.IntentOutOfScope, nil
	case strings.Contains(label, string(models.IntentInquiry)):
		return models.IntentInquiry, nil
	default:
		return models.IntentGreeting, nil
	}
}

var greetingWords = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
	"bye", "goodbye", "thanks", "thank you",
}

var inquiryWords = []string{
	"refund", "return", "cancel", "cancellation", "ship", "shipping",
	"delivery", "policy", "policies", "price", "pricing", "cost", "fee",
	"subscription", "order", "product", "service", "support", "warranty",
	"pay", "payment", "billing", "neura",
}

// RuleClassifier is a deterministic keyword classifier, used for offline runs
// and as the test stub for the hosted one.
type RuleClassifier struct{}

func (RuleClassifier) Classify(_ context.Context, message string) (models.Intent, error) {
	lower := strings.ToLower(strings.TrimSpace(message))

	for _, w := range inquiryWords {
		if strings.Contains(lower, w) {
			return models.IntentInquiry, nil
		}
	}

	for _, w := range greetingWords {
		if strings.Contains(lower, w) {
			return models.IntentGreeting, nil
		}
	}

	return models.IntentOutOfScope, nil
}

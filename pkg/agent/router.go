package agent

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/neuradynamics/neurarag/internal/models"
)

// GreetingReply is the canned response for greetings; no retrieval happens.
const GreetingReply = "Hello! I'm the Neura Dynamics policy assistant. " +
	"Ask me about our refund, cancellation, or shipping policies."

// OutOfScopeReply is the canned decline for messages outside the policy
// domain. The generation gateway is never called on this path.
const OutOfScopeReply = "I'm sorry, but I can't assist with that request. " +
	"Please ask about Neura Dynamics products, pricing, features, or policies."

// Asker is the retrieval+generation pipeline the router dispatches
// informational questions to.
type Asker interface {
	Ask(ctx context.Context, question string, history []models.Turn) (*models.Answer, error)
}

// Router classifies each incoming message and dispatches it. Classification
// and dispatch are synchronous per message; the only carried state is the
// bounded conversation history.
type Router struct {
	classifier Classifier
	pipeline   Asker
	history    *History
	logger     *logrus.Logger
}

func NewRouter(classifier Classifier, pipeline Asker, historySize int, logger *logrus.Logger) *Router {
	if logger == nil {
		logger = logrus.New()
	}
	return &Router{
		classifier: classifier,
		pipeline:   pipeline,
		history:    NewHistory(historySize),
		logger:     logger,
	}
}

func (r *Router) Respond(ctx context.Context, message string) (*models.Answer, error) {
	intent, err := r.classifier.Classify(ctx, message)
	if err != nil {
		// Failing toward "attempt an answer" is safer than refusing
		// outright: an inquiry with no matching context still ends at
		// the decline template.
		r.logger.WithField("error", err).Warn("classifier unavailable, defaulting to inquiry")
		intent = models.IntentInquiry
	}

	switch intent {
	case models.IntentGreeting:
		answer := &models.Answer{
			Text:   GreetingReply,
			Intent: models.IntentGreeting,
			Model:  "none (canned)",
		}
		r.history.Add(models.Turn{Question: message, Answer: answer.Text})
		return answer, nil

	case models.IntentOutOfScope:
		r.logger.WithField("message", message).Info("declined out-of-scope message")
		answer := &models.Answer{
			Text:   OutOfScopeReply,
			Intent: models.IntentOutOfScope,
			Model:  "none (out of scope)",
		}
		r.history.Add(models.Turn{Question: message, Answer: answer.Text})
		return answer, nil

	default:
		answer, err := r.pipeline.Ask(ctx, message, r.history.Turns())
		if err != nil {
			return nil, err
		}
		r.history.Add(models.Turn{Question: message, Answer: answer.Text})
		return answer, nil
	}
}

package llm

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Fallback tries the primary generator once and, if it fails, the secondary
// generator once. There is no retry loop beyond that single fallback attempt.
type Fallback struct {
	primary   Generator
	secondary Generator
	logger    *logrus.Logger
}

func NewFallback(primary, secondary Generator, logger *logrus.Logger) *Fallback {
	if logger == nil {
		logger = logrus.New()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Generate returns the completion text and the name of the model that
// produced it. When both providers fail the primary's GatewayError is
// returned so callers can surface a degraded-service response.
func (f *Fallback) Generate(ctx context.Context, prompt string) (string, string, error) {
	text, err := f.primary.Generate(ctx, prompt)
	if err == nil {
		return text, f.primary.Name(), nil
	}

	if f.secondary == nil {
		return "", "", err
	}

	f.logger.WithFields(logrus.Fields{
		"primary": f.primary.Name(),
		"error":   err,
	}).Warn("primary model failed, trying fallback")

	text, ferr := f.secondary.Generate(ctx, prompt)
	if ferr == nil {
		return text, f.secondary.Name(), nil
	}

	f.logger.WithFields(logrus.Fields{
		"fallback": f.secondary.Name(),
		"error":    ferr,
	}).Error("fallback model also failed")

	return "", "", err
}

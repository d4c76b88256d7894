package llm

import (
	"context"
	"fmt"
)

// Generator sends a rendered prompt to a hosted model and returns its text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// GatewayError marks a failed call to a hosted model or embedding API. It is
// distinct from "no relevant information found", which is a successful
// retrieval ending at the decline template.
type GatewayError struct {
	Provider string
	Err      error
}

func (e GatewayError) Error() string {
	return fmt.Sprintf("%s gateway: %v", e.Provider, e.Err)
}

func (e GatewayError) Unwrap() error {
	return e.Err
}

package ai

import (
	"context"

	"hanteikun/internal/session"
)

// Generator produces a free-text model response for a new user message,
// given the prior conversation transcript. The response is not validated
// here; classifying it as a verdict or plain conversation happens one
// layer up in the judge package.
type Generator interface {
	Generate(ctx context.Context, history []session.Turn, message string) (string, error)
	Model() string
}

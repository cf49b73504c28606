// Package embedding computes dense vectors for text fragments through a
// provider-agnostic interface with ordered fallback, used by the
// classification and risk agents (C1).
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when every configured provider failed
// within its call budget. Callers must treat this as a hard failure,
// never silently zero-filling vectors.
var ErrUnavailable = errors.New("embedding: all providers unavailable")

// ErrDimensionMismatch is returned when a caller attempts to mix
// embeddings of different dimensions within one collection.
var ErrDimensionMismatch = errors.New("embedding: dimension mismatch")

// Provider generates embeddings for a batch of texts. Implementations
// must return vectors in the same order as the input texts, all L2
// normalized and of equal dimension.
type Provider interface {
	// Name identifies the provider for status/metadata reporting (e.g.
	// which provider actually served a given run, per scenario S5).
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

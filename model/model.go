// Package model defines the language-model adapter contract consumed by the
// decision engine, plus the Anthropic-backed implementation.
package model

import (
	"context"

	"github.com/pellucidlabs/sage/core"
)

// Info describes a model adapter for status reporting.
type Info struct {
	Provider string
	Name     string
}

// Model generates free-form text from an ordered message list. Generate may
// fail with recoverable errors (network, timeout) or unrecoverable ones
// (invalid credentials); callers are expected to convert both into fallback
// behavior rather than propagate.
type Model interface {
	Generate(ctx context.Context, messages []core.Message) (string, error)
	Info() Info
}

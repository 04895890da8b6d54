package perception

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrExhausted is returned by FallbackClient when every configured backend
// failed. The router converts it into a degraded-service message instead of
// failing the session.
var ErrExhausted = errors.New("all completion backends exhausted")

// Backend is one named entry in the fallback chain.
type Backend struct {
	Name   string
	Client CompletionClient
}

// FallbackClient tries a prioritized list of backends until one responds.
// The chain is fixed at construction; there is no health tracking or
// reordering between calls.
type FallbackClient struct {
	backends []Backend
	log      *zap.Logger
}

// NewFallbackClient builds a fallback chain from the given backends, in
// priority order.
func NewFallbackClient(log *zap.Logger, backends ...Backend) *FallbackClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &FallbackClient{backends: backends, log: log}
}

// Backends returns the names of the configured backends, in try order.
func (f *FallbackClient) Backends() []string {
	names := make([]string, 0, len(f.backends))
	for _, b := range f.backends {
		names = append(names, b.Name)
	}
	return names
}

// Complete tries each backend in order and returns the first successful
// completion. When all fail it returns an error wrapping ErrExhausted.
func (f *FallbackClient) Complete(ctx context.Context, prompt string) (string, error) {
	if len(f.backends) == 0 {
		return "", fmt.Errorf("no backends configured: %w", ErrExhausted)
	}

	var lastErr error
	for _, b := range f.backends {
		reply, err := b.Client.Complete(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		f.log.Warn("completion backend failed, trying next",
			zap.String("backend", b.Name),
			zap.Error(err))
	}

	return "", fmt.Errorf("%w: last error: %v", ErrExhausted, lastErr)
}

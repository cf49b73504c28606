package embedding

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FallbackProvider tries each configured provider in order, within its
// own per-call timeout, and returns the first successful result. It
// never mixes partial results from different providers within one call.
// A single instance is shared across the concurrent Orchestrator.Run
// goroutines a comparison run launches, so the mutable lastUsed field
// is guarded rather than written bare.
type FallbackProvider struct {
	providers []Provider
	timeouts  []time.Duration
	log       *zap.Logger

	mu sync.RWMutex
	// lastUsed records which provider served the most recent Embed call,
	// for provider-used status metadata (scenario S5).
	lastUsed string
}

func NewFallbackProvider(log *zap.Logger, providers []Provider, timeouts []time.Duration) *FallbackProvider {
	return &FallbackProvider{providers: providers, timeouts: timeouts, log: log}
}

func (f *FallbackProvider) Name() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.lastUsed != "" {
		return f.lastUsed
	}
	return "fallback"
}

func (f *FallbackProvider) Dimension() int {
	if len(f.providers) > 0 {
		return f.providers[0].Dimension()
	}
	return 0
}

func (f *FallbackProvider) LastUsed() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastUsed
}

func (f *FallbackProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for i, p := range f.providers {
		timeout := 10 * time.Second
		if i < len(f.timeouts) {
			timeout = f.timeouts[i]
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		vectors, err := p.Embed(callCtx, texts)
		cancel()
		if err == nil {
			f.mu.Lock()
			f.lastUsed = p.Name()
			f.mu.Unlock()
			return vectors, nil
		}
		lastErr = err
		f.log.Warn("embedding provider failed, trying next",
			zap.String("provider", p.Name()), zap.Error(err))
	}
	if lastErr != nil {
		return nil, ErrUnavailable
	}
	return nil, ErrUnavailable
}

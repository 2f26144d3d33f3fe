package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNoProvider is returned by Complete when nothing is registered.
var ErrNoProvider = errors.New("no AI provider registered")

// Observer is notified after every provider attempt.
type Observer func(provider string, task TaskType, elapsed time.Duration, err error)

// Router tries registered providers in registration order until one
// succeeds.
type Router struct {
	providers map[string]Provider
	fallback  []string // ordered fallback chain
	observer  Observer
	mu        sync.RWMutex
}

// NewRouter creates a new AI router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
	}
}

// SetObserver installs a hook called after each provider attempt.
func (r *Router) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// Register adds a provider to the end of the fallback chain. Registering
// the same name again replaces the provider in place.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.fallback = append(r.fallback, name)
	}
	r.providers[name] = provider
}

// Providers returns the registered provider names in fallback order.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.fallback...)
}

// Complete routes a request through the fallback chain.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	r.mu.RLock()
	chain := make([]string, len(r.fallback))
	copy(chain, r.fallback)
	providers := make(map[string]Provider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	observer := r.observer
	r.mu.RUnlock()

	if len(chain) == 0 {
		return CompletionResponse{}, ErrNoProvider
	}

	var errs []error
	for _, name := range chain {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		start := time.Now()
		resp, err := providers[name].Complete(ctx, req)
		if observer != nil {
			observer(name, req.Task, time.Since(start), err)
		}
		if err != nil {
			slog.Warn("AI provider failed, trying next",
				"provider", name,
				"task", req.Task.String(),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		if resp.Provider == "" {
			resp.Provider = name
		}
		slog.Debug("AI request completed",
			"provider", name,
			"task", req.Task.String(),
			"model", resp.Model,
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)
		return resp, nil
	}

	return CompletionResponse{}, fmt.Errorf("all AI providers failed: %w", errors.Join(errs...))
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

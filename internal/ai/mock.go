package ai

import (
	"context"
	"sync"
)

// MockProvider is a test double for AI providers. It is safe for concurrent
// use.
type MockProvider struct {
	Response string
	Err      error

	mu       sync.Mutex
	requests []CompletionRequest
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	if err := ctx.Err(); err != nil {
		return CompletionResponse{}, err
	}
	return CompletionResponse{
		Content:      m.Response,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(m.Response),
	}, nil
}

// Calls returns how many requests the mock has received.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, if any.
func (m *MockProvider) LastRequest() (CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return CompletionRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

package mock

import (
	"context"
	"sync"

	"github.com/poiesic/ragline/ai"
)

// MockCompleter is a test double for ai.Completer.
// It records the prompts it receives.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, echoes a fixed answer.
	CompleteFunc func(ctx context.Context, prompt ai.Prompt) (string, error)

	mu      sync.Mutex
	prompts []ai.Prompt
}

// NewMockCompleter creates a mock completer with default behavior.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete records the prompt and returns the injected or default answer.
func (m *MockCompleter) Complete(ctx context.Context, prompt ai.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "mock answer", nil
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// LastPrompt returns the most recent prompt, or the zero Prompt.
func (m *MockCompleter) LastPrompt() ai.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ai.Prompt{}
	}
	return m.prompts[len(m.prompts)-1]
}

// Reset clears recorded prompts and injected behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.CompleteFunc = nil
}

package mock

import (
	"context"
	"fmt"
)

// MockAnswerer is a test double for ai.Answerer.
type MockAnswerer struct {
	// AnswerFunc is called by Answer if set.
	// If nil, returns a canned answer naming the passage count.
	AnswerFunc func(ctx context.Context, question string, passages []string) (string, error)

	callCount int
}

// NewMockAnswerer creates a mock answerer with default canned behavior.
func NewMockAnswerer() *MockAnswerer {
	return &MockAnswerer{}
}

// Answer returns the injected behavior's result or a canned answer.
func (m *MockAnswerer) Answer(ctx context.Context, question string, passages []string) (string, error) {
	m.callCount++

	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, question, passages)
	}
	return fmt.Sprintf("mock answer from %d passages", len(passages)), nil
}

// CallCount returns the number of times Answer was called.
func (m *MockAnswerer) CallCount() int {
	return m.callCount
}

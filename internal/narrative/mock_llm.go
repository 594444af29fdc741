package narrative

import (
	"context"
	"fmt"
	"sync"
)

// MockLLM is a deterministic LLM implementation for testing.
// It returns predictable responses based on the messages it receives.
type MockLLM struct {
	// Response is the fixed text returned by Generate.
	// If empty, a default response is generated from the messages.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	mu sync.Mutex

	// LastMessages stores the most recent messages passed to Generate.
	LastMessages []Message

	// Calls counts Generate invocations.
	Calls int
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.LastMessages = append([]Message(nil), messages...)

	if m.Error != nil {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return generateMockResponse(messages), nil
}

// SystemPrompt returns the system message of the last call.
func (m *MockLLM) SystemPrompt() string {
	return m.lastWithRole(RoleSystem)
}

// UserPrompt returns the user message of the last call.
func (m *MockLLM) UserPrompt() string {
	return m.lastWithRole(RoleUser)
}

func (m *MockLLM) lastWithRole(role Role) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.LastMessages) - 1; i >= 0; i-- {
		if m.LastMessages[i].Role == role {
			return m.LastMessages[i].Content
		}
	}
	return ""
}

// generateMockResponse echoes the question and counts the passages.
func generateMockResponse(messages []Message) string {
	var question string
	passages := 0
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			question = msg.Content
		case RoleSystem:
			passages += countPassages(msg.Content)
		}
	}
	return fmt.Sprintf("Answer to %q drawn from %d passages.", question, passages)
}

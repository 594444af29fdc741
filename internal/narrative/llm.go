// Package narrative turns retrieved book passages into answers. It defines a
// provider-agnostic LLM interface with implementations for OpenAI, Azure
// OpenAI and Ollama plus a deterministic mock for testing, and assembles the
// personality-driven prompts the generator sends to them.
package narrative

import (
	"context"
	"errors"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role
	Content string
}

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Generate produces the assistant's reply to messages.
	Generate(ctx context.Context, messages []Message) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Model specifies the model identifier or Azure deployment name.
	Model string

	// Temperature controls randomness (0.0 = deterministic, 2.0 = very random)
	Temperature float64

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// TopP is the nucleus sampling mass.
	TopP float64

	// APIKey is the authentication key for the provider
	APIKey string

	// BaseURL points the OpenAI client at a compatible server.
	BaseURL string

	// Endpoint and APIVersion are used by Azure OpenAI only.
	Endpoint   string
	APIVersion string
}

// DefaultLLMConfig returns the sampling settings used for book answers.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       "gpt-4",
		Temperature: 0.5,
		MaxTokens:   1024,
		TopP:        1.0,
	}
}

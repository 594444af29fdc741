package narrative

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/Yates-Labs/folio/internal/apperror"
)

// OllamaLLM implements the LLM interface against a local Ollama server.
type OllamaLLM struct {
	client *api.Client
	config LLMConfig
}

// NewOllamaLLM creates an LLM for the Ollama server at host.
func NewOllamaLLM(host string, config LLMConfig) (*OllamaLLM, error) {
	hostURL, err := url.Parse(host)
	if err != nil || hostURL.Host == "" {
		return nil, apperror.Wrap(apperror.Validation, fmt.Errorf("%w: invalid ollama host %q", ErrInvalidConfig, host), "")
	}
	if config.Model == "" {
		return nil, apperror.Wrap(apperror.Validation, fmt.Errorf("%w: missing model name", ErrInvalidConfig), "")
	}

	return &OllamaLLM{
		client: api.NewClient(hostURL, http.DefaultClient),
		config: config,
	}, nil
}

// Generate runs a non-streaming chat request.
func (o *OllamaLLM) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", apperror.Wrap(apperror.Validation, fmt.Errorf("%w: no messages", ErrInvalidConfig), "")
	}

	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}

	options := map[string]any{"temperature": o.config.Temperature}
	if o.config.MaxTokens > 0 {
		options["num_predict"] = o.config.MaxTokens
	}
	if o.config.TopP > 0 {
		options["top_p"] = o.config.TopP
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.config.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  options,
	}

	var b strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", apperror.Wrap(apperror.Upstream, fmt.Errorf("%w: %w", ErrLLMFailed, err), "")
	}
	return b.String(), nil
}

package narrative

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/Yates-Labs/folio/internal/apperror"
)

// OpenAILLM implements the LLM interface using OpenAI's API. The same type
// serves Azure OpenAI deployments.
type OpenAILLM struct {
	client openai.Client
	config LLMConfig
}

// NewOpenAILLM creates an OpenAI-backed LLM implementation.
// Returns an error if the API key is missing or invalid.
func NewOpenAILLM(config LLMConfig) (*OpenAILLM, error) {
	if config.APIKey == "" {
		return nil, apperror.Wrap(apperror.Validation,
			fmt.Errorf("%w: missing API key (set OPENAI_API_KEY or provide in config)", ErrInvalidConfig), "")
	}
	if config.Model == "" {
		return nil, apperror.Wrap(apperror.Validation, fmt.Errorf("%w: missing model name", ErrInvalidConfig), "")
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAILLM{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// NewAzureOpenAILLM creates an LLM backed by an Azure OpenAI deployment.
// config.Model names the deployment.
func NewAzureOpenAILLM(config LLMConfig) (*OpenAILLM, error) {
	if config.Endpoint == "" {
		return nil, apperror.Wrap(apperror.Validation,
			fmt.Errorf("%w: missing endpoint (set AZURE_OPENAI_ENDPOINT)", ErrInvalidConfig), "")
	}
	if config.APIKey == "" {
		return nil, apperror.Wrap(apperror.Validation,
			fmt.Errorf("%w: missing API key (set AZURE_OPENAI_API_KEY)", ErrInvalidConfig), "")
	}
	if config.Model == "" {
		return nil, apperror.Wrap(apperror.Validation, fmt.Errorf("%w: missing deployment name", ErrInvalidConfig), "")
	}

	client := openai.NewClient(
		azure.WithEndpoint(config.Endpoint, config.APIVersion),
		azure.WithAPIKey(config.APIKey),
	)
	return &OpenAILLM{client: client, config: config}, nil
}

// Generate sends messages to the chat completion API and returns the reply.
func (o *OpenAILLM) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", apperror.Wrap(apperror.Validation, fmt.Errorf("%w: no messages", ErrInvalidConfig), "")
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.config.Model),
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(o.config.Temperature),
	}
	if o.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.config.MaxTokens))
	}
	if o.config.TopP > 0 {
		params.TopP = openai.Float(o.config.TopP)
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", apperror.Wrap(apperror.Upstream, fmt.Errorf("%w: %w", ErrLLMFailed, err), "")
	}

	if len(completion.Choices) == 0 {
		return "", apperror.Wrap(apperror.Upstream, fmt.Errorf("%w: no response generated", ErrLLMFailed), "")
	}

	return completion.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/Yates-Labs/folio/internal/apperror"
)

// Common errors for embedding operations
var (
	ErrEmptyTexts      = errors.New("no texts provided for embedding")
	ErrMissingAPIKey   = errors.New("embedding API key not set")
	ErrMissingEndpoint = errors.New("embedding endpoint not set")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Embedding widths of the models folio knows about.
const (
	DefaultDimensions = 1536
	LargeDimensions   = 3072
)

// EmbeddingRecord represents a single text embedding with metadata
type EmbeddingRecord struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
	Model     string    `json:"model"`
}

// Embedder defines the interface for generating text embeddings
type Embedder interface {
	// Embed generates embeddings for the provided texts
	Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error)

	// GetModel returns the embedding model identifier
	GetModel() string

	// GetDimension returns the embedding vector dimension
	GetDimension() int
}

// DimensionsForModel returns override when positive, 3072 for
// text-embedding-3-large, and 1536 otherwise.
func DimensionsForModel(model string, override int) int {
	if override > 0 {
		return override
	}
	if strings.Contains(model, "text-embedding-3-large") {
		return LargeDimensions
	}
	return DefaultDimensions
}

// OpenAIConfig configures an OpenAI or Azure OpenAI embedder.
type OpenAIConfig struct {
	APIKey string
	Model  string

	// Dimensions overrides the model's default width when non-zero.
	Dimensions int

	// BaseURL points the OpenAI client at a compatible server.
	BaseURL string

	// Endpoint and APIVersion select Azure OpenAI; Model is then the
	// deployment name.
	Endpoint   string
	APIVersion string
}

// OpenAIEmbedder implements the Embedder interface using OpenAI's API
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates an embedder against api.openai.com.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, apperror.Wrap(apperror.Validation, ErrMissingAPIKey, "openai (OPENAI_API_KEY)")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return newOpenAIEmbedder(client, cfg), nil
}

// NewAzureOpenAIEmbedder creates an embedder against an Azure OpenAI
// deployment.
func NewAzureOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, apperror.Wrap(apperror.Validation, ErrMissingEndpoint, "azure openai (AZURE_OPENAI_ENDPOINT)")
	}
	if cfg.APIKey == "" {
		return nil, apperror.Wrap(apperror.Validation, ErrMissingAPIKey, "azure openai (AZURE_OPENAI_API_KEY)")
	}

	client := openai.NewClient(
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
	)
	return newOpenAIEmbedder(client, cfg), nil
}

func newOpenAIEmbedder(client openai.Client, cfg OpenAIConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:    client,
		model:     cfg.Model,
		dimension: DimensionsForModel(cfg.Model, cfg.Dimensions),
	}
}

// GetModel returns the embedding model identifier
func (e *OpenAIEmbedder) GetModel() string {
	return e.model
}

// GetDimension returns the embedding vector dimension
func (e *OpenAIEmbedder) GetDimension() int {
	return e.dimension
}

// Embed generates embeddings for the provided texts using OpenAI's API
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if len(texts) == 0 {
		return nil, apperror.Wrap(apperror.Validation, ErrEmptyTexts, "")
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	// Only the text-embedding-3 family accepts a dimensions parameter.
	if strings.Contains(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, apperror.Wrap(apperror.Upstream, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err), "")
	}
	if len(resp.Data) != len(texts) {
		return nil, apperror.Wrap(apperror.Upstream,
			fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(resp.Data)), "")
	}

	records := make([]EmbeddingRecord, len(resp.Data))
	for i, data := range resp.Data {
		// Convert []float64 to []float32
		embedding := make([]float32, len(data.Embedding))
		for j, val := range data.Embedding {
			embedding[j] = float32(val)
		}

		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) {
			idx = i
		}
		records[idx] = EmbeddingRecord{
			Text:      texts[idx],
			Embedding: embedding,
			Index:     idx,
			Model:     e.model,
		}
	}

	return records, nil
}

// EmbedOne embeds a single text and returns its vector.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	records, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0].Embedding) == 0 {
		return nil, apperror.Wrap(apperror.Upstream, fmt.Errorf("%w: empty response", ErrEmbeddingFailed), "")
	}
	return records[0].Embedding, nil
}

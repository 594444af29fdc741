package rag

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/ollama/ollama/api"

	"github.com/Yates-Labs/folio/internal/apperror"
)

// OllamaEmbedder generates embeddings with a local Ollama server. It is
// safe for concurrent use.
type OllamaEmbedder struct {
	client    *api.Client
	model     string
	dimension atomic.Int64
}

// NewOllamaEmbedder creates an embedder for host (e.g. http://127.0.0.1:11434).
// dimension may be zero; it is then learned from the first response.
func NewOllamaEmbedder(host, model string, dimension int) (*OllamaEmbedder, error) {
	hostURL, err := url.Parse(host)
	if err != nil || hostURL.Host == "" {
		return nil, apperror.Validationf("invalid ollama host %q", host)
	}
	if model == "" {
		return nil, apperror.Validationf("ollama embedding model is required")
	}

	e := &OllamaEmbedder{
		client: api.NewClient(hostURL, http.DefaultClient),
		model:  model,
	}
	e.dimension.Store(int64(dimension))
	return e, nil
}

// GetModel returns the embedding model identifier
func (e *OllamaEmbedder) GetModel() string {
	return e.model
}

// GetDimension returns the configured or last observed vector width.
func (e *OllamaEmbedder) GetDimension() int {
	return int(e.dimension.Load())
}

// Embed requests one embedding per text, in order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if len(texts) == 0 {
		return nil, apperror.Wrap(apperror.Validation, ErrEmptyTexts, "")
	}

	records := make([]EmbeddingRecord, len(texts))
	for i, text := range texts {
		resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
			Model:  e.model,
			Prompt: text,
		})
		if err != nil {
			return nil, apperror.Wrap(apperror.Upstream, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err), "")
		}

		embedding := make([]float32, len(resp.Embedding))
		for j, val := range resp.Embedding {
			embedding[j] = float32(val)
		}
		e.dimension.CompareAndSwap(0, int64(len(embedding)))

		records[i] = EmbeddingRecord{
			Text:      text,
			Embedding: embedding,
			Index:     i,
			Model:     e.model,
		}
	}
	return records, nil
}

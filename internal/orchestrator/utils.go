package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/config"
	"github.com/Yates-Labs/folio/internal/jobs"
	"github.com/Yates-Labs/folio/internal/narrative"
	"github.com/Yates-Labs/folio/internal/rag"
	"github.com/Yates-Labs/folio/internal/rag/store"
	"github.com/Yates-Labs/folio/internal/rag/store/azure"
	"github.com/Yates-Labs/folio/internal/rag/store/local"
	"github.com/Yates-Labs/folio/internal/rag/store/milvus"
)

// NewStore connects to the search backend named by search.backend.
func NewStore(ctx context.Context, cfg *config.Config) (store.Service, error) {
	switch cfg.Search.Backend {
	case "azure":
		client, err := azure.New(azure.Config{
			Endpoint:   cfg.Search.Azure.Endpoint,
			APIKey:     cfg.Search.Azure.APIKey,
			APIVersion: cfg.Search.Azure.APIVersion,
			Timeout:    cfg.Search.Azure.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "milvus":
		ms, err := milvus.New(ctx, milvus.Config{
			Address:  cfg.Search.Milvus.Address,
			EfSearch: cfg.Search.Milvus.EfSearch,
		})
		if err != nil {
			return nil, err
		}
		return ms, nil
	case "local":
		return local.New(), nil
	default:
		return nil, apperror.Wrap(apperror.Validation, store.ErrUnsupportedBackend, cfg.Search.Backend)
	}
}

// NewEmbedder creates the embedding client named by embedding.provider.
func NewEmbedder(cfg *config.Config) (rag.Embedder, error) {
	var (
		embedder rag.Embedder
		err      error
	)
	switch cfg.Embedding.Provider {
	case "openai":
		embedder, err = rag.NewOpenAIEmbedder(rag.OpenAIConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	case "azure":
		embedder, err = rag.NewAzureOpenAIEmbedder(rag.OpenAIConfig{
			APIKey:     cfg.AzureOpenAI.APIKey,
			Endpoint:   cfg.AzureOpenAI.Endpoint,
			APIVersion: cfg.AzureOpenAI.APIVersion,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	case "ollama":
		embedder, err = rag.NewOllamaEmbedder(cfg.Ollama.Host, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	default:
		return nil, apperror.Validationf("unsupported embedding provider %q", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// NewLLM creates the chat-completion client named by chat.provider.
func NewLLM(cfg *config.Config) (narrative.LLM, error) {
	llmConfig := LLMConfig(cfg)

	var (
		llm narrative.LLM
		err error
	)
	switch cfg.Chat.Provider {
	case "openai":
		llmConfig.APIKey = cfg.OpenAI.APIKey
		llmConfig.BaseURL = cfg.OpenAI.BaseURL
		llm, err = narrative.NewOpenAILLM(llmConfig)
	case "azure":
		llmConfig.APIKey = cfg.AzureOpenAI.APIKey
		llmConfig.Endpoint = cfg.AzureOpenAI.Endpoint
		llmConfig.APIVersion = cfg.AzureOpenAI.APIVersion
		llm, err = narrative.NewAzureOpenAILLM(llmConfig)
	case "ollama":
		llm, err = narrative.NewOllamaLLM(cfg.Ollama.Host, llmConfig)
	default:
		return nil, apperror.Validationf("unsupported chat provider %q", cfg.Chat.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}
	return llm, nil
}

// LLMConfig maps the chat section onto generation parameters, without
// credentials.
func LLMConfig(cfg *config.Config) narrative.LLMConfig {
	llmConfig := narrative.DefaultLLMConfig()
	if cfg.Chat.Model != "" {
		llmConfig.Model = cfg.Chat.Model
	}
	llmConfig.Temperature = cfg.Chat.Temperature
	if cfg.Chat.MaxTokens > 0 {
		llmConfig.MaxTokens = cfg.Chat.MaxTokens
	}
	if cfg.Chat.TopP > 0 {
		llmConfig.TopP = cfg.Chat.TopP
	}
	return llmConfig
}

// NewJobStore opens the job status store named by jobs.store.
func NewJobStore(ctx context.Context, cfg *config.Config) (jobs.Store, error) {
	switch cfg.Jobs.Store {
	case "memory":
		return jobs.NewMemoryStore(cfg.Jobs.TTL), nil
	case "redis":
		rs, err := jobs.NewRedisStore(ctx, jobs.RedisConfig{
			Addr:      cfg.Jobs.Redis.Addr,
			Password:  cfg.Jobs.Redis.Password,
			DB:        cfg.Jobs.Redis.DB,
			KeyPrefix: cfg.Jobs.Redis.KeyPrefix,
			TTL:       cfg.Jobs.TTL,
		})
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return nil, apperror.Validationf("unsupported job store %q", cfg.Jobs.Store)
	}
}

// VisualizeEmbedding describes the first n values of vector.
func VisualizeEmbedding(vector []float32, n int) string {
	if n > len(vector) {
		n = len(vector)
	}
	sample := make([]string, n)
	for i, v := range vector[:n] {
		sample[i] = fmt.Sprintf("%.6f", v)
	}
	return fmt.Sprintf("Embedding vector sample (first %d of %d dimensions):\n[%s, ...]\nVector shape: %d dimensions",
		n, len(vector), strings.Join(sample, ", "), len(vector))
}

// VectorStats summarises an embedding.
type VectorStats struct {
	Dimensions int
	Max        float32
	Min        float32
	Avg        float64
}

// Stats returns the width and value range of vector.
func Stats(vector []float32) VectorStats {
	stats := VectorStats{Dimensions: len(vector)}
	if len(vector) == 0 {
		return stats
	}

	stats.Max, stats.Min = vector[0], vector[0]
	var sum float64
	for _, v := range vector {
		if v > stats.Max {
			stats.Max = v
		}
		if v < stats.Min {
			stats.Min = v
		}
		sum += float64(v)
	}
	stats.Avg = sum / float64(len(vector))
	return stats
}

// Package orchestrator wires folio's components into a Pipeline. Every
// external client is built once from configuration and shared by the HTTP
// server and the CLI.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/chunker"
	"github.com/Yates-Labs/folio/internal/config"
	"github.com/Yates-Labs/folio/internal/jobs"
	"github.com/Yates-Labs/folio/internal/logging"
	"github.com/Yates-Labs/folio/internal/narrative"
	"github.com/Yates-Labs/folio/internal/rag"
	"github.com/Yates-Labs/folio/internal/rag/store"
	"github.com/Yates-Labs/folio/internal/telemetry"
)

// Components are the external collaborators of a Pipeline. Store, Embedder
// and LLM are required; JobStore defaults to an in-memory store.
type Components struct {
	Store    store.Service
	Embedder rag.Embedder
	LLM      narrative.LLM
	JobStore jobs.Store
	Metrics  *telemetry.Metrics
}

// Pipeline answers questions about indexed books and indexes new ones.
type Pipeline struct {
	config    *config.Config
	store     store.Service
	embedder  rag.Embedder
	jobStore  jobs.Store
	indexer   *rag.Indexer
	retriever *rag.Retriever
	generator *narrative.Generator
	runner    *jobs.Runner
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
}

// NewPipeline builds every component named by cfg.
func NewPipeline(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*Pipeline, error) {
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	llm, err := NewLLM(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}

	jobStore, err := NewJobStore(ctx, cfg)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("failed to create job store: %w", err)
	}

	return New(cfg, Components{
		Store:    svc,
		Embedder: embedder,
		LLM:      llm,
		JobStore: jobStore,
		Metrics:  metrics,
	})
}

// New assembles a Pipeline from already constructed components.
func New(cfg *config.Config, c Components) (*Pipeline, error) {
	if cfg == nil {
		return nil, apperror.Validationf("config cannot be nil")
	}
	if c.Store == nil || c.Embedder == nil || c.LLM == nil {
		return nil, apperror.Validationf("store, embedder and LLM are required")
	}
	if c.JobStore == nil {
		c.JobStore = jobs.NewMemoryStore(cfg.Jobs.TTL)
	}

	indexer, err := rag.NewIndexer(c.Store, c.Embedder, rag.IndexerConfig{
		Prefix:  cfg.Search.IndexPrefix,
		Chunker: chunker.Config{MinLength: cfg.Chunker.MinLength},
		HNSW: store.HNSWParams{
			M:              cfg.Search.Milvus.M,
			EfConstruction: cfg.Search.Milvus.EfConstruction,
			EfSearch:       cfg.Search.Milvus.EfSearch,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}

	retriever, err := rag.NewRetriever(c.Store, c.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	runner := jobs.NewRunner(c.JobStore, cfg.Jobs.Timeout)
	if c.Metrics != nil {
		retriever.SetObserver(c.Metrics)
		runner.SetObserver(c.Metrics)
	}

	return &Pipeline{
		config:    cfg,
		store:     c.Store,
		embedder:  c.Embedder,
		jobStore:  c.JobStore,
		indexer:   indexer,
		retriever: retriever,
		generator: narrative.NewGenerator(c.LLM, LLMConfig(cfg)),
		runner:    runner,
		metrics:   c.Metrics,
		logger:    logging.Component("pipeline"),
	}, nil
}

// Config returns the settings the pipeline was built from.
func (p *Pipeline) Config() *config.Config {
	return p.config
}

// Embedder returns the shared embedding client.
func (p *Pipeline) Embedder() rag.Embedder {
	return p.embedder
}

// Generator returns the answer generator.
func (p *Pipeline) Generator() *narrative.Generator {
	return p.generator
}

// Prefix returns the book index prefix.
func (p *Pipeline) Prefix() string {
	return p.indexer.Prefix()
}

// ListIndexes returns the book indexes, sorted.
func (p *Pipeline) ListIndexes(ctx context.Context) ([]string, error) {
	return p.indexer.ListIndexes(ctx)
}

// DefaultIndexName derives "<prefix>-<slug>" from a book file name.
func (p *Pipeline) DefaultIndexName(path string) string {
	return rag.IndexName(p.Prefix(), path)
}

// IndexBook replaces indexName with the chunks of the book at path. An
// empty indexName is derived from the file name.
func (p *Pipeline) IndexBook(ctx context.Context, path, indexName string) (int, error) {
	if indexName == "" {
		indexName = p.DefaultIndexName(path)
	}

	p.logger.Info().Str("file", path).Str("index", indexName).Msg("Indexing book")
	n, err := p.indexer.IndexBook(ctx, path, indexName)
	if err != nil {
		return 0, err
	}
	p.logger.Info().Str("index", indexName).Int("documents", n).Msg("Successfully indexed book")
	return n, nil
}

// IndexAll indexes every .txt file in dir under its derived index name.
func (p *Pipeline) IndexAll(ctx context.Context, dir string) ([]rag.IndexResult, error) {
	return p.indexer.IndexAll(ctx, dir)
}

// SubmitIndexJob indexes the book at path in the background and returns
// the pending job.
func (p *Pipeline) SubmitIndexJob(ctx context.Context, path, indexName string) (jobs.Job, error) {
	if indexName == "" {
		indexName = p.DefaultIndexName(path)
	}
	if err := store.ValidateIndexName(indexName); err != nil {
		return jobs.Job{}, err
	}

	job := jobs.Job{
		Kind:       jobs.KindIndexBook,
		IndexName:  indexName,
		SourceFile: filepath.Base(path),
	}
	return p.runner.Submit(ctx, job, func(ctx context.Context) (int, error) {
		return p.IndexBook(ctx, path, indexName)
	})
}

// Job returns the current record of a submitted job.
func (p *Pipeline) Job(ctx context.Context, id string) (jobs.Job, error) {
	return p.runner.Get(ctx, id)
}

// Close waits for running jobs until ctx is done, then releases the
// search service and job store.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	if err := p.runner.Wait(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("Stopped waiting for running jobs")
		errs = append(errs, err)
	}
	if err := p.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close search service: %w", err))
	}
	if err := p.jobStore.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close job store: %w", err))
	}
	return errors.Join(errs...)
}

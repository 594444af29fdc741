package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/chunker"
	"github.com/Yates-Labs/folio/internal/logging"
	"github.com/Yates-Labs/folio/internal/rag/store"
)

// ErrNoChunks is returned when a book yields nothing worth indexing.
var ErrNoChunks = errors.New("book produced no chunks")

// IndexerConfig controls how books are turned into indexes.
type IndexerConfig struct {
	// Prefix names book indexes "<prefix>-<book>" and filters ListIndexes.
	Prefix  string
	Chunker chunker.Config
	HNSW    store.HNSWParams
}

// DefaultIndexerConfig returns sensible defaults for indexing
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		Prefix:  "classic",
		Chunker: chunker.DefaultConfig(),
		HNSW:    store.DefaultHNSWParams(),
	}
}

// IndexResult reports the outcome of indexing one book.
type IndexResult struct {
	Path      string `json:"path"`
	Index     string `json:"index"`
	Documents int    `json:"documents"`
	Err       error  `json:"-"`
}

// Indexer builds and replaces book indexes in a search service.
type Indexer struct {
	store    store.Service
	embedder Embedder
	config   IndexerConfig
	logger   zerolog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(svc store.Service, embedder Embedder, cfg IndexerConfig) (*Indexer, error) {
	if svc == nil {
		return nil, fmt.Errorf("search service cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = DefaultIndexerConfig().Prefix
	}
	if cfg.HNSW == (store.HNSWParams{}) {
		cfg.HNSW = store.DefaultHNSWParams()
	}

	return &Indexer{
		store:    svc,
		embedder: embedder,
		config:   cfg,
		logger:   logging.Component("indexer"),
	}, nil
}

// Prefix returns the book index prefix.
func (ix *Indexer) Prefix() string {
	return ix.config.Prefix
}

// CreateOrReplaceIndex drops name if it exists and creates it empty with
// vectors dims wide. A failed delete other than "not found" is logged and
// creation is still attempted.
func (ix *Indexer) CreateOrReplaceIndex(ctx context.Context, name string, dims int) error {
	if err := store.ValidateIndexName(name); err != nil {
		return err
	}

	err := ix.store.DeleteIndex(ctx, name)
	switch {
	case err == nil:
		ix.logger.Info().Str("index", name).Msg("Deleted existing index")
	case errors.Is(err, store.ErrIndexNotFound):
	default:
		ix.logger.Warn().Err(err).Str("index", name).Msg("Failed to delete existing index")
	}

	def := store.IndexDefinition{Name: name, Dimensions: dims, HNSW: ix.config.HNSW}
	if err := ix.store.CreateIndex(ctx, def); err != nil {
		return err
	}
	ix.logger.Info().Str("index", name).Int("dimensions", dims).Msg("Created index")
	return nil
}

// Upload bulk-inserts docs into an existing index.
func (ix *Indexer) Upload(ctx context.Context, name string, docs []store.Document) error {
	if err := store.ValidateDocuments(docs, 0); err != nil {
		return err
	}
	if err := ix.store.Upload(ctx, name, docs); err != nil {
		return err
	}
	ix.logger.Info().Str("index", name).Int("documents", len(docs)).Msg("Uploaded chunks")
	return nil
}

// ListIndexes returns the book indexes, those named "<prefix>-...", sorted.
func (ix *Indexer) ListIndexes(ctx context.Context) ([]string, error) {
	names, err := ix.store.ListIndexes(ctx)
	if err != nil {
		return nil, err
	}

	want := ix.config.Prefix + "-"
	books := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasPrefix(n, want) {
			books = append(books, n)
		}
	}
	sort.Strings(books)
	return books, nil
}

// IndexBook reads a text file and replaces indexName with its chunks.
// It returns the number of uploaded documents.
func (ix *Indexer) IndexBook(ctx context.Context, path, indexName string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, apperror.NotFoundf("book file %s not found", path)
		}
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ix.IndexText(ctx, string(data), NewBookInfo(path), indexName)
}

// IndexText chunks text, embeds every chunk and replaces indexName with
// the resulting documents. Documents are built before the index is
// touched so an embedding failure leaves the previous index intact.
func (ix *Indexer) IndexText(ctx context.Context, text string, book BookInfo, indexName string) (int, error) {
	if indexName == "" {
		return 0, apperror.Validationf("index name is required")
	}
	if err := store.ValidateIndexName(indexName); err != nil {
		return 0, err
	}

	chunks := chunker.Split(text, ix.config.Chunker)
	if len(chunks) == 0 {
		return 0, apperror.Wrap(apperror.Validation,
			fmt.Errorf("%w: %s (min length %d)", ErrNoChunks, book.Title, ix.config.Chunker.MinLength), "")
	}
	ix.logger.Info().Str("book", book.Title).Int("chunks", len(chunks)).Msg("Embedding chunks")

	docs, err := BuildDocuments(ctx, ix.embedder, chunks, book)
	if err != nil {
		return 0, err
	}

	dims := len(docs[0].ContentVector)
	if dims == 0 {
		dims = ix.embedder.GetDimension()
	}

	if err := ix.CreateOrReplaceIndex(ctx, indexName, dims); err != nil {
		return 0, err
	}
	if err := ix.Upload(ctx, indexName, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// BookFiles lists the .txt files directly inside dir, sorted by name.
func BookFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperror.NotFoundf("assets directory %s not found", dir)
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// IndexAll indexes every book in dir as "<prefix>-<book>". A failing book
// is recorded in its result and the rest are still processed; the joined
// failures are returned alongside the results.
func (ix *Indexer) IndexAll(ctx context.Context, dir string) ([]IndexResult, error) {
	files, err := BookFiles(dir)
	if err != nil {
		return nil, err
	}

	results := make([]IndexResult, 0, len(files))
	var errs []error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		name := IndexName(ix.config.Prefix, path)
		ix.logger.Info().Str("book", BookStem(path)).Str("index", name).Msg("Creating index")

		n, err := ix.IndexBook(ctx, path, name)
		results = append(results, IndexResult{Path: path, Index: name, Documents: n, Err: err})
		if err != nil {
			ix.logger.Error().Err(err).Str("index", name).Msg("Index creation failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		ix.logger.Info().Str("index", name).Int("documents", n).Msg("Completed index creation")
	}

	return results, errors.Join(errs...)
}

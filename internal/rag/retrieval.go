package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/logging"
	"github.com/Yates-Labs/folio/internal/rag/store"
)

// SearchObserver receives one call per index searched.
type SearchObserver interface {
	ObserveSearch(mode store.Mode, fellBack bool, hits int, elapsed time.Duration, err error)
}

// Retriever picks the search strategy for a query and runs it against one
// or more book indexes.
type Retriever struct {
	store    store.Service
	embedder Embedder
	observer SearchObserver
	logger   zerolog.Logger
}

// NewRetriever creates a new Retriever instance. embedder may be nil, in
// which case semantic searches run without a vector query.
func NewRetriever(svc store.Service, embedder Embedder) (*Retriever, error) {
	if svc == nil {
		return nil, fmt.Errorf("search service cannot be nil")
	}

	return &Retriever{
		store:    svc,
		embedder: embedder,
		logger:   logging.Component("retriever"),
	}, nil
}

// SetObserver installs o to be told about every search.
func (r *Retriever) SetObserver(o SearchObserver) {
	r.observer = o
}

// Search runs query against a single index.
//
// Opening-line questions fetch the first chunk of the book by position.
// Everything else runs a semantic search for the top limit passages and,
// if that finds nothing, retries as a plain keyword search.
func (r *Retriever) Search(ctx context.Context, query, index string, limit int) ([]ContextEntry, error) {
	if index == "" {
		return nil, apperror.Validationf("index name cannot be empty")
	}
	if limit <= 0 {
		return nil, apperror.Validationf("limit must be positive, got %d", limit)
	}

	start := time.Now()

	if IsOpeningQuery(query) {
		hits, err := r.store.Search(ctx, index, store.Query{Text: query, Top: 1, Mode: store.ModeOrdered})
		r.observe(store.ModeOrdered, false, len(hits), start, err)
		if err != nil {
			return nil, err
		}
		return toEntries(index, hits), nil
	}

	q := store.Query{Text: query, Top: limit, Mode: store.ModeSemantic}
	if r.embedder != nil && strings.TrimSpace(query) != "" {
		vector, err := EmbedOne(ctx, r.embedder, query)
		if err != nil {
			r.logger.Warn().Err(err).Str("index", index).Msg("Query embedding failed, searching text only")
		} else {
			q.Vector = vector
		}
	}

	hits, err := r.store.Search(ctx, index, q)
	if err != nil {
		r.observe(store.ModeSemantic, false, 0, start, err)
		return nil, err
	}

	fellBack := false
	if len(hits) == 0 {
		r.logger.Info().Str("index", index).Str("query", query).
			Msg("Semantic search returned no results, falling back to keyword search")
		fellBack = true
		hits, err = r.store.Search(ctx, index, store.Query{Text: query, Top: limit, Mode: store.ModeLexical})
		if err != nil {
			r.observe(store.ModeLexical, fellBack, 0, start, err)
			return nil, err
		}
	}

	r.observe(store.ModeSemantic, fellBack, len(hits), start, nil)
	return toEntries(index, hits), nil
}

// SearchIndexes searches each index in turn and concatenates the results.
// An index that fails is logged and skipped, so a query whose every index
// fails has no results rather than an error.
func (r *Retriever) SearchIndexes(ctx context.Context, query string, indexes []string, limit int) ([]ContextEntry, error) {
	var all []ContextEntry
	for _, index := range indexes {
		entries, err := r.Search(ctx, query, index, limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Error().Err(err).Str("index", index).Msg("Error searching index")
			continue
		}
		if len(entries) > 0 {
			r.logger.Debug().Str("index", index).Int("results", len(entries)).Msg("Found relevant content")
		}
		all = append(all, entries...)
	}
	return all, nil
}

// SelectIndexes chooses which indexes a query should search. If the query
// names a book from catalog only that index is returned (see MatchIndex).
// Otherwise active is returned, or the whole catalog when active is empty.
func SelectIndexes(query string, catalog, active []string, prefix string) []string {
	if index, ok := MatchIndex(query, catalog, prefix); ok {
		return []string{index}
	}

	if len(active) > 0 {
		return append([]string(nil), active...)
	}
	return append([]string(nil), catalog...)
}

// MatchIndex reports the first index in catalog whose book name (the index
// name without "<prefix>-") appears in query.
func MatchIndex(query string, catalog []string, prefix string) (string, bool) {
	q := strings.ToLower(query)
	for _, index := range catalog {
		book := strings.ToLower(strings.TrimPrefix(index, prefix+"-"))
		if book == "" {
			continue
		}
		if strings.Contains(q, book) {
			return index, true
		}
	}
	return "", false
}

func (r *Retriever) observe(mode store.Mode, fellBack bool, hits int, start time.Time, err error) {
	if r.observer != nil {
		r.observer.ObserveSearch(mode, fellBack, hits, time.Since(start), err)
	}
}

func toEntries(index string, hits []store.Hit) []ContextEntry {
	entries := make([]ContextEntry, len(hits))
	for i, h := range hits {
		entries[i] = NewContextEntry(index, h)
	}
	return entries
}

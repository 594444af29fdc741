// Package local is an in-process search service: chromem-go holds the
// vectors and bleve holds the lexical and ordinal indexes. Nothing is
// persisted, which makes it suitable for local runs and tests.
package local

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/philippgille/chromem-go"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/rag/store"
)

// rrfK is the reciprocal rank fusion constant.
const rrfK = 60

var errNoEmbeddingFunc = errors.New("documents must carry precomputed embeddings")

type index struct {
	def     store.IndexDefinition
	vectors *chromem.Collection
	text    bleve.Index
	docs    map[string]store.Document
}

// Store implements store.Service in memory.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	indexes map[string]*index
}

var _ store.Service = (*Store)(nil)

// New creates an empty in-process store.
func New() *Store {
	return &Store{
		db:      chromem.NewDB(),
		indexes: make(map[string]*index),
	}
}

// CreateIndex creates the vector collection and the text index for def.
func (s *Store) CreateIndex(ctx context.Context, def store.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[def.Name]; ok {
		return store.Upstream(store.ErrIndexExists, fmt.Errorf("%s", def.Name))
	}

	noEmbed := func(context.Context, string) ([]float32, error) { return nil, errNoEmbeddingFunc }
	coll, err := s.db.CreateCollection(def.Name, map[string]string{"dimensions": strconv.Itoa(def.Dimensions)}, noEmbed)
	if err != nil {
		return store.Upstream(store.ErrIndexFailed, err)
	}

	text, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		_ = s.db.DeleteCollection(def.Name)
		return store.Upstream(store.ErrIndexFailed, err)
	}

	s.indexes[def.Name] = &index{
		def:     def,
		vectors: coll,
		text:    text,
		docs:    make(map[string]store.Document),
	}
	return nil
}

// DeleteIndex drops both halves of the named index.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[name]
	if !ok {
		return store.NotFound(name)
	}
	delete(s.indexes, name)

	if err := s.db.DeleteCollection(name); err != nil {
		return store.Upstream(store.ErrIndexFailed, err)
	}
	if err := idx.text.Close(); err != nil {
		return store.Upstream(store.ErrIndexFailed, err)
	}
	return nil
}

// ListIndexes returns index names in lexical order.
func (s *Store) ListIndexes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.indexes))
	for name := range s.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Upload adds docs to both the vector collection and the text index.
func (s *Store) Upload(ctx context.Context, name string, docs []store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[name]
	if !ok {
		return store.NotFound(name)
	}
	if err := store.ValidateDocuments(docs, idx.def.Dimensions); err != nil {
		return err
	}

	vecDocs := make([]chromem.Document, len(docs))
	batch := idx.text.NewBatch()
	for i, d := range docs {
		vecDocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Content,
			Embedding: d.ContentVector,
			Metadata: map[string]string{
				store.FieldTitle:    d.Title,
				store.FieldFilepath: d.Filepath,
				store.FieldURL:      d.URL,
				store.FieldOrdinal:  strconv.Itoa(d.Ordinal),
			},
		}
		if err := batch.Index(d.ID, map[string]interface{}{
			store.FieldContent: d.Content,
			store.FieldTitle:   d.Title,
			store.FieldOrdinal: float64(d.Ordinal),
		}); err != nil {
			return store.Upstream(store.ErrUploadFailed, err)
		}
	}

	if err := idx.vectors.AddDocuments(ctx, vecDocs, runtime.NumCPU()); err != nil {
		return store.Upstream(store.ErrUploadFailed, err)
	}
	if err := idx.text.Batch(batch); err != nil {
		return store.Upstream(store.ErrUploadFailed, err)
	}

	for _, d := range docs {
		idx.docs[d.ID] = d
	}
	return nil
}

// Search executes q against the named index.
func (s *Store) Search(ctx context.Context, name string, q store.Query) ([]store.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexes[name]
	if !ok {
		return nil, store.NotFound(name)
	}
	if q.Top <= 0 {
		return []store.Hit{}, nil
	}

	switch q.Mode {
	case store.ModeOrdered:
		return idx.ordered(ctx, q.Top)
	case store.ModeLexical:
		return idx.lexical(ctx, q.Text, q.Top)
	default:
		return idx.hybrid(ctx, q)
	}
}

// Close releases every text index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, idx := range s.indexes {
		if err := idx.text.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	s.indexes = make(map[string]*index)
	return errors.Join(errs...)
}

func (idx *index) ordered(ctx context.Context, top int) ([]store.Hit, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), top, 0, false)
	req.SortBy([]string{store.FieldOrdinal, "_id"})

	res, err := idx.text.SearchInContext(ctx, req)
	if err != nil {
		return nil, store.Upstream(store.ErrSearchFailed, err)
	}

	hits := make([]store.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		if d, ok := idx.docs[h.ID]; ok {
			hits = append(hits, store.Hit{Document: d})
		}
	}
	return hits, nil
}

func (idx *index) lexical(ctx context.Context, text string, top int) ([]store.Hit, error) {
	ids, scores, err := idx.textRanking(ctx, text, top)
	if err != nil {
		return nil, err
	}

	hits := make([]store.Hit, 0, len(ids))
	for i, id := range ids {
		if d, ok := idx.docs[id]; ok {
			hits = append(hits, store.Hit{Document: d, Score: scores[i]})
		}
	}
	return hits, nil
}

func (idx *index) textRanking(ctx context.Context, text string, top int) ([]string, []float64, error) {
	if text == "" {
		return nil, nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(text), top, 0, false)
	res, err := idx.text.SearchInContext(ctx, req)
	if err != nil {
		return nil, nil, store.Upstream(store.ErrSearchFailed, err)
	}

	ids := make([]string, len(res.Hits))
	scores := make([]float64, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.ID
		scores[i] = h.Score
	}
	return ids, scores, nil
}

func (idx *index) vectorRanking(ctx context.Context, vector []float32, top int) ([]string, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if len(vector) != idx.def.Dimensions {
		return nil, apperror.Wrap(apperror.Validation,
			fmt.Errorf("%w: expected %d, got %d", store.ErrInvalidDimension, idx.def.Dimensions, len(vector)), "")
	}

	n := min(top, idx.vectors.Count())
	if n == 0 {
		return nil, nil
	}

	res, err := idx.vectors.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, store.Upstream(store.ErrSearchFailed, err)
	}

	ids := make([]string, len(res))
	for i, r := range res {
		ids[i] = r.ID
	}
	return ids, nil
}

// hybrid fuses the vector and text rankings with reciprocal rank fusion.
func (idx *index) hybrid(ctx context.Context, q store.Query) ([]store.Hit, error) {
	vecIDs, err := idx.vectorRanking(ctx, q.Vector, q.Top)
	if err != nil {
		return nil, err
	}
	textIDs, _, err := idx.textRanking(ctx, q.Text, q.Top)
	if err != nil {
		return nil, err
	}

	fused := make(map[string]float64)
	for rank, id := range vecIDs {
		fused[id] += 1.0 / float64(rrfK+rank+1)
	}
	for rank, id := range textIDs {
		fused[id] += 1.0 / float64(rrfK+rank+1)
	}

	hits := make([]store.Hit, 0, len(fused))
	for id, score := range fused {
		if d, ok := idx.docs[id]; ok {
			hits = append(hits, store.Hit{Document: d, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})

	if len(hits) > q.Top {
		hits = hits[:q.Top]
	}
	return hits, nil
}

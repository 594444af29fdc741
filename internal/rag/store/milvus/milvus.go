// Package milvus implements store.Service on Milvus with one collection per
// book index. Milvus collection names only allow letters, digits and
// underscores, so the requested index name is kept in the schema description.
package milvus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/Yates-Labs/folio/internal/rag/store"
)

const (
	collectionPrefix  = "folio_"
	descriptionPrefix = "folio-index:"

	// maxQueryRows bounds ordered and lexical scans of one book.
	maxQueryRows = 16384
)

var outputFields = []string{
	store.FieldID, store.FieldOrdinal, store.FieldContent,
	store.FieldTitle, store.FieldFilepath, store.FieldURL,
}

// Config holds configuration for the Milvus connection and index profile.
type Config struct {
	Address string // Milvus server address (e.g., "localhost:19530")

	// HNSW search parameter; build parameters come from each IndexDefinition.
	EfSearch int
}

// DefaultConfig returns a local-development configuration.
func DefaultConfig() Config {
	return Config{
		Address:  "localhost:19530",
		EfSearch: store.DefaultHNSWParams().EfSearch,
	}
}

// Store implements store.Service using Milvus.
type Store struct {
	client client.Client
	config Config
}

var _ store.Service = (*Store)(nil)

// New connects to Milvus.
func New(ctx context.Context, config Config) (*Store, error) {
	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, store.Upstream(store.ErrConnectionFailed, err)
	}
	return NewWithClient(c, config), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(c client.Client, config Config) *Store {
	if config.EfSearch <= 0 {
		config.EfSearch = DefaultConfig().EfSearch
	}
	return &Store{client: c, config: config}
}

// CollectionName maps an index name onto a legal Milvus collection name.
func CollectionName(index string) string {
	var b strings.Builder
	b.WriteString(collectionPrefix)
	for _, r := range index {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Schema returns the collection schema for def.
func Schema(def store.IndexDefinition) *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionName(def.Name),
		Description:    descriptionPrefix + def.Name,
		AutoID:         false,
		Fields: []*entity.Field{
			{
				Name:       store.FieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:     store.FieldOrdinal,
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       store.FieldContent,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
			{
				Name:       store.FieldTitle,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "1024"},
			},
			{
				Name:       store.FieldFilepath,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "1024"},
			},
			{
				Name:       store.FieldURL,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "1024"},
			},
			{
				Name:       store.FieldContentVector,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", def.Dimensions)},
			},
		},
	}
}

// CreateIndex creates the collection, its HNSW index, and loads it.
func (m *Store) CreateIndex(ctx context.Context, def store.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	coll := CollectionName(def.Name)

	has, err := m.client.HasCollection(ctx, coll)
	if err != nil {
		return store.Upstream(store.ErrIndexFailed, fmt.Errorf("check collection existence: %w", err))
	}
	if has {
		return store.Upstream(store.ErrIndexExists, fmt.Errorf("%s", def.Name))
	}

	if err := m.client.CreateCollection(ctx, Schema(def), entity.DefaultShardNumber); err != nil {
		return store.Upstream(store.ErrIndexFailed, fmt.Errorf("create collection: %w", err))
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, def.HNSW.M, def.HNSW.EfConstruction)
	if err != nil {
		return store.Upstream(store.ErrIndexFailed, fmt.Errorf("create index config: %w", err))
	}
	if err := m.client.CreateIndex(ctx, coll, store.FieldContentVector, idx, false); err != nil {
		return store.Upstream(store.ErrIndexFailed, fmt.Errorf("create index: %w", err))
	}

	if err := m.client.LoadCollection(ctx, coll, false); err != nil {
		return store.Upstream(store.ErrIndexFailed, fmt.Errorf("load collection: %w", err))
	}
	return nil
}

// DeleteIndex drops the collection backing name.
func (m *Store) DeleteIndex(ctx context.Context, name string) error {
	coll := CollectionName(name)

	has, err := m.client.HasCollection(ctx, coll)
	if err != nil {
		return store.Upstream(store.ErrIndexFailed, err)
	}
	if !has {
		return store.NotFound(name)
	}
	if err := m.client.DropCollection(ctx, coll); err != nil {
		return store.Upstream(store.ErrIndexFailed, err)
	}
	return nil
}

// ListIndexes returns the index names of every folio-owned collection.
func (m *Store) ListIndexes(ctx context.Context) ([]string, error) {
	colls, err := m.client.ListCollections(ctx)
	if err != nil {
		return nil, store.Upstream(store.ErrIndexFailed, err)
	}

	var names []string
	for _, c := range colls {
		if !strings.HasPrefix(c.Name, collectionPrefix) {
			continue
		}
		desc, err := m.client.DescribeCollection(ctx, c.Name)
		if err != nil {
			return nil, store.Upstream(store.ErrIndexFailed, err)
		}
		if desc.Schema == nil || !strings.HasPrefix(desc.Schema.Description, descriptionPrefix) {
			continue
		}
		names = append(names, strings.TrimPrefix(desc.Schema.Description, descriptionPrefix))
	}
	sort.Strings(names)
	return names, nil
}

// Upload inserts docs column-wise and flushes.
func (m *Store) Upload(ctx context.Context, index string, docs []store.Document) error {
	if err := store.ValidateDocuments(docs, 0); err != nil {
		return err
	}
	dim := len(docs[0].ContentVector)
	if err := store.ValidateDocuments(docs, dim); err != nil {
		return err
	}
	coll := CollectionName(index)

	has, err := m.client.HasCollection(ctx, coll)
	if err != nil {
		return store.Upstream(store.ErrUploadFailed, err)
	}
	if !has {
		return store.NotFound(index)
	}

	ids := make([]string, len(docs))
	ordinals := make([]int64, len(docs))
	contents := make([]string, len(docs))
	titles := make([]string, len(docs))
	paths := make([]string, len(docs))
	urls := make([]string, len(docs))
	vectors := make([][]float32, len(docs))

	for i, d := range docs {
		ids[i] = d.ID
		ordinals[i] = int64(d.Ordinal)
		contents[i] = d.Content
		titles[i] = d.Title
		paths[i] = d.Filepath
		urls[i] = d.URL
		vectors[i] = d.ContentVector
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(store.FieldID, ids),
		entity.NewColumnInt64(store.FieldOrdinal, ordinals),
		entity.NewColumnVarChar(store.FieldContent, contents),
		entity.NewColumnVarChar(store.FieldTitle, titles),
		entity.NewColumnVarChar(store.FieldFilepath, paths),
		entity.NewColumnVarChar(store.FieldURL, urls),
		entity.NewColumnFloatVector(store.FieldContentVector, dim, vectors),
	}

	if _, err := m.client.Insert(ctx, coll, "", columns...); err != nil {
		return store.Upstream(store.ErrUploadFailed, err)
	}
	if err := m.client.Flush(ctx, coll, false); err != nil {
		return store.Upstream(store.ErrUploadFailed, fmt.Errorf("flush: %w", err))
	}
	return nil
}

// Search runs q. Semantic mode is a vector search when a vector is given;
// Milvus has no reranker, so without one it degrades to lexical matching.
func (m *Store) Search(ctx context.Context, index string, q store.Query) ([]store.Hit, error) {
	if q.Top <= 0 {
		return []store.Hit{}, nil
	}
	coll := CollectionName(index)

	has, err := m.client.HasCollection(ctx, coll)
	if err != nil {
		return nil, store.Upstream(store.ErrSearchFailed, err)
	}
	if !has {
		return nil, store.NotFound(index)
	}

	switch {
	case q.Mode == store.ModeOrdered:
		docs, err := m.query(ctx, coll, store.FieldOrdinal+" >= 0")
		if err != nil {
			return nil, err
		}
		store.SortByOrdinal(docs)
		return store.HitsFromDocuments(docs, q.Top), nil
	case q.Mode == store.ModeSemantic && len(q.Vector) > 0:
		return m.vectorSearch(ctx, coll, q.Vector, q.Top)
	default:
		return m.lexical(ctx, coll, q.Text, q.Top)
	}
}

// Close releases the gRPC connection.
func (m *Store) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *Store) vectorSearch(ctx context.Context, coll string, vector []float32, top int) ([]store.Hit, error) {
	sp, err := entity.NewIndexHNSWSearchParam(m.config.EfSearch)
	if err != nil {
		return nil, store.Upstream(store.ErrSearchFailed, fmt.Errorf("create search params: %w", err))
	}

	results, err := m.client.Search(
		ctx,
		coll,
		nil, // partition names
		"",
		outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		store.FieldContentVector,
		entity.COSINE,
		top,
		sp,
	)
	if err != nil {
		return nil, store.Upstream(store.ErrSearchFailed, err)
	}
	if len(results) == 0 {
		return []store.Hit{}, nil
	}

	res := results[0]
	docs := documentsFromColumns(res.Fields, res.ResultCount)
	hits := make([]store.Hit, len(docs))
	for i, d := range docs {
		hits[i] = store.Hit{Document: d}
		if i < len(res.Scores) {
			hits[i].Score = float64(res.Scores[i])
		}
	}
	return hits, nil
}

// lexical matches any query term as a substring and ranks by matched terms.
func (m *Store) lexical(ctx context.Context, coll, text string, top int) ([]store.Hit, error) {
	terms := LexicalTerms(text)
	if len(terms) == 0 {
		return []store.Hit{}, nil
	}

	clauses := make([]string, len(terms))
	for i, t := range terms {
		clauses[i] = fmt.Sprintf(`%s like "%%%s%%"`, store.FieldContent, t)
	}
	docs, err := m.query(ctx, coll, strings.Join(clauses, " or "))
	if err != nil {
		return nil, err
	}

	hits := make([]store.Hit, len(docs))
	for i, d := range docs {
		hits[i] = store.Hit{Document: d, Score: float64(countTerms(d.Content, terms))}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})
	if len(hits) > top {
		hits = hits[:top]
	}
	return hits, nil
}

func (m *Store) query(ctx context.Context, coll, expr string) ([]store.Document, error) {
	rs, err := m.client.Query(ctx, coll, nil, expr, outputFields, client.WithLimit(maxQueryRows))
	if err != nil {
		return nil, store.Upstream(store.ErrSearchFailed, err)
	}

	n := 0
	for _, col := range rs {
		n = max(n, col.Len())
	}
	return documentsFromColumns(rs, n), nil
}

// LexicalTerms lowercases text and keeps alphanumeric words of two or more
// characters, deduplicated, safe to embed in a like expression.
func LexicalTerms(text string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

func countTerms(content string, terms []string) int {
	lower := strings.ToLower(content)
	n := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			n++
		}
	}
	return n
}

func documentsFromColumns(cols []entity.Column, n int) []store.Document {
	docs := make([]store.Document, n)
	for _, col := range cols {
		switch c := col.(type) {
		case *entity.ColumnVarChar:
			data := c.Data()
			for i := 0; i < n && i < len(data); i++ {
				switch c.Name() {
				case store.FieldID:
					docs[i].ID = data[i]
				case store.FieldContent:
					docs[i].Content = data[i]
				case store.FieldTitle:
					docs[i].Title = data[i]
				case store.FieldFilepath:
					docs[i].Filepath = data[i]
				case store.FieldURL:
					docs[i].URL = data[i]
				}
			}
		case *entity.ColumnInt64:
			if c.Name() != store.FieldOrdinal {
				continue
			}
			data := c.Data()
			for i := 0; i < n && i < len(data); i++ {
				docs[i].Ordinal = int(data[i])
			}
		}
	}
	return docs
}

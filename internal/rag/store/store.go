// Package store defines the contract folio needs from a search service: one
// named index per book, bulk document upload, and semantic, lexical or
// position-ordered queries. Backends live in subpackages.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/Yates-Labs/folio/internal/apperror"
)

// Common errors for search service operations
var (
	ErrIndexNotFound      = errors.New("index not found")
	ErrIndexExists        = errors.New("index already exists")
	ErrInvalidIndexName   = errors.New("invalid index name")
	ErrInvalidDimension   = errors.New("invalid vector dimension")
	ErrEmptyDocuments     = errors.New("no documents provided for upload")
	ErrIndexFailed        = errors.New("index operation failed")
	ErrUploadFailed       = errors.New("document upload failed")
	ErrSearchFailed       = errors.New("search request failed")
	ErrConnectionFailed   = errors.New("failed to connect to search service")
	ErrUnsupportedBackend = errors.New("unsupported search backend")
)

// Field names shared by every backend's schema.
const (
	FieldID            = "id"
	FieldOrdinal       = "ordinal"
	FieldContent       = "content"
	FieldTitle         = "title"
	FieldFilepath      = "filepath"
	FieldURL           = "url"
	FieldContentVector = "contentVector"
)

// Document is the persisted unit of an index: one chunk of one book.
type Document struct {
	ID            string    `json:"id"`
	Ordinal       int       `json:"ordinal"`
	Content       string    `json:"content"`
	Title         string    `json:"title"`
	Filepath      string    `json:"filepath"`
	URL           string    `json:"url"`
	ContentVector []float32 `json:"contentVector,omitempty"`
}

// HNSWParams tunes the approximate nearest neighbour profile.
type HNSWParams struct {
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultHNSWParams returns the profile used for book indexes.
func DefaultHNSWParams() HNSWParams {
	return HNSWParams{M: 4, EfConstruction: 1000, EfSearch: 1000}
}

// IndexDefinition describes an index to create.
type IndexDefinition struct {
	Name       string
	Dimensions int
	HNSW       HNSWParams
}

// NewIndexDefinition returns a definition with the default HNSW profile.
func NewIndexDefinition(name string, dimensions int) IndexDefinition {
	return IndexDefinition{Name: name, Dimensions: dimensions, HNSW: DefaultHNSWParams()}
}

// Validate checks the name and vector width.
func (d IndexDefinition) Validate() error {
	if err := ValidateIndexName(d.Name); err != nil {
		return err
	}
	if d.Dimensions <= 0 {
		return apperror.Wrap(apperror.Validation, fmt.Errorf("%w: %d", ErrInvalidDimension, d.Dimensions), "index "+d.Name)
	}
	return nil
}

// Mode selects how a query is executed.
type Mode int

const (
	// ModeSemantic is hybrid ranking: lexical text, the query vector when
	// present, and server-side reranking where the backend has it.
	ModeSemantic Mode = iota
	// ModeLexical is plain keyword search.
	ModeLexical
	// ModeOrdered ignores the text and returns documents by ascending ordinal.
	ModeOrdered
)

func (m Mode) String() string {
	switch m {
	case ModeLexical:
		return "lexical"
	case ModeOrdered:
		return "ordered"
	default:
		return "semantic"
	}
}

// Query is a single search request against one index.
type Query struct {
	Text   string
	Vector []float32
	Top    int
	Mode   Mode
}

// Hit is a document returned by a search with its ranking scores.
type Hit struct {
	Document
	Score         float64 `json:"score"`
	RerankerScore float64 `json:"reranker_score,omitempty"`
}

// Service is a search service holding one index per book.
// Implementations must be safe for concurrent use.
type Service interface {
	// CreateIndex creates an empty index. It fails if the name is taken.
	CreateIndex(ctx context.Context, def IndexDefinition) error

	// DeleteIndex drops an index and all its documents. A missing index
	// yields an error matching ErrIndexNotFound.
	DeleteIndex(ctx context.Context, name string) error

	// ListIndexes returns every index name in the service.
	ListIndexes(ctx context.Context) ([]string, error)

	// Upload bulk-inserts documents into an existing index.
	Upload(ctx context.Context, index string, docs []Document) error

	// Search runs q against one index.
	Search(ctx context.Context, index string, q Query) ([]Hit, error)

	// Close releases connections.
	Close() error
}

var indexNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,126}[a-z0-9]$|^[a-z0-9]$`)

// ValidateIndexName enforces the portable naming rule: lowercase letters,
// digits and dashes, not starting or ending with a dash, at most 128 chars.
func ValidateIndexName(name string) error {
	if !indexNamePattern.MatchString(name) {
		return apperror.Wrap(apperror.Validation, fmt.Errorf("%w: %q", ErrInvalidIndexName, name), "")
	}
	return nil
}

// ValidateDocuments checks that docs can be uploaded into an index whose
// vectors are dims wide.
func ValidateDocuments(docs []Document, dims int) error {
	if len(docs) == 0 {
		return apperror.Wrap(apperror.Validation, ErrEmptyDocuments, "")
	}
	for _, d := range docs {
		if d.ID == "" {
			return apperror.Validationf("document with ordinal %d has no id", d.Ordinal)
		}
		if dims > 0 && len(d.ContentVector) != dims {
			return apperror.Wrap(apperror.Validation,
				fmt.Errorf("%w: document %s has %d, index expects %d", ErrInvalidDimension, d.ID, len(d.ContentVector), dims), "")
		}
	}
	return nil
}

// NotFound returns the error backends report for a missing index.
func NotFound(name string) error {
	return apperror.Wrap(apperror.NotFound, fmt.Errorf("%w: %s", ErrIndexNotFound, name), "")
}

// Upstream classifies a backend failure under one of the package sentinels.
func Upstream(sentinel, err error) error {
	if err == nil {
		return nil
	}
	return apperror.Wrap(apperror.Upstream, fmt.Errorf("%w: %w", sentinel, err), "")
}

// SortByOrdinal orders documents by ascending ordinal, then id.
func SortByOrdinal(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Ordinal != docs[j].Ordinal {
			return docs[i].Ordinal < docs[j].Ordinal
		}
		return docs[i].ID < docs[j].ID
	})
}

// HitsFromDocuments wraps documents as unscored hits, keeping at most top.
func HitsFromDocuments(docs []Document, top int) []Hit {
	if top > 0 && len(docs) > top {
		docs = docs[:top]
	}
	hits := make([]Hit, len(docs))
	for i, d := range docs {
		hits[i] = Hit{Document: d}
	}
	return hits
}

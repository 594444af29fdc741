package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/chunker"
	"github.com/Yates-Labs/folio/internal/rag/store"
)

// uploadPrefix matches the "<uuid>_" prefix given to uploaded files.
var uploadPrefix = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}_`)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// BookInfo is the per-book metadata stamped on every document.
type BookInfo struct {
	Title    string
	Filepath string
	Slug     string
}

// NewBookInfo derives book metadata from a file path.
func NewBookInfo(path string) BookInfo {
	base := filepath.Base(path)
	title := BookTitle(base)
	return BookInfo{
		Title:    title,
		Filepath: "assets/" + base,
		Slug:     Slug(title),
	}
}

// BookStem strips directories, the upload prefix and the .txt extension.
func BookStem(path string) string {
	base := filepath.Base(path)
	base = uploadPrefix.ReplaceAllString(base, "")
	return strings.TrimSuffix(base, ".txt")
}

// BookTitle turns a file name like "moby dick.txt" into "Moby Dick".
// Every letter that follows a non-letter is upper-cased and the rest are
// lower-cased.
func BookTitle(path string) string {
	stem := BookStem(path)

	var b strings.Builder
	prevLetter := false
	for _, r := range stem {
		switch {
		case unicode.IsLetter(r) && prevLetter:
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}

// Slug lower-cases s and collapses every run of other characters into a
// single dash.
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// IndexName returns the index used for a book file: "<prefix>-<slug>".
func IndexName(prefix, path string) string {
	return prefix + "-" + Slug(BookStem(path))
}

// DocumentID returns an identifier that sorts in chunk order.
func DocumentID(ordinal int) string {
	return fmt.Sprintf("chunk-%06d-%s", ordinal, uuid.NewString())
}

// BuildDocuments embeds each chunk, one call per chunk in order, and
// returns the documents ready for upload. The first embedding error aborts
// the whole book.
func BuildDocuments(ctx context.Context, embedder Embedder, chunks []chunker.Chunk, book BookInfo) ([]store.Document, error) {
	if embedder == nil {
		return nil, apperror.Validationf("embedder cannot be nil")
	}

	docs := make([]store.Document, 0, len(chunks))
	for _, c := range chunks {
		vector, err := EmbedOne(ctx, embedder, c.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %d of %s: %w", c.Ordinal+1, book.Title, err)
		}

		n := c.Ordinal + 1
		docs = append(docs, store.Document{
			ID:            DocumentID(c.Ordinal),
			Ordinal:       c.Ordinal,
			Content:       c.Text,
			Title:         fmt.Sprintf("%s - Chunk %d", book.Title, n),
			Filepath:      book.Filepath,
			URL:           fmt.Sprintf("/books/%s#chunk-%d", book.Slug, n),
			ContentVector: vector,
		})
	}
	return docs, nil
}

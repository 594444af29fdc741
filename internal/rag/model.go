package rag

import (
	"github.com/Yates-Labs/folio/internal/rag/store"
)

// ContextEntry is a retrieved passage together with where it came from.
// It lives for the duration of a single query.
type ContextEntry struct {
	ID            string  `json:"id"`
	Content       string  `json:"content"`
	Title         string  `json:"title"`
	Filepath      string  `json:"filepath"`
	URL           string  `json:"url,omitempty"`
	Ordinal       int     `json:"ordinal"`
	Score         float64 `json:"score,omitempty"`
	RerankerScore float64 `json:"reranker_score,omitempty"`
	SourceIndex   string  `json:"source_index"`
}

// NewContextEntry converts a search hit from index into a ContextEntry.
func NewContextEntry(index string, hit store.Hit) ContextEntry {
	return ContextEntry{
		ID:            hit.ID,
		Content:       hit.Content,
		Title:         hit.Title,
		Filepath:      hit.Filepath,
		URL:           hit.URL,
		Ordinal:       hit.Ordinal,
		Score:         hit.Score,
		RerankerScore: hit.RerankerScore,
		SourceIndex:   index,
	}
}

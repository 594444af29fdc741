package narrative

import "github.com/Yates-Labs/folio/internal/rag"

// Passage is one retrieved chunk as it appears in a prompt.
type Passage struct {
	ID      string
	Title   string
	Content string
}

// PassagesFromContexts converts retrieval results for prompt assembly,
// keeping their order.
func PassagesFromContexts(entries []rag.ContextEntry) []Passage {
	passages := make([]Passage, len(entries))
	for i, e := range entries {
		passages[i] = Passage{ID: e.ID, Title: e.Title, Content: e.Content}
	}
	return passages
}

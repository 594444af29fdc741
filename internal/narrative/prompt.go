package narrative

import (
	"fmt"
	"strings"

	"github.com/Yates-Labs/folio/internal/rag"
)

const instructions = "Important instructions:\n" +
	"1. If the retrieved content contains the answer, provide it directly.\n" +
	"2. For quotes, use the exact text from the source material.\n" +
	"3. If the content does not fully answer the question, be clear about what you do know and what you don't.\n" +
	"4. Only say you don't know if there is absolutely no relevant information in the retrieved content.\n\n" +
	"Retrieved Content:\n"

// OpeningLineRequest is appended to questions about how a book begins.
const OpeningLineRequest = "Please quote the exact first line if it appears in the retrieved passages."

const unknownTitle = "Unknown"

// BuildSystemPrompt renders the personality preamble, the fixed
// instructions and the passages grouped by title.
func BuildSystemPrompt(p Personality, passages []Passage) string {
	return p.Prompt() + instructions + RenderPassages(passages)
}

// RenderPassages groups passages by title in order of first appearance:
//
//	[Book: <title>]
//	Passage <i> (ID: <id>): <content>
func RenderPassages(passages []Passage) string {
	var order []string
	groups := make(map[string][]Passage)
	for _, p := range passages {
		title := p.Title
		if title == "" {
			title = unknownTitle
		}
		if _, seen := groups[title]; !seen {
			order = append(order, title)
		}
		groups[title] = append(groups[title], p)
	}

	var b strings.Builder
	for _, title := range order {
		b.WriteString(fmt.Sprintf("[Book: %s]\n", title))
		for i, p := range groups[title] {
			id := p.ID
			if id == "" {
				id = fmt.Sprintf("Chunk %d", i+1)
			}
			b.WriteString(fmt.Sprintf("Passage %d (ID: %s): %s\n\n", i+1, id, p.Content))
		}
	}
	return strings.TrimSpace(b.String())
}

// BuildUserMessage returns query, asking for a verbatim quote when the
// query is about a book's opening.
func BuildUserMessage(query string) string {
	if rag.IsOpeningQuery(query) {
		return query + "\n\n" + OpeningLineRequest
	}
	return query
}

// BuildMessages assembles the [system, user] conversation for query.
func BuildMessages(query string, passages []Passage, p Personality) []Message {
	return []Message{
		{Role: RoleSystem, Content: BuildSystemPrompt(p, passages)},
		{Role: RoleUser, Content: BuildUserMessage(query)},
	}
}

// countPassages counts rendered passage lines in a system prompt.
func countPassages(prompt string) int {
	count := 0
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Passage ") {
			count++
		}
	}
	return count
}

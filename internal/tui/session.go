// Package tui is the interactive question loop behind "folio ask". Session
// holds the state and commands; Model renders it with Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yates-Labs/folio/internal/narrative"
	"github.com/Yates-Labs/folio/internal/orchestrator"
)

// Answerer answers one question.
type Answerer interface {
	Answer(ctx context.Context, req orchestrator.AnswerRequest) (*orchestrator.AnswerResult, error)
}

// ActionKind says what the caller should do with a line of input.
type ActionKind int

const (
	// ActionSearch asks the caller to run Session.Search with Action.Query.
	ActionSearch ActionKind = iota
	// ActionNotice is informational text to show.
	ActionNotice
	// ActionPrompt shows Action.Text and routes the next line to index
	// selection.
	ActionPrompt
	// ActionQuit ends the session.
	ActionQuit
)

// Action is the result of Session.Handle.
type Action struct {
	Kind  ActionKind
	Query string
	Text  string
}

// Reply is the outcome of a search.
type Reply struct {
	Query   string
	Focused string
	// Found lists the indexes that contributed passages, in result order.
	Found   []string
	Answer  string
	Message string
	Err     error
}

// Session tracks the active index subset between questions.
type Session struct {
	answerer    Answerer
	available   []string
	active      []string
	limit       int
	personality narrative.Personality
	selecting   bool
}

// NewSession starts with every available index active.
func NewSession(answerer Answerer, available []string, limit int, personality narrative.Personality) *Session {
	return &Session{
		answerer:    answerer,
		available:   append([]string(nil), available...),
		active:      append([]string(nil), available...),
		limit:       limit,
		personality: personality,
	}
}

// Available returns every book index.
func (s *Session) Available() []string {
	return append([]string(nil), s.available...)
}

// Active returns the indexes searched when a query names no book.
func (s *Session) Active() []string {
	return append([]string(nil), s.active...)
}

// Selecting reports whether the next line is an index selection.
func (s *Session) Selecting() bool {
	return s.selecting
}

// Handle interprets one line of input.
func (s *Session) Handle(input string) Action {
	if s.selecting {
		s.selecting = false
		return Action{Kind: ActionNotice, Text: s.selectIndexes(input)}
	}

	line := strings.TrimSpace(input)
	switch strings.ToLower(line) {
	case "exit", "quit":
		return Action{Kind: ActionQuit, Text: "Goodbye!"}
	case "indexes":
		s.selecting = true
		return Action{
			Kind: ActionPrompt,
			Text: fmt.Sprintf("Available indexes: %s\nSelect indexes (comma-separated) or 'all':", strings.Join(s.available, ", ")),
		}
	}
	return Action{Kind: ActionSearch, Query: line}
}

// selectIndexes applies a comma-separated selection. Unknown names are
// ignored; a selection with no known names leaves the active set unchanged.
func (s *Session) selectIndexes(input string) string {
	if strings.EqualFold(strings.TrimSpace(input), "all") {
		s.active = append([]string(nil), s.available...)
		return "Currently searching in: " + strings.Join(s.active, ", ")
	}

	known := make(map[string]bool, len(s.available))
	for _, name := range s.available {
		known[name] = true
	}

	var selected []string
	for _, name := range strings.Split(input, ",") {
		name = strings.TrimSpace(name)
		if known[name] {
			selected = append(selected, name)
		}
	}
	if len(selected) == 0 {
		return "No known indexes selected. Currently searching in: " + strings.Join(s.active, ", ")
	}
	s.active = selected
	return "Currently searching in: " + strings.Join(s.active, ", ")
}

// Search answers query against the active indexes.
func (s *Session) Search(ctx context.Context, query string) Reply {
	reply := Reply{Query: query}
	result, err := s.answerer.Answer(ctx, orchestrator.AnswerRequest{
		Query:       query,
		Active:      s.active,
		Limit:       s.limit,
		Personality: s.personality,
	})
	if err != nil {
		reply.Err = err
		return reply
	}

	reply.Focused = result.Focused
	seen := make(map[string]bool)
	for _, entry := range result.Results {
		if !seen[entry.SourceIndex] {
			seen[entry.SourceIndex] = true
			reply.Found = append(reply.Found, entry.SourceIndex)
		}
	}

	if result.Answer == nil {
		reply.Message = "No relevant information found in the selected indexes."
		if result.Message == orchestrator.NoIndexesMessage {
			reply.Message = result.Message
		}
		return reply
	}
	reply.Answer = result.Answer.Text
	return reply
}

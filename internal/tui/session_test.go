package tui

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Yates-Labs/folio/internal/narrative"
	"github.com/Yates-Labs/folio/internal/orchestrator"
	"github.com/Yates-Labs/folio/internal/rag"
)

// mockAnswerer implements Answerer for testing
type mockAnswerer struct {
	answerFunc func(ctx context.Context, req orchestrator.AnswerRequest) (*orchestrator.AnswerResult, error)
	requests   []orchestrator.AnswerRequest
}

func (m *mockAnswerer) Answer(ctx context.Context, req orchestrator.AnswerRequest) (*orchestrator.AnswerResult, error) {
	m.requests = append(m.requests, req)
	if m.answerFunc != nil {
		return m.answerFunc(ctx, req)
	}
	return &orchestrator.AnswerResult{
		Results: []rag.ContextEntry{
			{ID: "a", SourceIndex: "classic-moby-dick"},
			{ID: "b", SourceIndex: "classic-moby-dick"},
			{ID: "c", SourceIndex: "classic-frankenstein"},
		},
		Answer: &narrative.Answer{Text: "An answer."},
	}, nil
}

var catalog = []string{"classic-frankenstein", "classic-moby-dick", "classic-emma"}

func TestSession_Commands(t *testing.T) {
	s := NewSession(&mockAnswerer{}, catalog, 2, narrative.DefaultPersonality)

	tests := []struct {
		input      string
		wantKind   ActionKind
		wantText   string
		wantActive []string
	}{
		{input: "indexes", wantKind: ActionPrompt, wantText: "Select indexes (comma-separated) or 'all':", wantActive: catalog},
		{input: "classic-emma, nope ,classic-moby-dick", wantKind: ActionNotice, wantText: "classic-emma, classic-moby-dick", wantActive: []string{"classic-emma", "classic-moby-dick"}},
		{input: "INDEXES", wantKind: ActionPrompt, wantActive: []string{"classic-emma", "classic-moby-dick"}},
		{input: "nothing-known", wantKind: ActionNotice, wantText: "No known indexes selected", wantActive: []string{"classic-emma", "classic-moby-dick"}},
		{input: "indexes", wantKind: ActionPrompt, wantActive: []string{"classic-emma", "classic-moby-dick"}},
		{input: "all", wantKind: ActionNotice, wantActive: catalog},
		{input: "  Who is Ahab?  ", wantKind: ActionSearch, wantActive: catalog},
		{input: "Quit", wantKind: ActionQuit, wantText: "Goodbye!", wantActive: catalog},
	}

	for _, tt := range tests {
		action := s.Handle(tt.input)
		if action.Kind != tt.wantKind {
			t.Fatalf("Handle(%q) kind = %v, want %v", tt.input, action.Kind, tt.wantKind)
		}
		if !strings.Contains(action.Text, tt.wantText) {
			t.Errorf("Handle(%q) text = %q, want it to contain %q", tt.input, action.Text, tt.wantText)
		}
		if !reflect.DeepEqual(s.Active(), tt.wantActive) {
			t.Errorf("after %q active = %v, want %v", tt.input, s.Active(), tt.wantActive)
		}
	}
}

func TestSession_HandleSearchTrimsQuery(t *testing.T) {
	s := NewSession(&mockAnswerer{}, catalog, 2, narrative.DefaultPersonality)
	if action := s.Handle("  Who is Ahab?  "); action.Query != "Who is Ahab?" {
		t.Errorf("Query = %q", action.Query)
	}
}

func TestSession_Search(t *testing.T) {
	answerer := &mockAnswerer{}
	s := NewSession(answerer, catalog, 2, narrative.Critic)

	reply := s.Search(context.Background(), "whales")
	if reply.Err != nil || reply.Answer != "An answer." {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if !reflect.DeepEqual(reply.Found, []string{"classic-moby-dick", "classic-frankenstein"}) {
		t.Errorf("Found = %v", reply.Found)
	}

	req := answerer.requests[0]
	if req.Limit != 2 || req.Personality != narrative.Critic || !reflect.DeepEqual(req.Active, catalog) {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestSession_SearchWithoutResults(t *testing.T) {
	tests := []struct {
		name   string
		result *orchestrator.AnswerResult
		err    error
		want   string
	}{
		{
			name:   "nothing found",
			result: &orchestrator.AnswerResult{Message: orchestrator.NoResultsMessage},
			want:   "No relevant information found in the selected indexes.",
		},
		{
			name:   "no indexes",
			result: &orchestrator.AnswerResult{Message: orchestrator.NoIndexesMessage},
			want:   orchestrator.NoIndexesMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(&mockAnswerer{
				answerFunc: func(ctx context.Context, req orchestrator.AnswerRequest) (*orchestrator.AnswerResult, error) {
					return tt.result, nil
				},
			}, catalog, 2, narrative.DefaultPersonality)

			reply := s.Search(context.Background(), "q")
			if reply.Message != tt.want || reply.Answer != "" {
				t.Errorf("unexpected reply %+v", reply)
			}
		})
	}
}

func TestSession_SearchError(t *testing.T) {
	boom := errors.New("search down")
	s := NewSession(&mockAnswerer{
		answerFunc: func(ctx context.Context, req orchestrator.AnswerRequest) (*orchestrator.AnswerResult, error) {
			return nil, boom
		},
	}, catalog, 2, narrative.DefaultPersonality)

	if reply := s.Search(context.Background(), "q"); !errors.Is(reply.Err, boom) {
		t.Errorf("expected error, got %+v", reply)
	}
}

func runCmd(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, runCmd(t, c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

func send(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModel_SearchRoundTrip(t *testing.T) {
	answerer := &mockAnswerer{
		answerFunc: func(ctx context.Context, req orchestrator.AnswerRequest) (*orchestrator.AnswerResult, error) {
			return &orchestrator.AnswerResult{
				Results: []rag.ContextEntry{{ID: "a", SourceIndex: "classic-moby-dick"}},
				Answer:  &narrative.Answer{Text: "Call me Ishmael."},
				Focused: "classic-moby-dick",
			}, nil
		},
	}
	m := New(context.Background(), NewSession(answerer, catalog, 2, narrative.DefaultPersonality))

	m, cmd := send(t, m, "opening line of moby dick")
	if !m.searching {
		t.Fatal("expected the model to be searching")
	}

	var reply tea.Msg
	for _, msg := range runCmd(t, cmd) {
		if r, ok := msg.(replyMsg); ok {
			reply = r
		}
	}
	if reply == nil {
		t.Fatal("search command produced no reply")
	}

	next, _ := m.Update(reply)
	m = next.(Model)
	if m.searching {
		t.Error("searching flag not cleared")
	}

	out := m.Transcript()
	for _, want := range []string{
		"Searching for: opening line of moby dick...",
		"Query specifically mentions classic-moby-dick, focusing on that index.",
		"Found relevant content in classic-moby-dick",
		"Call me Ishmael.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
}

func TestModel_IndexesAndQuit(t *testing.T) {
	answerer := &mockAnswerer{}
	m := New(context.Background(), NewSession(answerer, catalog, 2, narrative.DefaultPersonality))

	m, cmd := send(t, m, "indexes")
	if cmd != nil || !m.session.Selecting() {
		t.Fatal("expected an index prompt")
	}
	m, _ = send(t, m, "classic-emma")
	if !reflect.DeepEqual(m.session.Active(), []string{"classic-emma"}) {
		t.Errorf("active = %v", m.session.Active())
	}

	m, cmd = send(t, m, "exit")
	msgs := runCmd(t, cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected a single quit message, got %v", msgs)
	}
	if _, ok := msgs[0].(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", msgs[0])
	}
	if !strings.Contains(m.Transcript(), "Goodbye!") {
		t.Error("missing farewell")
	}
	if len(answerer.requests) != 0 {
		t.Error("commands must not search")
	}
}

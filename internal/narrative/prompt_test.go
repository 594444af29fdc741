package narrative

import (
	"strings"
	"testing"

	"github.com/Yates-Labs/folio/internal/rag"
)

func TestRenderPassages_GroupsByTitle(t *testing.T) {
	passages := []Passage{
		{ID: "m1", Title: "Moby Dick", Content: "Call me Ishmael."},
		{ID: "f1", Title: "Frankenstein", Content: "You will rejoice to hear."},
		{ID: "m2", Title: "Moby Dick", Content: "It was the Pequod."},
		{Title: "", Content: "orphan"},
	}

	got := RenderPassages(passages)
	want := "[Book: Moby Dick]\n" +
		"Passage 1 (ID: m1): Call me Ishmael.\n\n" +
		"Passage 2 (ID: m2): It was the Pequod.\n\n" +
		"[Book: Frankenstein]\n" +
		"Passage 1 (ID: f1): You will rejoice to hear.\n\n" +
		"[Book: Unknown]\n" +
		"Passage 1 (ID: Chunk 1): orphan"

	if got != want {
		t.Errorf("RenderPassages() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildSystemPrompt_Layout(t *testing.T) {
	prompt := BuildSystemPrompt(Philosopher, []Passage{{ID: "x", Title: "Emma - Chunk 1", Content: "Emma Woodhouse"}})

	preamble := strings.Index(prompt, "You are a philosophical AI assistant")
	instr := strings.Index(prompt, "Important instructions:\n1. If the retrieved content contains the answer")
	retrieved := strings.Index(prompt, "Retrieved Content:\n[Book: Emma - Chunk 1]")

	if preamble != 0 || instr <= preamble || retrieved <= instr {
		t.Errorf("unexpected prompt layout (%d, %d, %d):\n%s", preamble, instr, retrieved, prompt)
	}
	if !strings.Contains(prompt, "4. Only say you don't know if there is absolutely no relevant information") {
		t.Error("missing fourth instruction")
	}
}

func TestBuildSystemPrompt_NoPassages(t *testing.T) {
	prompt := BuildSystemPrompt(Critic, nil)
	if !strings.HasSuffix(prompt, "Retrieved Content:\n") {
		t.Errorf("expected empty retrieved section, got %q", prompt[len(prompt)-40:])
	}
}

func TestBuildUserMessage(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Who is Ahab?", "Who is Ahab?"},
		{"How does Emma begin?", "How does Emma begin?\n\n" + OpeningLineRequest},
		{"Quote the First Line of Frankenstein", "Quote the First Line of Frankenstein\n\n" + OpeningLineRequest},
	}
	for _, tt := range tests {
		if got := BuildUserMessage(tt.query); got != tt.want {
			t.Errorf("BuildUserMessage(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestPassagesFromContexts(t *testing.T) {
	entries := []rag.ContextEntry{
		{ID: "a", Title: "Emma - Chunk 1", Content: "first", SourceIndex: "classic-emma"},
		{ID: "b", Title: "Emma - Chunk 2", Content: "second", SourceIndex: "classic-emma"},
	}
	passages := PassagesFromContexts(entries)
	if len(passages) != 2 || passages[1].ID != "b" || passages[1].Content != "second" {
		t.Errorf("unexpected passages: %+v", passages)
	}
}

func TestParsePersonality(t *testing.T) {
	tests := []struct {
		in     string
		want   Personality
		wantOK bool
	}{
		{"storyteller", Storyteller, true},
		{" Critic ", Critic, true},
		{"philosopher", Philosopher, true},
		{"", ClassicLiterature, false},
		{"pirate", ClassicLiterature, false},
	}
	for _, tt := range tests {
		got, ok := ParsePersonality(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParsePersonality(%q) = %s, %v; want %s, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}

	for _, p := range Personalities {
		if len(p.Greetings()) != 4 {
			t.Errorf("%s should have 4 greetings", p)
		}
		if !strings.HasSuffix(p.Prompt(), "\n\n") {
			t.Errorf("%s prompt should end with a blank line", p)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("**Call me Ishmael.**\n\n- whale\n- sea")
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if !strings.Contains(html, "<strong>Call me Ishmael.</strong>") || !strings.Contains(html, "<li>whale</li>") {
		t.Errorf("unexpected html: %s", html)
	}
}

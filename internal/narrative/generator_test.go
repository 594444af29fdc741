package narrative

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/Yates-Labs/folio/internal/apperror"
)

func mobyPassages() []Passage {
	return []Passage{
		{ID: "chunk-000000-a", Title: "Moby Dick - Chunk 1", Content: "Call me Ishmael. Some years ago, never mind how long precisely."},
	}
}

func TestGenerator_Generate_Success(t *testing.T) {
	mockLLM := NewMockLLM("Ishmael narrates the story.")
	config := DefaultLLMConfig()
	config.Model = "test-model"

	gen := NewGenerator(mockLLM, config)

	answer, err := gen.Generate(context.Background(), "Who narrates Moby Dick?", mobyPassages(), Critic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.Text != "Ishmael narrates the story." {
		t.Errorf("unexpected answer text: %s", answer.Text)
	}
	if answer.Model != "test-model" || answer.Personality != Critic || answer.Greeting {
		t.Errorf("unexpected answer metadata: %+v", answer)
	}
	if answer.GeneratedAt.IsZero() {
		t.Error("generated timestamp is zero")
	}

	if len(mockLLM.LastMessages) != 2 {
		t.Fatalf("expected [system, user], got %d messages", len(mockLLM.LastMessages))
	}
	if mockLLM.LastMessages[0].Role != RoleSystem || mockLLM.LastMessages[1].Role != RoleUser {
		t.Errorf("unexpected roles: %+v", mockLLM.LastMessages)
	}
	if !strings.HasPrefix(mockLLM.SystemPrompt(), Critic.Prompt()) {
		t.Error("system prompt must start with the personality preamble")
	}
	if mockLLM.UserPrompt() != "Who narrates Moby Dick?" {
		t.Errorf("unexpected user prompt %q", mockLLM.UserPrompt())
	}
}

func TestGenerator_Generate_BlankQueryGreets(t *testing.T) {
	mockLLM := NewMockLLM("should not be used")
	gen := NewGenerator(mockLLM, DefaultLLMConfig())

	for _, query := range []string{"", "   \n\t"} {
		answer, err := gen.Generate(context.Background(), query, mobyPassages(), Storyteller)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !answer.Greeting {
			t.Error("expected a greeting")
		}
		if !slices.Contains(Storyteller.Greetings(), answer.Text) {
			t.Errorf("%q is not a storyteller greeting", answer.Text)
		}
	}

	if mockLLM.Calls != 0 {
		t.Errorf("greeting must not call the model, got %d calls", mockLLM.Calls)
	}
}

func TestGenerator_Greeting_Deterministic(t *testing.T) {
	gen := NewGenerator(nil, DefaultLLMConfig())

	gen.SetRand(rand.New(rand.NewPCG(1, 2)))
	first := gen.Greeting(Philosopher)
	gen.SetRand(rand.New(rand.NewPCG(1, 2)))
	second := gen.Greeting(Philosopher)

	if first != second {
		t.Errorf("same seed gave different greetings: %q vs %q", first, second)
	}
	if !slices.Contains(Philosopher.Greetings(), first) {
		t.Errorf("%q is not a philosopher greeting", first)
	}
}

func TestGenerator_Generate_OpeningLineQuery(t *testing.T) {
	mockLLM := NewMockLLM(`"Call me Ishmael."`)
	gen := NewGenerator(mockLLM, DefaultLLMConfig())

	query := "What is the opening line of Moby Dick?"
	if _, err := gen.Generate(context.Background(), query, mobyPassages(), ClassicLiterature); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := mockLLM.UserPrompt()
	if user != query+"\n\n"+OpeningLineRequest {
		t.Errorf("unexpected user prompt %q", user)
	}
	if !strings.Contains(mockLLM.SystemPrompt(), "Passage 1 (ID: chunk-000000-a): Call me Ishmael.") {
		t.Error("system prompt does not carry the first chunk")
	}
}

func TestGenerator_Generate_LLMError(t *testing.T) {
	llmErr := errors.New("API rate limit exceeded")
	gen := NewGenerator(NewMockLLMWithError(llmErr), DefaultLLMConfig())

	_, err := gen.Generate(context.Background(), "Who is Ahab?", nil, ClassicLiterature)
	if err == nil {
		t.Fatal("expected error from LLM")
	}
	if !errors.Is(err, ErrGenerationFailed) || !errors.Is(err, llmErr) {
		t.Errorf("expected wrapped generation error, got %v", err)
	}
	if !apperror.Is(err, apperror.Upstream) {
		t.Errorf("expected upstream kind, got %v", apperror.KindOf(err))
	}
}

func TestGenerator_Generate_NilLLM(t *testing.T) {
	gen := NewGenerator(nil, DefaultLLMConfig())

	_, err := gen.Generate(context.Background(), "Who is Ahab?", nil, ClassicLiterature)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_Generate_UnknownPersonality(t *testing.T) {
	mockLLM := NewMockLLM("ok")
	gen := NewGenerator(mockLLM, DefaultLLMConfig())

	answer, err := gen.Generate(context.Background(), "Who is Emma?", nil, Personality("pirate"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Personality != ClassicLiterature {
		t.Errorf("expected fallback personality, got %s", answer.Personality)
	}
	if !strings.HasPrefix(mockLLM.SystemPrompt(), ClassicLiterature.Prompt()) {
		t.Error("unknown personality should use the classic literature prompt")
	}
}

func TestMockLLM_Generate(t *testing.T) {
	tests := []struct {
		name     string
		mock     *MockLLM
		wantErr  bool
		wantText string
	}{
		{
			name:     "fixed response",
			mock:     NewMockLLM("Fixed answer"),
			wantText: "Fixed answer",
		},
		{
			name:    "error",
			mock:    NewMockLLMWithError(errors.New("boom")),
			wantErr: true,
		},
		{
			name:     "derived response",
			mock:     &MockLLM{},
			wantText: `Answer to "Who is Ahab?" drawn from 1 passages.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := BuildMessages("Who is Ahab?", mobyPassages(), ClassicLiterature)
			got, err := tt.mock.Generate(context.Background(), messages)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.wantText {
				t.Errorf("Generate() = %q, want %q", got, tt.wantText)
			}
			if tt.mock.Calls != 1 {
				t.Errorf("expected 1 call, got %d", tt.mock.Calls)
			}
		})
	}
}

package narrative

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/logging"
)

var (
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Answer is the generator's reply to a single query.
type Answer struct {
	// Query is the question as asked
	Query string `json:"query"`

	// Text is the generated answer or greeting
	Text string `json:"text"`

	// Personality is the tone the answer was written in
	Personality Personality `json:"personality"`

	// Greeting is true when Text is a canned greeting and no model was called
	Greeting bool `json:"greeting"`

	// Model is the LLM model used to generate this answer
	Model string `json:"model,omitempty"`

	// GeneratedAt is when this answer was created
	GeneratedAt time.Time `json:"generated_at"`
}

// Generator answers questions from retrieved passages using an LLM.
type Generator struct {
	llm    LLM
	config LLMConfig
	logger zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator creates an answer generator with the given LLM implementation.
func NewGenerator(llm LLM, config LLMConfig) *Generator {
	return &Generator{
		llm:    llm,
		config: config,
		logger: logging.Component("generator"),
	}
}

// SetRand makes greeting selection deterministic.
func (g *Generator) SetRand(r *rand.Rand) {
	g.mu.Lock()
	g.rnd = r
	g.mu.Unlock()
}

// Greeting returns one of p's greetings at random.
func (g *Generator) Greeting(p Personality) string {
	options := p.Greetings()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rnd != nil {
		return options[g.rnd.IntN(len(options))]
	}
	return options[rand.IntN(len(options))]
}

// Generate answers query from passages in the voice of p. A blank query is
// answered with a greeting without calling the model.
func (g *Generator) Generate(ctx context.Context, query string, passages []Passage, p Personality) (*Answer, error) {
	p = p.resolve()
	answer := &Answer{
		Query:       query,
		Personality: p,
	}

	if strings.TrimSpace(query) == "" {
		answer.Text = g.Greeting(p)
		answer.Greeting = true
		answer.GeneratedAt = time.Now()
		return answer, nil
	}

	if g.llm == nil {
		return nil, fmt.Errorf("%w: LLM is required", ErrGenerationFailed)
	}

	messages := BuildMessages(query, passages, p)
	g.logger.Debug().
		Str("personality", string(p)).
		Int("passages", len(passages)).
		Int("prompt_chars", len(messages[0].Content)).
		Msg("Calling language model")

	text, err := g.llm.Generate(ctx, messages)
	if err != nil {
		wrapped := fmt.Errorf("%w: LLM invocation failed: %w", ErrGenerationFailed, err)
		if apperror.KindOf(err) == apperror.Internal {
			return nil, apperror.Wrap(apperror.Upstream, wrapped, "")
		}
		return nil, wrapped
	}

	answer.Text = text
	answer.Model = g.config.Model
	answer.GeneratedAt = time.Now()
	return answer, nil
}

package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/narrative"
	"github.com/Yates-Labs/folio/internal/rag"
	"github.com/Yates-Labs/folio/internal/rag/store"
)

// Messages returned instead of an answer.
const (
	NoResultsMessage = "No relevant information found for your query."
	NoIndexesMessage = "No book indexes found. Please create some indexes first."
)

// AnswerRequest is one question to answer.
type AnswerRequest struct {
	Query string

	// Index pins the search to a single index. When empty the query may
	// name a book itself, otherwise Active (or every book index) is searched.
	Index  string
	Active []string

	// Limit is the number of passages per index; zero uses the configured
	// default.
	Limit       int
	Personality narrative.Personality
}

// AnswerResult is the outcome of a question.
type AnswerResult struct {
	Results         []rag.ContextEntry
	Answer          *narrative.Answer
	IndexesSearched []string

	// Focused is set when the query named a book and the search was
	// narrowed to its index.
	Focused string

	// Message explains why there is no Answer.
	Message string
}

// Answer retrieves passages for req.Query and generates an answer from
// them. A blank query is answered with a greeting and searches nothing.
func (p *Pipeline) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	personality := req.Personality
	if personality == "" {
		personality = narrative.DefaultPersonality
	}

	if strings.TrimSpace(req.Query) == "" {
		answer, err := p.generator.Generate(ctx, req.Query, nil, personality)
		if err != nil {
			return nil, err
		}
		p.metrics.ObserveAnswer(string(answer.Personality), "greeting")
		return &AnswerResult{Results: []rag.ContextEntry{}, Answer: answer, IndexesSearched: []string{}}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = p.config.Retrieval.DefaultLimit
	}

	result := &AnswerResult{Results: []rag.ContextEntry{}}
	if req.Index != "" {
		result.IndexesSearched = []string{req.Index}
	} else {
		catalog, err := p.ListIndexes(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list book indexes: %w", err)
		}
		if len(catalog) == 0 {
			result.IndexesSearched = []string{}
			result.Message = NoIndexesMessage
			return result, nil
		}
		if index, ok := rag.MatchIndex(req.Query, catalog, p.Prefix()); ok {
			p.logger.Info().Str("index", index).Msg("Query names a book, focusing on its index")
			result.Focused = index
		}
		result.IndexesSearched = rag.SelectIndexes(req.Query, catalog, req.Active, p.Prefix())
	}

	contexts, err := p.retriever.SearchIndexes(ctx, req.Query, result.IndexesSearched, limit)
	if err != nil {
		p.metrics.ObserveAnswer(string(personality), "error")
		return nil, err
	}
	if len(contexts) == 0 {
		p.metrics.ObserveAnswer(string(personality), "empty")
		result.Message = NoResultsMessage
		return result, nil
	}
	result.Results = contexts

	p.logger.Debug().Int("contexts", len(contexts)).Strs("indexes", result.IndexesSearched).Msg("Generating response")
	answer, err := p.generator.Generate(ctx, req.Query, narrative.PassagesFromContexts(contexts), personality)
	if err != nil {
		p.metrics.ObserveAnswer(string(personality), "error")
		return nil, err
	}
	p.metrics.ObserveAnswer(string(answer.Personality), "model")
	result.Answer = answer
	return result, nil
}

// ChunksResult holds a raw chunk lookup.
type ChunksResult struct {
	Vector  []float32
	Indexes []string
	Results []rag.ContextEntry
}

// Chunks embeds query once and runs it as a hybrid search against every
// book index, returning up to top passages from each. There is no opening
// line handling and no keyword fallback.
func (p *Pipeline) Chunks(ctx context.Context, query string, top int) (*ChunksResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Validationf("query cannot be empty")
	}
	if top <= 0 {
		top = p.config.Retrieval.DefaultLimit
	}

	vector, err := rag.EmbedOne(ctx, p.embedder, query)
	if err != nil {
		return nil, err
	}
	p.logger.Debug().Msg(VisualizeEmbedding(vector, 5))

	indexes, err := p.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list book indexes: %w", err)
	}

	result := &ChunksResult{Vector: vector, Indexes: indexes, Results: []rag.ContextEntry{}}
	for _, index := range indexes {
		hits, err := p.store.Search(ctx, index, store.Query{
			Text:   query,
			Vector: vector,
			Top:    top,
			Mode:   store.ModeSemantic,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn().Err(err).Str("index", index).Msg("Error searching index")
			continue
		}
		p.logger.Debug().Str("index", index).Int("documents", len(hits)).Msg("Documents retrieved")
		for _, h := range hits {
			result.Results = append(result.Results, rag.NewContextEntry(index, h))
		}
	}

	p.logger.Debug().Int("documents", len(result.Results)).Msg("Total documents retrieved across all indexes")
	return result, nil
}

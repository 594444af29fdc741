package local

import (
	"context"
	"errors"
	"testing"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/rag/store"
)

func sampleDocs() []store.Document {
	return []store.Document{
		{
			ID:            "chunk-000002-c",
			Ordinal:       2,
			Content:       "The whale rose from the deep and the harpoons flew.",
			Title:         "Moby Dick - Chunk 3",
			ContentVector: []float32{0, 0, 1},
		},
		{
			ID:            "chunk-000000-a",
			Ordinal:       0,
			Content:       "Call me Ishmael. Some years ago, never mind how long precisely.",
			Title:         "Moby Dick - Chunk 1",
			ContentVector: []float32{1, 0, 0},
		},
		{
			ID:            "chunk-000001-b",
			Ordinal:       1,
			Content:       "Queequeg was a native of Rokovoko, an island far away.",
			Title:         "Moby Dick - Chunk 2",
			ContentVector: []float32{0, 1, 0},
		},
	}
}

func newPopulated(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := New()
	t.Cleanup(func() { s.Close() })

	if err := s.CreateIndex(ctx, store.NewIndexDefinition("classic-moby-dick", 3)); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := s.Upload(ctx, "classic-moby-dick", sampleDocs()); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	return s
}

func TestStore_OrderedReturnsFirstOrdinal(t *testing.T) {
	s := newPopulated(t)

	hits, err := s.Search(context.Background(), "classic-moby-dick", store.Query{Text: "ignored", Top: 1, Mode: store.ModeOrdered})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].ID != "chunk-000000-a" {
		t.Errorf("expected first chunk, got %s", hits[0].ID)
	}
}

func TestStore_Lexical(t *testing.T) {
	s := newPopulated(t)

	hits, err := s.Search(context.Background(), "classic-moby-dick", store.Query{Text: "Queequeg", Top: 5, Mode: store.ModeLexical})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "chunk-000001-b" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Score <= 0 {
		t.Error("expected positive lexical score")
	}

	hits, err = s.Search(context.Background(), "classic-moby-dick", store.Query{Text: "zeppelin", Top: 5, Mode: store.ModeLexical})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestStore_HybridFusesRankings(t *testing.T) {
	s := newPopulated(t)

	hits, err := s.Search(context.Background(), "classic-moby-dick", store.Query{
		Text:   "whale harpoons",
		Vector: []float32{0, 0, 1},
		Top:    2,
		Mode:   store.ModeSemantic,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "chunk-000002-c" {
		t.Errorf("expected whale chunk first, got %s", hits[0].ID)
	}
	if hits[0].Title != "Moby Dick - Chunk 3" {
		t.Errorf("metadata not preserved: %q", hits[0].Title)
	}
}

func TestStore_HybridWithoutVectorIsLexical(t *testing.T) {
	s := newPopulated(t)

	hits, err := s.Search(context.Background(), "classic-moby-dick", store.Query{Text: "zeppelin", Top: 3})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestStore_VectorTopLargerThanCount(t *testing.T) {
	s := newPopulated(t)

	hits, err := s.Search(context.Background(), "classic-moby-dick", store.Query{Vector: []float32{1, 0, 0}, Top: 50})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("expected 3 hits, got %d", len(hits))
	}
}

func TestStore_DimensionMismatch(t *testing.T) {
	s := newPopulated(t)

	_, err := s.Search(context.Background(), "classic-moby-dick", store.Query{Vector: []float32{1, 0}, Top: 1})
	if !errors.Is(err, store.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}
	if !apperror.Is(err, apperror.Validation) {
		t.Errorf("a mismatched query vector is a caller error, got kind %v", apperror.KindOf(err))
	}

	err = s.Upload(context.Background(), "classic-moby-dick", []store.Document{{ID: "x", ContentVector: []float32{1}}})
	if !errors.Is(err, store.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension on upload, got %v", err)
	}
}

func TestStore_IndexLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	err := s.DeleteIndex(ctx, "classic-emma")
	if !errors.Is(err, store.ErrIndexNotFound) || !apperror.Is(err, apperror.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := s.CreateIndex(ctx, store.NewIndexDefinition("classic-emma", 3)); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := s.CreateIndex(ctx, store.NewIndexDefinition("classic-emma", 3)); !errors.Is(err, store.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
	if err := s.CreateIndex(ctx, store.NewIndexDefinition("classic-dracula", 3)); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	names, err := s.ListIndexes(ctx)
	if err != nil {
		t.Fatalf("ListIndexes failed: %v", err)
	}
	if len(names) != 2 || names[0] != "classic-dracula" || names[1] != "classic-emma" {
		t.Errorf("unexpected names: %v", names)
	}

	if err := s.DeleteIndex(ctx, "classic-emma"); err != nil {
		t.Fatalf("DeleteIndex failed: %v", err)
	}
	if _, err := s.Search(ctx, "classic-emma", store.Query{Top: 1}); !errors.Is(err, store.ErrIndexNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestStore_UploadUnknownIndex(t *testing.T) {
	s := New()
	defer s.Close()

	err := s.Upload(context.Background(), "classic-missing", sampleDocs())
	if !errors.Is(err, store.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

package chunker

import (
	"strings"
	"testing"
)

func TestSplit_KeepsLongParagraphsVerbatim(t *testing.T) {
	long := strings.Repeat("Call me Ishmael. ", 40)
	text := "  " + long + "  \n\nShort line.\n\n\n" + long + "again"

	chunks := Split(text, DefaultConfig())

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != strings.TrimSpace(long) {
		t.Errorf("first chunk not trimmed verbatim: %q", chunks[0].Text[:40])
	}
	if chunks[1].Text != strings.TrimSpace(long+"again") {
		t.Error("second chunk mismatch")
	}
	for i, c := range chunks {
		if c.Ordinal != i {
			t.Errorf("chunk %d has ordinal %d", i, c.Ordinal)
		}
	}
}

func TestSplit_Threshold(t *testing.T) {
	tests := []struct {
		name      string
		paragraph string
		minLength int
		wantKept  bool
	}{
		{"exactly at threshold is dropped", strings.Repeat("a", 500), 500, false},
		{"one over threshold is kept", strings.Repeat("a", 501), 500, true},
		{"multibyte counted as characters", strings.Repeat("é", 501), 500, true},
		{"multibyte at threshold dropped", strings.Repeat("é", 500), 500, false},
		{"zero threshold keeps short", "hi", 0, true},
		{"whitespace only never kept", "   \t ", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.paragraph, Config{MinLength: tt.minLength})
			if got := len(chunks) == 1; got != tt.wantKept {
				t.Errorf("kept = %v, want %v", got, tt.wantKept)
			}
		})
	}
}

func TestSplit_SingleNewlineDoesNotSplit(t *testing.T) {
	text := strings.Repeat("x", 300) + "\n" + strings.Repeat("y", 300)
	chunks := Split(text, DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplit_CRLF(t *testing.T) {
	p := strings.Repeat("b", 10)
	chunks := Split(p+"\r\n\r\n"+p, Config{})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestSplit_Empty(t *testing.T) {
	if chunks := Split("", DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

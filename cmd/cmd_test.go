package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string][]string{
		"ask":        {"query", "index", "personality", "enable-telemetry"},
		"serve":      {"addr", "assets-dir", "static-dir"},
		"index":      {"text-file", "all-books", "assets-dir", "index-name"},
		"chunks":     {"query", "top"},
		"embed-demo": {"out"},
	}

	for name, flags := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
			continue
		}
		for _, f := range flags {
			if cmd.Flags().Lookup(f) == nil {
				t.Errorf("%s: missing --%s", name, f)
			}
		}
	}

	for _, f := range []string{"config", "log-level", "log-format", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(f) == nil {
			t.Errorf("missing persistent flag --%s", f)
		}
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "Call me\n\nIshmael.", n: 20, want: "Call me Ishmael."},
		{in: "Call me Ishmael.", n: 4, want: "Call..."},
		{in: "", n: 4, want: ""},
	}
	for _, tt := range tests {
		if got := preview(tt.in, tt.n); got != tt.want {
			t.Errorf("preview(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFormatSample(t *testing.T) {
	if got := formatSample([]float32{0.5, -0.25, 1}, 2); got != "0.500000, -0.250000" {
		t.Errorf("unexpected sample: %q", got)
	}
	if got := formatSample([]float32{1}, 5); got != "1.000000" {
		t.Errorf("short vector: %q", got)
	}
}

func TestSaveEmbedding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample_embedding.json")
	sample := sampleEmbedding{
		Question:   sampleQuestions[0],
		Model:      "text-embedding-ada-002",
		Embedding:  []float32{0.1, 0.2},
		Dimensions: 2,
	}
	if err := saveEmbedding(path, sample); err != nil {
		t.Fatalf("saveEmbedding failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"question", "model", "embedding", "dimensions"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if got["question"] != "What is Frankenstein about?" {
		t.Errorf("unexpected question: %v", got["question"])
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Yates-Labs/folio/internal/apperror"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected :8000, got %s", cfg.Server.Addr)
	}
	if cfg.Search.IndexPrefix != "classic" {
		t.Errorf("expected classic prefix, got %s", cfg.Search.IndexPrefix)
	}
	if cfg.Chat.Model != "gpt-4" || cfg.Chat.Temperature != 0.5 || cfg.Chat.MaxTokens != 1024 || cfg.Chat.TopP != 1.0 {
		t.Errorf("unexpected chat defaults: %+v", cfg.Chat)
	}
	if cfg.Chunker.MinLength != 500 {
		t.Errorf("expected min_length 500, got %d", cfg.Chunker.MinLength)
	}
	if cfg.Retrieval.DefaultLimit != 5 || cfg.Retrieval.CLILimit != 3 || cfg.Retrieval.InteractiveLimit != 2 {
		t.Errorf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Jobs.Timeout != 30*time.Minute {
		t.Errorf("expected 30m job timeout, got %v", cfg.Jobs.Timeout)
	}
}

func TestLoad_LegacyEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AZURE_SEARCH_ENDPOINT", "https://books.search.windows.net")
	t.Setenv("CHAT_MODEL", "gpt-4o")
	t.Setenv("EMBEDDINGS_MODEL", "text-embedding-3-large")

	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Search.Azure.Endpoint != "https://books.search.windows.net" {
		t.Errorf("legacy endpoint not applied: %q", cfg.Search.Azure.Endpoint)
	}
	if cfg.Chat.Model != "gpt-4o" {
		t.Errorf("legacy chat model not applied: %q", cfg.Chat.Model)
	}
	if cfg.Embedding.Model != "text-embedding-3-large" {
		t.Errorf("legacy embedding model not applied: %q", cfg.Embedding.Model)
	}
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHAT_MODEL", "gpt-4o")
	t.Setenv("FOLIO_CHAT_MODEL", "gpt-4.1")
	t.Setenv("FOLIO_SEARCH_BACKEND", "local")

	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chat.Model != "gpt-4.1" {
		t.Errorf("expected FOLIO_CHAT_MODEL to win, got %q", cfg.Chat.Model)
	}
	if cfg.Search.Backend != "local" {
		t.Errorf("expected local backend, got %q", cfg.Search.Backend)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.yaml")
	body := "search:\n  backend: milvus\n  index_prefix: novels\nchunker:\n  min_length: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Search.Backend != "milvus" || cfg.Search.IndexPrefix != "novels" {
		t.Errorf("file values not applied: %+v", cfg.Search)
	}
	if cfg.Chunker.MinLength != 0 {
		t.Errorf("expected min_length 0, got %d", cfg.Chunker.MinLength)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	if !apperror.Is(err, apperror.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Search.Backend = "elastic" }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"unknown job store", func(c *Config) { c.Jobs.Store = "postgres" }},
		{"blank prefix", func(c *Config) { c.Search.IndexPrefix = " " }},
		{"negative min length", func(c *Config) { c.Chunker.MinLength = -1 }},
		{"zero limit", func(c *Config) { c.Retrieval.DefaultLimit = 0 }},
		{"hot temperature", func(c *Config) { c.Chat.Temperature = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(NewViper(), "")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); !apperror.Is(err, apperror.Validation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

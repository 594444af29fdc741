// Package config loads folio settings from an optional config file, FOLIO_*
// environment variables and the legacy variable names used by earlier
// deployments, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Yates-Labs/folio/internal/apperror"
)

// Config is the typed view of all settings.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Search      SearchConfig      `mapstructure:"search"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Chat        ChatConfig        `mapstructure:"chat"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	AzureOpenAI AzureOpenAIConfig `mapstructure:"azure_openai"`
	Ollama      OllamaConfig      `mapstructure:"ollama"`
	Chunker     ChunkerConfig     `mapstructure:"chunker"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
	Log         LogConfig         `mapstructure:"log"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AssetsDir       string        `mapstructure:"assets_dir"`
	StaticDir       string        `mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SearchConfig struct {
	// Backend is one of azure, milvus or local.
	Backend     string       `mapstructure:"backend"`
	IndexPrefix string       `mapstructure:"index_prefix"`
	Azure       AzureSearch  `mapstructure:"azure"`
	Milvus      MilvusSearch `mapstructure:"milvus"`
}

type AzureSearch struct {
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type MilvusSearch struct {
	Address        string `mapstructure:"address"`
	M              int    `mapstructure:"m"`
	EfConstruction int    `mapstructure:"ef_construction"`
	EfSearch       int    `mapstructure:"ef_search"`
}

type EmbeddingConfig struct {
	// Provider is one of openai, azure or ollama.
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	// Dimensions overrides the width derived from the model name when non-zero.
	Dimensions int `mapstructure:"dimensions"`
}

type ChatConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	// BaseURL points the client at an OpenAI-compatible endpoint when set.
	BaseURL string `mapstructure:"base_url"`
}

type AzureOpenAIConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	APIVersion string `mapstructure:"api_version"`
}

type OllamaConfig struct {
	Host string `mapstructure:"host"`
}

type ChunkerConfig struct {
	MinLength int `mapstructure:"min_length"`
}

type RetrievalConfig struct {
	DefaultLimit     int `mapstructure:"default_limit"`
	CLILimit         int `mapstructure:"cli_limit"`
	InteractiveLimit int `mapstructure:"interactive_limit"`
}

type JobsConfig struct {
	// Store is memory or redis.
	Store   string        `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	TTL     time.Duration `mapstructure:"ttl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

var defaults = map[string]any{
	"server.addr":             ":8000",
	"server.assets_dir":       "assets",
	"server.static_dir":       "static",
	"server.shutdown_timeout": "15s",

	"search.backend":           "azure",
	"search.index_prefix":      "classic",
	"search.azure.endpoint":    "",
	"search.azure.api_key":     "",
	"search.azure.api_version": "2024-07-01",
	"search.azure.timeout":     "30s",

	"search.milvus.address":         "localhost:19530",
	"search.milvus.m":               4,
	"search.milvus.ef_construction": 1000,
	"search.milvus.ef_search":       1000,

	"embedding.provider":   "azure",
	"embedding.model":      "text-embedding-ada-002",
	"embedding.dimensions": 0,

	"chat.provider":    "azure",
	"chat.model":       "gpt-4",
	"chat.temperature": 0.5,
	"chat.max_tokens":  1024,
	"chat.top_p":       1.0,

	"openai.api_key":  "",
	"openai.base_url": "",

	"azure_openai.endpoint":    "",
	"azure_openai.api_key":     "",
	"azure_openai.api_version": "2024-12-01-preview",

	"ollama.host": "http://127.0.0.1:11434",

	"chunker.min_length": 500,

	"retrieval.default_limit":     5,
	"retrieval.cli_limit":         3,
	"retrieval.interactive_limit": 2,

	"jobs.store":            "memory",
	"jobs.redis.addr":       "localhost:6379",
	"jobs.redis.password":   "",
	"jobs.redis.db":         0,
	"jobs.redis.key_prefix": "folio:job:",
	"jobs.ttl":              "24h",
	"jobs.timeout":          "30m",

	"log.level":  "info",
	"log.format": "console",

	"telemetry.enabled":      false,
	"telemetry.metrics_addr": ":9090",
}

// legacyEnv maps keys to the environment names earlier deployments used.
var legacyEnv = map[string][]string{
	"search.azure.endpoint": {"AZURE_SEARCH_ENDPOINT"},
	"search.azure.api_key":  {"AZURE_SEARCH_KEY"},
	"search.index_prefix":   {"AISEARCH_INDEX_NAME"},
	"search.milvus.address": {"MILVUS_ADDRESS"},
	"azure_openai.endpoint": {"AZURE_OPENAI_ENDPOINT"},
	"azure_openai.api_key":  {"AZURE_OPENAI_API_KEY"},
	"openai.api_key":        {"OPENAI_API_KEY"},
	"openai.base_url":       {"OPENAI_BASE_URL"},
	"embedding.model":       {"EMBEDDINGS_MODEL"},
	"chat.model":            {"CHAT_MODEL"},
	"ollama.host":           {"OLLAMA_HOST"},
}

// NewViper returns a viper instance with defaults and environment bindings
// applied. Callers may bind command-line flags onto it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		envs := append([]string{"FOLIO_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// Load reads the optional config file at path (or folio.* in . and ./config
// when path is empty) into v and returns the validated settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("folio")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, apperror.Wrap(apperror.Validation, err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperror.Wrap(apperror.Validation, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings and numeric ranges.
func (c *Config) Validate() error {
	if !oneOf(c.Search.Backend, "azure", "milvus", "local") {
		return apperror.Validationf("search.backend must be azure, milvus or local, got %q", c.Search.Backend)
	}
	if !oneOf(c.Embedding.Provider, "openai", "azure", "ollama") {
		return apperror.Validationf("embedding.provider must be openai, azure or ollama, got %q", c.Embedding.Provider)
	}
	if !oneOf(c.Chat.Provider, "openai", "azure", "ollama") {
		return apperror.Validationf("chat.provider must be openai, azure or ollama, got %q", c.Chat.Provider)
	}
	if !oneOf(c.Jobs.Store, "memory", "redis") {
		return apperror.Validationf("jobs.store must be memory or redis, got %q", c.Jobs.Store)
	}
	if strings.TrimSpace(c.Search.IndexPrefix) == "" {
		return apperror.Validationf("search.index_prefix is required")
	}
	if c.Chunker.MinLength < 0 {
		return apperror.Validationf("chunker.min_length must not be negative")
	}
	if c.Retrieval.DefaultLimit <= 0 || c.Retrieval.CLILimit <= 0 || c.Retrieval.InteractiveLimit <= 0 {
		return apperror.Validationf("retrieval limits must be positive")
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return apperror.Validationf("chat.temperature must be within [0, 2], got %v", c.Chat.Temperature)
	}
	return nil
}

// Describe returns a short, secret-free summary for startup logs.
func (c *Config) Describe() string {
	return fmt.Sprintf("search=%s embedding=%s/%s chat=%s/%s jobs=%s",
		c.Search.Backend, c.Embedding.Provider, c.Embedding.Model,
		c.Chat.Provider, c.Chat.Model, c.Jobs.Store)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

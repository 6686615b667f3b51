// Package config loads ragline settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/core"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreBadger = "badger"
	StoreQdrant = "qdrant"
)

// AIConfig configures the embedding and completion provider.
type AIConfig struct {
	Host            string  `yaml:"host"`
	EmbeddingHost   string  `yaml:"embedding_host,omitempty"`
	CompletionHost  string  `yaml:"completion_host,omitempty"`
	APIKey          string  `yaml:"api_key,omitempty"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	CompletionModel string  `yaml:"completion_model"`
	Dimensions      int     `yaml:"dimensions"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
}

// QdrantConfig holds connection details for a Qdrant gRPC endpoint.
type QdrantConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key,omitempty"`
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Type     string       `yaml:"type"`
	Path     string       `yaml:"path"`
	InMemory bool         `yaml:"in_memory"`
	Index    string       `yaml:"index"`
	Metric   string       `yaml:"metric"`
	Qdrant   QdrantConfig `yaml:"qdrant"`
}

// ExaConfig configures web search.
type ExaConfig struct {
	APIKey        string  `yaml:"api_key,omitempty"`
	BaseURL       string  `yaml:"base_url"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// IngestConfig holds acquisition and ingestion defaults.
type IngestConfig struct {
	Limit          int           `yaml:"limit"`
	ChunkMaxLength int           `yaml:"chunk_max_length"`
	BatchSize      int           `yaml:"batch_size"`
	Concurrency    int           `yaml:"concurrency"`
	MaxAttempts    int           `yaml:"max_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	Topic          string        `yaml:"topic"`
	Queries        []string      `yaml:"queries,omitempty"`
	Domains        []string      `yaml:"domains,omitempty"`
	FallbackURLs   []string      `yaml:"fallback_urls,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AssistantConfig configures grounded responses.
type AssistantConfig struct {
	SupportContact string `yaml:"support_contact"`
	SystemPrompt   string `yaml:"system_prompt,omitempty"`
	TopK           int    `yaml:"top_k"`
	HistoryTurns   int    `yaml:"history_turns"`
}

// Config is the root configuration.
type Config struct {
	AI        AIConfig        `yaml:"ai"`
	Store     StoreConfig     `yaml:"store"`
	Exa       ExaConfig       `yaml:"exa"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
	Assistant AssistantConfig `yaml:"assistant"`
}

// Default returns the built-in configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		AI: AIConfig{
			Host:            ai.DefaultHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			CompletionModel: aiDefaults.CompletionModel,
			Dimensions:      aiDefaults.Dimensions,
			Temperature:     aiDefaults.Temperature,
			MaxTokens:       aiDefaults.MaxTokens,
		},
		Store: StoreConfig{
			Type:   StoreBadger,
			Path:   "ragline-data",
			Index:  "knowledge-base",
			Metric: string(core.MetricCosine),
			Qdrant: QdrantConfig{URL: "http://localhost:6334"},
		},
		Exa: ExaConfig{
			BaseURL:       "https://api.exa.ai",
			RatePerSecond: 5,
		},
		Ingest: IngestConfig{
			Limit:          15,
			ChunkMaxLength: 900,
			BatchSize:      100,
			Concurrency:    1,
			MaxAttempts:    3,
			RetryDelay:     time.Second,
			Topic:          "knowledge",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Assistant: AssistantConfig{
			SupportContact: "1-800-AVEN-HLP",
			TopK:           5,
			HistoryTurns:   4,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case StoreBadger:
		if c.Store.Path == "" && !c.Store.InMemory {
			return errors.New("config: store.path is required for badger")
		}
	case StoreQdrant:
		if c.Store.Qdrant.URL == "" {
			return errors.New("config: store.qdrant.url is required")
		}
	default:
		return fmt.Errorf("config: unknown store type %q", c.Store.Type)
	}
	if c.Store.Index == "" {
		return errors.New("config: store.index is required")
	}
	if _, err := core.ParseMetric(c.Store.Metric); err != nil {
		return fmt.Errorf("config: store.metric: %w", err)
	}
	if c.Ingest.ChunkMaxLength <= 0 || c.Ingest.BatchSize <= 0 {
		return errors.New("config: ingest chunk_max_length and batch_size must be positive")
	}
	return c.ProviderConfig().Validate()
}

// ProviderConfig builds the ai.Config for the configured provider. Specific
// hosts take precedence over Host.
func (c *Config) ProviderConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithHost(c.AI.Host),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithCompletionModel(c.AI.CompletionModel),
		ai.WithDimensions(c.AI.Dimensions),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithMaxTokens(c.AI.MaxTokens),
	}
	if c.AI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.AI.EmbeddingHost))
	}
	if c.AI.CompletionHost != "" {
		opts = append(opts, ai.WithCompletionHost(c.AI.CompletionHost))
	}
	return ai.NewConfig(opts...)
}

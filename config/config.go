package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for pdfrag.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Graph     GraphConfig     `yaml:"graph"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Backend   string `yaml:"backend" validate:"oneof=bolt badger memory"`
	Table     string `yaml:"table" validate:"required"`
	Dimension int    `yaml:"dimension" validate:"gt=0"`
}

// ChunkingConfig controls how extracted text is split.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
}

// GraphConfig holds similarity graph configuration.
type GraphConfig struct {
	EdgeThreshold float64 `yaml:"edge_threshold" validate:"gte=-1,lte=1"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK           int `yaml:"top_k" validate:"gt=0"`
	CacheSize      int `yaml:"cache_size" validate:"gte=0"`
	CacheTTLSecond int `yaml:"cache_ttl_seconds" validate:"gte=0"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" validate:"oneof=openai mock"` // "openai", "mock"
	Model             string  `yaml:"model"`                                 // e.g., "text-embedding-3-small"
	APIKeyEnv         string  `yaml:"api_key_env"`                           // Environment variable for API key
	BaseURL           string  `yaml:"base_url"`
	Dimension         int     `yaml:"dimension" validate:"gt=0"`
	BatchSize         int     `yaml:"batch_size" validate:"gt=0"`
	Concurrency       int     `yaml:"concurrency" validate:"gt=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"` // 0 = unlimited
	TimeoutSeconds    int     `yaml:"timeout_seconds" validate:"gt=0"`
}

// LLMConfig configures the answer generator and the fallback agent.
type LLMConfig struct {
	Provider       string  `yaml:"provider" validate:"oneof=openai none"`
	Model          string  `yaml:"model"`
	FallbackModel  string  `yaml:"fallback_model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	Temperature    float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	TimeoutSeconds int     `yaml:"timeout_seconds" validate:"gt=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string   `yaml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `yaml:"output" validate:"dive,oneof=console stdout file"`
	File   string   `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:   "bolt",
			Table:     "document_graph_nodes",
			Dimension: 1536,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Graph: GraphConfig{
			EdgeThreshold: 0.7,
		},
		Retrieve: RetrieveConfig{
			TopK:           3,
			CacheSize:      100,
			CacheTTLSecond: 300,
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			APIKeyEnv:         "OPENAI_API_KEY",
			Dimension:         1536,
			BatchSize:         100,
			Concurrency:       4,
			RequestsPerSecond: 0,
			TimeoutSeconds:    30,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			FallbackModel:  "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    0,
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Output: []string{"console"},
		},
	}
}

var validate = validator.New()

// Validate checks field constraints and cross-section consistency.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Embedding.Dimension != c.Store.Dimension {
		return fmt.Errorf("invalid config: embedding.dimension (%d) must equal store.dimension (%d)",
			c.Embedding.Dimension, c.Store.Dimension)
	}
	return nil
}

// EmbeddingTimeout returns the per-call bound for embedding requests.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

// LLMTimeout returns the per-call bound for chat completion requests.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for pdfrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "pdfrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".pdfrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath returns the path of the record store for the given backend.
// Bolt uses a single file, badger a directory.
func StorePath(dir, backend string) string {
	if backend == "badger" {
		return filepath.Join(dir, ".pdfrag", "badger")
	}
	return filepath.Join(dir, ".pdfrag", "records.db")
}

// EnsureDataDir ensures the .pdfrag directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".pdfrag"), 0755)
}

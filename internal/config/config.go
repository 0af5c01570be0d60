// Package config provides YAML-backed configuration for flowstitch.
// Configuration is the only process-wide state in the system: it is loaded
// once at startup and treated as read-only afterwards. Every tunable the
// pipeline consults (row caps, retry budgets, confidence weights) lives here
// rather than as a hard-coded constant.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all flowstitch configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Store configuration (SQLite backing file)
	Store StoreConfig `yaml:"store"`

	// Retrieval configuration (vector artifact search)
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Stitching configuration (matching + confidence aggregation)
	Stitch StitchConfig `yaml:"stitch"`

	// Generation model configuration (annotation + embeddings)
	Generation GenerationConfig `yaml:"generation"`

	// Packaging configuration
	Packaging PackagingConfig `yaml:"packaging"`

	// Inbox watcher configuration
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the embedded SQLite store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	BusyTimeout  string `yaml:"busy_timeout"`
}

// RetrievalConfig configures the multi-table artifact search.
type RetrievalConfig struct {
	// RowCap bounds any single table scan.
	RowCap int `yaml:"row_cap"`

	// ReducedRowCap is the cap used for the single retry after a
	// query timeout.
	ReducedRowCap int `yaml:"reduced_row_cap"`

	// DefaultLimit is the per-table result truncation when the caller
	// does not specify one.
	DefaultLimit int `yaml:"default_limit"`

	// QueryTimeout is the per-table query deadline.
	QueryTimeout string `yaml:"query_timeout"`

	// MaxConcurrentTableQueries keeps the multi-table search sequential
	// by policy. Raising this is a conscious load trade-off against the
	// shared backing store, not a free optimization.
	MaxConcurrentTableQueries int `yaml:"max_concurrent_table_queries"`

	// ParallelPrefetch enables the only sanctioned concurrency: the graph
	// query and a name-only vector query may run together because neither
	// depends on the other's results.
	ParallelPrefetch bool `yaml:"parallel_prefetch"`
}

// StitchConfig configures matching and confidence aggregation.
// The confidence weights are heuristic and deliberately tunable; they are
// not calibrated against any ground truth.
type StitchConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// MaxDiagnosticCandidates bounds the near-miss list kept per
	// unresolved node.
	MaxDiagnosticCandidates int `yaml:"max_diagnostic_candidates"`

	// Confidence aggregation weights. Each term is capped so no single
	// source can dominate or starve the score.
	SimilarityWeight  float64 `yaml:"similarity_weight"`   // cap for mean artifact similarity
	DensityWeight     float64 `yaml:"density_weight"`      // cap for graph edge density
	CrossSourceBonus  float64 `yaml:"cross_source_bonus"`  // both sources contributed
	BaseDataBonus     float64 `yaml:"base_data_bonus"`     // any data found at all
	DensityNormalizer float64 `yaml:"density_normalizer"`  // edges per node considered "dense"
}

// GenerationConfig configures the language-model collaborators.
type GenerationConfig struct {
	Provider       string `yaml:"provider"` // gemini
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Timeout        string `yaml:"timeout"`
}

// PackagingConfig configures archive assembly.
type PackagingConfig struct {
	OutputDir        string `yaml:"output_dir"`
	ComponentVersion string `yaml:"component_version"`
}

// WatchConfig configures the inbox watcher.
type WatchConfig struct {
	InboxDir    string `yaml:"inbox_dir"`
	SettleDelay string `yaml:"settle_delay"`
}

// LoggingConfig configures the categorized debug logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "flowstitch",
		Version: "0.3.0",

		Store: StoreConfig{
			DatabasePath: "data/flowstitch.db",
			BusyTimeout:  "5s",
		},

		Retrieval: RetrievalConfig{
			RowCap:                    100,
			ReducedRowCap:             20,
			DefaultLimit:              10,
			QueryTimeout:              "10s",
			MaxConcurrentTableQueries: 1,
			ParallelPrefetch:          false,
		},

		Stitch: StitchConfig{
			ConfidenceThreshold:     0.65,
			MaxDiagnosticCandidates: 2,
			SimilarityWeight:        0.6,
			DensityWeight:           0.3,
			CrossSourceBonus:        0.1,
			BaseDataBonus:           0.2,
			DensityNormalizer:       10,
		},

		Generation: GenerationConfig{
			Provider:       "gemini",
			Model:          "gemini-2.0-flash",
			EmbeddingModel: "gemini-embedding-001",
			Timeout:        "60s",
		},

		Packaging: PackagingConfig{
			OutputDir:        "out",
			ComponentVersion: "1.1",
		},

		Watch: WatchConfig{
			InboxDir:    "inbox",
			SettleDelay: "500ms",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Generation.APIKey = key
		c.Generation.Provider = "gemini"
	}
	if path := os.Getenv("FLOWSTITCH_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if dir := os.Getenv("FLOWSTITCH_OUT"); dir != "" {
		c.Packaging.OutputDir = dir
	}
}

// GetQueryTimeout returns the per-table retrieval timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Retrieval.QueryTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetGenerationTimeout returns the generation-model timeout as a duration.
func (c *Config) GetGenerationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generation.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetSettleDelay returns the watcher settle delay as a duration.
func (c *Config) GetSettleDelay() time.Duration {
	d, err := time.ParseDuration(c.Watch.SettleDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Retrieval.RowCap <= 0 {
		return fmt.Errorf("retrieval.row_cap must be positive, got %d", c.Retrieval.RowCap)
	}
	if c.Retrieval.ReducedRowCap <= 0 || c.Retrieval.ReducedRowCap > c.Retrieval.RowCap {
		return fmt.Errorf("retrieval.reduced_row_cap must be in (0, %d], got %d",
			c.Retrieval.RowCap, c.Retrieval.ReducedRowCap)
	}
	if c.Retrieval.MaxConcurrentTableQueries < 1 {
		return fmt.Errorf("retrieval.max_concurrent_table_queries must be >= 1")
	}
	if c.Stitch.ConfidenceThreshold < 0 || c.Stitch.ConfidenceThreshold > 1 {
		return fmt.Errorf("stitch.confidence_threshold must be in [0,1], got %v",
			c.Stitch.ConfidenceThreshold)
	}
	if c.Stitch.MaxDiagnosticCandidates < 0 {
		return fmt.Errorf("stitch.max_diagnostic_candidates must be >= 0")
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"flowstitch/internal/config"
	"flowstitch/internal/logging"
)

var (
	// Global flags
	verbose    bool
	apiKey     string
	configPath string
	dbPath     string
	timeout    time.Duration

	// Logger
	logger *zap.Logger

	// Loaded configuration, available to every subcommand after PreRun.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flowstitch",
	Short: "flowstitch - integration flow reconstruction from fragmented evidence",
	Long: `flowstitch rebuilds integration-flow blueprints from two knowledge sources:
a graph store holding flow topology (nodes and edges) and a vector store
holding content artifacts (configuration, scripts, full definitions).

A free-text request is analyzed into an intent, turned into an ordered
retrieval plan, and the retrieved topology and content are stitched into
an evidence-backed component package with coverage and confidence
reporting. Missing topology degrades to pattern synthesis; missing
content degrades to flagged defaults. The pipeline never fabricates
ground truth silently.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if apiKey != "" {
			cfg.Generation.APIKey = apiKey
		}
		if dbPath != "" {
			cfg.Store.DatabasePath = dbPath
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := logging.Initialize("."); err != nil {
			logger.Warn("Categorized file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".flowstitch/config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	// Add commands to root
	rootCmd.AddCommand(reconstructCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

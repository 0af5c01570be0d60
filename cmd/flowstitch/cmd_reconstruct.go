package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flowstitch/internal/embedding"
	"flowstitch/internal/generation"
	"flowstitch/internal/orchestrator"
	"flowstitch/internal/store"
	"flowstitch/internal/types"
)

var reconstructJSON bool

// reconstructCmd runs the full pipeline for one request
var reconstructCmd = &cobra.Command{
	Use:   "reconstruct [request]",
	Short: "Reconstruct an integration flow from a natural-language request",
	Long: `Runs the full reconstruction pipeline:
  1. Intent analysis: extract target name, goal, and component hints
  2. Planning: ordered retrieval plan (graph before topology-informed vector)
  3. Retrieval: flow skeleton plus content artifacts from four index tables
  4. Stitching: topological ordering, name matching, coverage, confidence
  5. Generation and validation: typed components with rule-based auto-fix
  6. Packaging: deployable archive with manifest and resource files

Examples:
  flowstitch reconstruct 'rebuild the "OrderSync" flow'
  flowstitch reconstruct give me an overview of InvoiceRouter`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReconstruct,
}

func init() {
	reconstructCmd.Flags().BoolVar(&reconstructJSON, "json", false, "Print the full result as JSON")
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	request := strings.Join(args, " ")
	logger.Info("Processing reconstruction request", zap.String("request", request))

	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if cfg.Generation.APIKey != "" {
		engine, err := embedding.NewGenAIEngine(cfg.Generation.APIKey, cfg.Generation.EmbeddingModel, "RETRIEVAL_QUERY")
		if err != nil {
			logger.Warn("Embedding engine unavailable, using keyword relevance only", zap.Error(err))
		} else {
			st.SetEmbeddingEngine(engine)
		}
	}

	annotator := generation.New(ctx, cfg.Generation)
	orch := orchestrator.New(cfg, st, annotator)

	result, err := orch.Reconstruct(ctx, request)
	if err != nil && result == nil {
		return err
	}

	if reconstructJSON {
		data, merr := json.MarshalIndent(result, "", "  ")
		if merr != nil {
			return merr
		}
		fmt.Println(string(data))
	} else {
		printResult(result)
	}

	if result.Status == types.StatusError {
		os.Exit(1)
	}
	return nil
}

func printResult(r *types.Result) {
	fmt.Printf("Status:  %s\n", r.Status)
	if r.ErrorCode != "" {
		fmt.Printf("Error:   %s (%s)\n", r.Message, r.ErrorCode)
		return
	}
	fmt.Printf("Summary: %s\n", r.Message)
	if r.Stitch != nil {
		fmt.Printf("Coverage: %d/%d nodes (%.0f%%), confidence %.2f\n",
			r.Stitch.Coverage.NodesResolved, r.Stitch.Coverage.NodesTotal,
			r.Stitch.Coverage.Ratio()*100, r.Stitch.Confidence)
		if len(r.Stitch.Coverage.Missing) > 0 {
			fmt.Printf("Missing:  %s\n", strings.Join(r.Stitch.Coverage.Missing, ", "))
		}
	}
	if r.Package != nil {
		fmt.Printf("Package:  %s\n", r.Package.ArchivePath)
	}
	if r.Annotation != "" {
		fmt.Printf("\n%s\n", r.Annotation)
	}
	if r.JobID != "" {
		fmt.Printf("\nJob: %s\n", r.JobID)
	}
}

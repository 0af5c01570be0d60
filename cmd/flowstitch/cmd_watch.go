package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flowstitch/internal/embedding"
	"flowstitch/internal/generation"
	"flowstitch/internal/logging"
	"flowstitch/internal/orchestrator"
	"flowstitch/internal/store"
)

// watchCmd runs the inbox watcher
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch an inbox directory and process files as they arrive",
	Long: `Watches the configured inbox directory. Corpus files (.yaml, .yml,
.json) are ingested into the store; request files (.txt, .md) are read as
free-text reconstruction requests and run through the pipeline.

Writes are debounced: a file is processed only after it has stopped
changing for the configured settle delay, so partially written files are
never picked up.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	inbox := cfg.Watch.InboxDir
	if err := os.MkdirAll(inbox, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox %s: %w", inbox, err)
	}

	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if cfg.Generation.APIKey != "" {
		engine, eerr := embedding.NewGenAIEngine(cfg.Generation.APIKey, cfg.Generation.EmbeddingModel, "RETRIEVAL_DOCUMENT")
		if eerr != nil {
			logger.Warn("Embedding engine unavailable", zap.Error(eerr))
		} else {
			st.SetEmbeddingEngine(engine)
		}
	}

	orch := orchestrator.New(cfg, st, generation.New(ctx, cfg.Generation))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(inbox); err != nil {
		return fmt.Errorf("failed to watch %s: %w", inbox, err)
	}

	fmt.Printf("Watching %s (settle delay %s). Ctrl-C to stop.\n", inbox, cfg.GetSettleDelay())
	logging.Get(logging.CategoryWatch).Info("Watching inbox %s", inbox)

	// Debounce state: path -> timer. A new write on a pending path resets
	// its timer; the file is processed only after it settles.
	pending := map[string]*time.Timer{}
	settled := make(chan string)

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			path := event.Name
			if !watchable(path) {
				continue
			}
			if t, exists := pending[path]; exists {
				t.Reset(cfg.GetSettleDelay())
				continue
			}
			pending[path] = time.AfterFunc(cfg.GetSettleDelay(), func() {
				select {
				case settled <- path:
				case <-ctx.Done():
				}
			})

		case path := <-settled:
			delete(pending, path)
			if err := processInboxFile(ctx, st, orch, path); err != nil {
				logging.Get(logging.CategoryWatch).Error("Failed to process %s: %v", path, err)
				fmt.Fprintf(os.Stderr, "error processing %s: %v\n", path, err)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryWatch).Warn("Watcher error: %v", werr)
		}
	}
}

// watchable reports whether the inbox file extension is one we process.
func watchable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".txt", ".md":
		return true
	}
	return false
}

// processInboxFile dispatches one settled inbox file by extension.
func processInboxFile(ctx context.Context, st *store.FlowStore, orch *orchestrator.Orchestrator, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		doc, err := loadCorpusDocument(path)
		if err != nil {
			return err
		}
		_, n, err := ingestDocument(ctx, st, doc)
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %s: flow %q, %d artifacts\n", filepath.Base(path), doc.Flow, n)
		return nil

	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		request := strings.TrimSpace(string(data))
		if request == "" {
			return fmt.Errorf("request file is empty")
		}
		result, err := orch.Reconstruct(ctx, request)
		if err != nil && result == nil {
			return err
		}
		fmt.Printf("Processed %s:\n", filepath.Base(path))
		printResult(result)
		return nil
	}
	return nil
}

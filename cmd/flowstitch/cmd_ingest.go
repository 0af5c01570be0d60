package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"flowstitch/internal/embedding"
	"flowstitch/internal/store"
	"flowstitch/internal/types"
)

// corpusDocument is the on-disk ingestion format: one flow's topology and
// its content artifacts, as YAML or JSON.
type corpusDocument struct {
	Flow      string           `yaml:"flow" json:"flow"`
	Nodes     []types.Node     `yaml:"nodes" json:"nodes"`
	Edges     []types.Edge     `yaml:"edges" json:"edges"`
	Artifacts []corpusArtifact `yaml:"artifacts" json:"artifacts"`
}

type corpusArtifact struct {
	Table        string                 `yaml:"table" json:"table"`
	ID           string                 `yaml:"id" json:"id"`
	DocumentName string                 `yaml:"document_name" json:"document_name"`
	Content      string                 `yaml:"content" json:"content"`
	ChunkType    string                 `yaml:"chunk_type" json:"chunk_type"`
	Metadata     map[string]interface{} `yaml:"metadata" json:"metadata"`
}

// ingestCmd loads corpus documents into the store
var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest flow topology and artifacts from corpus files",
	Long: `Loads corpus documents (YAML or JSON) into the backing store. Each
document carries one flow's topology (nodes, edges) and any number of
content artifacts routed to the four index tables: package_index,
component_index, relation_index, asset_index.

A directory argument ingests every .yaml/.yml/.json file inside it.
When an embedding API key is configured, artifact embeddings are computed
at ingest time; without one, ingestion still succeeds and retrieval runs
on keyword relevance alone.

Example:
  flowstitch ingest corpus/ordersync.yaml
  flowstitch ingest corpus/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if cfg.Generation.APIKey != "" {
		engine, err := embedding.NewGenAIEngine(cfg.Generation.APIKey, cfg.Generation.EmbeddingModel, "RETRIEVAL_DOCUMENT")
		if err != nil {
			logger.Warn("Embedding engine unavailable, ingesting without embeddings", zap.Error(err))
		} else {
			st.SetEmbeddingEngine(engine)
		}
	}

	var paths []string
	for _, arg := range args {
		expanded, err := expandCorpusPath(arg)
		if err != nil {
			return err
		}
		paths = append(paths, expanded...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no corpus files found")
	}

	flows, artifacts := 0, 0
	for _, path := range paths {
		doc, err := loadCorpusDocument(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		f, a, err := ingestDocument(ctx, st, doc)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		flows += f
		artifacts += a
		logger.Info("Ingested corpus file",
			zap.String("path", path),
			zap.String("flow", doc.Flow),
			zap.Int("artifacts", a))
	}

	fmt.Printf("Ingested %d flows and %d artifacts from %d files\n", flows, artifacts, len(paths))
	return nil
}

// expandCorpusPath resolves one argument into corpus file paths.
func expandCorpusPath(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}

	entries, err := os.ReadDir(arg)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
			paths = append(paths, filepath.Join(arg, entry.Name()))
		}
	}
	return paths, nil
}

// loadCorpusDocument parses one corpus file by extension.
func loadCorpusDocument(path string) (*corpusDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc corpusDocument
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}
	if doc.Flow == "" {
		return nil, fmt.Errorf("corpus document has no flow name")
	}
	return &doc, nil
}

// ingestDocument writes one document's topology and artifacts to the store.
func ingestDocument(ctx context.Context, st *store.FlowStore, doc *corpusDocument) (flows, artifacts int, err error) {
	if len(doc.Nodes) > 0 {
		if err := st.StoreFlow(doc.Flow, types.Skeleton{Nodes: doc.Nodes, Edges: doc.Edges}); err != nil {
			return 0, 0, err
		}
		flows = 1
	}

	for _, ca := range doc.Artifacts {
		table := ca.Table
		if table == "" {
			table = store.TableComponents
		}
		id := ca.ID
		if id == "" {
			id = uuid.NewString()
		}
		chunkType := types.ChunkType(ca.ChunkType)
		if chunkType == "" {
			chunkType = types.ChunkSummary
		}
		a := types.Artifact{
			ID:           id,
			DocumentName: ca.DocumentName,
			Content:      ca.Content,
			ChunkType:    chunkType,
			Metadata:     ca.Metadata,
		}
		if err := st.StoreArtifact(ctx, table, a); err != nil {
			return flows, artifacts, err
		}
		artifacts++
	}
	return flows, artifacts, nil
}

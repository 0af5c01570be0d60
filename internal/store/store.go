// Package store implements the embedded SQLite backing store for flowstitch:
// flow topology tables (graph side), four artifact content tables (vector
// side), and the job-status table the orchestrator reports into.
//
// The store is shared across concurrent requests but the pipeline only ever
// reads from it; writes happen through the ingestion paths and the
// request-scoped job rows, so there is no cross-request write contention.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"flowstitch/internal/embedding"
	"flowstitch/internal/logging"
)

// Artifact content tables. Each level of the corpus gets its own table so
// row caps and timeouts apply per level, not to the corpus as a whole.
const (
	TablePackages   = "package_index"   // package-level descriptions
	TableComponents = "component_index" // per-component definitions
	TableRelations  = "relation_index"  // flow/relationship-level chunks
	TableAssets     = "asset_index"     // raw assets: scripts, mappings
)

// ContentTables lists the artifact tables in their fixed query order.
var ContentTables = []string{TablePackages, TableComponents, TableRelations, TableAssets}

// FlowStore provides access to the embedded flowstitch database.
type FlowStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string

	// Optional embedding engine for semantic artifact scoring. When nil the
	// store falls back to neutral similarity and the retrieval layer relies
	// on text relevance alone.
	embeddingEngine embedding.Engine
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*FlowStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Opening flowstitch store at %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open(sqlDriver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &FlowStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Store schema initialized")
	return s, nil
}

// SetEmbeddingEngine configures the embedding engine for semantic scoring.
// Must be called before ingest or search when semantic similarity is wanted.
func (s *FlowStore) SetEmbeddingEngine(engine embedding.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddingEngine = engine
}

// initialize creates the schema if it does not exist.
func (s *FlowStore) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS flow_nodes (
			id TEXT PRIMARY KEY,
			flow_name TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			container_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_flow_nodes_flow ON flow_nodes(flow_name)`,
		`CREATE TABLE IF NOT EXISTS flow_edges (
			flow_name TEXT NOT NULL,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			relation TEXT NOT NULL DEFAULT 'sequence',
			PRIMARY KEY (flow_name, from_id, to_id, relation)
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			coverage_summary TEXT NOT NULL DEFAULT '',
			package_path TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, table := range ContentTables {
		schema = append(schema, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_name TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_type TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			embedding TEXT
		)`, table))
		schema = append(schema, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_doc ON %s(document_name)`, table, table))
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// validTable reports whether name is one of the artifact content tables.
// Table names are interpolated into SQL, so everything else is rejected.
func validTable(name string) bool {
	for _, t := range ContentTables {
		if t == name {
			return true
		}
	}
	return false
}

// Path returns the database file path.
func (s *FlowStore) Path() string {
	return s.dbPath
}

// Close closes the underlying database.
func (s *FlowStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"flowstitch/internal/embedding"
	"flowstitch/internal/logging"
	"flowstitch/internal/types"
)

// =============================================================================
// ARTIFACT CONTENT TABLES (vector side)
// =============================================================================

// StoreArtifact writes one content artifact into the named table. When an
// embedding engine is configured the content is embedded at ingest time so
// searches only pay for the query embedding.
func (s *FlowStore) StoreArtifact(ctx context.Context, table string, a types.Artifact) error {
	timer := logging.StartTimer(logging.CategoryStore, "StoreArtifact")
	defer timer.Stop()

	if !validTable(table) {
		return fmt.Errorf("unknown artifact table %q", table)
	}
	if a.ID == "" || a.DocumentName == "" {
		return fmt.Errorf("artifact id and document_name must be non-empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}

	var embeddingJSON interface{}
	if s.embeddingEngine != nil {
		vec, err := s.embeddingEngine.Embed(ctx, a.Content)
		if err != nil {
			// Ingest still succeeds without the embedding; search degrades
			// to text relevance for this row.
			logging.Get(logging.CategoryStore).Warn("Embedding failed for %q: %v", a.DocumentName, err)
		} else if data, err := json.Marshal(vec); err == nil {
			embeddingJSON = string(data)
		}
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (id, document_name, content, chunk_type, metadata, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`, table),
		a.ID, a.DocumentName, a.Content, string(a.ChunkType), string(metaJSON), embeddingJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store artifact %q in %s: %w", a.ID, table, err)
	}
	return nil
}

// QueryArtifacts runs one bounded scan of a single content table.
//
// Only the columns needed for scoring and display are selected, never the
// full row, and the scan is capped at rowCap rows. Chunk-type filtering
// happens in SQL so rejected granularities never cross the wire. The
// similarity score on each returned artifact is the cosine similarity
// against the query embedding when an engine is configured, else zero
// (the retrieval layer then ranks on text relevance alone).
//
// The caller owns timeout handling: a context deadline surfaces as a
// context error from this method, and retry-with-reduced-cap is the
// retrieval client's policy, not the store's.
func (s *FlowStore) QueryArtifacts(ctx context.Context, table, query string, chunkTypes []types.ChunkType, rowCap int) ([]types.Artifact, error) {
	timer := logging.StartTimer(logging.CategoryStore, "QueryArtifacts")
	defer timer.Stop()

	if !validTable(table) {
		return nil, fmt.Errorf("unknown artifact table %q", table)
	}
	if rowCap <= 0 {
		return nil, fmt.Errorf("row cap must be positive, got %d", rowCap)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Query embedding is computed once per table scan.
	var queryVec []float32
	if s.embeddingEngine != nil {
		vec, err := s.embeddingEngine.Embed(ctx, query)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("Query embedding failed: %v", err)
		} else {
			queryVec = vec
		}
	}

	sqlQuery := fmt.Sprintf(
		`SELECT id, document_name, content, chunk_type, metadata, embedding FROM %s`, table)
	args := make([]interface{}, 0, len(chunkTypes)+1)
	if len(chunkTypes) > 0 {
		sqlQuery += ` WHERE chunk_type IN (` + placeholders(len(chunkTypes)) + `)`
		for _, ct := range chunkTypes {
			args = append(args, string(ct))
		}
	}
	sqlQuery += ` ORDER BY rowid LIMIT ?`
	args = append(args, rowCap)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("artifact query failed on %s: %w", table, err)
	}
	defer rows.Close()

	var artifacts []types.Artifact
	for rows.Next() {
		var a types.Artifact
		var chunkType, metaJSON string
		var embeddingJSON *string
		if err := rows.Scan(&a.ID, &a.DocumentName, &a.Content, &chunkType, &metaJSON, &embeddingJSON); err != nil {
			logging.Get(logging.CategoryStore).Warn("Artifact row scan failed on %s: %v", table, err)
			continue
		}
		a.ChunkType = types.ChunkType(chunkType)
		a.SourceTable = table
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &a.Metadata); err != nil {
				// One corrupted metadata blob must not sink the table scan.
				logging.Get(logging.CategoryStore).Warn("Artifact metadata unmarshal failed for %q: %v", a.ID, err)
			}
		}
		if queryVec != nil && embeddingJSON != nil {
			var docVec []float32
			if err := json.Unmarshal([]byte(*embeddingJSON), &docVec); err == nil {
				if sim, err := embedding.CosineSimilarity(queryVec, docVec); err == nil {
					a.SimilarityScore = sim
				}
			}
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		// Deadline expiry mid-scan surfaces here; report it so the
		// retrieval client can run its reduced-cap retry.
		return nil, fmt.Errorf("artifact rows failed on %s: %w", table, err)
	}

	logging.StoreDebug("QueryArtifacts(%s): %d rows (cap %d)", table, len(artifacts), rowCap)
	return artifacts, nil
}

// CountArtifacts reports the row count of one content table.
func (s *FlowStore) CountArtifacts(table string) (int64, error) {
	if !validTable(table) {
		return 0, fmt.Errorf("unknown artifact table %q", table)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	out := "?"
	for i := 1; i < n; i++ {
		out += ", ?"
	}
	return out
}

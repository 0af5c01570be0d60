package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"flowstitch/internal/logging"
	"flowstitch/internal/types"
)

// =============================================================================
// FLOW TOPOLOGY (graph side)
// =============================================================================

// StoreFlow writes a flow's nodes and edges. Used by the ingestion path;
// the reconstruction pipeline itself never writes topology.
func (s *FlowStore) StoreFlow(flowName string, skeleton types.Skeleton) error {
	timer := logging.StartTimer(logging.CategoryStore, "StoreFlow")
	defer timer.Stop()

	if flowName == "" {
		return fmt.Errorf("flow name must be non-empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logging.StoreDebug("Storing flow %q: %d nodes, %d edges",
		flowName, len(skeleton.Nodes), len(skeleton.Edges))

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, n := range skeleton.Nodes {
		if n.ID == "" || n.Name == "" {
			return fmt.Errorf("invalid node in flow %q: id and name must be non-empty", flowName)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO flow_nodes (id, flow_name, name, type, container_id)
			 VALUES (?, ?, ?, ?, ?)`,
			n.ID, flowName, n.Name, n.Type, n.ContainerID,
		); err != nil {
			return fmt.Errorf("failed to store node %q: %w", n.ID, err)
		}
	}
	for _, e := range skeleton.Edges {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO flow_edges (flow_name, from_id, to_id, relation)
			 VALUES (?, ?, ?, ?)`,
			flowName, e.FromID, e.ToID, e.Relation,
		); err != nil {
			return fmt.Errorf("failed to store edge %s->%s: %w", e.FromID, e.ToID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flow %q: %w", flowName, err)
	}
	logging.StoreDebug("Flow %q stored", flowName)
	return nil
}

// GetSkeleton retrieves the topology for the flow matching target. Matching
// is a case-insensitive substring test against the flow name, node names,
// and container paths. An empty skeleton is returned (not an error) when
// nothing matches: callers must treat it as a degraded-but-valid result.
func (s *FlowStore) GetSkeleton(ctx context.Context, target string) (types.Skeleton, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetSkeleton")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var skeleton types.Skeleton
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		logging.StoreDebug("GetSkeleton: empty target, returning empty skeleton")
		return skeleton, nil
	}

	flowName, err := s.matchFlowName(ctx, target)
	if err != nil {
		return skeleton, err
	}
	if flowName == "" {
		logging.Store("GetSkeleton: no flow matched %q", target)
		return skeleton, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, container_id FROM flow_nodes WHERE flow_name = ? ORDER BY rowid`,
		flowName,
	)
	if err != nil {
		return skeleton, fmt.Errorf("node query failed for flow %q: %w", flowName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var n types.Node
		if err := rows.Scan(&n.ID, &n.Name, &n.Type, &n.ContainerID); err != nil {
			logging.Get(logging.CategoryStore).Warn("Node row scan failed: %v", err)
			continue
		}
		skeleton.Nodes = append(skeleton.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return skeleton, fmt.Errorf("node rows failed for flow %q: %w", flowName, err)
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, relation FROM flow_edges WHERE flow_name = ? ORDER BY rowid`,
		flowName,
	)
	if err != nil {
		return skeleton, fmt.Errorf("edge query failed for flow %q: %w", flowName, err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e types.Edge
		if err := edgeRows.Scan(&e.FromID, &e.ToID, &e.Relation); err != nil {
			logging.Get(logging.CategoryStore).Warn("Edge row scan failed: %v", err)
			continue
		}
		skeleton.Edges = append(skeleton.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return skeleton, fmt.Errorf("edge rows failed for flow %q: %w", flowName, err)
	}

	logging.Store("GetSkeleton(%q): flow=%q nodes=%d edges=%d",
		target, flowName, len(skeleton.Nodes), len(skeleton.Edges))
	return skeleton, nil
}

// matchFlowName resolves the target string to a stored flow name.
// Preference order: flow name match, then node name match, then container
// path match. Within each tier the lexically first flow wins so lookups
// are deterministic.
func (s *FlowStore) matchFlowName(ctx context.Context, target string) (string, error) {
	queries := []string{
		`SELECT DISTINCT flow_name FROM flow_nodes
		 WHERE instr(lower(flow_name), ?) > 0 ORDER BY flow_name LIMIT 1`,
		`SELECT DISTINCT flow_name FROM flow_nodes
		 WHERE instr(lower(name), ?) > 0 ORDER BY flow_name LIMIT 1`,
		`SELECT DISTINCT flow_name FROM flow_nodes
		 WHERE instr(lower(container_id), ?) > 0 ORDER BY flow_name LIMIT 1`,
	}
	for _, q := range queries {
		var flowName string
		err := s.db.QueryRowContext(ctx, q, target).Scan(&flowName)
		if err == nil {
			return flowName, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("flow match query failed: %w", err)
		}
	}
	return "", nil
}

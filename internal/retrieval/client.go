package retrieval

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"flowstitch/internal/config"
	"flowstitch/internal/logging"
	"flowstitch/internal/store"
	"flowstitch/internal/types"
)

// ArtifactQuerier is the narrow store contract the client consumes.
// *store.FlowStore satisfies it; tests substitute their own.
type ArtifactQuerier interface {
	QueryArtifacts(ctx context.Context, table, query string, chunkTypes []types.ChunkType, rowCap int) ([]types.Artifact, error)
}

// Compile-time check against the real store.
var _ ArtifactQuerier = (*store.FlowStore)(nil)

// Client is the VectorArtifactClient: it runs bounded similarity searches
// across the four content tables and degrades gracefully under load.
//
// Tables are queried sequentially by default. That is a deliberate
// backpressure policy, not an accident of single-threaded code: concurrent
// fan-out across all four tables overloads the shared backing store, so the
// concurrency ceiling is an explicit configuration knob
// (max_concurrent_table_queries, default 1).
type Client struct {
	querier ArtifactQuerier
	cfg     config.RetrievalConfig
	timeout time.Duration
}

// NewClient creates a vector artifact client.
func NewClient(querier ArtifactQuerier, cfg *config.Config) *Client {
	return &Client{
		querier: querier,
		cfg:     cfg.Retrieval,
		timeout: cfg.GetQueryTimeout(),
	}
}

// Search runs the query against every content table and returns the ranked,
// truncated union of per-table results.
//
// Per table: one attempt at the hard row cap; on a timeout, one retry at the
// reduced cap; if that also fails the table contributes zero artifacts and
// the search continues. A table failure is never a search failure.
func (c *Client) Search(ctx context.Context, query string, chunkTypes []types.ChunkType, limit int) ([]types.Artifact, error) {
	timer := logging.StartTimer(logging.CategoryVector, "Search")
	defer timer.Stop()

	if limit <= 0 {
		limit = c.cfg.DefaultLimit
	}

	logging.Vector("Search %q across %d tables (limit=%d, chunk_types=%v)",
		query, len(store.ContentTables), limit, chunkTypes)

	perTable := make([][]types.Artifact, len(store.ContentTables))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentTableQueries)

	for i, table := range store.ContentTables {
		i, table := i, table
		g.Go(func() error {
			artifacts := c.searchTable(gctx, table, query, chunkTypes, limit)
			mu.Lock()
			perTable[i] = artifacts
			mu.Unlock()
			// Table-local failures are already absorbed; only caller
			// cancellation stops the group.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []types.Artifact
	for _, artifacts := range perTable {
		merged = append(merged, artifacts...)
	}
	logging.Vector("Search returned %d artifacts before merge ranking", len(merged))
	return merged, nil
}

// searchTable queries one table with the cap-then-reduced-cap policy and
// ranks its rows. Failures degrade to an empty contribution.
func (c *Client) searchTable(ctx context.Context, table, query string, chunkTypes []types.ChunkType, limit int) []types.Artifact {
	rows, err := c.attempt(ctx, table, query, chunkTypes, c.cfg.RowCap)
	if err != nil {
		if !isTimeout(err) {
			logging.Get(logging.CategoryVector).Error("Table %s failed: %v", table, err)
			return nil
		}
		logging.Get(logging.CategoryVector).Warn("Table %s timed out at cap %d, retrying at cap %d",
			table, c.cfg.RowCap, c.cfg.ReducedRowCap)
		rows, err = c.attempt(ctx, table, query, chunkTypes, c.cfg.ReducedRowCap)
		if err != nil {
			logging.Get(logging.CategoryVector).Warn("Table %s abandoned after reduced-cap retry: %v", table, err)
			return nil
		}
	}
	ranked := RankArtifacts(query, rows, limit)
	logging.VectorDebug("Table %s contributed %d/%d ranked artifacts", table, len(ranked), len(rows))
	return ranked
}

// attempt runs a single bounded table query under the per-query timeout.
func (c *Client) attempt(ctx context.Context, table, query string, chunkTypes []types.ChunkType, rowCap int) ([]types.Artifact, error) {
	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.querier.QueryArtifacts(qctx, table, query, chunkTypes, rowCap)
}

// isTimeout distinguishes a query deadline from other failures. Only
// timeouts earn the reduced-cap retry; anything else fails the table
// immediately.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

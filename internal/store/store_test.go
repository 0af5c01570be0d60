package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowstitch/internal/types"
)

func openTestStore(t *testing.T) *FlowStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func orderSyncSkeleton() types.Skeleton {
	return types.Skeleton{
		Nodes: []types.Node{
			{ID: "n1", Name: "Receive Order", Type: "start_event", ContainerID: "OrderSync/Main"},
			{ID: "n2", Name: "Map Order", Type: "message_mapping", ContainerID: "OrderSync/Main"},
			{ID: "n3", Name: "Send Invoice", Type: "receiver", ContainerID: "OrderSync/Main"},
		},
		Edges: []types.Edge{
			{FromID: "n1", ToID: "n2", Relation: "sequence"},
			{FromID: "n2", ToID: "n3", Relation: "sequence"},
		},
	}
}

// =============================================================================
// GRAPH SIDE
// =============================================================================

func TestStoreFlowAndGetSkeleton(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StoreFlow("OrderSync", orderSyncSkeleton()))

	got, err := s.GetSkeleton(context.Background(), "OrderSync")
	require.NoError(t, err)

	assert.Len(t, got.Nodes, 3)
	assert.Len(t, got.Edges, 2)
	assert.Equal(t, "Receive Order", got.Nodes[0].Name)
	assert.Equal(t, "n1", got.Edges[0].FromID)
}

func TestGetSkeletonCaseInsensitiveSubstring(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StoreFlow("OrderSync", orderSyncSkeleton()))

	for _, target := range []string{"ordersync", "ORDERSYNC", "dersy"} {
		got, err := s.GetSkeleton(context.Background(), target)
		require.NoError(t, err)
		assert.Len(t, got.Nodes, 3, "target %q", target)
	}
}

func TestGetSkeletonMatchesNodeAndContainerNames(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StoreFlow("OrderSync", orderSyncSkeleton()))

	// Node name tier.
	got, err := s.GetSkeleton(context.Background(), "send invoice")
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 3)

	// Container path tier.
	got, err = s.GetSkeleton(context.Background(), "ordersync/main")
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 3)
}

func TestGetSkeletonNoMatchIsEmptyNotError(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StoreFlow("OrderSync", orderSyncSkeleton()))

	got, err := s.GetSkeleton(context.Background(), "entirely-unrelated")
	require.NoError(t, err)
	assert.True(t, got.Empty())

	got, err = s.GetSkeleton(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestGetSkeletonDeterministicAcrossFlows(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StoreFlow("OrderSyncB", types.Skeleton{
		Nodes: []types.Node{{ID: "b1", Name: "B Start"}},
	}))
	require.NoError(t, s.StoreFlow("OrderSyncA", types.Skeleton{
		Nodes: []types.Node{{ID: "a1", Name: "A Start"}},
	}))

	// Both flows match the substring; the lexically first flow wins.
	got, err := s.GetSkeleton(context.Background(), "ordersync")
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "a1", got.Nodes[0].ID)
}

func TestStoreFlowRejectsInvalidInput(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.StoreFlow("", orderSyncSkeleton()))
	assert.Error(t, s.StoreFlow("X", types.Skeleton{
		Nodes: []types.Node{{ID: "", Name: "Nameless"}},
	}))
}

// =============================================================================
// ARTIFACT SIDE
// =============================================================================

func TestStoreAndQueryArtifacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StoreArtifact(ctx, TableComponents, types.Artifact{
		ID:           "a1",
		DocumentName: "Map Order",
		Content:      "<mapping/>",
		ChunkType:    types.ChunkCompleteDefinition,
		Metadata:     map[string]interface{}{"source": "export.zip"},
	}))
	require.NoError(t, s.StoreArtifact(ctx, TableComponents, types.Artifact{
		ID:           "a2",
		DocumentName: "Map Order Summary",
		Content:      "maps orders to invoices",
		ChunkType:    types.ChunkSummary,
	}))

	all, err := s.QueryArtifacts(ctx, TableComponents, "map order", nil, 100)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, TableComponents, all[0].SourceTable)
	assert.Equal(t, "export.zip", all[0].Metadata["source"])
}

func TestQueryArtifactsChunkTypeFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StoreArtifact(ctx, TableComponents, types.Artifact{
		ID: "full", DocumentName: "Map Order", Content: "x",
		ChunkType: types.ChunkCompleteDefinition,
	}))
	require.NoError(t, s.StoreArtifact(ctx, TableComponents, types.Artifact{
		ID: "sum", DocumentName: "Map Order", Content: "y",
		ChunkType: types.ChunkSummary,
	}))

	strict, err := s.QueryArtifacts(ctx, TableComponents, "map",
		[]types.ChunkType{types.ChunkCompleteDefinition}, 100)
	require.NoError(t, err)
	require.Len(t, strict, 1)
	assert.Equal(t, "full", strict[0].ID)
}

func TestQueryArtifactsRowCap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.NoError(t, s.StoreArtifact(ctx, TableAssets, types.Artifact{
			ID:           string(rune('a'+i%26)) + string(rune('0'+i/26)),
			DocumentName: "asset",
			Content:      "payload",
			ChunkType:    types.ChunkConfig,
		}))
	}

	capped, err := s.QueryArtifacts(ctx, TableAssets, "asset", nil, 10)
	require.NoError(t, err)
	assert.Len(t, capped, 10)
}

func TestQueryArtifactsRejectsBadInput(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.QueryArtifacts(ctx, "jobs", "q", nil, 10)
	assert.Error(t, err, "non-content table must be rejected")

	_, err = s.QueryArtifacts(ctx, TableAssets, "q", nil, 0)
	assert.Error(t, err)
}

func TestStoreArtifactRejectsBadInput(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.StoreArtifact(ctx, "flow_nodes", types.Artifact{ID: "x", DocumentName: "y"}))
	assert.Error(t, s.StoreArtifact(ctx, TableAssets, types.Artifact{DocumentName: "y"}))
}

func TestCountArtifacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.CountArtifacts(TablePackages)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.StoreArtifact(ctx, TablePackages, types.Artifact{
		ID: "p1", DocumentName: "pkg", Content: "c", ChunkType: types.ChunkSummary,
	}))
	n, err = s.CountArtifacts(TablePackages)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

// =============================================================================
// JOBS
// =============================================================================

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateJob("job-1"))

	job, err := s.GetJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobPending, job.Status)

	require.NoError(t, s.UpdateJob("job-1", JobDegraded, "2/3 (missing: Map Order)", "out/ordersync.zip", "partial"))

	job, err = s.GetJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobDegraded, job.Status)
	assert.Equal(t, "2/3 (missing: Map Order)", job.CoverageSummary)
	assert.Equal(t, "out/ordersync.zip", job.PackagePath)

	jobs, err := s.ListJobs(10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestUpdateMissingJobFails(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.UpdateJob("ghost", JobRunning, "", "", ""))
}

func TestGetMissingJobFails(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetJob("ghost")
	assert.Error(t, err)
}

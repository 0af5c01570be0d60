package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"

	"flowstitch/internal/config"
	"flowstitch/internal/store"
	"flowstitch/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	cfg.Packaging.OutputDir = t.TempDir()
	return cfg
}

func openSeededStore(t *testing.T, cfg *config.Config) *store.FlowStore {
	t.Helper()
	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	skeleton := types.Skeleton{
		Nodes: []types.Node{
			{ID: "n1", Name: "Receive Order", Type: "start_event"},
			{ID: "n2", Name: "Map Order", Type: "message_mapping"},
			{ID: "n3", Name: "Send Invoice", Type: "receiver"},
		},
		Edges: []types.Edge{
			{FromID: "n1", ToID: "n2", Relation: "sequence"},
			{FromID: "n2", ToID: "n3", Relation: "sequence"},
		},
	}
	if err := st.StoreFlow("OrderSync", skeleton); err != nil {
		t.Fatalf("StoreFlow() error = %v", err)
	}

	ctx := context.Background()
	artifacts := []types.Artifact{
		{ID: "a1", DocumentName: "Receive Order", Content: "<startEvent/>", ChunkType: types.ChunkCompleteDefinition},
		{ID: "a2", DocumentName: "Map Order", Content: "<mapping/>", ChunkType: types.ChunkCompleteDefinition},
	}
	for _, a := range artifacts {
		if err := st.StoreArtifact(ctx, store.TableComponents, a); err != nil {
			t.Fatalf("StoreArtifact() error = %v", err)
		}
	}
	return st
}

func TestReconstructEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	st := openSeededStore(t, cfg)
	orch := New(cfg, st, nil)

	result, err := orch.Reconstruct(context.Background(), `rebuild the "OrderSync" flow`)
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}

	// Two of three nodes have complete definitions; the run is degraded,
	// not failed.
	if result.Status != types.StatusDegraded {
		t.Errorf("Status = %s, want degraded for partial coverage", result.Status)
	}
	if result.Stitch == nil {
		t.Fatal("result carries no stitch output")
	}
	if got, want := result.Stitch.Coverage.NodesResolved, 2; got != want {
		t.Errorf("NodesResolved = %d, want %d", got, want)
	}
	if got, want := result.Stitch.Coverage.NodesTotal, 3; got != want {
		t.Errorf("NodesTotal = %d, want %d", got, want)
	}

	if result.Package == nil || result.Package.ArchivePath == "" {
		t.Fatal("no package assembled")
	}
	if _, err := os.Stat(result.Package.ArchivePath); err != nil {
		t.Errorf("archive not on disk: %v", err)
	}

	if result.JobID == "" {
		t.Fatal("no job recorded")
	}
	job, err := st.GetJob(result.JobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != store.JobDegraded {
		t.Errorf("job status = %s, want degraded", job.Status)
	}
	if job.PackagePath != result.Package.ArchivePath {
		t.Errorf("job package path = %q, want %q", job.PackagePath, result.Package.ArchivePath)
	}
}

func TestReconstructFullCoverageIsOK(t *testing.T) {
	cfg := testConfig(t)
	st := openSeededStore(t, cfg)
	if err := st.StoreArtifact(context.Background(), store.TableComponents, types.Artifact{
		ID: "a3", DocumentName: "Send Invoice", Content: "<receiver/>", ChunkType: types.ChunkCompleteDefinition,
	}); err != nil {
		t.Fatal(err)
	}
	orch := New(cfg, st, nil)

	result, err := orch.Reconstruct(context.Background(), `rebuild the "OrderSync" flow`)
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if result.Status != types.StatusOK {
		t.Errorf("Status = %s, want ok at full coverage", result.Status)
	}
	if got := result.Stitch.Coverage.Ratio(); got != 1 {
		t.Errorf("coverage ratio = %v, want 1", got)
	}
}

func TestReconstructUnknownFlowSynthesizes(t *testing.T) {
	cfg := testConfig(t)
	st := openSeededStore(t, cfg)
	orch := New(cfg, st, nil)

	result, err := orch.Reconstruct(context.Background(), `rebuild the "GhostFlow" flow`)
	if err != nil {
		t.Fatalf("Reconstruct() error = %v, want synthesized degraded result", err)
	}

	if result.Status != types.StatusDegraded {
		t.Errorf("Status = %s, want degraded for synthesized topology", result.Status)
	}
	if result.Stitch == nil || len(result.Stitch.OrderedNodes) == 0 {
		t.Fatal("synthesis produced no topology")
	}
	for _, n := range result.Stitch.OrderedNodes {
		if !n.IsPlaceholder {
			t.Errorf("synthesized node %q not flagged as placeholder", n.Name)
		}
	}
	// Placeholder components ship flagged for review, never as ground truth.
	if result.Package == nil {
		t.Fatal("no package assembled for synthesized flow")
	}
	for _, c := range result.Package.Components {
		if !c.NeedsReview {
			t.Errorf("placeholder component %q not flagged for review", c.Name)
		}
	}
}

func TestReconstructParallelPrefetch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retrieval.ParallelPrefetch = true
	cfg.Retrieval.MaxConcurrentTableQueries = 2
	st := openSeededStore(t, cfg)
	orch := New(cfg, st, nil)

	result, err := orch.Reconstruct(context.Background(), `rebuild the "OrderSync" flow`)
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if got, want := result.Stitch.Coverage.NodesResolved, 2; got != want {
		t.Errorf("NodesResolved = %d, want %d under parallel prefetch", got, want)
	}
}

func TestReconstructCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	st := openSeededStore(t, cfg)
	orch := New(cfg, st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orch.Reconstruct(ctx, `rebuild the "OrderSync" flow`)
	if err == nil {
		t.Fatal("Reconstruct() with cancelled context returned nil error")
	}
	if !types.IsPipelineError(err) {
		t.Errorf("error type = %T, want *types.PipelineError", err)
	}
	if result == nil || result.Status != types.StatusError {
		t.Errorf("result = %+v, want structured error result", result)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func TestEnrichQuery(t *testing.T) {
	skeleton := types.Skeleton{
		Nodes: []types.Node{
			{ID: "1", Name: "Receive Order"},
			{ID: "2", Name: "Map Order"},
			{ID: "3", Name: "receive order"}, // duplicate name, different case
		},
	}

	got := enrichQuery("OrderSync", skeleton)
	want := "OrderSync Receive Order Map Order"
	if got != want {
		t.Errorf("enrichQuery() = %q, want %q", got, want)
	}

	if got := enrichQuery("OrderSync", types.Skeleton{}); got != "OrderSync" {
		t.Errorf("enrichQuery with empty skeleton = %q, want base query", got)
	}
}

func TestMergeArtifacts(t *testing.T) {
	a := []types.Artifact{
		{ID: "1", SimilarityScore: 0.3},
		{ID: "2", SimilarityScore: 0.5},
	}
	b := []types.Artifact{
		{ID: "2", SimilarityScore: 0.9},
		{ID: "3", SimilarityScore: 0.1},
	}

	merged := mergeArtifacts(a, b)

	if len(merged) != 3 {
		t.Fatalf("len = %d, want deduplicated 3", len(merged))
	}
	for _, m := range merged {
		if m.ID == "2" && m.SimilarityScore != 0.9 {
			t.Errorf("duplicate kept score %v, want the higher 0.9", m.SimilarityScore)
		}
	}
}

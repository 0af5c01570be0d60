// Package orchestrator sequences the reconstruction pipeline: intent
// analysis, retrieval planning, graph and vector retrieval, stitching,
// component generation, validation, packaging, and annotation.
//
// Within one request the pipeline is a strict sequence of blocking calls.
// The only sanctioned concurrency is the optional parallel prefetch of
// the graph query together with the name-only vector query, joined with a
// fan-in wait before anything topology-dependent runs. Each request
// builds and discards its own intermediate state; the orchestrator itself
// holds only read-only collaborators.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"flowstitch/internal/config"
	"flowstitch/internal/generation"
	"flowstitch/internal/generator"
	"flowstitch/internal/intent"
	"flowstitch/internal/logging"
	"flowstitch/internal/packager"
	"flowstitch/internal/planner"
	"flowstitch/internal/retrieval"
	"flowstitch/internal/stitcher"
	"flowstitch/internal/store"
	"flowstitch/internal/synthesis"
	"flowstitch/internal/types"
	"flowstitch/internal/validation"
)

// Orchestrator runs the full pipeline for one request at a time. It is
// safe for concurrent use: all requests read the same stores and write
// only request-scoped state.
type Orchestrator struct {
	cfg       *config.Config
	store     *store.FlowStore
	retriever *retrieval.Client
	stitcher  *stitcher.Stitcher
	generator *generator.Generator
	validator *validation.Engine
	packager  *packager.Packager
	annotator *generation.Annotator
}

// New wires an orchestrator from configuration and an open store. The
// annotator may be nil when annotation is not wanted (ingest-only tools).
func New(cfg *config.Config, st *store.FlowStore, annotator *generation.Annotator) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     st,
		retriever: retrieval.NewClient(st, cfg),
		stitcher:  stitcher.New(cfg.Stitch),
		generator: generator.New(cfg.Packaging.ComponentVersion),
		validator: validation.New(),
		packager:  packager.New(cfg.Packaging),
		annotator: annotator,
	}
}

// Reconstruct runs the pipeline for one free-text request.
//
// The returned Result is always structured, success or failure. A non-nil
// error is returned only for the terminal class: both knowledge sources
// empty and synthesis failed, or an internal defect. Partial retrieval,
// empty topology, and ambiguous matches degrade the result instead.
func (o *Orchestrator) Reconstruct(ctx context.Context, query string) (*types.Result, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "Reconstruct")
	defer timer.Stop()

	jobID := uuid.NewString()
	if err := o.store.CreateJob(jobID); err != nil {
		logging.Pipeline("Job record creation failed: %v", err)
		// Job tracking is best-effort; the pipeline proceeds without it.
		jobID = ""
	}
	o.updateJob(jobID, store.JobRunning, "", "", "")

	it := intent.Analyze(query)
	logging.Pipeline("Intent: target=%q goal=%s confidence=%.2f", it.TargetName, it.Goal, it.Confidence)

	plan := planner.Build(it, o.cfg.Retrieval.DefaultLimit)
	if err := plan.Validate(); err != nil {
		return o.fail(jobID, types.ErrCodeInternal, fmt.Sprintf("invalid retrieval plan: %v", err), &it)
	}

	skeleton, artifacts, err := o.retrieve(ctx, it, plan)
	if err != nil {
		return o.fail(jobID, types.ErrCodeInternal, err.Error(), &it)
	}

	synthesized := false
	if skeleton.Empty() {
		logging.Pipeline("Empty skeleton for %q, invoking pattern synthesis", it.TargetName)
		pattern := synthesis.SelectPattern(it)
		synth, synthErr := synthesis.Synthesize(pattern, it.TargetName)
		if synthErr != nil {
			if len(artifacts) == 0 {
				return o.fail(jobID, types.ErrCodeNoData,
					fmt.Sprintf("no topology or content found for %q and synthesis failed: %v", it.TargetName, synthErr), &it)
			}
			return o.fail(jobID, types.ErrCodeSynthesisFailed,
				fmt.Sprintf("skeleton synthesis failed for %q: %v", it.TargetName, synthErr), &it)
		}
		skeleton = synth
		synthesized = true

		// The synthesized topology goes through the normal vector retrieval
		// so its placeholder steps get a chance to bind real content.
		var chunkTypes []types.ChunkType
		for _, op := range plan.Ops {
			if op.NeedsTopology {
				chunkTypes = op.ChunkTypes
			}
		}
		extra, searchErr := o.retriever.Search(ctx, enrichQuery(it.TargetName, skeleton), chunkTypes, o.cfg.Retrieval.DefaultLimit)
		if searchErr != nil {
			return o.fail(jobID, types.ErrCodeInternal, searchErr.Error(), &it)
		}
		artifacts = mergeArtifacts(artifacts, extra)
	}

	result := o.stitcher.Stitch(skeleton, artifacts)

	components := o.generator.Generate(result)
	files := map[string][]byte{}
	audit := o.validator.Validate(components, files)

	target := it.TargetName
	if target == "" {
		target = "flow"
	}
	pkg, err := o.packager.Assemble(target, components, files)
	if err != nil {
		return o.fail(jobID, types.ErrCodeInternal, fmt.Sprintf("package assembly failed: %v", err), &it)
	}

	annotation := ""
	if o.annotator != nil {
		annCtx, cancel := context.WithTimeout(ctx, o.cfg.GetGenerationTimeout())
		annotation = o.annotator.Annotate(annCtx, target, &result)
		cancel()
	}

	status := types.StatusOK
	if synthesized || result.Coverage.Ratio() < 1 {
		status = types.StatusDegraded
	}
	message := fmt.Sprintf("resolved %d/%d nodes, %d components, %d fixes applied",
		result.Coverage.NodesResolved, result.Coverage.NodesTotal, len(components), len(audit))

	jobStatus := store.JobCompleted
	if status == types.StatusDegraded {
		jobStatus = store.JobDegraded
	}
	o.updateJob(jobID, jobStatus, coverageSummary(result), pkg.ArchivePath, message)

	logging.Pipeline("Reconstruct %q finished: status=%s, %s", target, status, message)
	return &types.Result{
		Status:     status,
		Message:    message,
		Intent:     &it,
		Stitch:     &result,
		Package:    pkg,
		Annotation: annotation,
		JobID:      jobID,
	}, nil
}

// retrieve executes the plan: the graph operation, the name-only vector
// operation (concurrently when parallel prefetch is enabled), then the
// topology-informed vector operation. Topology-dependent operations never
// start before the graph result is in.
func (o *Orchestrator) retrieve(ctx context.Context, it types.Intent, plan planner.Plan) (types.Skeleton, []types.Artifact, error) {
	var graphOp, prefetchOp, topoOp *planner.RetrievalOp
	for i := range plan.Ops {
		op := &plan.Ops[i]
		switch {
		case op.Store == planner.StoreGraph:
			graphOp = op
		case op.NeedsTopology:
			topoOp = op
		default:
			prefetchOp = op
		}
	}
	if graphOp == nil || prefetchOp == nil || topoOp == nil {
		return types.Skeleton{}, nil, fmt.Errorf("plan is missing a required operation")
	}

	var skeleton types.Skeleton
	var prefetched []types.Artifact

	if o.cfg.Retrieval.ParallelPrefetch {
		// Fan-in join: both legs are independent of each other's results.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			skeleton, err = o.store.GetSkeleton(gctx, graphOp.Query)
			return err
		})
		g.Go(func() error {
			var err error
			prefetched, err = o.retriever.Search(gctx, prefetchOp.Query, prefetchOp.ChunkTypes, prefetchOp.Limit)
			return err
		})
		if err := g.Wait(); err != nil {
			return types.Skeleton{}, nil, err
		}
	} else {
		var err error
		skeleton, err = o.store.GetSkeleton(ctx, graphOp.Query)
		if err != nil {
			return types.Skeleton{}, nil, err
		}
		prefetched, err = o.retriever.Search(ctx, prefetchOp.Query, prefetchOp.ChunkTypes, prefetchOp.Limit)
		if err != nil {
			return types.Skeleton{}, nil, err
		}
	}

	enriched, err := o.retriever.Search(ctx, enrichQuery(topoOp.Query, skeleton), topoOp.ChunkTypes, topoOp.Limit)
	if err != nil {
		return types.Skeleton{}, nil, err
	}

	return skeleton, mergeArtifacts(prefetched, enriched), nil
}

// enrichQuery appends topology-derived vocabulary to the base query.
func enrichQuery(base string, skeleton types.Skeleton) string {
	if skeleton.Empty() {
		return base
	}
	terms := make([]string, 0, len(skeleton.Nodes)+1)
	if base != "" {
		terms = append(terms, base)
	}
	seen := map[string]bool{}
	for _, n := range skeleton.Nodes {
		key := strings.ToLower(n.Name)
		if n.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, n.Name)
	}
	return strings.Join(terms, " ")
}

// mergeArtifacts combines two result sets, deduplicating by artifact ID
// and keeping the higher similarity score.
func mergeArtifacts(a, b []types.Artifact) []types.Artifact {
	merged := make([]types.Artifact, 0, len(a)+len(b))
	index := map[string]int{}
	for _, art := range a {
		index[art.ID] = len(merged)
		merged = append(merged, art)
	}
	for _, art := range b {
		if i, ok := index[art.ID]; ok {
			if art.SimilarityScore > merged[i].SimilarityScore {
				merged[i] = art
			}
			continue
		}
		index[art.ID] = len(merged)
		merged = append(merged, art)
	}
	return merged
}

// coverageSummary renders the coverage report for the job record.
func coverageSummary(result types.StitchResult) string {
	if len(result.Coverage.Missing) == 0 {
		return fmt.Sprintf("%d/%d", result.Coverage.NodesResolved, result.Coverage.NodesTotal)
	}
	return fmt.Sprintf("%d/%d (missing: %s)",
		result.Coverage.NodesResolved, result.Coverage.NodesTotal,
		strings.Join(result.Coverage.Missing, ", "))
}

// fail records the terminal failure on the job and builds the structured
// error result. The error return carries the pipeline error for callers
// that branch on codes.
func (o *Orchestrator) fail(jobID, code, message string, it *types.Intent) (*types.Result, error) {
	o.updateJob(jobID, store.JobFailed, "", "", message)
	perr := &types.PipelineError{Code: code, Message: message}
	logging.Pipeline("Terminal failure: %v", perr)
	return &types.Result{
		Status:    types.StatusError,
		Message:   message,
		ErrorCode: code,
		Intent:    it,
		JobID:     jobID,
	}, perr
}

// updateJob best-effort updates the job record; job tracking never blocks
// or fails the pipeline.
func (o *Orchestrator) updateJob(jobID, status, coverage, packagePath, message string) {
	if jobID == "" {
		return
	}
	if err := o.store.UpdateJob(jobID, status, coverage, packagePath, message); err != nil {
		logging.Pipeline("Job update failed for %s: %v", jobID, err)
	}
}

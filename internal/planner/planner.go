// Package planner turns an Intent into an ordered retrieval plan.
//
// Execution order is a design contract, not an optimization: graph topology
// is always retrieved before any vector search that depends on
// topology-derived terms, so vector queries are informed by structural
// context rather than raw free text alone. Reordering a plan is a
// programming defect.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"flowstitch/internal/logging"
	"flowstitch/internal/types"
)

// StoreKind identifies the target store of one retrieval operation.
type StoreKind string

const (
	StoreGraph  StoreKind = "graph"
	StoreVector StoreKind = "vector"
)

// RetrievalOp is one planned retrieval operation.
type RetrievalOp struct {
	// Seq is the mandatory execution position, starting at 1.
	Seq int

	Store      StoreKind
	Query      string
	ChunkTypes []types.ChunkType
	Limit      int

	// NeedsTopology marks vector operations whose query must be enriched
	// with skeleton-derived terms before execution. Such operations may
	// never run before the graph operation completes.
	NeedsTopology bool
}

// Plan is the ordered operation list for one request.
type Plan struct {
	Ops []RetrievalOp
}

// Build produces the retrieval plan for an intent.
//
// The plan is always: (1) graph skeleton lookup, (2) a name-only vector
// search that does not depend on topology (the only operation eligible for
// parallel prefetch), (3) a topology-informed vector search. For
// goal=reconstruct the vector operations run in strict mode: only
// complete_definition chunks are acceptable evidence.
func Build(intent types.Intent, limit int) Plan {
	timer := logging.StartTimer(logging.CategoryPlan, "Build")
	defer timer.Stop()

	chunkTypes := chunkTypesFor(intent.Goal)
	query := intent.TargetName
	if query == "" {
		// Degraded intent: search on whatever vocabulary the request gave us.
		query = strings.Join(componentTerms(intent.RequestedComponents), " ")
	}

	plan := Plan{Ops: []RetrievalOp{
		{
			Seq:   1,
			Store: StoreGraph,
			Query: intent.TargetName,
		},
		{
			Seq:        2,
			Store:      StoreVector,
			Query:      query,
			ChunkTypes: chunkTypes,
			Limit:      limit,
		},
		{
			Seq:           3,
			Store:         StoreVector,
			Query:         query,
			ChunkTypes:    chunkTypes,
			Limit:         limit,
			NeedsTopology: true,
		},
	}}

	logging.Get(logging.CategoryPlan).Info("Plan built: %d ops, goal=%s, chunk_types=%v",
		len(plan.Ops), intent.Goal, chunkTypes)
	return plan
}

// chunkTypesFor selects permissible evidence granularity by goal.
func chunkTypesFor(goal types.Goal) []types.ChunkType {
	if goal == types.GoalReconstruct {
		// Strict mode: summaries and config fragments are not evidence
		// for a full rebuild.
		return []types.ChunkType{types.ChunkCompleteDefinition}
	}
	return []types.ChunkType{types.ChunkSummary, types.ChunkConfig, types.ChunkCompleteDefinition}
}

// componentTerms renders requested component types as search vocabulary.
func componentTerms(comps []types.ComponentType) []string {
	terms := make([]string, 0, len(comps))
	for _, c := range comps {
		terms = append(terms, strings.ReplaceAll(string(c), "_", " "))
	}
	return terms
}

// Validate checks the ordering contract: sequence numbers are dense and
// ascending, and no topology-dependent vector operation precedes the graph
// operation.
func (p Plan) Validate() error {
	if len(p.Ops) == 0 {
		return fmt.Errorf("plan has no operations")
	}
	if !sort.SliceIsSorted(p.Ops, func(i, j int) bool { return p.Ops[i].Seq < p.Ops[j].Seq }) {
		return fmt.Errorf("plan operations are not in sequence order")
	}

	graphSeq := 0
	for _, op := range p.Ops {
		if op.Store == StoreGraph {
			graphSeq = op.Seq
			break
		}
	}
	for _, op := range p.Ops {
		if op.Store == StoreVector && op.NeedsTopology {
			if graphSeq == 0 || op.Seq <= graphSeq {
				return fmt.Errorf("topology-dependent vector op at seq %d precedes graph retrieval", op.Seq)
			}
		}
	}
	return nil
}

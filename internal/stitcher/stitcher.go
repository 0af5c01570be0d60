// Package stitcher binds flow topology to retrieved content.
//
// This is the core algorithmic unit of flowstitch: it topologically orders
// skeleton nodes, maps each node to its best-matching artifact, computes
// per-node and aggregate confidence, and produces the coverage report that
// separates resolved nodes from gaps.
package stitcher

import (
	"sort"
	"strings"

	"flowstitch/internal/config"
	"flowstitch/internal/logging"
	"flowstitch/internal/types"
)

// mediumConfidenceCap bounds the per-node confidence when the best match
// was ambiguous (multiple equally strong candidates).
const mediumConfidenceCap = 0.75

// Stitcher performs node-to-artifact stitching.
type Stitcher struct {
	cfg config.StitchConfig
}

// New creates a Stitcher with the given configuration.
func New(cfg config.StitchConfig) *Stitcher {
	return &Stitcher{cfg: cfg}
}

// Stitch runs one join of skeleton and artifact set. The inputs are never
// mutated; re-running on identical inputs yields identical results.
func (s *Stitcher) Stitch(skeleton types.Skeleton, artifacts []types.Artifact) types.StitchResult {
	timer := logging.StartTimer(logging.CategoryStitch, "Stitch")
	defer timer.Stop()

	ordered := TopologicalOrder(skeleton)

	var resolved, missing []types.StitchedNode
	for _, node := range ordered {
		sn := s.matchNode(node, artifacts)
		if sn.Resolved() {
			resolved = append(resolved, sn)
		} else {
			missing = append(missing, sn)
		}
	}

	// Coverage is recomputed on every run, never cached across input changes.
	coverage := types.CoverageReport{
		NodesTotal:    len(ordered),
		NodesResolved: len(resolved),
	}
	for _, sn := range missing {
		coverage.Missing = append(coverage.Missing, sn.Node.Name)
	}

	confidence := s.aggregateConfidence(skeleton, artifacts)

	logging.Stitch("Stitched %d/%d nodes (confidence=%.2f, missing=%d)",
		coverage.NodesResolved, coverage.NodesTotal, confidence, len(missing))

	return types.StitchResult{
		OrderedNodes: ordered,
		Resolved:     resolved,
		Missing:      missing,
		Coverage:     coverage,
		Confidence:   confidence,
	}
}

// =============================================================================
// TOPOLOGICAL ORDERING
// =============================================================================

// TopologicalOrder orders skeleton nodes by Kahn's indegree elimination.
// When the edge set is empty, or the edges admit no valid ordering (cycle,
// dangling references), the skeleton's given node order is returned instead.
// A degenerate ordering is acceptable; an error is not.
func TopologicalOrder(skeleton types.Skeleton) []types.Node {
	nodes := skeleton.Nodes
	if len(nodes) == 0 {
		return nil
	}
	if len(skeleton.Edges) == 0 {
		return append([]types.Node(nil), nodes...)
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	indegree := make([]int, len(nodes))
	adjacency := make([][]int, len(nodes))
	for _, e := range skeleton.Edges {
		from, okF := index[e.FromID]
		to, okT := index[e.ToID]
		if !okF || !okT {
			// Edge references a node the skeleton does not carry; it
			// cannot constrain the ordering.
			continue
		}
		adjacency[from] = append(adjacency[from], to)
		indegree[to]++
	}

	// Scan in original node order each round so the result is deterministic
	// and stable for independent nodes.
	ordered := make([]types.Node, 0, len(nodes))
	visited := make([]bool, len(nodes))
	for len(ordered) < len(nodes) {
		progressed := false
		for i, n := range nodes {
			if visited[i] || indegree[i] != 0 {
				continue
			}
			visited[i] = true
			ordered = append(ordered, n)
			for _, next := range adjacency[i] {
				indegree[next]--
			}
			progressed = true
		}
		if !progressed {
			// Cycle: no valid ordering exists. Fall back to given order.
			logging.Get(logging.CategoryStitch).Warn(
				"Edge set admits no topological order (%d/%d placed), using given node order",
				len(ordered), len(nodes))
			return append([]types.Node(nil), nodes...)
		}
	}
	return ordered
}

// =============================================================================
// MATCHING
// =============================================================================

// matchNode binds one node to its best artifact, or records diagnostics
// when nothing clears the confidence threshold.
func (s *Stitcher) matchNode(node types.Node, artifacts []types.Artifact) types.StitchedNode {
	sn := types.StitchedNode{Node: node}
	if len(artifacts) == 0 {
		return sn
	}

	type scored struct {
		artifact types.Artifact
		score    float64
	}
	var candidates []scored

	// Exact match: case-insensitive equality between node name and
	// document title. Among exact matches the highest similarity wins.
	nodeName := strings.ToLower(strings.TrimSpace(node.Name))
	for _, a := range artifacts {
		if strings.ToLower(strings.TrimSpace(a.DocumentName)) == nodeName {
			candidates = append(candidates, scored{artifact: a, score: 1.0})
		}
	}

	// Fuzzy fallback only when no exact match exists: token overlap
	// between node name and candidate identifiers.
	if len(candidates) == 0 {
		for _, a := range artifacts {
			if score := tokenOverlap(node.Name, a.DocumentName); score > 0 {
				candidates = append(candidates, scored{artifact: a, score: score})
			}
		}
	}
	if len(candidates) == 0 {
		return sn
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].artifact.SimilarityScore > candidates[j].artifact.SimilarityScore
	})

	best := candidates[0]
	ambiguous := len(candidates) > 1 && candidates[1].score == best.score &&
		candidates[1].artifact.SimilarityScore == best.artifact.SimilarityScore

	if best.score >= s.cfg.ConfidenceThreshold {
		artifact := best.artifact
		sn.Artifact = &artifact
		sn.MatchConfidence = best.score
		if ambiguous {
			// Ambiguous-match policy: keep the winner, surface the
			// alternates, cap confidence at medium.
			if sn.MatchConfidence > mediumConfidenceCap {
				sn.MatchConfidence = mediumConfidenceCap
			}
			for _, c := range candidates[1:] {
				if c.score != best.score || len(sn.Candidates) >= s.cfg.MaxDiagnosticCandidates {
					break
				}
				sn.Candidates = append(sn.Candidates, types.Candidate{
					DocumentName: c.artifact.DocumentName,
					Score:        c.score,
				})
			}
		}
		return sn
	}

	// Below threshold: the node stays missing even though candidates exist.
	// Keep the best few for diagnostic reporting.
	sn.MatchConfidence = best.score
	for _, c := range candidates {
		if len(sn.Candidates) >= s.cfg.MaxDiagnosticCandidates {
			break
		}
		sn.Candidates = append(sn.Candidates, types.Candidate{
			DocumentName: c.artifact.DocumentName,
			Score:        c.score,
		})
	}
	return sn
}

// tokenOverlap scores the shared whitespace-delimited tokens between a node
// name and an artifact identifier, normalized by the node's token count so
// the result is comparable against the confidence threshold.
func tokenOverlap(nodeName, candidate string) float64 {
	nodeTokens := strings.Fields(strings.ToLower(nodeName))
	if len(nodeTokens) == 0 {
		return 0
	}
	candidateSet := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(candidate)) {
		candidateSet[tok] = true
	}

	shared := 0
	for _, tok := range nodeTokens {
		if candidateSet[tok] {
			shared++
		}
	}
	return float64(shared) / float64(len(nodeTokens))
}

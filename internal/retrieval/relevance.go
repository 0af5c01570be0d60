// Package retrieval implements the vector-side artifact client: bounded
// multi-table search with timeout degradation, plus the text relevance
// scoring used to rank rows independently of the embedding signal.
package retrieval

import (
	"sort"
	"strings"

	"flowstitch/internal/types"
)

// =============================================================================
// TEXT RELEVANCE SCORING
// =============================================================================

// Relevance weights. Exact phrase beats whole-term beats substring; scores
// are summed across all matched columns of a row.
const (
	phraseWeight    = 3.0
	termWeight      = 1.0
	substringWeight = 0.25
)

// ScoreText computes the relevance of a single column value against the
// query. Zero means no relationship at all.
func ScoreText(query, column string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	col := strings.ToLower(column)
	if q == "" || col == "" {
		return 0
	}

	var score float64

	// Exact phrase match scores highest.
	if strings.Contains(col, q) {
		score += phraseWeight
	}

	colTokens := tokenSet(col)
	for _, term := range strings.Fields(q) {
		if colTokens[term] {
			score += termWeight
			continue
		}
		// Partial/substring match scores lowest.
		if len(term) > 2 && strings.Contains(col, term) {
			score += substringWeight
		}
	}
	return score
}

// ScoreArtifact sums the relevance of the query across the artifact's
// scored columns (document name and content).
func ScoreArtifact(query string, a types.Artifact) float64 {
	return ScoreText(query, a.DocumentName) + ScoreText(query, a.Content)
}

// RankArtifacts orders candidates by text relevance (descending), breaking
// ties on the embedding similarity score, and truncates to limit. Artifacts
// with zero relevance and zero similarity are dropped: they matched nothing.
func RankArtifacts(query string, artifacts []types.Artifact, limit int) []types.Artifact {
	type scored struct {
		artifact  types.Artifact
		relevance float64
	}

	candidates := make([]scored, 0, len(artifacts))
	for _, a := range artifacts {
		rel := ScoreArtifact(query, a)
		if rel == 0 && a.SimilarityScore == 0 {
			continue
		}
		candidates = append(candidates, scored{artifact: a, relevance: rel})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].relevance != candidates[j].relevance {
			return candidates[i].relevance > candidates[j].relevance
		}
		return candidates[i].artifact.SimilarityScore > candidates[j].artifact.SimilarityScore
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]types.Artifact, len(candidates))
	for i, c := range candidates {
		out[i] = c.artifact
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[strings.Trim(tok, ".,;:()[]{}\"'`")] = true
	}
	return set
}

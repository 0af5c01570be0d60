package stitcher

import (
	"flowstitch/internal/types"
)

// aggregateConfidence reduces a whole stitching run to a single scalar.
//
// The formula is deliberately additive with a per-term cap so no single
// source can dominate or starve the score:
//
//   - mean artifact similarity, scaled and capped at the similarity weight
//     (default 0.6 of total);
//   - graph edge density, scaled and capped at the density weight
//     (default 0.3 of total);
//   - a fixed cross-source bonus (default 0.1) when both graph and vector
//     sources contributed at least one non-empty result;
//   - a fixed base bonus (default 0.2) when any data was found at all.
//
// The sum is clamped to [0, 1]. The weights are tunable configuration, not
// calibrated constants.
func (s *Stitcher) aggregateConfidence(skeleton types.Skeleton, artifacts []types.Artifact) float64 {
	hasGraph := len(skeleton.Nodes) > 0 && !skeleton.Synthesized()
	hasVector := len(artifacts) > 0

	var score float64

	if hasVector {
		var sum float64
		for _, a := range artifacts {
			sum += a.SimilarityScore
		}
		mean := sum / float64(len(artifacts))
		score += clamp01(mean) * s.cfg.SimilarityWeight
	}

	if hasGraph && len(skeleton.Edges) > 0 {
		normalizer := s.cfg.DensityNormalizer
		if normalizer <= 0 {
			normalizer = 10
		}
		density := float64(len(skeleton.Edges)) / normalizer
		score += clamp01(density) * s.cfg.DensityWeight
	}

	// Cross-source consistency: both stores produced evidence.
	if hasGraph && hasVector {
		score += s.cfg.CrossSourceBonus
	}

	// Base bonus for finding anything at all.
	if hasGraph || hasVector {
		score += s.cfg.BaseDataBonus
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

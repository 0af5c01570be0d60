// Package intent derives a structured Intent from a free-form request.
//
// The analyzer never fails: ambiguous input still yields an Intent with an
// empty target and a low confidence tag, and downstream stages degrade from
// there. Nothing in this package throws for malformed input.
package intent

import (
	"regexp"
	"strings"

	"flowstitch/internal/logging"
	"flowstitch/internal/types"
)

var (
	quotedPattern     = regexp.MustCompile("[\"'`]([^\"'`]{2,})[\"'`]")
	identifierPattern = regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9]*(?:[_\-.][A-Za-z0-9]+)+)\b`)
)

// reconstructKeywords flip the goal to full reconstruction.
var reconstructKeywords = []string{
	"reconstruct", "rebuild", "regenerate", "generate", "recreate",
	"implement", "full", "complete", "deploy", "package", "code",
}

// overviewKeywords keep the goal at overview.
var overviewKeywords = []string{
	"overview", "describe", "explain", "summarize", "summary", "what is",
	"understand", "document",
}

// componentMentions maps request vocabulary onto the component enumeration.
// Order matters: earlier entries win when phrases overlap.
var componentMentions = []struct {
	phrase string
	comp   types.ComponentType
}{
	{"message mapping", types.CompMapping},
	{"mapping", types.CompMapping},
	{"groovy", types.CompScript},
	{"script", types.CompScript},
	{"request reply", types.CompRequestRep},
	{"request-reply", types.CompRequestRep},
	{"router", types.CompRouter},
	{"route", types.CompRouter},
	{"splitter", types.CompSplitter},
	{"split", types.CompSplitter},
	{"gather", types.CompGatherer},
	{"aggregat", types.CompGatherer},
	{"enricher", types.CompEnricher},
	{"content modifier", types.CompEnricher},
	{"sftp", types.CompFileAdapter},
	{"file transfer", types.CompFileAdapter},
	{"sender", types.CompSender},
	{"receiver", types.CompReceiver},
}

// Analyze classifies a free-text request into a structured Intent.
func Analyze(query string) types.Intent {
	timer := logging.StartTimer(logging.CategoryIntent, "Analyze")
	defer timer.Stop()

	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)

	intent := types.Intent{
		Goal:       types.GoalOverview,
		Confidence: 0.2,
	}
	if trimmed == "" {
		intent.Confidence = 0.1
		logging.Get(logging.CategoryIntent).Warn("Empty request, returning minimal intent")
		return intent
	}

	// Target entity: prefer an explicit quoted name, else the longest
	// identifier-like token.
	if target, quoted := extractTarget(trimmed); target != "" {
		intent.TargetName = target
		if quoted {
			intent.Confidence += 0.5
		} else {
			intent.Confidence += 0.4
		}
	}

	// Goal split by keyword presence. Reconstruction keywords dominate
	// because a request for code implies more than a request for prose.
	if containsAny(lower, reconstructKeywords) {
		intent.Goal = types.GoalReconstruct
		intent.Confidence += 0.2
	} else if containsAny(lower, overviewKeywords) {
		intent.Goal = types.GoalOverview
		intent.Confidence += 0.2
	}

	if strings.Contains(lower, "xml") {
		intent.XMLOnly = true
	}

	// Explicit component-type mentions against the fixed vocabulary.
	seen := make(map[types.ComponentType]bool)
	for _, m := range componentMentions {
		if strings.Contains(lower, m.phrase) && !seen[m.comp] {
			seen[m.comp] = true
			intent.RequestedComponents = append(intent.RequestedComponents, m.comp)
		}
	}
	if len(intent.RequestedComponents) > 0 {
		intent.Confidence += 0.1
	}

	if intent.Confidence > 1 {
		intent.Confidence = 1
	}

	logging.Get(logging.CategoryIntent).Info(
		"Analyzed intent: target=%q goal=%s components=%d confidence=%.2f",
		intent.TargetName, intent.Goal, len(intent.RequestedComponents), intent.Confidence)
	return intent
}

// extractTarget finds the most explicit entity name in the request.
// Quoted tokens win; otherwise the longest identifier-like token is used.
func extractTarget(query string) (target string, quoted bool) {
	var best string
	for _, m := range quotedPattern.FindAllStringSubmatch(query, -1) {
		if len(m) > 1 && len(m[1]) > len(best) {
			best = m[1]
		}
	}
	if best != "" {
		return strings.TrimSpace(best), true
	}

	for _, m := range identifierPattern.FindAllStringSubmatch(query, -1) {
		if len(m) > 1 && len(m[1]) > len(best) {
			best = m[1]
		}
	}
	return best, false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

package intent

import (
	"testing"

	"flowstitch/internal/types"
)

func TestAnalyzeQuotedTarget(t *testing.T) {
	it := Analyze(`rebuild the "OrderSync" flow`)

	if got, want := it.TargetName, "OrderSync"; got != want {
		t.Errorf("TargetName = %q, want %q", got, want)
	}
	if it.Goal != types.GoalReconstruct {
		t.Errorf("Goal = %s, want reconstruct", it.Goal)
	}
	if it.Confidence < 0.8 {
		t.Errorf("Confidence = %v, want >= 0.8 for quoted target plus goal keyword", it.Confidence)
	}
}

func TestAnalyzeIdentifierTarget(t *testing.T) {
	it := Analyze("describe Invoice_Router please")

	if got, want := it.TargetName, "Invoice_Router"; got != want {
		t.Errorf("TargetName = %q, want %q", got, want)
	}
	if it.Goal != types.GoalOverview {
		t.Errorf("Goal = %s, want overview", it.Goal)
	}
}

func TestAnalyzeGoalSplit(t *testing.T) {
	cases := []struct {
		query string
		want  types.Goal
	}{
		{"reconstruct the order flow", types.GoalReconstruct},
		{"regenerate everything for billing", types.GoalReconstruct},
		{"give me an overview of the billing flow", types.GoalOverview},
		{"summarize the integration", types.GoalOverview},
		{"billing flow", types.GoalOverview}, // no keyword defaults to overview
	}
	for _, tc := range cases {
		if got := Analyze(tc.query).Goal; got != tc.want {
			t.Errorf("Analyze(%q).Goal = %s, want %s", tc.query, got, tc.want)
		}
	}
}

func TestAnalyzeComponentMentions(t *testing.T) {
	it := Analyze("rebuild the flow with its groovy script and message mapping over sftp")

	want := map[types.ComponentType]bool{
		types.CompScript:      true,
		types.CompMapping:     true,
		types.CompFileAdapter: true,
	}
	if len(it.RequestedComponents) != len(want) {
		t.Fatalf("RequestedComponents = %v, want %d distinct types", it.RequestedComponents, len(want))
	}
	for _, c := range it.RequestedComponents {
		if !want[c] {
			t.Errorf("unexpected component %s", c)
		}
	}
}

func TestAnalyzeXMLOnly(t *testing.T) {
	if !Analyze("give me the raw xml for OrderSync").XMLOnly {
		t.Error("XMLOnly = false, want true")
	}
	if Analyze("give me OrderSync").XMLOnly {
		t.Error("XMLOnly = true, want false")
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	it := Analyze("   ")

	if it.TargetName != "" {
		t.Errorf("TargetName = %q, want empty", it.TargetName)
	}
	if it.Confidence != 0.1 {
		t.Errorf("Confidence = %v, want 0.1", it.Confidence)
	}
	if it.Goal != types.GoalOverview {
		t.Errorf("Goal = %s, want overview default", it.Goal)
	}
}

func TestAnalyzeConfidenceClamped(t *testing.T) {
	it := Analyze(`reconstruct and rebuild the complete "VeryExplicitFlow" with mapping and script`)
	if it.Confidence > 1 {
		t.Errorf("Confidence = %v, want clamped to 1", it.Confidence)
	}
}

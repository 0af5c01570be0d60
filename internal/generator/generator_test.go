package generator

import (
	"testing"

	"flowstitch/internal/types"
)

func stitched(name, typ string, artifact *types.Artifact) types.StitchedNode {
	return types.StitchedNode{
		Node:     types.Node{ID: "id-" + name, Name: name, Type: typ},
		Artifact: artifact,
	}
}

func TestGenerateDispatchCoversVocabulary(t *testing.T) {
	for _, ct := range types.KnownComponentTypes {
		if _, ok := dispatch[ct]; !ok {
			t.Errorf("no generator entry for component type %s", ct)
		}
	}
}

func TestGenerateResolvedNodes(t *testing.T) {
	result := types.StitchResult{
		Resolved: []types.StitchedNode{
			stitched("Start", "start_event", nil),
			stitched("Transform", "script", &types.Artifact{Content: "return body"}),
			stitched("Finish", "end_event", nil),
		},
	}

	components := New("1.1").Generate(result)

	if len(components) != 3 {
		t.Fatalf("len = %d, want 3", len(components))
	}
	script := components[1]
	if script.ActivityType != "Script" {
		t.Errorf("ActivityType = %q, want Script", script.ActivityType)
	}
	if got := script.Config["script_content"]; got != "return body" {
		t.Errorf("script_content = %v, want artifact content", got)
	}
	if got := script.Config["script_file"]; got != "transform.groovy" {
		t.Errorf("script_file = %v, want transform.groovy", got)
	}
	for _, c := range components {
		if c.Config["version"] != "1.1" {
			t.Errorf("component %q version = %v, want 1.1", c.Name, c.Config["version"])
		}
		if c.NeedsReview {
			t.Errorf("component %q flagged for review without cause", c.Name)
		}
	}
}

func TestGenerateUnknownTypeRoundTrips(t *testing.T) {
	result := types.StitchResult{
		Resolved: []types.StitchedNode{stitched("Mystery", "warp_drive", nil)},
	}

	components := New("1.1").Generate(result)

	if len(components) != 1 {
		t.Fatalf("unknown-type component was dropped")
	}
	c := components[0]
	if !c.NeedsReview {
		t.Error("NeedsReview = false, want true for unknown type")
	}
	if c.Type != types.CompUnknown {
		t.Errorf("Type = %s, want unknown", c.Type)
	}
	if got := c.Config["raw_type"]; got != "warp_drive" {
		t.Errorf("raw_type = %v, want original string preserved", got)
	}
}

func TestGeneratePlaceholderNodesAreFlagged(t *testing.T) {
	placeholder := types.StitchedNode{
		Node: types.Node{ID: "synth-1", Name: "Call External Service", Type: "request_reply", IsPlaceholder: true},
	}
	realMissing := types.StitchedNode{
		Node: types.Node{ID: "n9", Name: "Audit Step", Type: "script"},
	}
	result := types.StitchResult{
		Missing: []types.StitchedNode{placeholder, realMissing},
	}

	components := New("1.1").Generate(result)

	// Synthesized placeholders get default components; unresolved real
	// nodes stay coverage gaps.
	if len(components) != 1 {
		t.Fatalf("len = %d, want only the placeholder component", len(components))
	}
	c := components[0]
	if !c.NeedsReview {
		t.Error("placeholder component not flagged for review")
	}
	if c.Config["placeholder"] != true {
		t.Error("placeholder marker missing from config")
	}
}

func TestGenerateRequestReplyAddressFromMetadata(t *testing.T) {
	artifact := &types.Artifact{
		Metadata: map[string]interface{}{"address": "https://api.example.com/orders"},
	}
	result := types.StitchResult{
		Resolved: []types.StitchedNode{stitched("Call Orders API", "request_reply", artifact)},
	}

	components := New("1.1").Generate(result)

	if got := components[0].Config["address"]; got != "https://api.example.com/orders" {
		t.Errorf("address = %v, want metadata value", got)
	}
}

package synthesis

import (
	"testing"

	"flowstitch/internal/types"
)

func TestSelectPattern(t *testing.T) {
	cases := []struct {
		name   string
		intent types.Intent
		want   string
	}{
		{"default", types.Intent{}, PatternRequestReply},
		{"file hint", types.Intent{RequestedComponents: []types.ComponentType{types.CompFileAdapter}}, PatternFilePolling},
		{"splitter hint", types.Intent{RequestedComponents: []types.ComponentType{types.CompSplitter}}, PatternEventDriven},
		{"gatherer hint", types.Intent{RequestedComponents: []types.ComponentType{types.CompGatherer}}, PatternEventDriven},
		{"unrelated hint", types.Intent{RequestedComponents: []types.ComponentType{types.CompRouter}}, PatternRequestReply},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SelectPattern(tc.intent); got != tc.want {
				t.Errorf("SelectPattern() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSynthesizeProducesPlaceholderLine(t *testing.T) {
	skeleton, err := Synthesize(PatternRequestReply, "OrderSync")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if len(skeleton.Nodes) == 0 {
		t.Fatal("synthesized skeleton has no nodes")
	}
	if got, want := len(skeleton.Edges), len(skeleton.Nodes)-1; got != want {
		t.Errorf("edges = %d, want straight line %d", got, want)
	}
	for _, n := range skeleton.Nodes {
		if !n.IsPlaceholder {
			t.Errorf("node %q not flagged as placeholder", n.Name)
		}
		if n.ContainerID != "OrderSync" {
			t.Errorf("node %q container = %q, want target name", n.Name, n.ContainerID)
		}
	}
	if !skeleton.Synthesized() {
		t.Error("Synthesized() = false for an all-placeholder skeleton")
	}

	// Edges chain consecutive nodes.
	for i, e := range skeleton.Edges {
		if e.FromID != skeleton.Nodes[i].ID || e.ToID != skeleton.Nodes[i+1].ID {
			t.Errorf("edge %d = %s->%s, want %s->%s", i, e.FromID, e.ToID, skeleton.Nodes[i].ID, skeleton.Nodes[i+1].ID)
		}
	}
}

func TestSynthesizeEmptyTargetStillWorks(t *testing.T) {
	skeleton, err := Synthesize(PatternFilePolling, "")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(skeleton.Nodes) == 0 {
		t.Fatal("synthesized skeleton has no nodes")
	}
}

func TestSynthesizeUnknownPattern(t *testing.T) {
	if _, err := Synthesize("quantum-mesh", "X"); err == nil {
		t.Error("Synthesize() accepted an unknown pattern")
	}
}

func TestEveryPatternUsesKnownComponentTypes(t *testing.T) {
	for name := range patternLibrary {
		skeleton, err := Synthesize(name, "X")
		if err != nil {
			t.Fatalf("Synthesize(%q) error = %v", name, err)
		}
		for _, n := range skeleton.Nodes {
			if types.NormalizeComponentType(n.Type) == types.CompUnknown {
				t.Errorf("pattern %q step %q has unknown component type %q", name, n.Name, n.Type)
			}
		}
	}
}

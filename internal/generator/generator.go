// Package generator renders stitched nodes into typed component
// definitions. A fixed dispatch table keyed by the normalized component
// vocabulary fills required configuration fields from the matched
// artifact's content when present, else from documented defaults.
// Unknown component types are never dropped: they produce a needs_review
// component so the gap is visible downstream.
package generator

import (
	"strings"

	"flowstitch/internal/logging"
	"flowstitch/internal/types"
)

// Generator maps stitched nodes to components.
type Generator struct {
	version string
}

// New creates a Generator. version is the component version stamped on
// every definition (packaging.component_version).
func New(version string) *Generator {
	if version == "" {
		version = "1.1"
	}
	return &Generator{version: version}
}

// configFunc fills the per-type configuration for one stitched node.
type configFunc func(sn types.StitchedNode) (activityType string, config map[string]interface{})

// dispatch is the fixed generation table over the enumerated vocabulary.
var dispatch = map[types.ComponentType]configFunc{
	types.CompStartEvent: func(sn types.StitchedNode) (string, map[string]interface{}) {
		return "StartEvent", map[string]interface{}{
			"event_type": "message",
		}
	},
	types.CompEndEvent: func(sn types.StitchedNode) (string, map[string]interface{}) {
		return "EndEvent", map[string]interface{}{
			"event_type": "message",
		}
	},
	types.CompEnricher: func(sn types.StitchedNode) (string, map[string]interface{}) {
		cfg := map[string]interface{}{
			"body_type": "expression",
			"body":      "",
		}
		if sn.Artifact != nil {
			cfg["body"] = sn.Artifact.Content
		}
		return "Enricher", cfg
	},
	types.CompScript: func(sn types.StitchedNode) (string, map[string]interface{}) {
		cfg := map[string]interface{}{
			"language":        "groovy",
			"script_file":     slug(sn.Node.Name) + ".groovy",
			"script_function": "processData",
		}
		if sn.Artifact != nil {
			cfg["script_content"] = sn.Artifact.Content
		}
		return "Script", cfg
	},
	types.CompRequestRep: func(sn types.StitchedNode) (string, map[string]interface{}) {
		cfg := map[string]interface{}{
			"address":    "",
			"proxy_type": "Internet",
			"method":     "POST",
			"timeout_ms": 60000,
		}
		if sn.Artifact != nil {
			if addr, ok := sn.Artifact.Metadata["address"].(string); ok {
				cfg["address"] = addr
			}
		}
		return "ExternalCall", cfg
	},
	types.CompRouter: func(sn types.StitchedNode) (string, map[string]interface{}) {
		return "ExclusiveGateway", map[string]interface{}{
			"default_route": "route_1",
			"conditions":    []interface{}{},
		}
	},
	types.CompMapping: func(sn types.StitchedNode) (string, map[string]interface{}) {
		name := slug(sn.Node.Name)
		cfg := map[string]interface{}{
			"mapping_name": name,
			"mapping_uri":  "src/main/resources/mapping/" + name + ".mmap",
		}
		if sn.Artifact != nil {
			cfg["mapping_content"] = sn.Artifact.Content
		}
		return "Mapping", cfg
	},
	types.CompSplitter: func(sn types.StitchedNode) (string, map[string]interface{}) {
		return "Splitter", map[string]interface{}{
			"split_expression": "//item",
			"streaming":        true,
			"parallel":         false,
		}
	},
	types.CompGatherer: func(sn types.StitchedNode) (string, map[string]interface{}) {
		return "Gather", map[string]interface{}{
			"aggregation_strategy": "combine",
		}
	},
	types.CompSender: func(sn types.StitchedNode) (string, map[string]interface{}) {
		return "Sender", map[string]interface{}{
			"adapter_type": "HTTPS",
			"address":      "/" + slug(sn.Node.Name),
		}
	},
	types.CompReceiver: func(sn types.StitchedNode) (string, map[string]interface{}) {
		cfg := map[string]interface{}{
			"adapter_type": "HTTP",
			"address":      "",
		}
		if sn.Artifact != nil {
			if addr, ok := sn.Artifact.Metadata["address"].(string); ok {
				cfg["address"] = addr
			}
		}
		return "Receiver", cfg
	},
	types.CompFileAdapter: func(sn types.StitchedNode) (string, map[string]interface{}) {
		return "FileTransfer", map[string]interface{}{
			"protocol":    "SFTP",
			"host":        "",
			"path":        "/",
			"auth_method": "publicKey",
		}
	},
}

// Generate renders components for one stitch result: one component per
// resolved node, plus one per synthesized placeholder node even when the
// placeholder found no artifact (those carry needs_review). Unresolved
// real nodes stay gaps in the coverage report and produce no component.
func (g *Generator) Generate(result types.StitchResult) []types.Component {
	timer := logging.StartTimer(logging.CategoryGenerate, "Generate")
	defer timer.Stop()

	var components []types.Component
	for _, sn := range result.Resolved {
		components = append(components, g.generateOne(sn, false))
	}
	for _, sn := range result.Missing {
		if sn.Node.IsPlaceholder {
			components = append(components, g.generateOne(sn, true))
		}
	}

	logging.Get(logging.CategoryGenerate).Info("Generated %d components (%d resolved, %d placeholders)",
		len(components), len(result.Resolved), len(components)-len(result.Resolved))
	return components
}

// generateOne dispatches a single stitched node through the type table.
func (g *Generator) generateOne(sn types.StitchedNode, placeholder bool) types.Component {
	compType := types.NormalizeComponentType(sn.Node.Type)

	comp := types.Component{
		ID:   sn.Node.ID,
		Type: compType,
		Name: sn.Node.Name,
	}

	fill, ok := dispatch[compType]
	if !ok {
		// Unknown/unsupported type: round-trip it, flagged for review.
		comp.ActivityType = "Unspecified"
		comp.Config = map[string]interface{}{
			"raw_type": sn.Node.Type,
		}
		comp.NeedsReview = true
		logging.Get(logging.CategoryGenerate).Warn("Unknown component type %q for node %q, flagged for review",
			sn.Node.Type, sn.Node.Name)
	} else {
		comp.ActivityType, comp.Config = fill(sn)
	}

	comp.Config["version"] = g.version
	if placeholder {
		// Synthesized nodes ship with defaults only; a human confirms them.
		comp.NeedsReview = true
		comp.Config["placeholder"] = true
	}
	return comp
}

// slug normalizes a node name into a file-safe identifier.
func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ".", "_").Replace(s)
	if s == "" {
		return "component"
	}
	return s
}

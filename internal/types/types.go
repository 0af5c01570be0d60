// Package types provides shared type definitions used across flowstitch packages.
// This package exists to break import cycles between the retrieval, stitching,
// and orchestration layers. Types here are foundational data structures with
// no complex dependencies; all of them are created and consumed within a
// single request, never shared across requests.
package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// INTENT
// =============================================================================

// Goal describes what the caller wants out of a reconstruction request.
type Goal string

const (
	// GoalOverview asks for a structural summary; summary and config chunks
	// are acceptable evidence.
	GoalOverview Goal = "overview"

	// GoalReconstruct asks for a full rebuild; only complete_definition
	// chunks are acceptable evidence (strict mode).
	GoalReconstruct Goal = "reconstruct"
)

// Intent is the structured interpretation of a free-text request.
// Immutable once produced by the analyzer.
type Intent struct {
	TargetName          string          `json:"target_name"`
	Goal                Goal            `json:"goal"`
	RequestedComponents []ComponentType `json:"requested_components,omitempty"`
	XMLOnly             bool            `json:"xml_only"`
	Confidence          float64         `json:"confidence"`
}

// =============================================================================
// TOPOLOGY (graph store side)
// =============================================================================

// Node is a single processing step in a flow skeleton.
type Node struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	ContainerID string `json:"container_id,omitempty"`

	// IsPlaceholder marks nodes synthesized by the pattern fallback rather
	// than retrieved from the graph store. Placeholders are always surfaced
	// as gaps, never presented as ground truth.
	IsPlaceholder bool `json:"is_placeholder,omitempty"`
}

// Edge is a directed control/data-flow relation between two nodes.
type Edge struct {
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`
	Relation string `json:"relation"`
}

// Skeleton is the structural topology of a flow, independent of content.
// Produced once per request by the graph client; read-only afterward.
type Skeleton struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Empty reports whether the skeleton carries no topology at all.
// An empty skeleton is a degraded-but-valid result, not an error.
func (s *Skeleton) Empty() bool {
	return s == nil || len(s.Nodes) == 0
}

// Synthesized reports whether every node in the skeleton is a placeholder.
func (s *Skeleton) Synthesized() bool {
	if s.Empty() {
		return false
	}
	for _, n := range s.Nodes {
		if !n.IsPlaceholder {
			return false
		}
	}
	return true
}

// =============================================================================
// ARTIFACTS (vector store side)
// =============================================================================

// ChunkType classifies retrieved content granularity.
type ChunkType string

const (
	ChunkSummary            ChunkType = "summary"
	ChunkConfig             ChunkType = "config"
	ChunkCompleteDefinition ChunkType = "complete_definition"
)

// Artifact is a retrieved content object: a configuration snippet, script,
// or full definition with a similarity score. Artifacts are immutable
// values, never mutated after retrieval.
type Artifact struct {
	ID              string                 `json:"id"`
	DocumentName    string                 `json:"document_name"`
	Content         string                 `json:"content"`
	ChunkType       ChunkType              `json:"chunk_type"`
	SourceTable     string                 `json:"source_table"`
	SimilarityScore float64                `json:"similarity_score"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// =============================================================================
// STITCHING
// =============================================================================

// Candidate records a near-miss match retained for diagnostics when a node
// stays unresolved.
type Candidate struct {
	DocumentName string  `json:"document_name"`
	Score        float64 `json:"score"`
}

// StitchedNode binds a topology node to its best-matching artifact.
// This is the central join entity between the two knowledge sources.
// Invariant: MatchConfidence below the configured threshold means the
// artifact is treated as unresolved even when present.
type StitchedNode struct {
	Node            Node        `json:"node"`
	Artifact        *Artifact   `json:"artifact,omitempty"`
	MatchConfidence float64     `json:"confidence"`
	Candidates      []Candidate `json:"candidates,omitempty"`
}

// Resolved reports whether the node was bound to an artifact at or above
// the confidence threshold.
func (sn *StitchedNode) Resolved() bool {
	return sn.Artifact != nil
}

// CoverageReport summarizes how much of the topology was bound to content.
// Derived; recomputed whenever skeleton or artifact set changes.
type CoverageReport struct {
	NodesTotal    int      `json:"nodes_total"`
	NodesResolved int      `json:"nodes_resolved"`
	Missing       []string `json:"missing_names"`
}

// Ratio returns resolved/total, or 0 for an empty topology.
func (c CoverageReport) Ratio() float64 {
	if c.NodesTotal == 0 {
		return 0
	}
	return float64(c.NodesResolved) / float64(c.NodesTotal)
}

// StitchResult is the full output of one stitching run.
type StitchResult struct {
	OrderedNodes []Node         `json:"ordered_nodes"`
	Resolved     []StitchedNode `json:"resolved"`
	Missing      []StitchedNode `json:"missing"`
	Coverage     CoverageReport `json:"coverage"`
	Confidence   float64        `json:"confidence"`
}

// =============================================================================
// COMPONENTS
// =============================================================================

// ComponentType is the fixed vocabulary of supported component kinds.
// Unknown types must round-trip as needs_review components, never be dropped.
type ComponentType string

const (
	CompStartEvent  ComponentType = "start_event"
	CompEndEvent    ComponentType = "end_event"
	CompEnricher    ComponentType = "content_enricher"
	CompScript      ComponentType = "script"
	CompRequestRep  ComponentType = "request_reply"
	CompRouter      ComponentType = "router"
	CompMapping     ComponentType = "message_mapping"
	CompSplitter    ComponentType = "splitter"
	CompGatherer    ComponentType = "gatherer"
	CompSender      ComponentType = "sender"
	CompReceiver    ComponentType = "receiver"
	CompFileAdapter ComponentType = "file_adapter"
	CompUnknown     ComponentType = "unknown"
)

// KnownComponentTypes lists every enumerated type except the unknown marker.
var KnownComponentTypes = []ComponentType{
	CompStartEvent, CompEndEvent, CompEnricher, CompScript, CompRequestRep,
	CompRouter, CompMapping, CompSplitter, CompGatherer, CompSender,
	CompReceiver, CompFileAdapter,
}

// NormalizeComponentType maps a free-form type string onto the enumerated
// vocabulary. Unrecognized strings map to CompUnknown.
func NormalizeComponentType(raw string) ComponentType {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch key {
	case "start_event", "startevent", "start", "message_start_event":
		return CompStartEvent
	case "end_event", "endevent", "end", "message_end_event":
		return CompEndEvent
	case "content_enricher", "enricher", "content_modifier":
		return CompEnricher
	case "script", "scripted_transform", "groovy_script", "groovy":
		return CompScript
	case "request_reply", "requestreply", "external_call", "service_call":
		return CompRequestRep
	case "router", "conditional_router", "exclusive_gateway", "choice":
		return CompRouter
	case "message_mapping", "mapping", "map":
		return CompMapping
	case "splitter", "message_splitter", "iterating_splitter":
		return CompSplitter
	case "gatherer", "gather", "aggregator":
		return CompGatherer
	case "sender", "sender_endpoint", "inbound_adapter":
		return CompSender
	case "receiver", "receiver_endpoint", "outbound_adapter":
		return CompReceiver
	case "file_adapter", "sftp", "sftp_adapter", "file_transfer", "ftp":
		return CompFileAdapter
	default:
		return CompUnknown
	}
}

// Component is a generated, typed configuration object for one flow step.
type Component struct {
	ID           string                 `json:"id"`
	Type         ComponentType          `json:"type"`
	Name         string                 `json:"name"`
	ActivityType string                 `json:"activity_type"`
	Config       map[string]interface{} `json:"config"`

	// NeedsReview marks components the generator or validator could not
	// finish safely. They are included in output, never dropped.
	NeedsReview bool `json:"needs_review,omitempty"`
}

// =============================================================================
// PACKAGE
// =============================================================================

// Manifest describes the contents of an assembled package.
type Manifest struct {
	Name           string   `json:"name"`
	GeneratedAt    string   `json:"generated_at"`
	ComponentCount int      `json:"component_count"`
	Types          []string `json:"types"`
	Version        string   `json:"version"`
	NeedsReview    int      `json:"needs_review"`
}

// Package is the terminal artifact of a successful run: serialized
// components, a manifest, and auxiliary resource files keyed by archive
// path. Immutable once returned.
type Package struct {
	Components  []Component       `json:"components"`
	Manifest    Manifest          `json:"manifest"`
	Files       map[string][]byte `json:"-"`
	ArchivePath string            `json:"archive_path"`
}

// =============================================================================
// RESULT ENVELOPE & ERROR TAXONOMY
// =============================================================================

// Status classifies a pipeline outcome.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// Error codes for the terminal failure class. Recoverable conditions
// (empty graph, partial retrieval, ambiguous matches) never carry a code;
// they surface as reduced confidence and coverage instead.
const (
	ErrCodeNoData          = "no_data"
	ErrCodeSynthesisFailed = "synthesis_failed"
	ErrCodeInternal        = "internal"
)

// PipelineError is the only error class that propagates to callers.
// Everything else is recovered locally per the degradation policy.
type PipelineError struct {
	Code    string
	Message string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error (%s): %s", e.Code, e.Message)
}

// IsPipelineError checks whether err is a *PipelineError.
func IsPipelineError(err error) bool {
	_, ok := err.(*PipelineError)
	return ok
}

// Result is the structured response returned for every request, success or
// failure. Callers never see a raw stack trace.
type Result struct {
	Status     Status        `json:"status"`
	Message    string        `json:"message,omitempty"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Intent     *Intent       `json:"intent,omitempty"`
	Stitch     *StitchResult `json:"stitch,omitempty"`
	Package    *Package      `json:"package,omitempty"`
	Annotation string        `json:"annotation,omitempty"`
	JobID      string        `json:"job_id,omitempty"`
}

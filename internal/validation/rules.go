package validation

import (
	"fmt"
	"strconv"
	"strings"

	"flowstitch/internal/types"
)

// Rule inspects one component and repairs it in place. Rules never remove
// components and never change their order; the worst they may do is flag
// a component for review.
type Rule interface {
	Name() string
	Apply(comp *types.Component, files map[string][]byte) []AuditEntry
}

// AuditEntry records one applied fix with its before/after values.
type AuditEntry struct {
	Rule        string `json:"rule"`
	ComponentID string `json:"component_id"`
	Field       string `json:"field"`
	Before      string `json:"before"`
	After       string `json:"after"`
	Note        string `json:"note,omitempty"`
}

// =============================================================================
// PROXY TYPE
// =============================================================================

// proxyTypeRule replaces the disallowed "default" sentinel that upstream
// exports leave in external-call proxy configuration. The sentinel is not
// a valid runtime value; "Internet" is the documented default.
type proxyTypeRule struct{}

func (proxyTypeRule) Name() string { return "proxy_type_sentinel" }

func (proxyTypeRule) Apply(comp *types.Component, _ map[string][]byte) []AuditEntry {
	if comp.Type != types.CompRequestRep {
		return nil
	}
	raw, ok := comp.Config["proxy_type"].(string)
	if !ok || !strings.EqualFold(strings.TrimSpace(raw), "default") {
		return nil
	}
	comp.Config["proxy_type"] = "Internet"
	return []AuditEntry{{
		Rule:        "proxy_type_sentinel",
		ComponentID: comp.ID,
		Field:       "proxy_type",
		Before:      raw,
		After:       "Internet",
		Note:        "sentinel value is not deployable",
	}}
}

// =============================================================================
// ENDPOINT ADDRESS
// =============================================================================

// endpointAddressRule fills a placeholder into empty addresses on
// outbound-call components and flags them for review. An empty address
// would fail at deploy time; a visible placeholder fails loudly instead.
type endpointAddressRule struct{}

func (endpointAddressRule) Name() string { return "endpoint_address_required" }

func (endpointAddressRule) Apply(comp *types.Component, _ map[string][]byte) []AuditEntry {
	if comp.Type != types.CompRequestRep && comp.Type != types.CompReceiver {
		return nil
	}
	raw, _ := comp.Config["address"].(string)
	if strings.TrimSpace(raw) != "" {
		return nil
	}
	placeholder := fmt.Sprintf("https://REPLACE-ME/%s", comp.ID)
	comp.Config["address"] = placeholder
	comp.NeedsReview = true
	return []AuditEntry{{
		Rule:        "endpoint_address_required",
		ComponentID: comp.ID,
		Field:       "address",
		Before:      raw,
		After:       placeholder,
		Note:        "no endpoint address recovered, flagged for review",
	}}
}

// =============================================================================
// MAPPING RESOURCE
// =============================================================================

// mappingResourceRule synthesizes a minimal stub for mapping components
// whose referenced resource file was not recovered, so the assembled
// package remains internally consistent.
type mappingResourceRule struct{}

func (mappingResourceRule) Name() string { return "mapping_resource_present" }

func (mappingResourceRule) Apply(comp *types.Component, files map[string][]byte) []AuditEntry {
	if comp.Type != types.CompMapping {
		return nil
	}
	uri, _ := comp.Config["mapping_uri"].(string)
	if uri == "" {
		return nil
	}
	if _, ok := files[uri]; ok {
		return nil
	}
	if content, ok := comp.Config["mapping_content"].(string); ok && content != "" {
		files[uri] = []byte(content)
		return nil
	}
	name, _ := comp.Config["mapping_name"].(string)
	stub := fmt.Sprintf("<!-- mapping stub for %s: source definition was not recovered -->\n<mapping name=%q/>\n", comp.Name, name)
	files[uri] = []byte(stub)
	comp.NeedsReview = true
	return []AuditEntry{{
		Rule:        "mapping_resource_present",
		ComponentID: comp.ID,
		Field:       "mapping_uri",
		Before:      "",
		After:       uri,
		Note:        "stub resource synthesized",
	}}
}

// =============================================================================
// COMPONENT VERSION
// =============================================================================

// supportedVersions lists the component versions the runtime accepts,
// ascending.
var supportedVersions = []string{"1.0", "1.1", "1.2"}

// versionRule bumps unsupported component versions to the nearest
// supported one.
type versionRule struct{}

func (versionRule) Name() string { return "supported_version" }

func (versionRule) Apply(comp *types.Component, _ map[string][]byte) []AuditEntry {
	raw, ok := comp.Config["version"].(string)
	if !ok || raw == "" {
		return nil
	}
	for _, v := range supportedVersions {
		if raw == v {
			return nil
		}
	}
	fixed := nearestSupported(raw)
	comp.Config["version"] = fixed
	return []AuditEntry{{
		Rule:        "supported_version",
		ComponentID: comp.ID,
		Field:       "version",
		Before:      raw,
		After:       fixed,
	}}
}

// nearestSupported picks the supported version numerically closest to raw.
// Unparseable versions fall back to the newest supported one.
func nearestSupported(raw string) string {
	val, err := parseVersion(raw)
	if err != nil {
		return supportedVersions[len(supportedVersions)-1]
	}
	best := supportedVersions[0]
	bestDist := -1.0
	for _, v := range supportedVersions {
		sv, _ := parseVersion(v)
		dist := val - sv
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = v
			bestDist = dist
		}
	}
	return best
}

func parseVersion(s string) (float64, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 3)
	if len(parts) < 2 {
		parts = append(parts, "0")
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	return float64(major) + float64(minor)/100, nil
}

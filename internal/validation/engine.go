// Package validation runs generated components through an ordered set of
// repair rules before packaging. The pass is strictly corrective: it may
// rewrite configuration values, synthesize missing resource files, and
// flag components for review, but it never reorders the component list
// and never drops a component.
package validation

import (
	"flowstitch/internal/logging"
	"flowstitch/internal/types"
)

// Engine applies its rules to every component in sequence.
type Engine struct {
	rules []Rule
}

// New returns an engine with the default rule set, in fixed order.
func New() *Engine {
	return &Engine{
		rules: []Rule{
			proxyTypeRule{},
			endpointAddressRule{},
			mappingResourceRule{},
			versionRule{},
		},
	}
}

// Validate repairs components in place and returns the audit trail of
// every applied fix. files accumulates resource stubs synthesized by
// rules; callers pass the package file map so stubs land in the archive.
func (e *Engine) Validate(components []types.Component, files map[string][]byte) []AuditEntry {
	timer := logging.StartTimer(logging.CategoryValidate, "Validate")
	defer timer.Stop()

	if files == nil {
		files = map[string][]byte{}
	}

	var audit []AuditEntry
	for i := range components {
		for _, rule := range e.rules {
			entries := rule.Apply(&components[i], files)
			for _, entry := range entries {
				logging.Validate("%s: component %q field %q %q -> %q",
					entry.Rule, entry.ComponentID, entry.Field, entry.Before, entry.After)
			}
			audit = append(audit, entries...)
		}
	}

	logging.Validate("Validated %d components, %d fixes applied", len(components), len(audit))
	return audit
}

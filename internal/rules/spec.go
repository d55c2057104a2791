// Package rules implements the structural validation layer: declared
// invariants that every mutation must leave intact. Rules are a closed
// tagged-variant catalog so the governance surface can enumerate them by
// name.
package rules

import (
	"fmt"
	"time"
)

// Kind identifies a rule variant in the closed catalog.
type Kind int

const (
	// NoCycles forbids directed cycles.
	NoCycles Kind = iota
	// SingleRoot requires exactly one node without incoming edges on a
	// non-empty graph.
	SingleRoot
	// Connected requires weak connectivity over the whole graph.
	Connected
	// MaxChildren bounds each node's outgoing degree by Limit.
	MaxChildren
	// Sorted requires the in-order value sequence from each root to be
	// non-decreasing (binary-search-tree ordering).
	Sorted
	// MaxNodes bounds the node count by Limit.
	MaxNodes
	// MaxEdges bounds the edge count by Limit.
	MaxEdges
	// MaxDegree bounds each node's total degree by Limit.
	MaxDegree
	// Bidirectional requires every directed edge to have a reverse
	// counterpart (or the graph itself to be undirected).
	Bidirectional
)

// Severity controls how a rejection is reported, never whether the mutation
// is rejected: all violations are rejected.
type Severity int

const (
	// SeverityError logs rejections at error level. The default.
	SeverityError Severity = iota
	// SeverityWarning logs rejections at warn level.
	SeverityWarning
	// SeveritySilent rejects without logging.
	SeveritySilent
)

// RetroactivePolicy governs how pre-existing data is reconciled when a rule
// or behavior is attached to a non-empty graph.
type RetroactivePolicy int

const (
	// PolicyEnforce refuses the attach if any conflict exists. The default:
	// attaching a rule never silently changes or ignores data.
	PolicyEnforce RetroactivePolicy = iota
	// PolicyClean attempts automatic repair and succeeds only if repair is
	// total.
	PolicyClean
	// PolicyWarn attaches unconditionally and reports conflicts without
	// altering data.
	PolicyWarn
	// PolicyIgnore attaches without inspecting existing data, guarding only
	// future mutations.
	PolicyIgnore
)

// RepairMode governs PolicyClean when multiple equally valid repairs exist.
type RepairMode int

const (
	// RepairStrict refuses the attach rather than guess between equally
	// valid repairs.
	RepairStrict RepairMode = iota
	// RepairAny picks one repair deterministically: the first conflicting
	// edge in insertion order.
	RepairAny
)

// Spec is the declarative description of a rule.
type Spec struct {
	Kind Kind
	// Limit parameterizes the Max* kinds.
	Limit int
}

// Name returns the rule's catalog name, the key of the name-based
// governance surface.
func (s Spec) Name() string {
	switch s.Kind {
	case NoCycles:
		return "no-cycles"
	case SingleRoot:
		return "single-root"
	case Connected:
		return "connected"
	case MaxChildren:
		return "max-children"
	case Sorted:
		return "sorted"
	case MaxNodes:
		return "max-nodes"
	case MaxEdges:
		return "max-edges"
	case MaxDegree:
		return "max-degree"
	case Bidirectional:
		return "bidirectional"
	default:
		return fmt.Sprintf("rule-%d", int(s.Kind))
	}
}

// Instance is a rule attached to a specific graph.
type Instance struct {
	Spec       Spec
	Severity   Severity
	Policy     RetroactivePolicy
	AttachedAt time.Time
}

// NewInstance creates a rule instance ready to attach.
func NewInstance(spec Spec, severity Severity, policy RetroactivePolicy) *Instance {
	return &Instance{
		Spec:       spec,
		Severity:   severity,
		Policy:     policy,
		AttachedAt: time.Now(),
	}
}

// Name returns the instance's catalog name.
func (i *Instance) Name() string {
	return i.Spec.Name()
}

// Ruleset returns the named rule bundle, or nil if the name is unknown.
// Bundles attach as a unit in declaration order.
func Ruleset(name string) []Spec {
	switch name {
	case "tree":
		return []Spec{{Kind: NoCycles}, {Kind: SingleRoot}, {Kind: Connected}}
	case "dag":
		return []Spec{{Kind: NoCycles}}
	case "bst":
		return []Spec{
			{Kind: NoCycles},
			{Kind: SingleRoot},
			{Kind: Connected},
			{Kind: MaxChildren, Limit: 2},
			{Kind: Sorted},
		}
	default:
		return nil
	}
}

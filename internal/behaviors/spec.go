// Package behaviors implements the value transformation layer: transforms
// applied to content on its way into a collection. Behaviors are orthogonal
// to rules; the two are composed by the engine facade.
//
// The catalog is a closed tagged-variant type so the governance surface can
// enumerate behaviors by name; custom and conditional variants carry opaque
// callable references executed through an injected Invoker, keeping the
// engine free of any dependency on the evaluator.
package behaviors

import (
	"time"

	"lattice/internal/rules"
	pkgerrors "lattice/pkg/errors"
)

// Invoker is the narrow capability for calling evaluator-supplied functions.
// The evaluator injects its implementation; tests use a mock.
type Invoker interface {
	// Invoke calls the opaque callable fn with the given arguments.
	Invoke(fn any, args ...any) (any, error)
}

// Kind identifies a behavior variant in the closed catalog.
type Kind int

const (
	// Standard is a fixed-name transform that applies only when its
	// applicability predicate matches the value's shape and passes the
	// value through unchanged otherwise.
	Standard Kind = iota
	// Mapping substitutes values through a display-form lookup table, with
	// an optional default for unmapped keys.
	Mapping
	// Custom invokes a caller-supplied single-argument function and uses
	// its return value verbatim.
	Custom
	// Conditional applies a transform when a predicate holds, otherwise an
	// optional fallback.
	Conditional
	// Ordering keeps the collection sorted by inserting at the correct
	// position; it operates at the collection level rather than per value.
	Ordering
)

// Standard transform names.
const (
	StdDefaultZero = "default-zero" // nil becomes 0
	StdAbsolute    = "absolute"     // negative numbers become positive
	StdUppercase   = "uppercase"    // strings fold to upper case
	StdLowercase   = "lowercase"    // strings fold to lower case
	StdTrim        = "trim"         // strings lose surrounding whitespace
	StdClamp       = "clamp"        // numbers clamp into [Min, Max]
)

// Spec is the declarative description of a behavior.
type Spec struct {
	Kind Kind
	// Name is the catalog name used by the governance surface. Standard
	// behaviors are named after their transform; the other kinds default to
	// their variant name but accept a caller-supplied one.
	Name string

	// Standard parameters.
	Min, Max float64 // clamp bounds

	// Mapping parameters. Keys are value display forms.
	Table      map[string]any
	Default    any
	HasDefault bool

	// Custom parameter: opaque callable reference.
	Fn any

	// Conditional parameters: opaque callable references. Fallback may be
	// nil, leaving non-matching values unchanged.
	Predicate any
	Transform any
	Fallback  any

	// Ordering parameter: opaque comparator callable, or nil for the
	// engine's default scalar ordering.
	Comparator any
}

// NewStandard creates a standard transform spec by name.
func NewStandard(name string) (Spec, error) {
	switch name {
	case StdDefaultZero, StdAbsolute, StdUppercase, StdLowercase, StdTrim:
		return Spec{Kind: Standard, Name: name}, nil
	default:
		return Spec{}, pkgerrors.NewValidation("unknown standard behavior: " + name)
	}
}

// NewClamp creates the clamp standard transform with its bounds.
func NewClamp(min, max float64) (Spec, error) {
	if min > max {
		return Spec{}, pkgerrors.NewValidation("clamp requires min <= max")
	}
	return Spec{Kind: Standard, Name: StdClamp, Min: min, Max: max}, nil
}

// NewMapping creates a mapping behavior. hasDefault distinguishes "no
// default" from a nil default.
func NewMapping(table map[string]any, def any, hasDefault bool) Spec {
	return Spec{Kind: Mapping, Name: "mapping", Table: table, Default: def, HasDefault: hasDefault}
}

// NewCustom creates a custom-function behavior around an opaque callable.
func NewCustom(name string, fn any) (Spec, error) {
	if fn == nil {
		return Spec{}, pkgerrors.NewValidation("custom behavior requires a function")
	}
	if name == "" {
		name = "custom"
	}
	return Spec{Kind: Custom, Name: name, Fn: fn}, nil
}

// NewConditional creates a conditional behavior. fallback may be nil.
func NewConditional(name string, predicate, transform, fallback any) (Spec, error) {
	if predicate == nil || transform == nil {
		return Spec{}, pkgerrors.NewValidation("conditional behavior requires predicate and transform")
	}
	if name == "" {
		name = "conditional"
	}
	return Spec{Kind: Conditional, Name: name, Predicate: predicate, Transform: transform, Fallback: fallback}, nil
}

// NewOrdering creates an ordering behavior. comparator may be nil for the
// default scalar ordering.
func NewOrdering(comparator any) Spec {
	return Spec{Kind: Ordering, Name: "ordering", Comparator: comparator}
}

// Instance is a behavior attached to a specific collection, sharing the
// rules package's retroactive policy semantics: attaching a behavior to
// non-empty data raises the identical existing-values question.
type Instance struct {
	Spec       Spec
	Policy     rules.RetroactivePolicy
	AttachedAt time.Time
}

// NewInstance creates a behavior instance ready to attach.
func NewInstance(spec Spec, policy rules.RetroactivePolicy) *Instance {
	return &Instance{
		Spec:       spec,
		Policy:     policy,
		AttachedAt: time.Now(),
	}
}

// Name returns the instance's catalog name.
func (i *Instance) Name() string {
	return i.Spec.Name
}

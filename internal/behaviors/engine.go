package behaviors

import (
	"math"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"lattice/internal/values"
	pkgerrors "lattice/pkg/errors"
)

// Engine applies a collection's attached behaviors to incoming values. It is
// stateless; the instance list lives on the collection's owner.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a behavior engine. A nil logger disables logging.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Apply runs every per-value behavior in attachment order over value and
// returns the transformed result. Ordering behaviors are collection-level
// and are skipped here; the facade consults them for insertion position.
// Any callable failure aborts with a BehaviorFailure and no partial result
// is used.
func (e *Engine) Apply(inv Invoker, instances []*Instance, value any) (any, error) {
	current := value
	for _, inst := range instances {
		if inst.Spec.Kind == Ordering {
			continue
		}
		next, err := e.applyOne(inv, inst, current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// applyOne applies a single behavior instance to a value.
func (e *Engine) applyOne(inv Invoker, inst *Instance, value any) (any, error) {
	spec := inst.Spec
	switch spec.Kind {
	case Standard:
		return applyStandard(spec, value), nil

	case Mapping:
		if mapped, ok := spec.Table[values.Display(value)]; ok {
			return mapped, nil
		}
		if spec.HasDefault {
			return spec.Default, nil
		}
		return value, nil

	case Custom:
		if inv == nil {
			return nil, pkgerrors.NewBehaviorFailure(spec.Name, "no invoker available for custom function", nil)
		}
		result, err := inv.Invoke(spec.Fn, value)
		if err != nil {
			return nil, pkgerrors.NewBehaviorFailure(spec.Name, "custom function failed", err)
		}
		return result, nil

	case Conditional:
		if inv == nil {
			return nil, pkgerrors.NewBehaviorFailure(spec.Name, "no invoker available for predicate", nil)
		}
		verdict, err := inv.Invoke(spec.Predicate, value)
		if err != nil {
			return nil, pkgerrors.NewBehaviorFailure(spec.Name, "predicate failed", err)
		}
		matched, ok := verdict.(bool)
		if !ok {
			return nil, pkgerrors.NewBehaviorFailure(spec.Name, "predicate returned a non-boolean", nil)
		}
		if matched {
			result, err := inv.Invoke(spec.Transform, value)
			if err != nil {
				return nil, pkgerrors.NewBehaviorFailure(spec.Name, "transform failed", err)
			}
			return result, nil
		}
		if spec.Fallback != nil {
			result, err := inv.Invoke(spec.Fallback, value)
			if err != nil {
				return nil, pkgerrors.NewBehaviorFailure(spec.Name, "fallback failed", err)
			}
			return result, nil
		}
		return value, nil

	default:
		return value, nil
	}
}

// applyStandard applies a fixed-name transform. Values whose shape the
// transform does not cover pass through unchanged.
func applyStandard(spec Spec, value any) any {
	switch spec.Name {
	case StdDefaultZero:
		if value == nil {
			return 0
		}
		return value

	case StdAbsolute:
		switch t := value.(type) {
		case int:
			if t < 0 {
				return -t
			}
			return t
		case int64:
			if t < 0 {
				return -t
			}
			return t
		case float64:
			return math.Abs(t)
		default:
			return value
		}

	case StdUppercase:
		if s, ok := value.(string); ok {
			return strings.ToUpper(s)
		}
		return value

	case StdLowercase:
		if s, ok := value.(string); ok {
			return strings.ToLower(s)
		}
		return value

	case StdTrim:
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s)
		}
		return value

	case StdClamp:
		if n, ok := values.AsNumber(value); ok {
			clamped := math.Min(math.Max(n, spec.Min), spec.Max)
			if _, isInt := value.(int); isInt {
				return int(clamped)
			}
			return clamped
		}
		return value

	default:
		return value
	}
}

// Compare orders two values with the instance's comparator, falling back to
// the engine's default scalar ordering when none is supplied. Used by
// ordering behaviors for sorted insertion.
func (e *Engine) Compare(inv Invoker, inst *Instance, a, b any) (int, error) {
	if inst.Spec.Comparator == nil {
		cmp, err := values.Compare(a, b)
		if err != nil {
			return 0, pkgerrors.NewBehaviorFailure(inst.Name(), "values are not comparable", err)
		}
		return cmp, nil
	}
	if inv == nil {
		return 0, pkgerrors.NewBehaviorFailure(inst.Name(), "no invoker available for comparator", nil)
	}
	result, err := inv.Invoke(inst.Spec.Comparator, a, b)
	if err != nil {
		return 0, pkgerrors.NewBehaviorFailure(inst.Name(), "comparator failed", err)
	}
	n, ok := values.AsNumber(result)
	if !ok {
		return 0, pkgerrors.NewBehaviorFailure(inst.Name(), "comparator returned a non-number", nil)
	}
	switch {
	case n < 0:
		return -1, nil
	case n > 0:
		return 1, nil
	default:
		return 0, nil
	}
}

// OrderingInstance returns the first attached ordering behavior, or nil.
func OrderingInstance(instances []*Instance) *Instance {
	for _, inst := range instances {
		if inst.Spec.Kind == Ordering {
			return inst
		}
	}
	return nil
}

// PreviewChange describes one existing value an attach would transform.
type PreviewChange struct {
	Index  int
	Before any
	After  any
}

// Preview computes what attaching inst would do to existing values without
// altering anything: the changes Clean would apply, Warn would report, and
// Enforce would refuse over. Ordering behaviors report the values whose
// position a re-sort would move.
func (e *Engine) Preview(inv Invoker, inst *Instance, existing []any) ([]PreviewChange, error) {
	var changes []PreviewChange

	if inst.Spec.Kind == Ordering {
		sorted, err := e.SortValues(inv, inst, existing)
		if err != nil {
			return nil, err
		}
		for i := range existing {
			if !reflect.DeepEqual(existing[i], sorted[i]) {
				changes = append(changes, PreviewChange{Index: i, Before: existing[i], After: sorted[i]})
			}
		}
		return changes, nil
	}

	for i, v := range existing {
		after, err := e.applyOne(inv, inst, v)
		if err != nil {
			return nil, err
		}
		// Value equality, not display equality: a transform that changes the
		// type but not the rendered form is still a change.
		if !reflect.DeepEqual(after, v) {
			changes = append(changes, PreviewChange{Index: i, Before: v, After: after})
		}
	}
	return changes, nil
}

// SortValues returns a stably sorted copy of vals per the instance's
// comparator. Insertion sort keeps the comparator call pattern identical to
// sorted insertion, so attach-time re-sorts and per-insert placement agree.
func (e *Engine) SortValues(inv Invoker, inst *Instance, vals []any) ([]any, error) {
	sorted := make([]any, 0, len(vals))
	for _, v := range vals {
		pos, err := e.InsertPosition(inv, inst, sorted, v)
		if err != nil {
			return nil, err
		}
		sorted = append(sorted, nil)
		copy(sorted[pos+1:], sorted[pos:])
		sorted[pos] = v
	}
	return sorted, nil
}

// InsertPosition returns where value belongs in the already sorted slice:
// after every element that does not sort strictly greater, keeping equal
// values in arrival order.
func (e *Engine) InsertPosition(inv Invoker, inst *Instance, sorted []any, value any) (int, error) {
	for i, existing := range sorted {
		cmp, err := e.Compare(inv, inst, existing, value)
		if err != nil {
			return 0, err
		}
		if cmp > 0 {
			return i, nil
		}
	}
	return len(sorted), nil
}

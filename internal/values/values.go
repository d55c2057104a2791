// Package values holds the small set of helpers the engine needs to treat
// payload values uniformly: a display form for mapping/index keys and a
// total order over comparable scalars.
package values

import (
	"fmt"

	pkgerrors "lattice/pkg/errors"
)

// Display returns the value's display form, the key used by mapping
// behaviors and property indices. Scalars render the way the host language
// prints them.
func Display(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		// Whole floats print without a fraction, matching integer display.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AsNumber converts numeric values to float64, reporting whether the value
// is numeric at all.
func AsNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// Compare orders two values: -1, 0 or 1. Numbers compare numerically,
// strings lexicographically, booleans false-before-true. Mixed or
// unsupported types are an error; callers decide whether that rejects a
// mutation or fails an attach.
func Compare(a, b any) (int, error) {
	if na, ok := AsNumber(a); ok {
		if nb, ok := AsNumber(b); ok {
			switch {
			case na < nb:
				return -1, nil
			case na > nb:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			switch {
			case sa < sb:
				return -1, nil
			case sa > sb:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0, nil
			case !ba:
				return -1, nil
			default:
				return 1, nil
			}
		}
	}
	return 0, pkgerrors.NewValidation(
		fmt.Sprintf("values %q and %q are not comparable", Display(a), Display(b)))
}

package grove

import (
	"reflect"
	"slices"
)

// argPool holds the values supplied for one construction: call-site
// arguments first, then the rule's construct params. Each value is
// consumed at most once.
type argPool struct {
	entries []any
}

func newArgPool(args []any) *argPool {
	return &argPool{entries: slices.Clone(args)}
}

func (p *argPool) add(v any) { p.entries = append(p.entries, v) }

// take removes and returns the value to pass for param.
//
// Object parameters scan the whole pool and take the first value whose
// runtime type is assignable, so typed arguments may appear in any order.
// Scalar parameters take the next value they accept, which keeps them
// positional among themselves while skipping objects meant for other
// parameters. The relative order of the remaining values is preserved.
func (p *argPool) take(param Param) (any, bool) {
	for i, v := range p.entries {
		if !param.accepts(v) {
			if param.Type == "" && basicValue(v) {
				// scalars are positional: the next one belongs to a later
				// parameter
				return nil, false
			}
			continue
		}
		p.entries = slices.Delete(p.entries, i, i+1)
		return v, true
	}
	return nil, false
}

// basicValue reports whether v is nil, a number, a string or a bool.
func basicValue(v any) bool {
	if v == nil {
		return true
	}
	k := reflect.TypeOf(v).Kind()
	return isNumeric(k) || k == reflect.String || k == reflect.Bool
}

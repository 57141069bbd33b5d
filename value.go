package grove

import "fmt"

type valueKind int

const (
	literalValue valueKind = iota
	nullValue
	refValue
	callbackValue
	instanceValue
)

// Value describes how to obtain an argument: a literal, an explicit null, a
// reference to another identifier, a zero-argument callback or a prebuilt
// instance. The zero Value is a nil literal.
type Value struct {
	kind valueKind
	v    any
	ref  string
	fn   func() (any, error)
}

// Literal injects v as-is.
func Literal(v any) Value { return Value{kind: literalValue, v: v} }

// Null injects nil. It is distinct from "no value supplied".
func Null() Value { return Value{kind: nullValue} }

// Ref injects the result of creating id in the current request.
func Ref(id string) Value { return Value{kind: refValue, ref: id} }

// Callback injects the result of calling fn each time the value is needed.
func Callback(fn func() (any, error)) Value { return Value{kind: callbackValue, fn: fn} }

// Instance injects an already built object.
func Instance(v any) Value { return Value{kind: instanceValue, v: v} }

// IsNull reports whether the value is an explicit null.
func (v Value) IsNull() bool { return v.kind == nullValue }

// RefID returns the referenced identifier for values built with [Ref].
func (v Value) RefID() (string, bool) { return v.ref, v.kind == refValue }

func (v Value) String() string {
	switch v.kind {
	case nullValue:
		return "null"
	case refValue:
		return "ref(" + v.ref + ")"
	case callbackValue:
		return "callback"
	case instanceValue:
		return fmt.Sprintf("instance(%T)", v.v)
	default:
		return fmt.Sprintf("literal(%v)", v.v)
	}
}

// asLiteral wraps plain Go values given to rule options. Values are passed
// through, nil becomes [Null].
func asLiteral(x any) Value {
	switch x := x.(type) {
	case Value:
		return x
	case nil:
		return Null()
	default:
		return Literal(x)
	}
}

// asInstance is asLiteral for substitutions, where a plain object is a
// prebuilt instance.
func asInstance(x any) Value {
	switch x := x.(type) {
	case Value:
		return x
	case nil:
		return Null()
	default:
		return Instance(x)
	}
}

package grove

// Param describes one constructor parameter.
type Param struct {
	// Name is informational; Go does not keep parameter names at runtime
	// unless they are supplied at registration.
	Name string

	// Type is the declared object or interface type identifier. It is empty
	// for scalar parameters, which are filled positionally.
	Type string

	HasDefault bool
	Default    any
	Nullable   bool

	// Accepts reports whether v can be passed for this parameter.
	Accepts func(v any) bool
}

// accepts tolerates introspectors that leave Accepts unset.
func (p Param) accepts(v any) bool {
	if p.Accepts == nil {
		return true
	}
	return p.Accepts(v)
}

// Forward is a handle for an instance that is still under construction.
// Handle is given to re-entrant requests; Bind fills it with the finished
// instance so every holder observes the same object. The handle, not the
// value the constructor returned, is what gets cached and returned.
//
// An implementation that cannot make the constructor's own pointer become
// the handle has to copy the finished value into it, as [Registry] does.
// References the constructor took to its result then point at the
// discarded original.
type Forward interface {
	Handle() any
	Bind(instance any) error
}

// TypeIntrospector answers the questions the container asks about types.
// [Registry] is the reflection-backed implementation.
type TypeIntrospector interface {
	// Known reports whether id names a type the introspector can describe.
	Known(id string) bool

	// Parameters returns the constructor parameters of id, in order.
	Parameters(id string) ([]Param, error)

	// Ancestors returns the types id descends from, nearest first: embedded
	// concrete types before interfaces.
	Ancestors(id string) ([]string, error)

	// Instantiate calls the constructor of id with args.
	Instantiate(id string, args []any) (any, error)

	// Forward returns a handle that can stand in for an instance of id
	// before its constructor has returned. ok is false when the type cannot
	// be forwarded.
	Forward(id string) (fw Forward, ok bool)

	// Invoke calls the named method on instance.
	Invoke(instance any, method string, args []any) error
}

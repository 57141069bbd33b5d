package grove

import (
	"maps"
	"slices"
)

// Field holds a rule field together with whether it was set. A field that
// is set to its zero value (false, empty list) is different from a field
// that was never set.
type Field[T any] struct {
	V   T
	Set bool
}

func set[T any](v T) Field[T] { return Field[T]{V: v, Set: true} }

// Factory builds an instance directly instead of going through a
// constructor. It may call back into the container.
type Factory func(c *Container) (any, error)

// Target is the concrete type a rule resolves to: either another
// identifier or a factory.
type Target struct {
	ID      string
	Factory Factory
}

// Call is a method invoked on a freshly built instance.
type Call struct {
	Method string
	Args   []Value
}

// Rule controls how instances are built for an identifier. Rules returned
// by [Container.GetRule] are merged snapshots; modifying them has no effect
// on the container.
type Rule struct {
	Shared          Field[bool]
	InstanceOf      Field[Target]
	ConstructParams Field[[]Value]
	Substitutions   Field[map[string]Value]
	ShareInstances  Field[[]string]
	Calls           Field[[]Call]
	Inherit         Field[bool]
}

// IsShared reports whether instances are cached for the container's lifetime.
func (r Rule) IsShared() bool { return r.Shared.Set && r.Shared.V }

// Inherits reports whether the rule also governs descendant types.
func (r Rule) Inherits() bool { return !r.Inherit.Set || r.Inherit.V }

// Substitution returns the substitution registered for the declared type id.
func (r Rule) Substitution(id string) (Value, bool) {
	if !r.Substitutions.Set {
		return Value{}, false
	}
	v, ok := r.Substitutions.V[Normalize(id)]
	return v, ok
}

// RuleOption sets one field of a rule passed to [Container.AddRule].
type RuleOption func(*Rule)

// Shared marks instances as singletons cached under the requested
// identifier.
func Shared(shared bool) RuleOption {
	return func(r *Rule) { r.Shared = set(shared) }
}

// InstanceOf makes the rule build id instead of the requested identifier.
func InstanceOf(id string) RuleOption {
	return func(r *Rule) { r.InstanceOf = set(Target{ID: Normalize(id)}) }
}

// InstanceOfFactory makes the rule build instances with f.
func InstanceOfFactory(f Factory) RuleOption {
	return func(r *Rule) { r.InstanceOf = set(Target{Factory: f}) }
}

// ConstructParams supplies constructor arguments. Plain values are
// literals, nil is an explicit null; use [Ref], [Callback] or [Instance]
// for the other kinds.
func ConstructParams(params ...any) RuleOption {
	return func(r *Rule) {
		vals := make([]Value, len(params))
		for i, p := range params {
			vals[i] = asLiteral(p)
		}
		r.ConstructParams = set(vals)
	}
}

// Substitute replaces every dependency declared as id with v. A plain
// object is used as a prebuilt instance, nil injects null.
func Substitute(id string, v any) RuleOption {
	return func(r *Rule) {
		subs := map[string]Value{}
		if r.Substitutions.Set {
			subs = r.Substitutions.V
		}
		subs[Normalize(id)] = asInstance(v)
		r.Substitutions = set(subs)
	}
}

// ShareInstances makes the listed identifiers request scoped: they are
// built once per top-level request and shared by every object below the
// rule's owner.
func ShareInstances(ids ...string) RuleOption {
	return func(r *Rule) {
		var out []string
		if r.ShareInstances.Set {
			out = r.ShareInstances.V
		}
		r.ShareInstances = set(appendUnique(out, ids...))
	}
}

// CallMethod schedules a method call on every new instance, in declaration
// order. Arguments follow the same conventions as [ConstructParams].
func CallMethod(method string, args ...any) RuleOption {
	return func(r *Rule) {
		vals := make([]Value, len(args))
		for i, a := range args {
			vals[i] = asLiteral(a)
		}
		var calls []Call
		if r.Calls.Set {
			calls = r.Calls.V
		}
		r.Calls = set(append(calls, Call{Method: method, Args: vals}))
	}
}

// Inherit controls whether a rule registered for a type also governs its
// descendants. Rules inherit by default.
func Inherit(inherit bool) RuleOption {
	return func(r *Rule) { r.Inherit = set(inherit) }
}

// merge overlays specific on base. Scalars set in specific win; lists are
// merged by index, maps by key and sets by union, with specific entries
// winning on collision.
func merge(base, specific Rule) Rule {
	out := base.clone()
	if specific.Shared.Set {
		out.Shared = specific.Shared
	}
	if specific.InstanceOf.Set {
		out.InstanceOf = specific.InstanceOf
	}
	if specific.Inherit.Set {
		out.Inherit = specific.Inherit
	}
	if specific.ConstructParams.Set {
		out.ConstructParams = set(overlay(out.ConstructParams.V, specific.ConstructParams.V))
	}
	if specific.Calls.Set {
		out.Calls = set(overlay(out.Calls.V, specific.Calls.V))
	}
	if specific.Substitutions.Set {
		subs := make(map[string]Value, len(out.Substitutions.V)+len(specific.Substitutions.V))
		maps.Copy(subs, out.Substitutions.V)
		maps.Copy(subs, specific.Substitutions.V)
		out.Substitutions = set(subs)
	}
	if specific.ShareInstances.Set {
		out.ShareInstances = set(appendUnique(slices.Clone(out.ShareInstances.V), specific.ShareInstances.V...))
	}
	return out
}

func (r Rule) clone() Rule {
	out := r
	out.ConstructParams.V = slices.Clone(r.ConstructParams.V)
	out.ShareInstances.V = slices.Clone(r.ShareInstances.V)
	out.Substitutions.V = maps.Clone(r.Substitutions.V)
	if r.Calls.V != nil {
		out.Calls.V = make([]Call, len(r.Calls.V))
		for i, c := range r.Calls.V {
			out.Calls.V[i] = Call{Method: c.Method, Args: slices.Clone(c.Args)}
		}
	}
	return out
}

func overlay[T any](base, specific []T) []T {
	out := slices.Clone(base)
	for i, v := range specific {
		if i < len(out) {
			out[i] = v
		} else {
			out = append(out, v)
		}
	}
	return out
}

func appendUnique(dst []string, ids ...string) []string {
	for _, id := range ids {
		id = Normalize(id)
		if !slices.Contains(dst, id) {
			dst = append(dst, id)
		}
	}
	return dst
}

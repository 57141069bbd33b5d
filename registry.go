package grove

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Registry is a [TypeIntrospector] backed by constructor functions. A
// constructor has the signature func(deps...) T or func(deps...) (T, error);
// its parameters are the dependencies of T.
//
// Pointer-to-struct types that appear as parameters but have no registered
// constructor are built with their zero value.
type Registry struct {
	types map[string]*typeInfo
	// order records when each type became known; interface ancestors are
	// reported in this order.
	order []string
}

type typeInfo struct {
	id       string
	typ      reflect.Type
	ctor     reflect.Value
	names    []string
	defaults map[int]any
	nullable map[int]bool

	// name is the short form of id used in messages, e.g. "*app.Mailer".
	name string
}

// ProvideOption adds parameter metadata that Go does not keep at runtime.
type ProvideOption func(*typeInfo)

// WithParamNames names the constructor parameters, in order. Names only
// appear in error messages.
func WithParamNames(names ...string) ProvideOption {
	return func(ti *typeInfo) { ti.names = names }
}

// WithDefault gives parameter index a default value, used when no rule,
// argument or dependency supplies one.
func WithDefault(index int, v any) ProvideOption {
	return func(ti *typeInfo) { ti.defaults[index] = v }
}

// WithNullable allows parameter index to receive nil (its zero value) when
// nothing else supplies it.
func WithNullable(index int) ProvideOption {
	return func(ti *typeInfo) { ti.nullable[index] = true }
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*typeInfo)}
}

// ID returns the identifier of type T as used by [Registry]: the import
// path and name of the type without pointer indirections, e.g.
// "example.com/app.Mailer" for *app.Mailer. Types that have no name, such
// as slices or funcs, use their Go syntax.
func ID[T any]() string {
	return typeID(reflect.TypeOf((*T)(nil)).Elem())
}

func typeID(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Declare makes T known to r without a constructor and returns its
// identifier. Declaring interfaces lets rules registered for them govern
// the types that implement them.
func Declare[T any](r *Registry) string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.learn(t)
	return typeID(t)
}

// Provide registers a constructor under the identifier of its return type.
func (r *Registry) Provide(constructor any, opts ...ProvideOption) error {
	return r.provide("", constructor, opts...)
}

// ProvideAs registers a constructor under an explicit identifier.
func (r *Registry) ProvideAs(id string, constructor any, opts ...ProvideOption) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("identifier cannot be empty")
	}
	if IsVirtual(id) || Normalize(id) == Wildcard {
		return fmt.Errorf("identifier %q is reserved for rules", id)
	}
	return r.provide(id, constructor, opts...)
}

func (r *Registry) provide(id string, constructor any, opts ...ProvideOption) error {
	if constructor == nil {
		return errors.New("constructor must be a function")
	}
	val := reflect.ValueOf(constructor)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return errors.New("constructor must be a function")
	}
	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return errors.New("constructor must return (T) or (T, error)")
	}
	if typ.NumOut() == 2 && !typ.Out(1).Implements(errorType) {
		return errors.New("second return value must implement error")
	}

	out := typ.Out(0)
	name := id
	if id == "" {
		id, name = typeID(out), out.String()
	}
	key := Normalize(id)

	ti, ok := r.types[key]
	if ok && ti.ctor.IsValid() {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, id)
	}
	if !ok {
		ti = &typeInfo{id: id}
		r.types[key] = ti
		r.order = append(r.order, key)
	}
	ti.name = name
	ti.typ = out
	ti.ctor = val
	ti.defaults = make(map[int]any)
	ti.nullable = make(map[int]bool)
	for _, opt := range opts {
		opt(ti)
	}

	for i := 0; i < typ.NumIn(); i++ {
		r.learn(typ.In(i))
	}
	return nil
}

// learn records an object type seen as a parameter so that it can be
// created and matched by identifier later.
func (r *Registry) learn(t reflect.Type) {
	if !isObject(t) {
		return
	}
	key := Normalize(typeID(t))
	if _, ok := r.types[key]; ok {
		return
	}
	r.types[key] = &typeInfo{id: typeID(t), name: t.String(), typ: t}
	r.order = append(r.order, key)
}

func (r *Registry) lookup(id string) (*typeInfo, error) {
	ti, ok := r.types[Normalize(id)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %s", ErrConstruction, id)
	}
	return ti, nil
}

// Known implements [TypeIntrospector].
func (r *Registry) Known(id string) bool {
	_, ok := r.types[Normalize(id)]
	return ok
}

// Parameters implements [TypeIntrospector].
func (r *Registry) Parameters(id string) ([]Param, error) {
	ti, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if !ti.ctor.IsValid() {
		if isStructPointer(ti.typ) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s has no constructor", ErrConstruction, ti.name)
	}

	fnType := ti.ctor.Type()
	params := make([]Param, fnType.NumIn())
	for i := range params {
		t := fnType.In(i)
		p := Param{Nullable: nillable(t) || ti.nullable[i]}
		if i < len(ti.names) {
			p.Name = ti.names[i]
		}
		if isObject(t) {
			p.Type = typeID(t)
		}
		if d, ok := ti.defaults[i]; ok {
			p.HasDefault, p.Default = true, d
		}
		p.Accepts = acceptor(t, p.Nullable)
		params[i] = p
	}
	return params, nil
}

// Ancestors implements [TypeIntrospector]. Embedded struct types come first,
// breadth-first, followed by every known interface the type implements.
func (r *Registry) Ancestors(id string) ([]string, error) {
	ti, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	var out []string
	seen := map[reflect.Type]bool{}

	queue := []reflect.Type{ti.typ}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			continue
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.Anonymous || seen[f.Type] {
				continue
			}
			seen[f.Type] = true
			base := f.Type
			if base.Kind() == reflect.Pointer {
				base = base.Elem()
			}
			if base.Kind() == reflect.Struct {
				out = append(out, typeID(f.Type))
				queue = append(queue, f.Type)
			}
		}
	}

	for _, key := range r.order {
		it := r.types[key].typ
		if it == nil || it.Kind() != reflect.Interface || it == ti.typ {
			continue
		}
		if ti.typ.Implements(it) {
			out = append(out, r.types[key].id)
		}
	}
	return out, nil
}

// Instantiate implements [TypeIntrospector].
func (r *Registry) Instantiate(id string, args []any) (any, error) {
	ti, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if !ti.ctor.IsValid() {
		if isStructPointer(ti.typ) {
			return reflect.New(ti.typ.Elem()).Interface(), nil
		}
		return nil, fmt.Errorf("%w: %s has no constructor", ErrConstruction, ti.name)
	}

	fnType := ti.ctor.Type()
	if len(args) != fnType.NumIn() {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrConstruction, ti.name, fnType.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v, err := fit(a, fnType.In(i))
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %v", ErrConstruction, ti.name, i, err)
		}
		in[i] = v
	}

	var results []reflect.Value
	if fnType.IsVariadic() {
		results = ti.ctor.CallSlice(in)
	} else {
		results = ti.ctor.Call(in)
	}
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// Forward implements [TypeIntrospector]. Only pointer-to-struct types can
// be forwarded: the handle is a zero value that Bind overwrites.
//
// Bind copies the finished struct into the handle by value and the handle
// becomes the shared instance. The pointer the constructor returned is
// dropped, so a pointer the constructor kept to its own result (a self
// field, a registration in some global table) does not refer to the
// cached instance. Types holding a sync.Mutex or other values that must
// not be copied should not take part in cycles.
func (r *Registry) Forward(id string) (Forward, bool) {
	ti, err := r.lookup(id)
	if err != nil || !isStructPointer(ti.typ) {
		return nil, false
	}
	return &structForward{handle: reflect.New(ti.typ.Elem())}, true
}

// Invoke implements [TypeIntrospector]. A non-nil error returned as the
// method's last result is reported; other results are discarded.
func (r *Registry) Invoke(instance any, method string, args []any) error {
	m := reflect.ValueOf(instance).MethodByName(method)
	if !m.IsValid() {
		return fmt.Errorf("%w: %T has no method %s", ErrConstruction, instance, method)
	}
	mt := m.Type()

	fixed := mt.NumIn()
	if mt.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!mt.IsVariadic() && len(args) != fixed) {
		return fmt.Errorf("%w: %T.%s takes %d arguments, got %d", ErrConstruction, instance, method, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		t := mt.In(min(i, mt.NumIn()-1))
		if mt.IsVariadic() && i >= fixed {
			t = t.Elem()
		}
		v, err := fit(a, t)
		if err != nil {
			return fmt.Errorf("%w: %T.%s argument %d: %v", ErrConstruction, instance, method, i, err)
		}
		in[i] = v
	}

	results := m.Call(in)
	if n := len(results); n > 0 && mt.Out(n-1).Implements(errorType) && !results[n-1].IsNil() {
		return results[n-1].Interface().(error)
	}
	return nil
}

// structForward is a zero value of the forwarded struct; Bind fills it
// with a shallow copy of the built one.
type structForward struct {
	handle reflect.Value
}

func (f *structForward) Handle() any { return f.handle.Interface() }

func (f *structForward) Bind(instance any) error {
	v := reflect.ValueOf(instance)
	if !v.IsValid() || v.Type() != f.handle.Type() || v.IsNil() {
		return fmt.Errorf("%w: cannot bind %T to forward handle of type %s", ErrConstruction, instance, f.handle.Type())
	}
	f.handle.Elem().Set(v.Elem())
	return nil
}

// ---------------------------------------------------------------------------
// reflect helpers
// ---------------------------------------------------------------------------

// isObject reports whether t is matched by type rather than position:
// pointers to structs and non-empty interfaces.
func isObject(t reflect.Type) bool {
	return isStructPointer(t) || (t.Kind() == reflect.Interface && t.NumMethod() > 0)
}

func isStructPointer(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func acceptor(t reflect.Type, nullable bool) func(any) bool {
	return func(v any) bool {
		if v == nil {
			return nullable
		}
		vt := reflect.TypeOf(v)
		return vt.AssignableTo(t) || scalarConvertible(vt, t)
	}
}

// scalarConvertible limits conversions to same-family scalars so that, for
// example, an int is never turned into a string.
func scalarConvertible(from, to reflect.Type) bool {
	switch {
	case isNumeric(from.Kind()) && isNumeric(to.Kind()):
		return true
	case from.Kind() == reflect.String && to.Kind() == reflect.String:
		return true
	case from.Kind() == reflect.Bool && to.Kind() == reflect.Bool:
		return true
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}

func fit(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if scalarConvertible(rv.Type(), t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), t)
}

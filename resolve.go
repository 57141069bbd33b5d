package grove

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Generic helpers
// ---------------------------------------------------------------------------

// Resolve is a generic helper that creates id and converts the result:
//
//	db, err := grove.Resolve[*Database](c, "$Primary")
func Resolve[T any](c *Container, id string, args ...any) (T, error) {
	var zero T

	v, err := c.Create(id, args...)
	if err != nil {
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s: cannot convert %T to %s", id, v, ID[T]())
	}
	return out, nil
}

// Make is Resolve for the identifier of T itself:
//
//	svc, err := grove.Make[*UserService](c)
func Make[T any](c *Container, args ...any) (T, error) {
	return Resolve[T](c, ID[T](), args...)
}

// ---------------------------------------------------------------------------
// Internal
// ---------------------------------------------------------------------------

// create builds one instance of id. share is the set of request-scoped
// identifiers declared by the rules above this point in the graph.
func (c *Container) create(id string, args []any, forceNew bool, req *request, share []string) (any, error) {
	key := Normalize(id)
	rule := c.rule(key)
	shared := rule.IsShared() && !forceNew

	lifetime := Transient
	switch {
	case shared:
		lifetime = Singleton
	case req.scoped == key:
		lifetime = RequestScoped
	}
	req.scoped = ""

	if shared {
		if inst, ok := c.singletons.get(key); ok {
			c.observer.Reused(key, Singleton)
			return inst, nil
		}
		if p, ok := c.inflight[key]; ok {
			return c.forward(key, rule, p)
		}
	}

	if err := req.push(key, len(args) > 0, shared); err != nil {
		return nil, err
	}
	defer req.pop()

	if rule.ShareInstances.Set {
		share = appendUnique(slices.Clone(share), rule.ShareInstances.V...)
	}
	outer := req.share
	req.share = share
	defer func() { req.share = outer }()

	var p *inflight
	if shared {
		p = &inflight{}
		c.inflight[key] = p
		defer delete(c.inflight, key)
	}

	inst, err := c.build(key, rule, args, req, share)
	if err != nil {
		return nil, err
	}

	if shared {
		if p.forward != nil {
			if err := p.forward.Bind(inst); err != nil {
				return nil, err
			}
			inst = p.forward.Handle()
		}
		c.singletons.put(key, inst)
		req.singletons = append(req.singletons, key)
	}

	if rule.Calls.Set {
		for _, call := range rule.Calls.V {
			if err := c.invoke(inst, call, req, share); err != nil {
				return nil, fmt.Errorf("calling %s on %s: %w", call.Method, key, err)
			}
		}
	}

	c.observer.Constructed(key, lifetime)
	c.log.Debug("constructed", zap.String("id", key), zap.Stringer("lifetime", lifetime))
	return inst, nil
}

// forward returns the handle standing in for a singleton that is still
// being built further up the stack.
func (c *Container) forward(key string, rule Rule, p *inflight) (any, error) {
	if p.forward == nil {
		target := key
		if rule.InstanceOf.Set {
			// empty for factories, which cannot be forwarded
			target = rule.InstanceOf.V.ID
		}
		var fw Forward
		ok := false
		if target != "" {
			fw, ok = c.introspector.Forward(target)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s is under construction and cannot be referenced before it is built", ErrCircularDependency, key)
		}
		p.forward = fw
		c.log.Debug("forward handle issued", zap.String("id", key))
	}
	return p.forward.Handle(), nil
}

// build resolves the constructor arguments of the rule's target and calls
// it, or runs the rule's factory.
func (c *Container) build(key string, rule Rule, args []any, req *request, share []string) (any, error) {
	target := key
	if rule.InstanceOf.Set {
		if f := rule.InstanceOf.V.Factory; f != nil {
			inst, err := f(c)
			if err != nil {
				return nil, fmt.Errorf("factory for %s: %w", key, err)
			}
			return inst, nil
		}
		target = rule.InstanceOf.V.ID
	}

	switch {
	case IsVirtual(target) && target == key:
		return nil, fmt.Errorf("%w: %s has no instance-of target", ErrConfiguration, key)
	case IsVirtual(target):
		return nil, fmt.Errorf("%w: %s is an instance of virtual %s", ErrConfiguration, key, target)
	case !c.introspector.Known(target) && target != key:
		return nil, fmt.Errorf("%w: %s is an instance of unknown type %s", ErrConfiguration, key, target)
	case !c.introspector.Known(target):
		return nil, fmt.Errorf("%w: unknown type %s", ErrConstruction, key)
	}

	params, err := c.introspector.Parameters(target)
	if err != nil {
		return nil, err
	}

	values, err := c.resolveParams(target, params, rule, args, req, share)
	if err != nil {
		return nil, err
	}

	inst, err := c.introspector.Instantiate(target, values)
	if err != nil {
		return nil, fmt.Errorf("constructing %s: %w", target, err)
	}
	return inst, nil
}

// resolveParams picks a value for every parameter, in order: a matching
// call-site argument or construct param, a substitution, a request-scoped
// instance, a newly created dependency, the default, nil.
func (c *Container) resolveParams(target string, params []Param, rule Rule, args []any, req *request, share []string) ([]any, error) {
	pool := newArgPool(args)
	if rule.ConstructParams.Set {
		for _, v := range rule.ConstructParams.V {
			x, err := c.value(v, req, share)
			if err != nil {
				return nil, err
			}
			pool.add(x)
		}
	}

	out := make([]any, len(params))
	for i, p := range params {
		if v, ok := pool.take(p); ok {
			out[i] = v
			continue
		}

		if p.Type != "" {
			v, err := c.dependency(p, rule, req, share)
			if err != nil {
				return nil, fmt.Errorf("resolving %s: %w", p.Type, err)
			}
			out[i] = v
			continue
		}

		switch {
		case p.HasDefault:
			out[i] = p.Default
		case p.Nullable:
			out[i] = nil
		default:
			return nil, &ParameterError{Type: target, Index: i, Name: p.Name}
		}
	}
	return out, nil
}

// dependency resolves an object-typed parameter that no argument matched.
func (c *Container) dependency(p Param, rule Rule, req *request, share []string) (any, error) {
	if sub, ok := rule.Substitution(p.Type); ok {
		return c.value(sub, req, share)
	}

	if sid, ok := c.sharedFor(p.Type, share); ok {
		return c.scoped(sid, req, share)
	}

	if p.HasDefault && !c.buildable(p.Type) {
		return p.Default, nil
	}
	return c.create(p.Type, nil, false, req, share)
}

// scoped returns the request's instance of sid, building it on first use.
func (c *Container) scoped(sid string, req *request, share []string) (any, error) {
	if inst, ok := req.shared[sid]; ok {
		c.observer.Reused(sid, RequestScoped)
		return inst, nil
	}
	req.scoped = sid
	inst, err := c.create(sid, nil, false, req, share)
	if err != nil {
		return nil, err
	}
	req.shared[sid] = inst
	return inst, nil
}

// join serves a Create call made by a factory or callback while req is
// being built. It sees the request map and construction stack of req, so
// request-scoped instances stay shared and cycles through the factory are
// still detected.
func (c *Container) join(id string, args []any, forceNew bool, req *request) (any, error) {
	if len(args) == 0 && !forceNew {
		if sid, ok := c.sharedFor(id, req.share); ok {
			return c.scoped(sid, req, req.share)
		}
	}
	return c.create(id, args, forceNew, req, req.share)
}

// sharedFor returns the request-scoped identifier that satisfies the
// declared type: the type itself, or an identifier whose concrete type is
// the declared type or descends from it.
func (c *Container) sharedFor(declared string, share []string) (string, bool) {
	declared = Normalize(declared)
	for _, sid := range share {
		if sid == declared {
			return sid, true
		}
	}
	for _, sid := range share {
		r := c.rule(sid)
		if !r.InstanceOf.Set || r.InstanceOf.V.ID == "" {
			continue
		}
		concrete := r.InstanceOf.V.ID
		if concrete == declared {
			return sid, true
		}
		for _, a := range c.ancestors(concrete) {
			if Normalize(a) == declared {
				return sid, true
			}
		}
	}
	return "", false
}

// buildable reports whether create(id) has a way to build an instance.
func (c *Container) buildable(id string) bool {
	if r := c.rule(id); r.InstanceOf.Set {
		return true
	}
	if !c.introspector.Known(id) {
		return false
	}
	_, err := c.introspector.Parameters(id)
	return err == nil
}

// value resolves a Value to the object it describes.
func (c *Container) value(v Value, req *request, share []string) (any, error) {
	switch v.kind {
	case nullValue:
		return nil, nil
	case refValue:
		if !IsVirtual(v.ref) && !c.buildable(v.ref) {
			return nil, fmt.Errorf("%w: reference to unknown identifier %s", ErrConfiguration, v.ref)
		}
		return c.create(v.ref, nil, false, req, share)
	case callbackValue:
		if v.fn == nil {
			return nil, nil
		}
		return v.fn()
	default:
		return v.v, nil
	}
}

func (c *Container) invoke(inst any, call Call, req *request, share []string) error {
	args := make([]any, len(call.Args))
	for i, a := range call.Args {
		v, err := c.value(a, req, share)
		if err != nil {
			return err
		}
		args[i] = v
	}
	return c.introspector.Invoke(inst, call.Method, args)
}

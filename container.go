package grove

import (
	"go.uber.org/zap"
)

// Container builds object graphs from rules and constructor introspection.
// Use [New] to create one.
//
// A Container performs no locking. Create may be called re-entrantly from
// factories and callbacks on the same goroutine; such calls become part of
// the request being built. Concurrent calls to Create, CreateNew, AddRule
// or Forget must be serialised by the caller.
type Container struct {
	rules        *ruleStore
	introspector TypeIntrospector
	singletons   *instanceCache

	// inflight holds the singletons whose constructors are running.
	inflight map[string]*inflight

	// active is the top-level request being built, nil between calls.
	active *request

	log      *zap.Logger
	observer Observer
}

// New creates an empty [Container] that describes types with ti.
//
//	reg := grove.NewRegistry()
//	reg.Provide(NewMailer)
//	c := grove.New(reg)
func New(ti TypeIntrospector, opts ...Option) *Container {
	c := &Container{
		rules:        newRuleStore(),
		introspector: ti,
		singletons:   newInstanceCache(),
		inflight:     make(map[string]*inflight),
		log:          zap.NewNop(),
		observer:     nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddRule merges the given fields into the rule stored under id. Fields
// that are not passed keep their current value.
//
//	c.AddRule("*", grove.Shared(true))
//	c.AddRule("$Primary", grove.InstanceOf(grove.ID[*db.Conn]()), grove.ConstructParams("primary:5432"))
func (c *Container) AddRule(id string, opts ...RuleOption) {
	var r Rule
	for _, opt := range opts {
		opt(&r)
	}
	c.rules.add(id, r)
	c.log.Debug("rule added", zap.String("id", Normalize(id)))
}

// GetRule returns the effective rule for id: the wildcard rule, overlaid
// with the rule of the nearest ancestor type, overlaid with the rule
// declared for id. The result is a copy.
func (c *Container) GetRule(id string) Rule {
	return c.rule(id).clone()
}

func (c *Container) rule(id string) Rule {
	return c.rules.effective(id, c.ancestors)
}

func (c *Container) ancestors(id string) []string {
	a, err := c.introspector.Ancestors(id)
	if err != nil {
		return nil
	}
	return a
}

// Create returns an instance for id with all of its dependencies built.
// args are matched against constructor parameters: objects by type in any
// order, scalars by position. They take precedence over the rule's
// construct params and are not passed to nested dependencies.
func (c *Container) Create(id string, args ...any) (any, error) {
	return c.request(id, args, false)
}

// CreateNew is like Create but always builds a new instance for id, even
// when it is shared. The cached singleton, if any, is left untouched.
func (c *Container) CreateNew(id string, args ...any) (any, error) {
	return c.request(id, args, true)
}

// Has reports whether a shared instance is cached for id.
func (c *Container) Has(id string) bool {
	_, ok := c.singletons.get(Normalize(id))
	return ok
}

// Forget drops the shared instance cached for id. The next request builds
// a new one.
func (c *Container) Forget(id string) {
	c.singletons.delete(Normalize(id))
}

func (c *Container) request(id string, args []any, forceNew bool) (any, error) {
	if c.active != nil {
		return c.join(id, args, forceNew, c.active)
	}

	req := newRequest()
	c.active = req
	defer func() { c.active = nil }()

	inst, err := c.create(id, args, forceNew, req, nil)
	if err != nil {
		for _, key := range req.singletons {
			c.singletons.delete(key)
		}
		c.observer.Failed(Normalize(id), err)
		c.log.Debug("create failed", zap.String("id", Normalize(id)), zap.Error(err))
		return nil, err
	}
	return inst, nil
}

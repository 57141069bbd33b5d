// Package grove builds fully wired object graphs from constructor
// signatures and a small table of rules.
//
// Constructors are registered with a [Registry], which describes their
// parameters through reflection. A [Container] walks those descriptions,
// creating every object-typed dependency by its type, and consults rules
// only where the defaults are not enough.
//
// # Quick Start
//
//	reg := grove.NewRegistry()
//	reg.Provide(NewLogger)
//	reg.Provide(NewDatabase)
//
//	c := grove.New(reg)
//	db, err := grove.Make[*Database](c)
//
// # Identifiers
//
// Types are named by [ID]: the import path and name of the type without
// pointers, e.g. "example.com/app.Logger" for *app.Logger. Matching is case-insensitive and leading `\` or `/` are ignored. "*" is
// the wildcard rule, applied beneath every other rule. Names beginning with
// "$" or wrapped in brackets ("[Primary]") are virtual: they exist only as
// rules and must say which type they build with [InstanceOf].
//
// # Rules
//
//	c.AddRule("*", grove.Shared(true)) // every object is a singleton
//	c.AddRule(grove.ID[*app.Mailer](), grove.ConstructParams("smtp.local", 25))
//	c.AddRule(grove.ID[*app.Store](), grove.Substitute(grove.ID[app.Cache](), grove.Ref("$Redis")))
//	c.AddRule("$Redis", grove.InstanceOf(grove.ID[*app.RedisCache]()), grove.Shared(true))
//	c.AddRule(grove.ID[*app.Handler](), grove.ShareInstances(grove.ID[*app.Tx]()))
//	c.AddRule(grove.ID[*app.Server](), grove.CallMethod("Listen", ":8080"))
//
// A rule registered for an embedded struct type or for an interface also
// governs the types that embed or implement it, unless they have a rule of
// their own; fields of the more specific rule win.
//
// # Lifetimes
//
// [Transient] (default): a new instance for every dependent.
//
// [Singleton]: selected by [Shared]; one instance per identifier for the
// life of the container.
//
// [RequestScoped]: selected by [ShareInstances]; one instance per
// top-level [Container.Create] call, shared by every object beneath the
// rule that declared it. Create calls made by factories and callbacks
// while a request is being built belong to that request.
//
// # Arguments
//
// Arguments passed to [Container.Create] are matched to constructor
// parameters: objects by type regardless of their position, scalars in
// order. They take precedence over the rule's [ConstructParams] and only
// apply to the requested object, never to its dependencies.
//
// # Cycles
//
// A cycle is legal when at least one member is shared. While a shared
// object is being built, objects that depend on it receive a forward handle
// that is filled in when its constructor returns, so every reference ends
// up pointing at the same instance. Only pointer-to-struct types can be
// forwarded, and the finished struct is copied into the handle, so a
// pointer the constructor kept to its own result is not the shared
// instance. Cycles without a shared member fail with
// [ErrCircularDependency].
package grove

package grove

// Lifetime describes how long an instance produced by the container lives.
type Lifetime int

const (
	// Transient means a new instance is built on every request for it. This
	// is the default when no rule marks an identifier as shared.
	Transient Lifetime = iota

	// Singleton instances are built once per identifier and cached for the
	// lifetime of the container. Selected with [Shared].
	Singleton

	// RequestScoped instances are built once per top-level [Container.Create]
	// call and shared by every dependent inside that call. Selected with
	// [ShareInstances].
	RequestScoped
)

// String returns the human-readable name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	case RequestScoped:
		return "request"
	default:
		return "unknown"
	}
}

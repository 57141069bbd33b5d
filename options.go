package grove

import "go.uber.org/zap"

// Option configures a [Container] at creation.
type Option func(*Container)

// WithLogger sets the logger used for debug output about constructions,
// cache reuse and forward handles. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.log = l
		}
	}
}

// WithObserver registers o to be notified of constructions, reuses and
// failed requests.
func WithObserver(o Observer) Option {
	return func(c *Container) {
		if o != nil {
			c.observer = o
		}
	}
}

// Observer receives container events. Implementations must not call back
// into the container. See the metrics package for a Prometheus
// implementation.
type Observer interface {
	// Constructed is called after a new instance has been built.
	Constructed(id string, l Lifetime)
	// Reused is called when a cached instance is returned.
	Reused(id string, l Lifetime)
	// Failed is called once per failed top-level request.
	Failed(id string, err error)
}

type nopObserver struct{}

func (nopObserver) Constructed(string, Lifetime) {}
func (nopObserver) Reused(string, Lifetime)      {}
func (nopObserver) Failed(string, error)         {}

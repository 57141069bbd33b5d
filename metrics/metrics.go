// Package metrics exposes container activity as Prometheus counters.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ARTM2000/grove"
)

var _ grove.Observer = (*Collector)(nil)

// Collector holds the Prometheus metrics of one container. It implements
// [grove.Observer]:
//
//	m := metrics.NewCollector("app")
//	c := grove.New(reg, grove.WithObserver(m))
//	http.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	constructed *prometheus.CounterVec
	reused      *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewCollector creates a collector whose metrics live under namespace on
// a private registry, so several containers never collide.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	constructed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "instances_constructed_total",
			Help:      "Total number of instances built by the container",
		},
		[]string{"identifier", "lifetime"},
	)

	reused := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "instances_reused_total",
			Help:      "Total number of cached instances handed out again",
		},
		[]string{"identifier", "lifetime"},
	)

	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "create_failures_total",
			Help:      "Total number of failed top-level create requests",
		},
		[]string{"identifier", "reason"},
	)

	registry.MustRegister(constructed, reused, failures)

	return &Collector{
		registry:    registry,
		constructed: constructed,
		reused:      reused,
		failures:    failures,
	}
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Constructed implements [grove.Observer].
func (c *Collector) Constructed(id string, l grove.Lifetime) {
	c.constructed.WithLabelValues(id, l.String()).Inc()
}

// Reused implements [grove.Observer].
func (c *Collector) Reused(id string, l grove.Lifetime) {
	c.reused.WithLabelValues(id, l.String()).Inc()
}

// Failed implements [grove.Observer].
func (c *Collector) Failed(id string, err error) {
	c.failures.WithLabelValues(id, Reason(err)).Inc()
}

// Reason maps a container error to a short label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, grove.ErrCircularDependency):
		return "circular_dependency"
	case errors.Is(err, grove.ErrUnresolvableParameter):
		return "unresolvable_parameter"
	case errors.Is(err, grove.ErrConfiguration):
		return "configuration"
	case errors.Is(err, grove.ErrConstruction):
		return "construction"
	default:
		return "other"
	}
}

// Package metric provides Prometheus metrics for the flow-control core.
//
// Components keep their own statistics unconditionally; this package is the
// optional export surface. A Registry owns a private Prometheus registry so
// independent graph runs never collide on metric names.
package metric

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/streamflow/errors"
)

// Metrics contains the core flow metrics shared by all nodes in a run.
type Metrics struct {
	// PacketsForwarded counts packets emitted downstream, by node and stream.
	PacketsForwarded *prometheus.CounterVec
	// PacketsDropped counts backpressure drops, by node and reason.
	PacketsDropped *prometheus.CounterVec
	// InFlight tracks timestamps released but not yet finished, by node.
	InFlight *prometheus.GaugeVec
	// GateStateChanges counts allow/disallow transitions, by node.
	GateStateChanges *prometheus.CounterVec
	// PoolLookups counts resource pool lookups, by pool and result.
	PoolLookups *prometheus.CounterVec
	// PoolEvictions counts resource pool evictions, by pool.
	PoolEvictions *prometheus.CounterVec
}

// NewMetrics creates the core metric vectors.
func NewMetrics() *Metrics {
	return &Metrics{
		PacketsForwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streamflow",
				Subsystem: "packets",
				Name:      "forwarded_total",
				Help:      "Total number of packets forwarded downstream",
			},
			[]string{"node", "stream"},
		),
		PacketsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streamflow",
				Subsystem: "packets",
				Name:      "dropped_total",
				Help:      "Total number of packets dropped by backpressure policy",
			},
			[]string{"node", "reason"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "streamflow",
				Subsystem: "limiter",
				Name:      "in_flight",
				Help:      "Timestamps released downstream but not yet finished",
			},
			[]string{"node"},
		),
		GateStateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streamflow",
				Subsystem: "gate",
				Name:      "state_changes_total",
				Help:      "Total number of allow/disallow transitions",
			},
			[]string{"node"},
		),
		PoolLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streamflow",
				Subsystem: "pool",
				Name:      "lookups_total",
				Help:      "Total number of resource pool lookups",
			},
			[]string{"pool", "result"},
		),
		PoolEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streamflow",
				Subsystem: "pool",
				Name:      "evictions_total",
				Help:      "Total number of resource pool evictions",
			},
			[]string{"pool"},
		),
	}
}

// Registry manages metric registration for one graph run.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Core               *Metrics
	registered         map[string]prometheus.Collector
	mu                 sync.Mutex
}

// NewRegistry creates a registry with the core flow metrics and Go runtime
// collectors registered.
func NewRegistry() *Registry {
	promReg := prometheus.NewRegistry()

	r := &Registry{
		prometheusRegistry: promReg,
		Core:               NewMetrics(),
		registered:         make(map[string]prometheus.Collector),
	}

	promReg.MustRegister(
		r.Core.PacketsForwarded,
		r.Core.PacketsDropped,
		r.Core.InFlight,
		r.Core.GateStateChanges,
		r.Core.PoolLookups,
		r.Core.PoolEvictions,
	)

	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry for scraping.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Register adds a component-specific collector under a unique name.
func (r *Registry) Register(name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registered[name]; exists {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register",
			fmt.Sprintf("collector %q already registered", name))
	}
	if err := r.prometheusRegistry.Register(c); err != nil {
		return errors.WrapTransient(err, "Registry", "Register", "prometheus registration")
	}
	r.registered[name] = c
	return nil
}

// Unregister removes a previously registered collector.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.registered[name]
	if !exists {
		return false
	}
	delete(r.registered, name)
	return r.prometheusRegistry.Unregister(c)
}

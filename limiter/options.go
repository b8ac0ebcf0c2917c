package limiter

import (
	"github.com/c360/streamflow/metric"
)

// Option configures limiter behavior using the functional options pattern.
type Option func(*limiterOptions)

type limiterOptions struct {
	// metricsReg is optional - if provided, forwarded/dropped/in-flight
	// counts are also exposed as Prometheus metrics
	metricsReg *metric.Registry

	// metricsName is used as the node label for Prometheus metrics
	metricsName string
}

// WithMetrics enables Prometheus metrics export for limiter decisions.
// If registry is nil, this option is ignored.
func WithMetrics(registry *metric.Registry, name string) Option {
	return func(opts *limiterOptions) {
		if registry != nil && name != "" {
			opts.metricsReg = registry
			opts.metricsName = name
		}
	}
}

func applyOptions(options ...Option) *limiterOptions {
	opts := &limiterOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}

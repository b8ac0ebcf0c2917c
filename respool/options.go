package respool

import (
	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/metric"
	"github.com/c360/streamflow/pkg/retry"
)

// Option configures pool behavior using the functional options pattern.
type Option[K comparable, V any] func(*poolOptions[K, V])

type poolOptions[K comparable, V any] struct {
	// metricsReg is optional - if provided, lookup and eviction counts are
	// also exposed as Prometheus metrics
	metricsReg  *metric.Registry
	metricsName string

	// onEvict runs for every evicted resource, before Evict returns it
	onEvict func(key K, value V)

	// retryCfg, when set, retries transient create failures with backoff
	retryCfg *retry.Config
}

// WithMetrics enables Prometheus metrics export for pool activity.
// If registry is nil, this option is ignored.
func WithMetrics[K comparable, V any](registry *metric.Registry, name string) Option[K, V] {
	return func(opts *poolOptions[K, V]) {
		if registry != nil && name != "" {
			opts.metricsReg = registry
			opts.metricsName = name
		}
	}
}

// WithEvictionCallback runs fn for every resource removed by Evict, before
// the resource is returned for disposal. The callback runs under the pool
// lock and must not call back into the pool.
func WithEvictionCallback[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(opts *poolOptions[K, V]) {
		opts.onEvict = fn
	}
}

// WithCreateRetry retries transient create failures with exponential
// backoff before Lookup gives up and leaves the entry unset.
func WithCreateRetry[K comparable, V any](cfg retry.Config) Option[K, V] {
	return func(opts *poolOptions[K, V]) {
		opts.retryCfg = &cfg
	}
}

// WithCreateRetryPolicy is WithCreateRetry taking the errors package's
// RetryConfig surface, converted through ToRetryConfig.
func WithCreateRetryPolicy[K comparable, V any](cfg errors.RetryConfig) Option[K, V] {
	return func(opts *poolOptions[K, V]) {
		rc := cfg.ToRetryConfig()
		opts.retryCfg = &rc
	}
}

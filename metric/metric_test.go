package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryCoreMetrics(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.Core)

	r.Core.PacketsForwarded.WithLabelValues("limiter", "0").Inc()
	r.Core.PacketsDropped.WithLabelValues("limiter", "queue_full").Add(2)
	r.Core.InFlight.WithLabelValues("limiter").Set(1)

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["streamflow_packets_forwarded_total"])
	assert.True(t, names["streamflow_packets_dropped_total"])
	assert.True(t, names["streamflow_limiter_in_flight"])
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.Core.PacketsForwarded.WithLabelValues("n", "0").Inc()

	bFamilies, err := b.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, f := range bFamilies {
		if f.GetName() == "streamflow_packets_forwarded_total" {
			assert.Empty(t, f.GetMetric())
		}
	}
}

func TestRegisterUnregister(t *testing.T) {
	r := NewRegistry()

	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "custom_counter", Help: "test counter",
	})
	require.NoError(t, r.Register("custom", c))

	// Duplicate names are rejected
	err := r.Register("custom", c)
	assert.Error(t, err)

	assert.True(t, r.Unregister("custom"))
	assert.False(t, r.Unregister("custom"))

	// Re-registering after unregister works
	require.NoError(t, r.Register("custom", c))
}

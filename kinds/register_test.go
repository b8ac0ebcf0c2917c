package kinds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamflow/limiter"
	"github.com/c360/streamflow/node"
)

func TestRegisterAllKinds(t *testing.T) {
	registry := node.NewRegistry()
	require.NoError(t, Register(registry))

	assert.Equal(t, []string{
		"demux", "flow_limiter", "gate", "mux", "realtime_flow_limiter",
	}, registry.Kinds())
}

func TestRegistryBuildsConfiguredNode(t *testing.T) {
	registry := node.NewRegistry()
	require.NoError(t, Register(registry))

	n, err := registry.New("flow_limiter", []byte(`{"max_in_flight": 2}`))
	require.NoError(t, err)
	_, ok := n.(*limiter.FlowLimiter)
	assert.True(t, ok)
}

func TestRegisterNilRegistry(t *testing.T) {
	assert.Error(t, Register(nil))
}

func TestRegisterTwiceFails(t *testing.T) {
	registry := node.NewRegistry()
	require.NoError(t, Register(registry))
	assert.Error(t, Register(registry))
}

package limiter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/streamflow/timestamp"
)

func TestAllowMapStepFunction(t *testing.T) {
	var m allowMap

	// Undecided timestamps disallow
	assert.False(t, m.at(timestamp.FromInt64(1)))

	m.set(timestamp.FromInt64(2), true)
	m.set(timestamp.FromInt64(5), false)
	m.set(timestamp.FromInt64(9), true)

	assert.False(t, m.at(timestamp.FromInt64(1)))
	assert.True(t, m.at(timestamp.FromInt64(2)))
	assert.True(t, m.at(timestamp.FromInt64(4)))
	assert.False(t, m.at(timestamp.FromInt64(5)))
	assert.False(t, m.at(timestamp.FromInt64(8)))
	assert.True(t, m.at(timestamp.FromInt64(9)))
	assert.True(t, m.at(timestamp.Max))
}

func TestAllowMapSetSameTimestampOverwrites(t *testing.T) {
	var m allowMap
	m.set(timestamp.FromInt64(3), true)
	m.set(timestamp.FromInt64(3), false)

	assert.False(t, m.at(timestamp.FromInt64(3)))
	assert.Equal(t, 1, m.len())
}

func TestAllowMapPruneKeepsCoveringEntry(t *testing.T) {
	var m allowMap
	m.set(timestamp.FromInt64(2), true)
	m.set(timestamp.FromInt64(5), false)
	m.set(timestamp.FromInt64(9), true)

	m.prune(timestamp.FromInt64(6))

	// The entry at 5 still covers 6, so it survives; the entry at 2 is dead
	assert.Equal(t, 2, m.len())
	assert.False(t, m.at(timestamp.FromInt64(6)))
	assert.True(t, m.at(timestamp.FromInt64(9)))
}

func TestAllowMapPruneBeforeFirstEntry(t *testing.T) {
	var m allowMap
	m.set(timestamp.FromInt64(5), true)

	m.prune(timestamp.FromInt64(3))
	assert.Equal(t, 1, m.len())
	assert.True(t, m.at(timestamp.FromInt64(5)))
}

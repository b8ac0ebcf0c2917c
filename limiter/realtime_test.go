package limiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/nodetest"
	"github.com/c360/streamflow/packet"
)

func TestRealtimeConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultRealtimeConfig().Validate())

	bad := DefaultRealtimeConfig()
	bad.MaxInFlight = 0
	assert.ErrorIs(t, bad.Validate(), errors.ErrInvalidConfig)

	bad = DefaultRealtimeConfig()
	bad.NumDataStreams = 0
	assert.ErrorIs(t, bad.Validate(), errors.ErrInvalidConfig)
}

func TestNewRealtimeFromOptions(t *testing.T) {
	n, err := NewRealtimeFromOptions([]byte(`{"max_in_flight": 4}`))
	require.NoError(t, err)
	fl, ok := n.(*RealtimeFlowLimiter)
	require.True(t, ok)
	assert.Equal(t, 4, fl.cfg.MaxInFlight)
}

func TestRealtimeLimiterDropsOverLimit(t *testing.T) {
	fl, err := NewRealtime(RealtimeConfig{MaxInFlight: 1, NumDataStreams: 1})
	require.NoError(t, err)

	h, err := nodetest.New(fl, "rt-limiter")
	require.NoError(t, err)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, h.Invoke(ts(i), nodetest.SendIndex("", 0, packet.NewAt(int(i), ts(i)))))
	}

	forwarded := h.Packets("", 0)
	require.Len(t, forwarded, 1)
	assert.Equal(t, ts(1), forwarded[0].Timestamp())
	assert.Equal(t, 1, fl.InFlight())
	assert.False(t, fl.Allow())

	// Bounds keep advancing past the dropped timestamps
	assert.Equal(t, ts(4), h.OutputIndex("", 0).NextTimestampBound())
}

func TestRealtimeLimiterAllowTicksOnTransitions(t *testing.T) {
	fl, err := NewRealtime(RealtimeConfig{MaxInFlight: 1, NumDataStreams: 1})
	require.NoError(t, err)

	h, err := nodetest.New(fl, "rt-limiter")
	require.NoError(t, err)

	// Accept fills capacity: one transition to disallow
	require.NoError(t, h.Invoke(ts(1), nodetest.SendIndex("", 0, packet.NewAt("a", ts(1)))))
	// Drop while saturated: no transition
	require.NoError(t, h.Invoke(ts(2), nodetest.SendIndex("", 0, packet.NewAt("b", ts(2)))))
	// Finish frees capacity: one transition back to allow
	require.NoError(t, h.Invoke(ts(3), nodetest.Send(TagFinished, packet.NewAt(true, ts(3)))))

	allow := h.Output(TagAllow).Emitted()
	require.Len(t, allow, 2)

	v, err := allow[0].Bool()
	require.NoError(t, err)
	assert.False(t, v)
	assert.Equal(t, ts(1), allow[0].Timestamp())

	v, err = allow[1].Bool()
	require.NoError(t, err)
	assert.True(t, v)
	// The ALLOW stream runs on its own transition clock, not input time
	assert.Equal(t, ts(2), allow[1].Timestamp())
}

func TestRealtimeLimiterJointAcceptAcrossStreams(t *testing.T) {
	fl, err := NewRealtime(RealtimeConfig{MaxInFlight: 1, NumDataStreams: 2})
	require.NoError(t, err)

	h, err := nodetest.New(fl, "rt-limiter")
	require.NoError(t, err)

	// Stream 0 at timestamp 1 claims the only slot
	require.NoError(t, h.Invoke(ts(1), nodetest.SendIndex("", 0, packet.NewAt("a", ts(1)))))
	assert.Equal(t, 1, fl.InFlight())

	// Stream 1 arrives later at the same timestamp: the unit was already
	// accepted, so it passes despite zero free capacity
	require.NoError(t, h.Invoke(ts(1), nodetest.SendIndex("", 1, packet.NewAt("a2", ts(1)))))
	assert.Equal(t, 1, fl.InFlight())

	require.Len(t, h.Packets("", 0), 1)
	aux := h.Packets("", 1)
	require.Len(t, aux, 1)
	assert.Equal(t, "a2", aux[0].Value())
}

func TestRealtimeLimiterDroppedUnitStaysDropped(t *testing.T) {
	fl, err := NewRealtime(RealtimeConfig{MaxInFlight: 1, NumDataStreams: 2})
	require.NoError(t, err)

	h, err := nodetest.New(fl, "rt-limiter")
	require.NoError(t, err)

	require.NoError(t, h.Invoke(ts(5), nodetest.SendIndex("", 0, packet.NewAt("a", ts(5)))))
	// Dropped while saturated
	require.NoError(t, h.Invoke(ts(6), nodetest.SendIndex("", 0, packet.NewAt("b", ts(6)))))
	// Capacity frees up before stream 1 reaches timestamp 6
	require.NoError(t, h.Invoke(ts(7), nodetest.Send(TagFinished, packet.NewAt(true, ts(7)))))

	// Stream 1's half of the dropped unit must not sneak through
	require.NoError(t, h.Invoke(ts(7), nodetest.SendIndex("", 1, packet.NewAt("b2", ts(6)))))
	assert.Empty(t, h.Packets("", 1))

	// The next fresh timestamp is accepted normally
	require.NoError(t, h.Invoke(ts(8), nodetest.SendIndex("", 1, packet.NewAt("c2", ts(7)))))
	require.Len(t, h.Packets("", 1), 1)
	assert.Equal(t, 1, fl.InFlight())
}

func TestRealtimeLimiterUnexpectedFinishIsFatal(t *testing.T) {
	fl, err := NewRealtime(DefaultRealtimeConfig())
	require.NoError(t, err)

	h, err := nodetest.New(fl, "rt-limiter")
	require.NoError(t, err)

	err = h.Invoke(ts(1), nodetest.Send(TagFinished, packet.NewAt(true, ts(1))))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnexpectedFinish)
	assert.True(t, errors.IsFatal(err))
}

func TestRealtimeLimiterSidePacketOverride(t *testing.T) {
	fl, err := NewRealtime(RealtimeConfig{MaxInFlight: 1, NumDataStreams: 1})
	require.NoError(t, err)

	h, err := nodetest.New(fl, "rt-limiter",
		nodetest.WithSidePacket(SideMaxInFlight, packet.New(3)))
	require.NoError(t, err)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, h.Invoke(ts(i), nodetest.SendIndex("", 0, packet.NewAt(int(i), ts(i)))))
	}
	assert.Len(t, h.Packets("", 0), 3)
	assert.Equal(t, 3, fl.InFlight())
}

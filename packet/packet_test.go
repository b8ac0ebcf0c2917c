package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/timestamp"
)

func TestNewAndAccess(t *testing.T) {
	p := NewAt("frame-1", timestamp.FromInt64(5))

	assert.False(t, p.IsEmpty())
	assert.Equal(t, timestamp.FromInt64(5), p.Timestamp())
	assert.Equal(t, "frame-1", p.Value())

	s, err := As[string](p)
	require.NoError(t, err)
	assert.Equal(t, "frame-1", s)

	// Borrowing does not consume
	assert.False(t, p.IsEmpty())
}

func TestEmptyPacket(t *testing.T) {
	p := Empty()
	assert.True(t, p.IsEmpty())
	assert.Equal(t, timestamp.Unset, p.Timestamp())
	assert.Nil(t, p.Value())

	_, err := As[int](p)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPacketEmpty)

	_, err = Consume[int](p)
	assert.ErrorIs(t, err, errors.ErrPacketEmpty)
}

func TestAtRebindsTimestamp(t *testing.T) {
	p := New(7)
	assert.Equal(t, timestamp.Unset, p.Timestamp())

	q := p.At(timestamp.FromInt64(10))
	assert.Equal(t, timestamp.FromInt64(10), q.Timestamp())
	assert.Equal(t, 7, q.Value())
}

func TestTypeMismatch(t *testing.T) {
	p := New(42)
	_, err := As[string](p)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	// Failed consume due to type mismatch leaves the packet intact
	_, err = Consume[string](p)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	assert.False(t, p.IsEmpty())

	v, err := Consume[int](p)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestConsumeIsOneTime(t *testing.T) {
	p := NewAt([]byte{1, 2, 3}, timestamp.FromInt64(1))

	v, err := Consume[[]byte](p)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v)

	// The packet and every copy of it are now empty
	assert.True(t, p.IsEmpty())

	_, err = Consume[[]byte](p)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPacketConsumed)
}

func TestConsumeFailsWhenShared(t *testing.T) {
	p := New("buffer")
	q := p.Share()
	assert.True(t, p.IsShared())
	assert.True(t, q.IsShared())

	_, err := Consume[string](p)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPacketShared)

	// Both holders can still borrow
	s, err := As[string](q)
	require.NoError(t, err)
	assert.Equal(t, "buffer", s)

	// Releasing the second claim restores exclusivity
	q.Release()
	assert.False(t, p.IsShared())
	v, err := Consume[string](p)
	require.NoError(t, err)
	assert.Equal(t, "buffer", v)
}

func TestBoolIntAccessors(t *testing.T) {
	b, err := NewAt(true, timestamp.FromInt64(1)).Bool()
	require.NoError(t, err)
	assert.True(t, b)

	i, err := NewAt(3, timestamp.FromInt64(1)).Int()
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	_, err = NewAt("nope", timestamp.FromInt64(1)).Bool()
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}

func TestString(t *testing.T) {
	assert.Contains(t, Empty().String(), "empty")
	assert.Contains(t, NewAt(1, timestamp.FromInt64(9)).String(), "@9")
}

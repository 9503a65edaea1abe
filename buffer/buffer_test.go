package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiveBuffer_CompactionMovesUnconsumedBytesToZero(t *testing.T) {
	b := NewGrowable(16, 0)
	copy(b.Free(), []byte{1, 2, 3, 4, 5})
	b.Advance(5)

	// first packet occupies bytes[0:3]; caller marks it consumed
	b.MarkConsumed(3)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, b.Data())

	// next Compact (invoked the way Connection.Receive invokes it, on
	// entry to the next Receive) must shift the trailing 2 bytes to 0
	b.Compact()
	assert.Equal(t, []byte{4, 5}, b.Data())
	assert.Equal(t, 2, b.Len())
}

func TestReceiveBuffer_CompactionNoopWithoutPendingConsume(t *testing.T) {
	b := NewGrowable(16, 0)
	copy(b.Free(), []byte{1, 2, 3})
	b.Advance(3)
	b.Compact()
	assert.Equal(t, []byte{1, 2, 3}, b.Data())
}

func TestReceiveBuffer_GrowClampedBetweenMinAndMax(t *testing.T) {
	b := NewGrowable(8, 0)
	require.NoError(t, b.Grow())
	assert.Equal(t, 8+minGrowth, b.Cap())

	big := NewGrowable(8192, 0)
	require.NoError(t, big.Grow())
	assert.Equal(t, 8192+maxGrowth, big.Cap())
}

func TestReceiveBuffer_GrowRespectsCeiling(t *testing.T) {
	b := NewGrowable(8, 20)
	require.NoError(t, b.Grow())
	assert.Equal(t, 20, b.Cap())

	err := b.Grow()
	assert.ErrorIs(t, err, ErrFixedSize)
}

func TestReceiveBuffer_FixedSizeNeverGrows(t *testing.T) {
	b := NewFixed(8)
	err := b.Grow()
	assert.ErrorIs(t, err, ErrFixedSize)
}

func TestReceiveBuffer_GrowPreservesFilledBytes(t *testing.T) {
	b := NewGrowable(4, 0)
	copy(b.Free(), []byte{9, 8, 7})
	b.Advance(3)
	require.NoError(t, b.Grow())
	assert.Equal(t, []byte{9, 8, 7}, b.Data())
}

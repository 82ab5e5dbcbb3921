package framecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinect-xr-go/device"
)

func TestCacheEmptyIsInvalid(t *testing.T) {
	c := New()
	snap := c.Snapshot()
	assert.False(t, snap.ColorValid)
	assert.False(t, snap.DepthValid)
	assert.Equal(t, uint32(0), snap.FrameID)
}

func TestDepthWriteAdvancesFrameID(t *testing.T) {
	c := New()

	c.PutDepth(&device.DepthFrame{Timestamp: 1})
	require.Equal(t, uint32(1), c.FrameID())

	c.PutDepth(&device.DepthFrame{Timestamp: 2})
	require.Equal(t, uint32(2), c.FrameID())

	snap := c.Snapshot()
	assert.True(t, snap.DepthValid)
	assert.Equal(t, uint32(2), snap.Depth.Timestamp)
}

func TestColorWriteDoesNotAdvanceFrameID(t *testing.T) {
	c := New()
	c.PutDepth(&device.DepthFrame{})
	before := c.FrameID()

	c.PutColor(&device.ColorFrame{Timestamp: 7})
	after := c.FrameID()

	assert.Equal(t, before, after)

	snap := c.Snapshot()
	assert.True(t, snap.ColorValid)
	assert.Equal(t, uint32(7), snap.Color.Timestamp)
}

func TestStaleFrameRemainsValid(t *testing.T) {
	c := New()
	c.PutColor(&device.ColorFrame{Timestamp: 5})
	c.PutDepth(&device.DepthFrame{Timestamp: 5})

	// No further writes: snapshot should still report valid, unchanged data.
	snap1 := c.Snapshot()
	snap2 := c.Snapshot()
	assert.Equal(t, snap1, snap2)
	assert.True(t, snap2.ColorValid)
	assert.True(t, snap2.DepthValid)
}

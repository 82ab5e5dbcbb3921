package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinect-xr-go/framecache"
)

func TestStartRejectsZeroPort(t *testing.T) {
	s := NewServer(framecache.New(), nil, true)
	err := s.Start(0)
	assert.Error(t, err)
}

func TestStartStopLifecycle(t *testing.T) {
	s := NewServer(framecache.New(), nil, true)
	require.NoError(t, s.Start(0+18765))
	defer s.Stop()

	// Let the broadcast loop tick at least once in mock mode.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.cache.FrameID() > 0)

	require.NoError(t, s.Stop())
}

func TestStartTwiceFails(t *testing.T) {
	s := NewServer(framecache.New(), nil, true)
	require.NoError(t, s.Start(18766))
	defer s.Stop()

	err := s.Start(18767)
	assert.Error(t, err)
}

func TestMockFrameSynthesisIsDeterministic(t *testing.T) {
	color1, depth1 := synthesizeMockFrames(42)
	color2, depth2 := synthesizeMockFrames(42)
	assert.Equal(t, color1, color2)
	assert.Equal(t, depth1, depth2)

	color3, _ := synthesizeMockFrames(43)
	assert.NotEqual(t, color1, color3)
}

func TestRegistrySnapshotIndependentOfLiveMap(t *testing.T) {
	r := newRegistry()
	c := newClient(nil)
	r.add(c)

	snap := r.snapshot()
	require.Len(t, snap, 1)

	r.remove(c)
	assert.Len(t, snap, 1) // snapshot unaffected by later removal
	assert.Equal(t, 0, r.count())
}

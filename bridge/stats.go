package bridge

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds the broadcast loop's atomic counters plus a rolling 10s
// window for per-stream FPS, exposed via a periodic log line (spec §4.3).
type Stats struct {
	framesSentColor atomic.Uint64
	framesSentDepth atomic.Uint64
	droppedFrames   atomic.Uint64

	mutex       sync.Mutex
	colorTicks  []time.Time
	depthTicks  []time.Time
}

func newStats() *Stats {
	return &Stats{}
}

func (s *Stats) recordSent(streamType streamKind) {
	now := time.Now()
	s.mutex.Lock()
	switch streamType {
	case streamColor:
		s.framesSentColor.Add(1)
		s.colorTicks = append(s.colorTicks, now)
		s.colorTicks = trimOlderThan(s.colorTicks, now.Add(-10*time.Second))
	case streamDepth:
		s.framesSentDepth.Add(1)
		s.depthTicks = append(s.depthTicks, now)
		s.depthTicks = trimOlderThan(s.depthTicks, now.Add(-10*time.Second))
	}
	s.mutex.Unlock()
}

func trimOlderThan(ticks []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ticks) && ticks[i].Before(cutoff) {
		i++
	}
	return ticks[i:]
}

func (s *Stats) recordDropped(count uint64) {
	s.droppedFrames.Add(count)
}

// Snapshot is a point-in-time read of the stats, safe to log or serialize.
type Snapshot struct {
	FramesSentColor uint64
	FramesSentDepth uint64
	DroppedFrames   uint64
	ColorFPS        float64
	DepthFPS        float64
}

func (s *Stats) Snapshot() Snapshot {
	s.mutex.Lock()
	colorFPS := float64(len(s.colorTicks)) / 10.0
	depthFPS := float64(len(s.depthTicks)) / 10.0
	s.mutex.Unlock()

	return Snapshot{
		FramesSentColor: s.framesSentColor.Load(),
		FramesSentDepth: s.framesSentDepth.Load(),
		DroppedFrames:   s.droppedFrames.Load(),
		ColorFPS:        colorFPS,
		DepthFPS:        depthFPS,
	}
}

type streamKind int

const (
	streamColor streamKind = iota
	streamDepth
)

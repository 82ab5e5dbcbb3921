package bridge

import (
	"log/slog"
	"time"

	"kinect-xr-go/device"
	"kinect-xr-go/protocol"
)

const broadcastInterval = 33 * time.Millisecond

// broadcastLoop owns the periodic 30 Hz tick described in spec §4.3. It
// runs on a single dedicated goroutine started by Server.Start and
// stopped by Server.Stop, the same one-goroutine-per-concern shape the
// device package uses for its color/depth read loops.
type broadcastLoop struct {
	server *Server
	stop   chan struct{}
	done   chan struct{}

	mockFrameID uint32
}

func newBroadcastLoop(s *Server) *broadcastLoop {
	return &broadcastLoop{server: s, stop: make(chan struct{}), done: make(chan struct{})}
}

func (b *broadcastLoop) run() {
	defer close(b.done)

	next := time.Now().Add(broadcastInterval)
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		now := time.Now()
		if now.Before(next) {
			select {
			case <-b.stop:
				return
			case <-time.After(next.Sub(now)):
			}
		} else {
			// The deadline already passed: count the missed slots as dropped
			// frames and resynchronize, per spec §4.3 step 4.
			missed := uint64(now.Sub(next)/broadcastInterval) + 1
			b.server.stats.recordDropped(missed)
			next = now
		}

		b.tick()
		next = next.Add(broadcastInterval)
	}
}

func (b *broadcastLoop) tick() {
	s := b.server

	if s.mock {
		b.mockFrameID++
		color, depth := synthesizeMockFrames(b.mockFrameID)
		s.cache.PutColor(color)
		s.cache.PutDepth(depth)
	}

	snap := s.cache.Snapshot()
	clients := s.registry.snapshot()
	if len(clients) == 0 {
		return
	}

	// Both streams are packed with the cache's single frame_id, which only
	// depth writes advance: a color frame carries the id of the most recent
	// depth frame, not a counter of its own.
	if snap.ColorValid {
		packed := protocol.PackBinaryFrame(snap.FrameID, protocol.StreamTypeColor, snap.Color.Pixels[:])
		for _, c := range clients {
			if color, _ := c.subscriptions(); color {
				if err := c.sendBinary(packed); err != nil {
					slog.Debug("dropping slow or closed client on color send", "client", c.id, "err", err)
					continue
				}
				s.stats.recordSent(streamColor)
			}
		}
	}

	if snap.DepthValid {
		packed := protocol.PackBinaryFrame(snap.FrameID, protocol.StreamTypeDepth, snap.Depth.Pixels[:])
		for _, c := range clients {
			if _, depth := c.subscriptions(); depth {
				if err := c.sendBinary(packed); err != nil {
					slog.Debug("dropping slow or closed client on depth send", "client", c.id, "err", err)
					continue
				}
				s.stats.recordSent(streamDepth)
			}
		}
	}
}

// synthesizeMockFrames deterministically derives a color and depth frame
// from frameID so a client sees changing, reproducible pixel data with no
// device attached (spec §4.3, §8's "mock mode ... frames are delivered
// deterministically"). There is no device.Session mock implementation:
// this is the runtime's one and only mock-frame code path.
func synthesizeMockFrames(frameID uint32) (*device.ColorFrame, *device.DepthFrame) {
	color := &device.ColorFrame{Timestamp: frameID}
	shade := byte(frameID % 256)
	for i := 0; i < device.ColorBytesPerFrame; i += 3 {
		color.Pixels[i] = shade
		color.Pixels[i+1] = byte(i / 3 % 256)
		color.Pixels[i+2] = 255 - shade
	}

	depth := &device.DepthFrame{Timestamp: frameID}
	value := uint16(device.MinValidDepthMM + int(frameID)%(device.MaxValidDepthMM-device.MinValidDepthMM))
	for i := 0; i < device.DepthBytesPerFrame; i += 2 {
		depth.Pixels[i] = byte(value)
		depth.Pixels[i+1] = byte(value >> 8)
	}

	return color, depth
}

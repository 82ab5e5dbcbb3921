// Package framecache holds the single most-recent color and depth frame
// produced by the device session, behind one mutex, for the bridge's
// broadcast loop to snapshot and fan out to subscribed clients.
package framecache

import (
	"sync"

	"kinect-xr-go/device"
)

// Cache is a latest-value store: writers overwrite in place, there is no
// queueing, and a stale frame remains readable (valid) indefinitely until
// the next write replaces it.
type Cache struct {
	mutex sync.Mutex

	color      device.ColorFrame
	colorValid bool

	depth      device.DepthFrame
	depthValid bool

	frameID uint32
}

// New returns an empty cache; both streams are invalid until first write.
func New() *Cache {
	return &Cache{}
}

// PutColor overwrites the cached color frame. Color is best-effort and does
// not advance frame_id: depth is the authoritative clock.
func (c *Cache) PutColor(frame *device.ColorFrame) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.color = *frame
	c.colorValid = true
}

// PutDepth overwrites the cached depth frame and advances frame_id. Depth
// is the only writer that advances the clock.
func (c *Cache) PutDepth(frame *device.DepthFrame) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.depth = *frame
	c.depthValid = true
	c.frameID++
}

// Snapshot is a copy of the cache's current contents taken under the
// mutex; callers must not retain the mutex past this call's return.
type Snapshot struct {
	FrameID uint32

	Color      device.ColorFrame
	ColorValid bool

	Depth      device.DepthFrame
	DepthValid bool
}

// Snapshot copies out both frames and the current frame id in one critical
// section, per spec §4.2: consumers must not hold the mutex across I/O.
func (c *Cache) Snapshot() Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return Snapshot{
		FrameID:    c.frameID,
		Color:      c.color,
		ColorValid: c.colorValid,
		Depth:      c.depth,
		DepthValid: c.depthValid,
	}
}

// FrameID returns the current frame id without copying either frame.
func (c *Cache) FrameID() uint32 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.frameID
}

package xr

import "sync"

// SwapchainFormat enumerates the two formats this runtime supports (spec
// §4.6). Any other requested format fails SWAPCHAIN_FORMAT_UNSUPPORTED.
type SwapchainFormat int

const (
	FormatColorBGRA8Unorm SwapchainFormat = iota
	FormatDepthU16
)

// UsageFlags mirrors the host graphics API's usage bitmask; color
// textures need the color-attachment bit, depth textures the
// depth/stencil bit.
type UsageFlags uint32

const (
	UsageColorAttachment UsageFlags = 1 << iota
	UsageDepthStencilAttachment
)

const swapchainImageCount = 3

// ExternalTexture stands in for a host-graphics-API texture handle. In
// this runtime it is backed by a plain byte buffer that texture.go writes
// into; a real backend would instead hold a GPU texture handle returned
// by the host API's texture-creation call.
type ExternalTexture struct {
	Data []byte
}

// CreateSwapchainInfo is the caller-supplied creation request (spec
// §4.6): dimensions must be ≤640x480, sample count and array size fixed
// at 1, and usage bits must match the requested format.
type CreateSwapchainInfo struct {
	Format      SwapchainFormat
	Width       int
	Height      int
	SampleCount int
	ArraySize   int
	Usage       UsageFlags
}

type swapchainRecord struct {
	mutex sync.Mutex

	sessionHandle Handle
	format        SwapchainFormat
	width, height int

	textures      [swapchainImageCount]*ExternalTexture
	acquiredIndex int
	acquired      bool
}

func textureByteSize(format SwapchainFormat, width, height int) int {
	switch format {
	case FormatColorBGRA8Unorm:
		return width * height * 4
	case FormatDepthU16:
		return width * height * 2
	default:
		return 0
	}
}

// CreateSwapchain validates the request and allocates three external
// textures, per spec §4.6.
func (rt *Runtime) CreateSwapchain(session Handle, info CreateSwapchainInfo) (Handle, *Error) {
	if _, ok := rt.sessions.get(session); !ok {
		return 0, newError(KindHandleInvalid, "unknown session handle")
	}

	switch info.Format {
	case FormatColorBGRA8Unorm, FormatDepthU16:
	default:
		return 0, newError(KindSwapchainFormatUnsupported, "unsupported swapchain format %d", info.Format)
	}

	if info.Width <= 0 || info.Height <= 0 || info.Width > 640 || info.Height > 480 {
		return 0, newError(KindValidationFailure, "dimensions %dx%d exceed 640x480", info.Width, info.Height)
	}
	if info.SampleCount != 1 {
		return 0, newError(KindValidationFailure, "sample count must be 1, got %d", info.SampleCount)
	}
	if info.ArraySize != 1 {
		return 0, newError(KindValidationFailure, "array size must be 1, got %d", info.ArraySize)
	}

	switch info.Format {
	case FormatColorBGRA8Unorm:
		if info.Usage&UsageColorAttachment == 0 {
			return 0, newError(KindValidationFailure, "color format requires color attachment usage")
		}
	case FormatDepthU16:
		if info.Usage&UsageDepthStencilAttachment == 0 {
			return 0, newError(KindValidationFailure, "depth format requires depth/stencil attachment usage")
		}
	}

	record := &swapchainRecord{
		sessionHandle: session,
		format:        info.Format,
		width:         info.Width,
		height:        info.Height,
	}
	byteSize := textureByteSize(info.Format, info.Width, info.Height)
	for i := range record.textures {
		record.textures[i] = &ExternalTexture{Data: make([]byte, byteSize)}
	}

	return rt.swapchains.insert(record), nil
}

func (rt *Runtime) DestroySwapchain(h Handle) *Error {
	if _, ok := rt.swapchains.get(h); !ok {
		return newError(KindHandleInvalid, "unknown swapchain handle")
	}
	rt.swapchains.remove(h)
	return nil
}

// AcquireImage returns the current index and advances it cyclically. At
// most one image may be in flight per swapchain (spec §4.6).
func (rt *Runtime) AcquireImage(h Handle) (int, *Error) {
	record, ok := rt.swapchains.get(h)
	if !ok {
		return 0, newError(KindHandleInvalid, "unknown swapchain handle")
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if record.acquired {
		return 0, newError(KindCallOrderInvalid, "an image is already acquired")
	}

	index := record.acquiredIndex
	record.acquired = true
	record.acquiredIndex = (record.acquiredIndex + 1) % swapchainImageCount
	return index, nil
}

// WaitImage requires an image to be acquired, then uploads the latest
// cached frame matching the swapchain's format into the current texture
// (spec §4.6). There is no GPU work to wait on, so this returns
// immediately once the upload completes.
func (rt *Runtime) WaitImage(h Handle) *Error {
	record, ok := rt.swapchains.get(h)
	if !ok {
		return newError(KindHandleInvalid, "unknown swapchain handle")
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if !record.acquired {
		return newError(KindCallOrderInvalid, "no image acquired")
	}

	session, ok := rt.sessions.get(record.sessionHandle)
	if !ok {
		return newError(KindHandleInvalid, "owning session no longer exists")
	}

	// acquiredIndex has already advanced past the image AcquireImage just
	// handed out, so the currently-held image is the previous slot.
	currentSlot := (record.acquiredIndex - 1 + swapchainImageCount) % swapchainImageCount
	texture := record.textures[currentSlot]

	snap := session.cache.Snapshot()
	switch record.format {
	case FormatColorBGRA8Unorm:
		if snap.ColorValid {
			uploadColor(&snap.Color, texture.Data)
		}
	case FormatDepthU16:
		if snap.DepthValid {
			uploadDepth(&snap.Depth, texture.Data)
		}
	}

	return nil
}

// ReleaseImage clears the acquired flag.
func (rt *Runtime) ReleaseImage(h Handle) *Error {
	record, ok := rt.swapchains.get(h)
	if !ok {
		return newError(KindHandleInvalid, "unknown swapchain handle")
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if !record.acquired {
		return newError(KindCallOrderInvalid, "no image acquired")
	}
	record.acquired = false
	return nil
}

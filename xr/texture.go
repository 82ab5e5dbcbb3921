package xr

import "kinect-xr-go/device"

// uploadColor converts the cache's packed R,G,B frame into the
// destination's packed B,G,R,A layout with alpha forced to 255, per spec
// §4.7. Conversion is plain per-pixel index arithmetic; no image library
// covers this fixed-stride byte swizzle more directly than a loop would
// (see DESIGN.md).
func uploadColor(frame *device.ColorFrame, dst []byte) {
	pixelCount := device.ColorBytesPerFrame / 3
	for i := 0; i < pixelCount; i++ {
		srcOffset := i * 3
		dstOffset := i * 4
		r := frame.Pixels[srcOffset+0]
		g := frame.Pixels[srcOffset+1]
		b := frame.Pixels[srcOffset+2]
		dst[dstOffset+0] = b
		dst[dstOffset+1] = g
		dst[dstOffset+2] = r
		dst[dstOffset+3] = 255
	}
}

// uploadDepth copies the cache's 16-bit depth frame into the destination
// unchanged: source and destination share layout (spec §4.7).
func uploadDepth(frame *device.DepthFrame, dst []byte) {
	copy(dst, frame.Pixels[:])
}

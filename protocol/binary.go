package protocol

import (
	"encoding/binary"
	"fmt"
)

// StreamType discriminates the binary frame header's stream_type field
// (spec §6).
type StreamType uint16

const (
	StreamTypeColor StreamType = 0x0001
	StreamTypeDepth StreamType = 0x0002
)

// BinaryHeaderSize is the fixed 8-byte little-endian header preceding
// every binary frame payload.
const BinaryHeaderSize = 8

const (
	ColorPayloadSize = 640 * 480 * 3
	DepthPayloadSize = 640 * 480 * 2
)

// PackBinaryFrame lays out the 8-byte header followed by payload in one
// contiguous buffer, grounded on the little-endian header layout the
// teacher's device/light_ov580.go uses for IMU report parsing
// (encoding/binary.LittleEndian over a fixed byte buffer).
func PackBinaryFrame(frameID uint32, streamType StreamType, payload []byte) []byte {
	buf := make([]byte, BinaryHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], frameID)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(streamType))
	// buf[6:8] reserved, left zero.
	copy(buf[BinaryHeaderSize:], payload)
	return buf
}

// BinaryHeader is the decoded form of a packed frame's first 8 bytes.
type BinaryHeader struct {
	FrameID    uint32
	StreamType StreamType
}

// UnpackBinaryFrame validates overall length and reserved-byte zeroing,
// then splits header from payload. Round-trips exactly with
// PackBinaryFrame per spec §8's binary round-trip law.
func UnpackBinaryFrame(buf []byte) (BinaryHeader, []byte, error) {
	if len(buf) < BinaryHeaderSize {
		return BinaryHeader{}, nil, fmt.Errorf("binary frame too short: %d bytes", len(buf))
	}

	reserved := binary.LittleEndian.Uint16(buf[6:8])
	if reserved != 0 {
		return BinaryHeader{}, nil, fmt.Errorf("reserved header bytes not zero: %#x", reserved)
	}

	header := BinaryHeader{
		FrameID:    binary.LittleEndian.Uint32(buf[0:4]),
		StreamType: StreamType(binary.LittleEndian.Uint16(buf[4:6])),
	}

	switch header.StreamType {
	case StreamTypeColor:
		if len(buf)-BinaryHeaderSize != ColorPayloadSize {
			return BinaryHeader{}, nil, fmt.Errorf("color payload wrong size: %d", len(buf)-BinaryHeaderSize)
		}
	case StreamTypeDepth:
		if len(buf)-BinaryHeaderSize != DepthPayloadSize {
			return BinaryHeader{}, nil, fmt.Errorf("depth payload wrong size: %d", len(buf)-BinaryHeaderSize)
		}
	default:
		return BinaryHeader{}, nil, fmt.Errorf("unknown stream_type %#x", header.StreamType)
	}

	return header, buf[BinaryHeaderSize:], nil
}

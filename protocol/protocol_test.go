package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientMessageSubscribe(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"subscribe","streams":["color","depth"]}`))
	require.NoError(t, err)
	assert.Equal(t, TypeSubscribe, msg.Type)
	assert.Equal(t, []string{"color", "depth"}, msg.Streams)
}

func TestParseClientMessageMotorSetTilt(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"motor.setTilt","angle":10}`))
	require.NoError(t, err)
	assert.Equal(t, TypeMotorSetTilt, msg.Type)
	assert.Equal(t, float64(10), msg.Angle)
}

func TestParseClientMessageMalformedJSON(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{not json`))
	require.Error(t, err)
	var protoErr *Error
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, KindProtocolError, protoErr.Kind)
	assert.True(t, protoErr.Recoverable)
}

func TestParseClientMessageUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"bogus"}`))
	require.Error(t, err)
	var protoErr *Error
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, KindProtocolError, protoErr.Kind)
}

func TestEmitHelloRoundTrips(t *testing.T) {
	hello := HelloMessage{Type: TypeHello, ProtocolVersion: "1.0.0", ServerName: "kinect-xr-go"}
	hello.Capabilities.Depth.BytesPerFrame = DepthPayloadSize

	data, err := Emit(hello)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"protocol_version":"1.0.0"`)
	assert.Contains(t, string(data), `"bytes_per_frame":614400`)

	var decoded HelloMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, hello, decoded)
}

func TestBinaryFrameRoundTrip(t *testing.T) {
	payload := make([]byte, DepthPayloadSize)
	for i := range payload {
		payload[i] = byte(i)
	}

	packed := PackBinaryFrame(42, StreamTypeDepth, payload)
	require.Len(t, packed, BinaryHeaderSize+DepthPayloadSize)

	header, gotPayload, err := UnpackBinaryFrame(packed)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), header.FrameID)
	assert.Equal(t, StreamTypeDepth, header.StreamType)
	assert.Equal(t, payload, gotPayload)
}

func TestBinaryFrameRejectsWrongPayloadSize(t *testing.T) {
	packed := PackBinaryFrame(1, StreamTypeColor, make([]byte, 10))
	_, _, err := UnpackBinaryFrame(packed)
	assert.Error(t, err)
}

func TestBinaryFrameRejectsNonZeroReserved(t *testing.T) {
	packed := PackBinaryFrame(1, StreamTypeColor, make([]byte, ColorPayloadSize))
	packed[6] = 0xff
	_, _, err := UnpackBinaryFrame(packed)
	assert.Error(t, err)
}

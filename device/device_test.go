package device_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"kinect-xr-go/device"
)

func TestClampTiltAngleClampsToPhysicalRange(t *testing.T) {
	assert.Equal(t, -27, device.ClampTiltAngle(-90))
	assert.Equal(t, 27, device.ClampTiltAngle(90))
	assert.Equal(t, 10, device.ClampTiltAngle(10))
}

func TestValidLEDStatesCoversAllNamedConstants(t *testing.T) {
	for _, state := range []device.LEDState{
		device.LEDOff, device.LEDGreen, device.LEDRed,
		device.LEDYellow, device.LEDBlinkGreen, device.LEDBlinkRedYellow,
	} {
		_, ok := device.ValidLEDStates[state]
		assert.True(t, ok, "expected %s to be a valid LED state", state)
	}
	_, ok := device.ValidLEDStates[device.LEDState("not-a-real-state")]
	assert.False(t, ok)
}

func TestErrorIsComparesByKindNotDetail(t *testing.T) {
	first := device.ErrNotStreaming
	second := &device.Error{Kind: device.KindNotStreaming}
	assert.True(t, errors.Is(first, second))

	different := &device.Error{Kind: device.KindDeviceNotFound}
	assert.False(t, errors.Is(first, different))
}

func TestTiltStatusStringNames(t *testing.T) {
	assert.Equal(t, "STOPPED", device.TiltStatusStopped.String())
	assert.Equal(t, "MOVING", device.TiltStatusMoving.String())
	assert.Equal(t, "LIMIT", device.TiltStatusAtLimit.String())
	assert.Equal(t, "UNKNOWN", device.TiltStatusUnknown.String())
}

func TestNewSessionStartsUninitialized(t *testing.T) {
	s := device.NewSession()
	assert.False(t, s.IsInitialized())
	assert.False(t, s.IsStreaming())
}

func TestStartStreamsBeforeInitializeFails(t *testing.T) {
	s := device.NewSession()
	err := s.StartStreams()
	assert.True(t, errors.Is(err, device.ErrNotInitialized))
}

func TestStopStreamsBeforeInitializeFails(t *testing.T) {
	s := device.NewSession()
	err := s.StopStreams()
	assert.True(t, errors.Is(err, device.ErrNotInitialized))
}

func TestMotorOperationsOnUninitializedSessionFail(t *testing.T) {
	s := device.NewSession()
	assert.True(t, errors.Is(s.SetTilt(5), device.ErrNotInitialized))
	assert.True(t, errors.Is(s.SetLED(device.LEDGreen), device.ErrNotInitialized))
	assert.True(t, errors.Is(s.Reset(), device.ErrNotInitialized))
	_, err := s.GetStatus()
	assert.True(t, errors.Is(err, device.ErrNotInitialized))
}

func TestCloseOnFreshSessionIsNoop(t *testing.T) {
	s := device.NewSession()
	assert.Nil(t, s.Close())
}

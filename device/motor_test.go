package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedStateByteEncodesEachState(t *testing.T) {
	cases := map[LEDState]byte{
		LEDOff:            0x00,
		LEDGreen:          0x01,
		LEDRed:            0x02,
		LEDYellow:         0x03,
		LEDBlinkGreen:     0x04,
		LEDBlinkRedYellow: 0x05,
	}
	for state, want := range cases {
		assert.Equal(t, want, ledStateByte(state))
	}
}

func TestDecodeTiltStatus(t *testing.T) {
	assert.Equal(t, TiltStatusStopped, decodeTiltStatus(0x00))
	assert.Equal(t, TiltStatusMoving, decodeTiltStatus(0x01))
	assert.Equal(t, TiltStatusAtLimit, decodeTiltStatus(0x02))
	assert.Equal(t, TiltStatusUnknown, decodeTiltStatus(0xff))
}

func TestCheckRateLimitAllowsFirstCommand(t *testing.T) {
	m := &motorDevice{}
	assert.Nil(t, m.checkRateLimit())
}

func TestCheckRateLimitRejectsWithinWindow(t *testing.T) {
	m := &motorDevice{lastStateChange: time.Now()}
	err := m.checkRateLimit()
	var deviceErr *Error
	assert.ErrorAs(t, err, &deviceErr)
	assert.Equal(t, KindRateLimited, deviceErr.Kind)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestCheckRateLimitAllowsAfterWindowElapses(t *testing.T) {
	m := &motorDevice{lastStateChange: time.Now().Add(-motorRateLimit - time.Millisecond)}
	assert.Nil(t, m.checkRateLimit())
}

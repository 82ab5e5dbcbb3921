package device

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	hid "github.com/sstallion/go-hid"
)

// Vendor/product identifiers for the motor/LED/accelerometer subdevice,
// which enumerates as its own HID interface independent of the camera's
// bulk-transfer endpoints — the same split the teacher uses between its
// xrealLightMCU (HID) and xrealLightCamera (libusb) subdevices.
const (
	MotorVID = uint16(0x045e)
	MotorPID = uint16(0x02b0)

	motorReportSize   = 8
	motorReadTimeout  = 30 * time.Millisecond
	motorRateLimit    = 500 * time.Millisecond
)

// Motor report command bytes. This is a small closed set (four operations),
// deliberately not the ~60-entry command table the teacher's glasses
// protocol needs — see DESIGN.md for why that table wasn't carried over.
const (
	reportSetTilt   byte = 0x01
	reportSetLED    byte = 0x02
	reportGetStatus byte = 0x03
)

type motorDevice struct {
	mutex sync.Mutex

	hidDevice *hid.Device

	lastStateChange time.Time
	tiltAngle       int
}

func openMotorDevice() (*motorDevice, error) {
	handle, err := hid.OpenFirst(MotorVID, MotorPID)
	if err != nil {
		return nil, newError(KindInitializationFailed, "failed to open motor/LED subdevice: %w", err)
	}
	return &motorDevice{hidDevice: handle}, nil
}

// writeReport sends one fixed-size HID report and reads back the device's
// synchronous reply, following the teacher's write-then-read-with-timeout
// shape in device/light_mcu.go's executeOnly/read, minus the teacher's
// async response-channel plumbing (this subdevice never emits unsolicited
// reports, so a synchronous round trip under the mutex is sufficient).
func (m *motorDevice) writeReport(cmd byte, payload ...byte) ([]byte, error) {
	var report [motorReportSize]byte
	report[0] = cmd
	copy(report[1:], payload)

	if _, err := m.hidDevice.Write(report[:]); err != nil {
		return nil, fmt.Errorf("failed to write motor report %#x: %w", cmd, err)
	}

	var response [motorReportSize]byte
	if _, err := m.hidDevice.ReadWithTimeout(response[:], motorReadTimeout); err != nil {
		return nil, fmt.Errorf("failed to read motor report %#x response: %w", cmd, err)
	}
	return response[:], nil
}

// checkRateLimit enforces the global 500ms-between-state-changing-commands
// rule from spec §4.5. Must be called with m.mutex held.
func (m *motorDevice) checkRateLimit() error {
	if !m.lastStateChange.IsZero() && time.Since(m.lastStateChange) < motorRateLimit {
		return newError(KindRateLimited, "rate limited: state-changing motor commands are limited to one per %v", motorRateLimit)
	}
	return nil
}

func (m *motorDevice) setTilt(angleDegrees int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.checkRateLimit(); err != nil {
		return err
	}

	clamped := ClampTiltAngle(angleDegrees)
	_, err := m.writeReport(reportSetTilt, byte(int8(clamped)))
	if err != nil {
		return newError(KindMotorFailed, "failed to set tilt: %w", err)
	}

	m.tiltAngle = clamped
	m.lastStateChange = time.Now()
	return nil
}

func (m *motorDevice) setLED(state LEDState) error {
	if _, ok := ValidLEDStates[state]; !ok {
		return newError(KindMotorFailed, "invalid LED state: %s", state)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	// LED commands are not rate-limited, per spec §9's open question on
	// rate-limit scope: preserved as specified.
	_, err := m.writeReport(reportSetLED, ledStateByte(state))
	if err != nil {
		return newError(KindMotorFailed, "failed to set LED: %w", err)
	}
	return nil
}

func ledStateByte(state LEDState) byte {
	switch state {
	case LEDOff:
		return 0x00
	case LEDGreen:
		return 0x01
	case LEDRed:
		return 0x02
	case LEDYellow:
		return 0x03
	case LEDBlinkGreen:
		return 0x04
	case LEDBlinkRedYellow:
		return 0x05
	default:
		return 0x00
	}
}

func (m *motorDevice) getStatus() (Status, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	response, err := m.writeReport(reportGetStatus)
	if err != nil {
		return Status{}, newError(KindMotorFailed, "failed to get status: %w", err)
	}

	status := Status{
		TiltAngle:  int(int8(response[0])),
		TiltStatus: decodeTiltStatus(response[1]),
		Accelerometer: Accelerometer{
			X: int(int16(binary.LittleEndian.Uint16(response[2:4]))),
			Y: int(int16(binary.LittleEndian.Uint16(response[4:6]))),
			Z: int(int16(binary.LittleEndian.Uint16(response[6:8]))),
		},
	}
	return status, nil
}

func decodeTiltStatus(b byte) TiltStatus {
	switch b {
	case 0x00:
		return TiltStatusStopped
	case 0x01:
		return TiltStatusMoving
	case 0x02:
		return TiltStatusAtLimit
	default:
		return TiltStatusUnknown
	}
}

func (m *motorDevice) close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.hidDevice == nil {
		return nil
	}
	err := m.hidDevice.Close()
	m.hidDevice = nil
	return err
}

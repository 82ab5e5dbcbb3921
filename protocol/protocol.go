// Package protocol owns the bridge's wire formats: JSON control/status
// messages and the binary frame header, plus their parse/emit contracts.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates the protocol-level error taxonomy (spec §7), distinct
// from device.Kind and xr.Kind — each layer owns a closed enum of its own
// rather than sharing one cross-cutting error type.
type Kind string

const (
	KindProtocolError      Kind = "PROTOCOL_ERROR"
	KindInvalidLEDState    Kind = "INVALID_LED_STATE"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindDeviceNotConnected Kind = "DEVICE_NOT_CONNECTED"
	KindMotorFailed        Kind = "MOTOR_FAILED"
)

// Error pairs a Kind with a human-readable message and whether the client
// connection can continue after receiving it, mirroring the device
// package's Kind+wrapped-error shape but carrying Recoverable instead of
// an Unwrap chain — these errors are serialized to the client, not
// compared with errors.Is.
type Error struct {
	Kind        Kind
	Message     string
	Recoverable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newProtocolError(format string, args ...any) *Error {
	return &Error{Kind: KindProtocolError, Message: fmt.Sprintf(format, args...), Recoverable: true}
}

// MessageType is the discriminant carried by every JSON message's "type"
// field.
type MessageType string

const (
	TypeHello          MessageType = "hello"
	TypeStatus         MessageType = "status"
	TypeError          MessageType = "error"
	TypeMotorStatus    MessageType = "motor.status"
	TypeMotorError     MessageType = "motor.error"
	TypeSubscribe      MessageType = "subscribe"
	TypeUnsubscribe    MessageType = "unsubscribe"
	TypeMotorSetTilt   MessageType = "motor.setTilt"
	TypeMotorSetLED    MessageType = "motor.setLed"
	TypeMotorReset      MessageType = "motor.reset"
	TypeMotorGetStatus MessageType = "motor.getStatus"
)

// envelope is used only to sniff the "type" discriminant before decoding
// into the concrete message struct, the same two-pass approach the
// teacher's MCU layer uses to sniff a packet's command byte before
// decoding its payload (device/light_packet.go).
type envelope struct {
	Type MessageType `json:"type"`
}

// ClientMessage is the parsed form of any client→server message (§6).
// Only the fields relevant to Type are populated.
type ClientMessage struct {
	Type    MessageType
	Streams []string // subscribe
	Angle   float64  // motor.setTilt
	State   string   // motor.setLed
}

// ParseClientMessage decodes one client→server JSON message. Malformed
// JSON or an unrecognized type yields a recoverable PROTOCOL_ERROR, per
// spec §4.4.
func ParseClientMessage(raw []byte) (*ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, newProtocolError("malformed JSON: %v", err)
	}

	switch env.Type {
	case TypeSubscribe:
		var body struct {
			Streams []string `json:"streams"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, newProtocolError("malformed subscribe message: %v", err)
		}
		return &ClientMessage{Type: TypeSubscribe, Streams: body.Streams}, nil

	case TypeUnsubscribe:
		return &ClientMessage{Type: TypeUnsubscribe}, nil

	case TypeMotorSetTilt:
		var body struct {
			Angle float64 `json:"angle"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, newProtocolError("malformed motor.setTilt message: %v", err)
		}
		return &ClientMessage{Type: TypeMotorSetTilt, Angle: body.Angle}, nil

	case TypeMotorSetLED:
		var body struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, newProtocolError("malformed motor.setLed message: %v", err)
		}
		return &ClientMessage{Type: TypeMotorSetLED, State: body.State}, nil

	case TypeMotorReset:
		return &ClientMessage{Type: TypeMotorReset}, nil

	case TypeMotorGetStatus:
		return &ClientMessage{Type: TypeMotorGetStatus}, nil

	default:
		return nil, newProtocolError("unknown message type %q", env.Type)
	}
}

// Capabilities describes the hello message's fixed, server-wide
// geometry/rate facts (spec §6).
type Capabilities struct {
	Color struct {
		Width         int `json:"width"`
		Height        int `json:"height"`
		BytesPerFrame int `json:"bytes_per_frame"`
	} `json:"color"`
	Depth struct {
		Width         int `json:"width"`
		Height        int `json:"height"`
		BytesPerFrame int `json:"bytes_per_frame"`
	} `json:"depth"`
	FrameRateHz int `json:"frame_rate_hz"`
	Motor       struct {
		TiltMinDegrees   int      `json:"tilt_min_degrees"`
		TiltMaxDegrees   int      `json:"tilt_max_degrees"`
		RateLimitMillis  int      `json:"rate_limit_millis"`
		LEDStates        []string `json:"led_states"`
	} `json:"motor"`
}

// HelloMessage is sent once, on connect.
type HelloMessage struct {
	Type            MessageType  `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ServerName      string       `json:"server_name"`
	Capabilities    Capabilities `json:"capabilities"`
}

// StatusMessage reports bridge-wide counters (spec §6).
type StatusMessage struct {
	Type           MessageType `json:"type"`
	Connected      bool        `json:"connected"`
	LatestFrameID  uint32      `json:"latest_frame_id"`
	DroppedFrames  uint64      `json:"dropped_frames"`
	ClientCount    int         `json:"client_count"`
}

// ErrorMessage is the generic protocol-error envelope.
type ErrorMessage struct {
	Type        MessageType `json:"type"`
	Code        Kind        `json:"code"`
	Message     string      `json:"message"`
	Recoverable bool        `json:"recoverable"`
}

// MotorStatusMessage reports the device's current motor/accelerometer
// state (spec §6); Status is one of STOPPED|MOVING|LIMIT|UNKNOWN.
type MotorStatusMessage struct {
	Type   MessageType `json:"type"`
	Angle  int         `json:"angle"`
	Status string      `json:"status"`
	Accelerometer struct {
		X int `json:"x"`
		Y int `json:"y"`
		Z int `json:"z"`
	} `json:"accelerometer"`
}

// MotorErrorMessage reports a motor-command failure, e.g. RATE_LIMITED or
// INVALID_LED_STATE.
type MotorErrorMessage struct {
	Type    MessageType `json:"type"`
	Code    Kind        `json:"code"`
	Message string      `json:"message"`
}

// NewErrorMessage builds an error envelope from a protocol Error.
func NewErrorMessage(err *Error) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: err.Kind, Message: err.Message, Recoverable: err.Recoverable}
}

// NewMotorErrorMessage builds a motor.error envelope.
func NewMotorErrorMessage(kind Kind, message string) MotorErrorMessage {
	return MotorErrorMessage{Type: TypeMotorError, Code: kind, Message: message}
}

// Emit marshals any server→client message. Marshaling failure here would
// indicate a programmer error (an unmarshalable field), not a runtime
// condition, so it is returned rather than panicking — the caller decides
// whether to log and drop or treat it as fatal.
func Emit(message any) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to emit message: %w", err)
	}
	return data, nil
}

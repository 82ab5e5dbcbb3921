package device

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// session is the concrete Session implementation. It owns the camera's USB
// transport and the motor/LED HID subdevice, driving both on dedicated
// goroutines the way the teacher's xrealLightMCU drives its heartbeat and
// read-loop goroutines (device/light_mcu.go's sendHeartBeatPeriodically and
// readPacketsPeriodically).
type session struct {
	mutex sync.Mutex

	config      Config
	initialized bool
	streaming   bool

	transport *cameraTransport
	motor     *motorDevice

	colorCB ColorCallback
	depthCB DepthCallback

	stopColor chan struct{}
	stopDepth chan struct{}
	wg        sync.WaitGroup
}

// NewSession returns an uninitialized Session bound to no device yet.
func NewSession() Session {
	return &session{}
}

func (s *session) Initialize(cfg Config) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.initialized {
		return nil
	}

	if cfg.EnableColor || cfg.EnableDepth {
		transport, err := openCameraTransport(cfg.DeviceIndex, cfg.EnableColor, cfg.EnableDepth)
		if err != nil {
			return err
		}
		s.transport = transport
	}

	if cfg.EnableMotor {
		motor, err := openMotorDevice()
		if err != nil {
			if s.transport != nil {
				s.transport.close()
				s.transport = nil
			}
			return err
		}
		s.motor = motor
	}

	s.config = cfg
	s.initialized = true
	return nil
}

func (s *session) IsInitialized() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.initialized
}

func (s *session) IsStreaming() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.streaming
}

func (s *session) SetColorCallback(cb ColorCallback) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.colorCB = cb
}

func (s *session) SetDepthCallback(cb DepthCallback) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.depthCB = cb
}

func (s *session) StartStreams() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if s.streaming {
		return ErrAlreadyStreaming
	}

	var colorStarted, depthStarted bool

	if s.config.EnableColor {
		if err := s.transport.commitStream(s.transport.colorHandle, colorInterface); err != nil {
			return newError(KindInitializationFailed, "failed to start color stream: %w", err)
		}
		colorStarted = true
		s.stopColor = make(chan struct{})
		s.wg.Add(1)
		go s.runColorLoop(s.stopColor)
	}

	if s.config.EnableDepth {
		if err := s.transport.commitStream(s.transport.depthHandle, depthInterface); err != nil {
			if colorStarted {
				close(s.stopColor)
				s.wg.Wait()
			}
			return newError(KindInitializationFailed, "failed to start depth stream: %w", err)
		}
		depthStarted = true
		s.stopDepth = make(chan struct{})
		s.wg.Add(1)
		go s.runDepthLoop(s.stopDepth)
	}

	if !colorStarted && !depthStarted {
		return newError(KindInitializationFailed, "no subdevice streams were enabled")
	}

	s.streaming = true
	return nil
}

func (s *session) StopStreams() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if !s.streaming {
		return ErrNotStreaming
	}

	if s.stopColor != nil {
		close(s.stopColor)
		s.stopColor = nil
	}
	if s.stopDepth != nil {
		close(s.stopDepth)
		s.stopDepth = nil
	}
	s.wg.Wait()

	s.streaming = false
	return nil
}

// runColorLoop is the dedicated I/O goroutine for the color subdevice. Mid
// stream USB packet loss is not surfaced as an error here: a failed bulk
// transfer is logged and retried on the next tick, per spec §4.1's
// "color stream is best-effort" contract.
func (s *session) runColorLoop(stop chan struct{}) {
	defer s.wg.Done()

	var buf [ColorBytesPerFrame]byte
	for {
		select {
		case <-stop:
			return
		default:
		}

		ts, err := s.transport.readColorFrame(buf[:])
		if err != nil {
			slog.Debug(fmt.Sprintf("color frame read failed, will retry: %v", err))
			continue
		}

		s.mutex.Lock()
		cb := s.colorCB
		s.mutex.Unlock()

		if cb != nil {
			frame := &ColorFrame{Timestamp: ts}
			copy(frame.Pixels[:], buf[:])
			cb(frame)
		}
	}
}

// runDepthLoop is the dedicated I/O goroutine for the depth subdevice.
// Depth is the authoritative clock (spec §4.2): its callback is what
// advances frame_id in the frame cache, so this loop never silently skips
// a successfully read frame.
func (s *session) runDepthLoop(stop chan struct{}) {
	defer s.wg.Done()

	var buf [DepthBytesPerFrame]byte
	for {
		select {
		case <-stop:
			return
		default:
		}

		ts, err := s.transport.readDepthFrame(buf[:])
		if err != nil {
			slog.Debug(fmt.Sprintf("depth frame read failed, will retry: %v", err))
			continue
		}

		s.mutex.Lock()
		cb := s.depthCB
		s.mutex.Unlock()

		if cb != nil {
			frame := &DepthFrame{Timestamp: ts}
			copy(frame.Pixels[:], buf[:])
			cb(frame)
		}
	}
}

func (s *session) SetTilt(angleDegrees int) error {
	s.mutex.Lock()
	motor := s.motor
	s.mutex.Unlock()
	if motor == nil {
		return ErrNotInitialized
	}
	return motor.setTilt(angleDegrees)
}

func (s *session) SetLED(state LEDState) error {
	s.mutex.Lock()
	motor := s.motor
	s.mutex.Unlock()
	if motor == nil {
		return ErrNotInitialized
	}
	return motor.setLED(state)
}

func (s *session) Reset() error {
	s.mutex.Lock()
	motor := s.motor
	s.mutex.Unlock()
	if motor == nil {
		return ErrNotInitialized
	}
	return motor.setTilt(0)
}

func (s *session) GetStatus() (Status, error) {
	s.mutex.Lock()
	motor := s.motor
	s.mutex.Unlock()
	if motor == nil {
		return Status{}, ErrNotInitialized
	}
	return motor.getStatus()
}

func (s *session) Close() error {
	s.mutex.Lock()
	streaming := s.streaming
	s.mutex.Unlock()

	var stopErr error
	if streaming {
		if err := s.StopStreams(); err != nil {
			stopErr = fmt.Errorf("failed to stop streams during close: %w", err)
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var transportErr, motorErr error
	if s.transport != nil {
		transportErr = s.transport.close()
		s.transport = nil
	}
	if s.motor != nil {
		motorErr = s.motor.close()
		s.motor = nil
	}
	s.initialized = false

	if stopErr != nil {
		return fmt.Errorf("%v; transport close err: %v; motor close err: %v", stopErr, transportErr, motorErr)
	}
	if transportErr != nil || motorErr != nil {
		return fmt.Errorf("transport close err: %v; motor close err: %v", transportErr, motorErr)
	}
	return nil
}

// monotonicMillis backs the device-timestamp emulation in camera.go. It is
// a process-local monotonic clock, not a wall-clock reading, matching the
// spec's treatment of device timestamps as an opaque 32-bit counter rather
// than epoch time.
var monotonicStart = time.Now()

func monotonicMillis() int64 {
	return time.Since(monotonicStart).Milliseconds()
}

// deviceCount opens its own transient libusb context for the query and
// tears it down before returning, per spec §4.1. It never fails merely
// because no device is attached.
func deviceCount() (int, error) {
	ctx, err := libusbNewContext()
	if err != nil {
		return 0, fmt.Errorf("failed to create libusb context: %w", err)
	}
	defer ctx.Close()

	devices, err := ctx.DeviceList()
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	count := 0
	for _, dev := range devices {
		descriptor, err := dev.DeviceDescriptor()
		if err != nil {
			continue
		}
		if descriptor.VendorID == CameraVID && descriptor.ProductID == CameraPID {
			count++
		}
	}
	return count, nil
}

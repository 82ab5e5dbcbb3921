package xr

import (
	"sync"

	"kinect-xr-go/device"
	"kinect-xr-go/framecache"
)

// SessionState enumerates the XR session lifecycle (spec §4.6).
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionReady
	SessionSynchronized
	SessionVisible
	SessionFocused
	SessionStopping
)

func (s SessionState) String() string {
	switch s {
	case SessionReady:
		return "READY"
	case SessionSynchronized:
		return "SYNCHRONIZED"
	case SessionVisible:
		return "VISIBLE"
	case SessionFocused:
		return "FOCUSED"
	case SessionStopping:
		return "STOPPING"
	default:
		return "IDLE"
	}
}

func (s SessionState) running() bool {
	return s == SessionSynchronized || s == SessionVisible || s == SessionFocused
}

type sessionRecord struct {
	mutex sync.Mutex

	instanceHandle Handle
	state          SessionState

	deviceSession device.Session
	cache         *framecache.Cache
	timing        frameTimingRecord
}

// CreateSessionInfo validates the presence of a host-graphics binding;
// the binding's concrete contents are opaque to this runtime (spec
// §4.6's "Validate host-graphics binding is present").
type CreateSessionInfo struct {
	GraphicsBindingPresent bool
}

// CreateSession transitions an instance's (absent) session to IDLE→READY
// and queues the READY event. Only one session per instance is allowed;
// a second call fails with LIMIT_REACHED.
func (rt *Runtime) CreateSession(instance Handle, info CreateSessionInfo) (Handle, *Error) {
	inst, ok := rt.instances.get(instance)
	if !ok {
		return 0, newError(KindHandleInvalid, "unknown instance handle")
	}
	if inst.hasSession {
		return 0, newError(KindLimitReached, "instance already has a session")
	}
	if !info.GraphicsBindingPresent {
		return 0, newError(KindGraphicsDeviceInvalid, "host-graphics binding not present")
	}

	record := &sessionRecord{
		instanceHandle: instance,
		state:          SessionReady,
		cache:          framecache.New(),
	}
	h := rt.sessions.insert(record)
	inst.sessionHandle = h
	inst.hasSession = true

	inst.events.push(Event{Kind: EventSessionStateChanged, SessionHandle: h, State: SessionReady})
	return h, nil
}

// BeginSession starts the device session, installs frame-cache callbacks,
// starts its streams, and advances READY→SYNCHRONIZED→VISIBLE→FOCUSED,
// queuing the three state events in order (spec §4.6).
func (rt *Runtime) BeginSession(session Handle) *Error {
	record, ok := rt.sessions.get(session)
	if !ok {
		return newError(KindHandleInvalid, "unknown session handle")
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if record.state != SessionReady {
		return newError(KindSessionNotReady, "session not in READY state")
	}

	deviceSession := rt.newDeviceSession()
	deviceSession.SetColorCallback(func(frame *device.ColorFrame) { record.cache.PutColor(frame) })
	deviceSession.SetDepthCallback(func(frame *device.DepthFrame) { record.cache.PutDepth(frame) })

	if err := deviceSession.Initialize(rt.deviceConfig); err != nil {
		return newError(KindGraphicsDeviceInvalid, "failed to initialize device session: %v", err)
	}
	if err := deviceSession.StartStreams(); err != nil {
		return newError(KindGraphicsDeviceInvalid, "failed to start device streams: %v", err)
	}
	record.deviceSession = deviceSession

	record.state = SessionSynchronized
	inst, _ := rt.instances.get(record.instanceHandle)
	inst.events.push(Event{Kind: EventSessionStateChanged, SessionHandle: session, State: SessionSynchronized})

	record.state = SessionVisible
	inst.events.push(Event{Kind: EventSessionStateChanged, SessionHandle: session, State: SessionVisible})

	record.state = SessionFocused
	inst.events.push(Event{Kind: EventSessionStateChanged, SessionHandle: session, State: SessionFocused})

	return nil
}

// EndSession stops streams, releases the device session, and transitions
// to STOPPING then IDLE, queuing both state events.
func (rt *Runtime) EndSession(session Handle) *Error {
	record, ok := rt.sessions.get(session)
	if !ok {
		return newError(KindHandleInvalid, "unknown session handle")
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if !record.state.running() {
		return newError(KindSessionNotRunning, "session not running")
	}

	inst, _ := rt.instances.get(record.instanceHandle)

	record.state = SessionStopping
	inst.events.push(Event{Kind: EventSessionStateChanged, SessionHandle: session, State: SessionStopping})

	if record.deviceSession != nil {
		record.deviceSession.Close()
		record.deviceSession = nil
	}

	record.state = SessionIdle
	inst.events.push(Event{Kind: EventSessionStateChanged, SessionHandle: session, State: SessionIdle})

	return nil
}

// DestroySession removes the handle. Legal from any non-running state
// (IDLE, READY or STOPPING); a running session fails with SESSION_RUNNING.
func (rt *Runtime) DestroySession(session Handle) *Error {
	record, ok := rt.sessions.get(session)
	if !ok {
		return newError(KindHandleInvalid, "unknown session handle")
	}

	record.mutex.Lock()
	state := record.state
	record.mutex.Unlock()

	if state == SessionSynchronized || state == SessionVisible || state == SessionFocused {
		return newError(KindSessionRunning, "cannot destroy a running session")
	}

	rt.sessions.remove(session)
	if inst, ok := rt.instances.get(record.instanceHandle); ok {
		inst.hasSession = false
	}
	return nil
}

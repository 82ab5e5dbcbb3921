package xr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinect-xr-go/device"
)

// fakeDeviceSession is a minimal device.Session double so session-lifecycle
// tests never touch real USB/HID hardware.
type fakeDeviceSession struct {
	initialized bool
	streaming   bool
	colorCB     device.ColorCallback
	depthCB     device.DepthCallback
}

func (f *fakeDeviceSession) Initialize(cfg device.Config) error { f.initialized = true; return nil }
func (f *fakeDeviceSession) StartStreams() error                { f.streaming = true; return nil }
func (f *fakeDeviceSession) StopStreams() error                 { f.streaming = false; return nil }
func (f *fakeDeviceSession) IsInitialized() bool                { return f.initialized }
func (f *fakeDeviceSession) IsStreaming() bool                  { return f.streaming }
func (f *fakeDeviceSession) SetColorCallback(cb device.ColorCallback) { f.colorCB = cb }
func (f *fakeDeviceSession) SetDepthCallback(cb device.DepthCallback) { f.depthCB = cb }
func (f *fakeDeviceSession) SetTilt(angle int) error                  { return nil }
func (f *fakeDeviceSession) SetLED(state device.LEDState) error       { return nil }
func (f *fakeDeviceSession) Reset() error                             { return nil }
func (f *fakeDeviceSession) GetStatus() (device.Status, error)        { return device.Status{}, nil }
func (f *fakeDeviceSession) Close() error                             { return nil }

func newTestRuntime() *Runtime {
	rt := NewRuntime(device.Config{})
	rt.WithDeviceSessionFactory(func() device.Session { return &fakeDeviceSession{} })
	return rt
}

func newValidInstance(t *testing.T, rt *Runtime) Handle {
	t.Helper()
	h, err := rt.CreateInstance(InstanceInfo{StructureType: instanceInfoStructureType, APIVersion: supportedAPIVersion})
	require.Nil(t, err)
	return h
}

func TestCreateInstanceRejectsBadStructureType(t *testing.T) {
	rt := newTestRuntime()
	_, err := rt.CreateInstance(InstanceInfo{StructureType: "wrong", APIVersion: supportedAPIVersion})
	require.NotNil(t, err)
	assert.Equal(t, KindValidationFailure, err.Kind)
}

func TestCreateInstanceRejectsBadAPIVersion(t *testing.T) {
	rt := newTestRuntime()
	_, err := rt.CreateInstance(InstanceInfo{StructureType: instanceInfoStructureType, APIVersion: 0xdead})
	require.NotNil(t, err)
	assert.Equal(t, KindAPIVersionUnsupported, err.Kind)
}

func TestCreateInstanceRejectsUnknownExtension(t *testing.T) {
	rt := newTestRuntime()
	_, err := rt.CreateInstance(InstanceInfo{
		StructureType: instanceInfoStructureType,
		APIVersion:    supportedAPIVersion,
		Extensions:    []ExtensionName{"XR_UNKNOWN"},
	})
	require.NotNil(t, err)
	assert.Equal(t, KindExtensionNotPresent, err.Kind)
}

func TestHandleUniquenessAcrossKinds(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)
	session, err := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, err)
	space, err := rt.CreateReferenceSpace(session, SpaceLocal)
	require.Nil(t, err)

	seen := map[Handle]bool{instance: true}
	assert.False(t, seen[session])
	seen[session] = true
	assert.False(t, seen[space])
}

func TestSessionLifecycleHappyPath(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)

	session, err := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, err)

	ev, pollErr := rt.PollEvent(instance)
	require.Nil(t, pollErr)
	assert.Equal(t, SessionReady, ev.State)

	require.Nil(t, rt.BeginSession(session))

	for _, want := range []SessionState{SessionSynchronized, SessionVisible, SessionFocused} {
		ev, pollErr := rt.PollEvent(instance)
		require.Nil(t, pollErr)
		assert.Equal(t, want, ev.State)
	}

	require.Nil(t, rt.EndSession(session))
	for _, want := range []SessionState{SessionStopping, SessionIdle} {
		ev, pollErr := rt.PollEvent(instance)
		require.Nil(t, pollErr)
		assert.Equal(t, want, ev.State)
	}

	require.Nil(t, rt.DestroySession(session))
	require.Nil(t, rt.DestroyInstance(instance))
}

func TestSecondSessionFailsLimitReached(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)

	_, err := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, err)

	_, err = rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.NotNil(t, err)
	assert.Equal(t, KindLimitReached, err.Kind)
}

func TestDestroyRunningSessionFails(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)
	session, _ := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, rt.BeginSession(session))

	err := rt.DestroySession(session)
	require.NotNil(t, err)
	assert.Equal(t, KindSessionRunning, err.Kind)
}

func TestEndSessionOnIdleFails(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)
	session, _ := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, rt.BeginSession(session))
	require.Nil(t, rt.EndSession(session)) // FOCUSED -> STOPPING -> IDLE

	err := rt.EndSession(session)
	require.NotNil(t, err)
	assert.Equal(t, KindSessionNotRunning, err.Kind)
}

func TestAcquireImageRejectsDoubleAcquire(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)
	session, _ := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, rt.BeginSession(session))

	sc, err := rt.CreateSwapchain(session, CreateSwapchainInfo{
		Format: FormatColorBGRA8Unorm, Width: 640, Height: 480, SampleCount: 1, ArraySize: 1,
		Usage: UsageColorAttachment,
	})
	require.Nil(t, err)

	_, err = rt.AcquireImage(sc)
	require.Nil(t, err)

	_, err = rt.AcquireImage(sc)
	require.NotNil(t, err)
	assert.Equal(t, KindCallOrderInvalid, err.Kind)

	require.Nil(t, rt.ReleaseImage(sc))
	_, err = rt.AcquireImage(sc)
	assert.Nil(t, err)
}

func TestCreateSwapchainRejectsOversizedDimensions(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)
	session, _ := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, rt.BeginSession(session))

	_, err := rt.CreateSwapchain(session, CreateSwapchainInfo{
		Format: FormatColorBGRA8Unorm, Width: 1280, Height: 720, SampleCount: 1, ArraySize: 1,
		Usage: UsageColorAttachment,
	})
	require.NotNil(t, err)
	assert.Equal(t, KindValidationFailure, err.Kind)
}

func TestDepthLayerRejectsColorSwapchain(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)
	session, _ := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, rt.BeginSession(session))

	colorSC, err := rt.CreateSwapchain(session, CreateSwapchainInfo{
		Format: FormatColorBGRA8Unorm, Width: 640, Height: 480, SampleCount: 1, ArraySize: 1,
		Usage: UsageColorAttachment,
	})
	require.Nil(t, err)

	require.Nil(t, rt.BeginFrame(session))
	err = rt.EndFrame(session, BlendModeOpaque, []CompositionLayer{
		{Space: 0, DepthInfo: &DepthLayerInfo{Swapchain: colorSC}},
	})
	require.NotNil(t, err)
	assert.Equal(t, KindSwapchainFormatUnsupported, err.Kind)
}

func TestDepthLayerAcceptsDepthSwapchain(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)
	session, _ := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, rt.BeginSession(session))

	depthSC, err := rt.CreateSwapchain(session, CreateSwapchainInfo{
		Format: FormatDepthU16, Width: 640, Height: 480, SampleCount: 1, ArraySize: 1,
		Usage: UsageDepthStencilAttachment,
	})
	require.Nil(t, err)

	require.Nil(t, rt.BeginFrame(session))
	err = rt.EndFrame(session, BlendModeOpaque, []CompositionLayer{
		{DepthInfo: &DepthLayerInfo{Swapchain: depthSC}},
	})
	assert.Nil(t, err)
}

func TestLocateViewsIdentityPose(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)
	session, _ := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})

	views, err := rt.LocateViews(session)
	require.Nil(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, identityPose, views[0].Pose)
}

func TestWaitFramePacesToFramePeriod(t *testing.T) {
	rt := newTestRuntime()
	instance := newValidInstance(t, rt)
	session, _ := rt.CreateSession(instance, CreateSessionInfo{GraphicsBindingPresent: true})
	require.Nil(t, rt.BeginSession(session))

	var slept time.Duration
	originalSleep := sleepFunc
	sleepFunc = func(d time.Duration) { slept = d }
	defer func() { sleepFunc = originalSleep }()

	_, err := rt.WaitFrame(session)
	require.Nil(t, err)
	// First call has no previous timestamp, so no sleep yet.
	assert.Equal(t, time.Duration(0), slept)

	_, err = rt.WaitFrame(session)
	require.Nil(t, err)
	assert.True(t, slept > 0, "second call should pace against the first")
}

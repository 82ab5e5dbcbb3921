//go:build cgo

// Entry-point surface exposed to the XR loader's C ABI. Every exported
// function is a thin boundary: it converts borrowed C arguments into Go
// values, calls into the pure-Go Runtime, and copies results back out
// before returning control to C, the same shape
// helixml-helix/api/pkg/desktop/pipewire_cursor.go uses for its
// goCursorCallback boundary.
package xr

/*
#cgo LDFLAGS: -ldl
#include <stdint.h>
#include <stddef.h>
#include <dlfcn.h>

typedef uint64_t XrHandle;

typedef struct {
	int32_t event_kind;
	XrHandle session;
	int32_t state;
	int32_t has_event; // 0 = EVENT_UNAVAILABLE
} XrEventResult;

typedef struct {
	int64_t predicted_display_time_ns;
	int64_t predicted_period_ns;
	int32_t should_render;
} XrFrameState;

typedef struct {
	double orientation_x, orientation_y, orientation_z, orientation_w;
	double position_x, position_y, position_z;
} XrPose;

typedef struct {
	XrPose pose;
	double fov_left_degrees, fov_right_degrees, fov_up_degrees, fov_down_degrees;
	int32_t orientation_valid, orientation_tracked, position_valid, position_tracked;
} XrView;

typedef struct {
	uint32_t vendor_id;
	char system_name[256];
	int32_t max_swapchain_width;
	int32_t max_swapchain_height;
	int32_t max_layer_count;
	int32_t orientation_tracking;
	int32_t position_tracking;
} XrSystemProperties;

typedef struct {
	int32_t format;
	int32_t width;
	int32_t height;
	int32_t sample_count;
	int32_t array_size;
	uint32_t usage;
} XrSwapchainCreateInfo;

// lookupProc resolves an xrGetInstanceProcAddr name against this binary's
// own dynamic symbol table. Every function in this file is a C-exported
// symbol already (via //export), so RTLD_DEFAULT finds it the same way a
// loader would if it dlopen'd this runtime as a shared object, without
// this file needing to hand-maintain a name->pointer table of its own.
static void *lookupProc(const char *name) {
	return dlsym(RTLD_DEFAULT, name);
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"kinect-xr-go/device"
)

// processRuntime is the single process-wide Runtime the loader's global
// function pointers dispatch into (spec §9). It is created lazily by the
// first exported entry point called and never destroyed: the loader contract has no
// notion of tearing down the runtime itself, only instances within it.
var (
	processRuntimeMu sync.Mutex
	processRuntime    *Runtime
)

func getOrCreateProcessRuntime() *Runtime {
	processRuntimeMu.Lock()
	defer processRuntimeMu.Unlock()
	if processRuntime == nil {
		processRuntime = NewRuntime(defaultDeviceConfig())
	}
	return processRuntime
}

//export xrCreateInstance
func xrCreateInstance(apiVersion C.uint64_t) (C.XrHandle, C.int32_t) {
	rt := getOrCreateProcessRuntime()
	h, err := rt.CreateInstance(InstanceInfo{
		StructureType: instanceInfoStructureType,
		APIVersion:    uint64(apiVersion),
		Extensions:    nil,
	})
	if err != nil {
		return 0, xrErrorCode(err.Kind)
	}
	return C.XrHandle(h), 0
}

//export xrDestroyInstance
func xrDestroyInstance(instance C.XrHandle) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.DestroyInstance(Handle(instance)); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

//export xrGetSystem
func xrGetSystem(instance C.XrHandle, formFactor C.int32_t) (C.uint64_t, C.int32_t) {
	rt := getOrCreateProcessRuntime()
	_, err := rt.GetSystem(Handle(instance), FormFactor(formFactor))
	if err != nil {
		return 0, xrErrorCode(err.Kind)
	}
	// The system has no handle of its own in this runtime (spec §4.6: a
	// singleton per instance); callers identify it by its owning instance.
	return C.uint64_t(instance), 0
}

//export xrCreateSession
func xrCreateSession(instance C.XrHandle, graphicsBindingPresent C.int32_t) (C.XrHandle, C.int32_t) {
	rt := getOrCreateProcessRuntime()
	h, err := rt.CreateSession(Handle(instance), CreateSessionInfo{GraphicsBindingPresent: graphicsBindingPresent != 0})
	if err != nil {
		return 0, xrErrorCode(err.Kind)
	}
	return C.XrHandle(h), 0
}

//export xrBeginSession
func xrBeginSession(session C.XrHandle) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.BeginSession(Handle(session)); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

//export xrEndSession
func xrEndSession(session C.XrHandle) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.EndSession(Handle(session)); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

//export xrDestroySession
func xrDestroySession(session C.XrHandle) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.DestroySession(Handle(session)); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

//export xrPollEvent
func xrPollEvent(instance C.XrHandle, out *C.XrEventResult) C.int32_t {
	rt := getOrCreateProcessRuntime()
	event, err := rt.PollEvent(Handle(instance))
	if err != nil {
		if err.Kind == KindEventUnavailable {
			out.has_event = 0
			return 0
		}
		return xrErrorCode(err.Kind)
	}

	out.has_event = 1
	out.event_kind = C.int32_t(event.Kind)
	out.session = C.XrHandle(event.SessionHandle)
	out.state = C.int32_t(event.State)
	return 0
}

//export xrWaitFrame
func xrWaitFrame(session C.XrHandle, out *C.XrFrameState) C.int32_t {
	rt := getOrCreateProcessRuntime()
	state, err := rt.WaitFrame(Handle(session))
	if err != nil {
		return xrErrorCode(err.Kind)
	}
	out.predicted_display_time_ns = C.int64_t(state.PredictedDisplayTimeNS)
	out.predicted_period_ns = C.int64_t(state.PredictedPeriodNS)
	out.should_render = 1
	return 0
}

//export xrBeginFrame
func xrBeginFrame(session C.XrHandle) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.BeginFrame(Handle(session)); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

//export xrEndFrame
func xrEndFrame(session C.XrHandle, blendMode C.int32_t) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.EndFrame(Handle(session), EnvironmentBlendMode(blendMode), nil); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

//export xrGetSystemProperties
func xrGetSystemProperties(instance C.XrHandle, out *C.XrSystemProperties) C.int32_t {
	rt := getOrCreateProcessRuntime()
	props, err := rt.GetSystemProperties(Handle(instance))
	if err != nil {
		return xrErrorCode(err.Kind)
	}
	out.vendor_id = C.uint32_t(props.VendorID)
	writeCString(&out.system_name[0], len(out.system_name), props.SystemName)
	out.max_swapchain_width = C.int32_t(props.MaxSwapchainWidth)
	out.max_swapchain_height = C.int32_t(props.MaxSwapchainHeight)
	out.max_layer_count = C.int32_t(props.MaxLayerCount)
	out.orientation_tracking = boolToC(props.OrientationTracking)
	out.position_tracking = boolToC(props.PositionTracking)
	return 0
}

//export xrCreateReferenceSpace
func xrCreateReferenceSpace(session C.XrHandle, spaceType C.int32_t) (C.XrHandle, C.int32_t) {
	rt := getOrCreateProcessRuntime()
	h, err := rt.CreateReferenceSpace(Handle(session), ReferenceSpaceType(spaceType))
	if err != nil {
		return 0, xrErrorCode(err.Kind)
	}
	return C.XrHandle(h), 0
}

//export xrDestroySpace
func xrDestroySpace(space C.XrHandle) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.DestroySpace(Handle(space)); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

//export xrLocateSpace
func xrLocateSpace(space C.XrHandle, out *C.XrPose) C.int32_t {
	rt := getOrCreateProcessRuntime()
	pose, err := rt.LocateSpace(Handle(space))
	if err != nil {
		return xrErrorCode(err.Kind)
	}
	writePose(out, pose)
	return 0
}

//export xrLocateViews
func xrLocateViews(session C.XrHandle, capacityInput C.int32_t, countOutput *C.int32_t, out *C.XrView) C.int32_t {
	rt := getOrCreateProcessRuntime()
	views, err := rt.LocateViews(Handle(session))
	if err != nil {
		return xrErrorCode(err.Kind)
	}

	*countOutput = C.int32_t(len(views))
	if capacityInput == 0 {
		// Capacity query, per the standard two-call enumeration idiom: the
		// caller is only asking how large a buffer it needs.
		return 0
	}
	if int(capacityInput) < len(views) {
		return xrErrorCode(KindSizeInsufficient)
	}

	slots := unsafe.Slice(out, int(capacityInput))
	for i, v := range views {
		writePose(&slots[i].pose, v.Pose)
		slots[i].fov_left_degrees = C.double(v.FovLeftDegrees)
		slots[i].fov_right_degrees = C.double(v.FovRightDegrees)
		slots[i].fov_up_degrees = C.double(v.FovUpDegrees)
		slots[i].fov_down_degrees = C.double(v.FovDownDegrees)
		slots[i].orientation_valid = boolToC(v.OrientationValid)
		slots[i].orientation_tracked = boolToC(v.OrientationTracked)
		slots[i].position_valid = boolToC(v.PositionValid)
		slots[i].position_tracked = boolToC(v.PositionTracked)
	}
	return 0
}

//export xrCreateSwapchain
func xrCreateSwapchain(session C.XrHandle, info *C.XrSwapchainCreateInfo) (C.XrHandle, C.int32_t) {
	rt := getOrCreateProcessRuntime()
	h, err := rt.CreateSwapchain(Handle(session), CreateSwapchainInfo{
		Format:      SwapchainFormat(info.format),
		Width:       int(info.width),
		Height:      int(info.height),
		SampleCount: int(info.sample_count),
		ArraySize:   int(info.array_size),
		Usage:       UsageFlags(info.usage),
	})
	if err != nil {
		return 0, xrErrorCode(err.Kind)
	}
	return C.XrHandle(h), 0
}

//export xrDestroySwapchain
func xrDestroySwapchain(swapchain C.XrHandle) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.DestroySwapchain(Handle(swapchain)); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

//export xrAcquireSwapchainImage
func xrAcquireSwapchainImage(swapchain C.XrHandle, index *C.int32_t) C.int32_t {
	rt := getOrCreateProcessRuntime()
	i, err := rt.AcquireImage(Handle(swapchain))
	if err != nil {
		return xrErrorCode(err.Kind)
	}
	*index = C.int32_t(i)
	return 0
}

//export xrWaitSwapchainImage
func xrWaitSwapchainImage(swapchain C.XrHandle) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.WaitImage(Handle(swapchain)); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

//export xrReleaseSwapchainImage
func xrReleaseSwapchainImage(swapchain C.XrHandle) C.int32_t {
	rt := getOrCreateProcessRuntime()
	if err := rt.ReleaseImage(Handle(swapchain)); err != nil {
		return xrErrorCode(err.Kind)
	}
	return 0
}

// writeCString copies s into a fixed-size C char buffer, truncating and
// always NUL-terminating rather than overrunning it.
func writeCString(dst *C.char, capacity int, s string) {
	out := unsafe.Slice((*byte)(unsafe.Pointer(dst)), capacity)
	n := copy(out, s)
	if n >= capacity {
		n = capacity - 1
	}
	out[n] = 0
}

func writePose(dst *C.XrPose, pose Pose) {
	dst.orientation_x = C.double(pose.OrientationX)
	dst.orientation_y = C.double(pose.OrientationY)
	dst.orientation_z = C.double(pose.OrientationZ)
	dst.orientation_w = C.double(pose.OrientationW)
	dst.position_x = C.double(pose.PositionX)
	dst.position_y = C.double(pose.PositionY)
	dst.position_z = C.double(pose.PositionZ)
}

func boolToC(b bool) C.int32_t {
	if b {
		return 1
	}
	return 0
}

// xrGetInstanceProcAddr is the loader's standard extensible
// function-pointer resolution mechanism (spec §4.6/§6): it resolves name
// against this shared object's own exported symbol table rather than
// maintaining a second, hand-written name->pointer table that could drift
// from the //export list above.
//export xrGetInstanceProcAddr
func xrGetInstanceProcAddr(name *C.char) unsafe.Pointer {
	return C.lookupProc(name)
}

// xrErrorCode maps a Kind to the small negative integer code the C ABI
// returns; 0 always means success per the XR-loader convention.
func xrErrorCode(kind Kind) C.int32_t {
	codes := map[Kind]int32{
		KindHandleInvalid:                    -1,
		KindValidationFailure:                -2,
		KindAPIVersionUnsupported:            -3,
		KindExtensionNotPresent:              -4,
		KindFormFactorUnsupported:            -5,
		KindSystemInvalid:                    -6,
		KindGraphicsDeviceInvalid:            -7,
		KindLimitReached:                     -8,
		KindSessionNotReady:                  -9,
		KindSessionRunning:                   -10,
		KindSessionNotRunning:                -11,
		KindViewConfigurationTypeUnsupported: -12,
		KindReferenceSpaceUnsupported:        -13,
		KindSwapchainFormatUnsupported:       -14,
		KindFeatureUnsupported:               -15,
		KindSizeInsufficient:                 -16,
		KindCallOrderInvalid:                 -17,
		KindEnvironmentBlendModeUnsupported:  -18,
		KindEventUnavailable:                 -19,
	}
	if code, ok := codes[kind]; ok {
		return C.int32_t(code)
	}
	return -1
}

func defaultDeviceConfig() device.Config {
	return device.Config{EnableColor: true, EnableDepth: true, EnableMotor: true}
}

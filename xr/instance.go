package xr

// ExtensionName enumerates the runtime's extension allowlist (spec
// §4.6). Unlisted names fail create_instance with EXTENSION_NOT_PRESENT.
type ExtensionName string

const (
	ExtDepthLayerComposition ExtensionName = "XR_KHR_composition_layer_depth"
	ExtHostGraphicsEnablement ExtensionName = "XR_KHR_host_graphics_enable"
)

var supportedExtensions = map[ExtensionName]struct{}{
	ExtDepthLayerComposition:  {},
	ExtHostGraphicsEnablement: {},
}

// FormFactor enumerates the form factors get_system accepts (spec §4.6:
// only head-mounted is supported).
type FormFactor int

const (
	FormFactorHeadMounted FormFactor = iota
	FormFactorHandheld
)

const supportedAPIVersion uint64 = 0x0001000000000000 // major 1, minor 0

// InstanceInfo is the caller-supplied structure validated by
// create_instance: structure tag, requested API version, and the
// extension list to enable.
type InstanceInfo struct {
	StructureType string
	APIVersion    uint64
	Extensions    []ExtensionName
}

const instanceInfoStructureType = "XR_TYPE_INSTANCE_CREATE_INFO"

type systemRecord struct {
	formFactor FormFactor
}

type instanceRecord struct {
	events  *eventQueue
	system  *systemRecord

	sessionHandle Handle
	hasSession    bool
}

// CreateInstance validates the structure tag, API version, and extension
// allowlist, then returns a fresh handle holding a new event queue and no
// system yet (spec §4.6).
func (rt *Runtime) CreateInstance(info InstanceInfo) (Handle, *Error) {
	if info.StructureType != instanceInfoStructureType {
		return 0, newError(KindValidationFailure, "unexpected structure type %q", info.StructureType)
	}
	if info.APIVersion != supportedAPIVersion {
		return 0, newError(KindAPIVersionUnsupported, "unsupported API version %#x", info.APIVersion)
	}
	for _, ext := range info.Extensions {
		if _, ok := supportedExtensions[ext]; !ok {
			return 0, newError(KindExtensionNotPresent, "extension %q not present", ext)
		}
	}

	record := &instanceRecord{events: newEventQueue()}
	return rt.instances.insert(record), nil
}

// DestroyInstance removes the handle. The loader contract does not
// require sessions to be torn down first; per spec §9 the runtime does
// not preemptively cancel in-progress sessions.
func (rt *Runtime) DestroyInstance(h Handle) *Error {
	if _, ok := rt.instances.get(h); !ok {
		return newError(KindHandleInvalid, "unknown instance handle")
	}
	rt.instances.remove(h)
	return nil
}

// GetSystem returns the per-instance system singleton, creating it
// lazily on first call. Only the head-mounted form factor is supported.
func (rt *Runtime) GetSystem(instance Handle, formFactor FormFactor) (*systemRecord, *Error) {
	record, ok := rt.instances.get(instance)
	if !ok {
		return nil, newError(KindHandleInvalid, "unknown instance handle")
	}
	if formFactor != FormFactorHeadMounted {
		return nil, newError(KindFormFactorUnsupported, "form factor %d not supported", formFactor)
	}
	if record.system == nil {
		record.system = &systemRecord{formFactor: formFactor}
	}
	return record.system, nil
}

// SystemProperties is the fixed, device-wide description returned by
// GetSystemProperties (spec §4.6).
type SystemProperties struct {
	VendorID               uint32
	SystemName             string
	MaxSwapchainWidth      int
	MaxSwapchainHeight     int
	MaxLayerCount          int
	OrientationTracking    bool
	PositionTracking       bool
}

const systemVendorID uint32 = 0x4b58 // "KX"

// GetSystemProperties reports this runtime's fixed capabilities: no
// orientation or position tracking, one composition layer, 640x480 max
// swapchain dimensions.
func (rt *Runtime) GetSystemProperties(instance Handle) (SystemProperties, *Error) {
	if _, ok := rt.instances.get(instance); !ok {
		return SystemProperties{}, newError(KindHandleInvalid, "unknown instance handle")
	}
	return SystemProperties{
		VendorID:            systemVendorID,
		SystemName:          "kinect-xr-go",
		MaxSwapchainWidth:   640,
		MaxSwapchainHeight:  480,
		MaxLayerCount:       1,
		OrientationTracking: false,
		PositionTracking:    false,
	}, nil
}

// EnumerateInstanceExtensionProperties returns the fixed extension
// allowlist, part of the mandatory loader-facing surface (spec §6).
func EnumerateInstanceExtensionProperties() []ExtensionName {
	return []ExtensionName{ExtDepthLayerComposition, ExtHostGraphicsEnablement}
}

// EnumerateAPILayerProperties always returns empty: this runtime
// implements no API layers (spec §6).
func EnumerateAPILayerProperties() []string {
	return nil
}

// InstanceProperties is returned by GetInstanceProperties (spec §6's
// mandatory loader-facing surface).
type InstanceProperties struct {
	RuntimeName    string
	RuntimeVersion uint64
}

// GetInstanceProperties reports this runtime's identity, independent of
// any created instance.
func GetInstanceProperties() InstanceProperties {
	return InstanceProperties{RuntimeName: "kinect-xr-go", RuntimeVersion: supportedAPIVersion}
}

package xr

import "fmt"

// Kind enumerates the XR-lifecycle error taxonomy (spec §7), a closed
// string enumeration the same way device.Kind and protocol.Kind are,
// rather than a type hierarchy.
type Kind string

const (
	KindHandleInvalid                    Kind = "HANDLE_INVALID"
	KindValidationFailure                Kind = "VALIDATION_FAILURE"
	KindAPIVersionUnsupported            Kind = "API_VERSION_UNSUPPORTED"
	KindExtensionNotPresent              Kind = "EXTENSION_NOT_PRESENT"
	KindFormFactorUnsupported            Kind = "FORM_FACTOR_UNSUPPORTED"
	KindSystemInvalid                    Kind = "SYSTEM_INVALID"
	KindGraphicsDeviceInvalid            Kind = "GRAPHICS_DEVICE_INVALID"
	KindLimitReached                     Kind = "LIMIT_REACHED"
	KindSessionNotReady                  Kind = "SESSION_NOT_READY"
	KindSessionRunning                   Kind = "SESSION_RUNNING"
	KindSessionNotRunning                Kind = "SESSION_NOT_RUNNING"
	KindViewConfigurationTypeUnsupported Kind = "VIEW_CONFIGURATION_TYPE_UNSUPPORTED"
	KindReferenceSpaceUnsupported        Kind = "REFERENCE_SPACE_UNSUPPORTED"
	KindSwapchainFormatUnsupported       Kind = "SWAPCHAIN_FORMAT_UNSUPPORTED"
	KindFeatureUnsupported               Kind = "FEATURE_UNSUPPORTED"
	KindSizeInsufficient                 Kind = "SIZE_INSUFFICIENT"
	KindCallOrderInvalid                 Kind = "CALL_ORDER_INVALID"
	KindEnvironmentBlendModeUnsupported  Kind = "ENVIRONMENT_BLEND_MODE_UNSUPPORTED"
	KindEventUnavailable                 Kind = "EVENT_UNAVAILABLE" // informational, not a failure
)

// Error is the value-returning failure type every entry point in this
// package returns instead of panicking or unwinding, per spec §7's
// "entry points are value-returning; there is no exception unwinding."
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

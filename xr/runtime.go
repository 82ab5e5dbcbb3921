// Package xr implements the runtime side of a standard XR-loader entry
// point surface: process-wide handle tables, the instance/session
// lifecycle state machine, reference spaces, swapchains, frame timing,
// and texture upload, backed by the device and framecache packages.
package xr

import "kinect-xr-go/device"

// Runtime is the process-wide XR state the loader's global function
// pointers dispatch into (spec §9: "process-scoped state with a
// well-defined lifecycle"). It is created once per process and lives for
// the process's lifetime; the loader contract has no notion of
// destroying the runtime itself, only instances within it.
type Runtime struct {
	instances  *handleTable[instanceRecord]
	sessions   *handleTable[sessionRecord]
	spaces     *handleTable[spaceRecord]
	swapchains *handleTable[swapchainRecord]

	deviceConfig    device.Config
	newDeviceSession func() device.Session
}

// NewRuntime constructs a Runtime. deviceConfig is applied to every
// device.Session a session's BeginSession creates; newDeviceSession
// defaults to device.NewSession but can be overridden (tests substitute a
// fake Session so no real hardware is required).
func NewRuntime(deviceConfig device.Config) *Runtime {
	return &Runtime{
		instances:        newHandleTable[instanceRecord](),
		sessions:         newHandleTable[sessionRecord](),
		spaces:           newHandleTable[spaceRecord](),
		swapchains:       newHandleTable[swapchainRecord](),
		deviceConfig:     deviceConfig,
		newDeviceSession: device.NewSession,
	}
}

// WithDeviceSessionFactory overrides how BeginSession constructs its
// device.Session, for tests or for wiring in a mock-mode session.
func (rt *Runtime) WithDeviceSessionFactory(factory func() device.Session) {
	rt.newDeviceSession = factory
}

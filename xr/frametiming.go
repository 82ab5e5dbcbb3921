package xr

import "time"

const (
	framePeriod   = 33333333 * time.Nanosecond // 33.333333ms, spec §4.6
	framePeriodNS = int64(framePeriod)
)

// frameTimingRecord is the per-session timing state (spec §3): whether a
// frame is currently in progress, the last recorded display time, and a
// running frame count. lastWaitFrameCall tracks wall-clock time of the
// previous wait_frame invocation; pacing is computed from it, not from
// the previously predicted display time — the resolution of the open
// question on timing drift (see DESIGN.md).
type frameTimingRecord struct {
	frameInProgress   bool
	lastDisplayTime   int64
	frameCount        uint64
	lastWaitFrameCall time.Time
}

// FrameState is wait_frame's return value: predicted display time and
// period in nanoseconds, and an unconditional should_render flag.
type FrameState struct {
	PredictedDisplayTimeNS int64
	PredictedPeriodNS      int64
	ShouldRender           bool
}

// sleepFunc is overridable in tests so pacing tests don't need to burn
// wall-clock time.
var sleepFunc = time.Sleep

// WaitFrame paces the caller at 30 Hz: sleeps off the elapsed time since
// the previous call if it undershot one frame period, then records a new
// display time and advances the frame count (spec §4.6).
func (rt *Runtime) WaitFrame(session Handle) (FrameState, *Error) {
	record, ok := rt.sessions.get(session)
	if !ok {
		return FrameState{}, newError(KindHandleInvalid, "unknown session handle")
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if !record.state.running() {
		return FrameState{}, newError(KindSessionNotReady, "session not in a running state")
	}

	timing := &record.timing
	now := time.Now()
	if !timing.lastWaitFrameCall.IsZero() {
		elapsed := now.Sub(timing.lastWaitFrameCall)
		if elapsed < framePeriod {
			sleepFunc(framePeriod - elapsed)
			now = time.Now()
		}
	}

	timing.lastWaitFrameCall = now
	timing.lastDisplayTime = now.UnixNano() + framePeriodNS
	timing.frameCount++

	return FrameState{
		PredictedDisplayTimeNS: timing.lastDisplayTime,
		PredictedPeriodNS:      framePeriodNS,
		ShouldRender:           true,
	}, nil
}

// BeginFrame requires a running session with no frame already in
// progress.
func (rt *Runtime) BeginFrame(session Handle) *Error {
	record, ok := rt.sessions.get(session)
	if !ok {
		return newError(KindHandleInvalid, "unknown session handle")
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if !record.state.running() {
		return newError(KindSessionNotReady, "session not in a running state")
	}
	if record.timing.frameInProgress {
		return newError(KindCallOrderInvalid, "a frame is already in progress")
	}
	record.timing.frameInProgress = true
	return nil
}

// EnvironmentBlendMode enumerates the blend modes end_frame validates;
// this runtime only accepts opaque composition.
type EnvironmentBlendMode int

const (
	BlendModeOpaque EnvironmentBlendMode = iota
	BlendModeAdditive
	BlendModeAlphaBlend
)

// CompositionLayer is one submitted layer at end_frame: a space, and
// optionally a depth-layer extension referencing a depth swapchain.
type CompositionLayer struct {
	Space     Handle
	DepthInfo *DepthLayerInfo
}

// EndFrame requires a running session with a frame in progress, validates
// the blend mode, and walks each submitted layer's depth-composition
// extension chain (spec §4.6).
func (rt *Runtime) EndFrame(session Handle, blendMode EnvironmentBlendMode, layers []CompositionLayer) *Error {
	record, ok := rt.sessions.get(session)
	if !ok {
		return newError(KindHandleInvalid, "unknown session handle")
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if !record.state.running() {
		return newError(KindSessionNotReady, "session not in a running state")
	}
	if !record.timing.frameInProgress {
		return newError(KindCallOrderInvalid, "no frame in progress")
	}
	if blendMode != BlendModeOpaque {
		return newError(KindEnvironmentBlendModeUnsupported, "blend mode %d not supported", blendMode)
	}

	for _, layer := range layers {
		if layer.DepthInfo != nil {
			if err := rt.validateDepthLayer(*layer.DepthInfo); err != nil {
				return err
			}
		}
	}

	record.timing.frameInProgress = false
	return nil
}

package xr

// ReferenceSpaceType enumerates the supported space kinds (spec §4.6).
// Pose is identity for all three; the camera is stationary.
type ReferenceSpaceType int

const (
	SpaceView ReferenceSpaceType = iota
	SpaceLocal
	SpaceStage
)

// Pose is a rigid-body transform. Every reference space this runtime
// creates carries the identity pose.
type Pose struct {
	OrientationX, OrientationY, OrientationZ, OrientationW float64
	PositionX, PositionY, PositionZ                        float64
}

var identityPose = Pose{OrientationW: 1}

type spaceRecord struct {
	sessionHandle Handle
	spaceType     ReferenceSpaceType
}

func isSupportedSpaceType(t ReferenceSpaceType) bool {
	switch t {
	case SpaceView, SpaceLocal, SpaceStage:
		return true
	default:
		return false
	}
}

// CreateReferenceSpace validates the requested type and returns a handle
// to a space record carrying the identity pose.
func (rt *Runtime) CreateReferenceSpace(session Handle, spaceType ReferenceSpaceType) (Handle, *Error) {
	if _, ok := rt.sessions.get(session); !ok {
		return 0, newError(KindHandleInvalid, "unknown session handle")
	}
	if !isSupportedSpaceType(spaceType) {
		return 0, newError(KindReferenceSpaceUnsupported, "reference space type %d not supported", spaceType)
	}

	record := &spaceRecord{sessionHandle: session, spaceType: spaceType}
	return rt.spaces.insert(record), nil
}

func (rt *Runtime) DestroySpace(h Handle) *Error {
	if _, ok := rt.spaces.get(h); !ok {
		return newError(KindHandleInvalid, "unknown space handle")
	}
	rt.spaces.remove(h)
	return nil
}

// LocateSpace returns the space's identity pose; it is always valid and
// tracked since the camera never moves.
func (rt *Runtime) LocateSpace(h Handle) (Pose, *Error) {
	if _, ok := rt.spaces.get(h); !ok {
		return Pose{}, newError(KindHandleInvalid, "unknown space handle")
	}
	return identityPose, nil
}

// View is one entry of locate_views' result (spec §4.6): a mono view at
// identity pose with a fixed, symmetric field of view.
type View struct {
	Pose                     Pose
	FovLeftDegrees           float64
	FovRightDegrees          float64
	FovUpDegrees             float64
	FovDownDegrees           float64
	OrientationValid         bool
	OrientationTracked       bool
	PositionValid            bool
	PositionTracked          bool
}

// LocateViews always returns exactly one mono view, matching the fixed
// ~57°x43° field of view the depth camera's optics define.
func (rt *Runtime) LocateViews(session Handle) ([]View, *Error) {
	if _, ok := rt.sessions.get(session); !ok {
		return nil, newError(KindHandleInvalid, "unknown session handle")
	}
	return []View{
		{
			Pose:               identityPose,
			FovLeftDegrees:     28.5,
			FovRightDegrees:    28.5,
			FovUpDegrees:       21.5,
			FovDownDegrees:     21.5,
			OrientationValid:   true,
			OrientationTracked: true,
			PositionValid:      true,
			PositionTracked:    true,
		},
	}, nil
}

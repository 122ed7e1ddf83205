package model

// PermissionState describes what we know about the platform's location
// permission. Some sensors cannot report permission without prompting,
// so Unknown is a legitimate long-lived state.
type PermissionState int

const (
	PermissionUnknown PermissionState = iota
	PermissionPrompt                  // not yet decided by the user
	PermissionGranted
	PermissionDenied
)

func (s PermissionState) String() string {
	switch s {
	case PermissionPrompt:
		return "prompt"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// TrackingState is the lifecycle state of a tracking session.
//
//	Idle --Start--> Requesting --granted--> Active --Stop--> Idle
//	Requesting --denied--> Error
//	Active --fatal error--> Error
//	Error --Start--> Requesting   (retry allowed)
type TrackingState int

const (
	TrackingIdle TrackingState = iota
	TrackingRequesting
	TrackingActive
	TrackingError
)

func (s TrackingState) String() string {
	switch s {
	case TrackingRequesting:
		return "requesting"
	case TrackingActive:
		return "active"
	case TrackingError:
		return "error"
	default:
		return "idle"
	}
}

// ErrorKind classifies sensor-level failures. Classification happens
// once at the tracker boundary; the geometry layers below never see
// sensor errors.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	// ErrorPermissionDenied is fatal until the user re-grants.
	ErrorPermissionDenied
	// ErrorPositionUnavailable is retryable; the sensor keeps trying.
	ErrorPositionUnavailable
	// ErrorTimeout is retryable, handled like ErrorPositionUnavailable.
	ErrorTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorPermissionDenied:
		return "permission_denied"
	case ErrorPositionUnavailable:
		return "position_unavailable"
	case ErrorTimeout:
		return "timeout"
	default:
		return "none"
	}
}

package domain

import "time"

// PermissionState is the host platform's location permission status.
// It moves forward from unknown via a permission query or as a side
// effect of an actual position request; denied is sticky until a later
// query reports otherwise.
type PermissionState string

const (
	PermissionUnknown PermissionState = "unknown"
	PermissionPrompt  PermissionState = "prompt"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// AcquisitionState is the controller's lifecycle state. At most one of
// {StateAcquiringOnce, StateWatching} is active at a time.
type AcquisitionState string

const (
	StateIdle          AcquisitionState = "idle"
	StateAcquiringOnce AcquisitionState = "acquiring-once"
	StateWatching      AcquisitionState = "watching"
	StateError         AcquisitionState = "error"
)

// PositionSample is one accepted position reading. It is immutable
// after creation: the engine copies it into history and hands copies
// to subscribers, never a live reference.
//
// Optional fields are pointers: nil means "not reported by the
// source", which is distinct from a reported zero value.
type PositionSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Accuracy is the radius in meters within which the true position
	// is estimated to lie.
	Accuracy float64 `json:"accuracy_meters"`
	// Timestamp is milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp_ms"`

	Altitude *float64 `json:"altitude_meters,omitempty"`
	// Heading is degrees clockwise from true north, in [0,360).
	Heading *float64 `json:"heading_deg,omitempty"`
	// Speed is meters per second, never negative.
	Speed *float64 `json:"speed_mps,omitempty"`
}

// Time converts the sample timestamp to a time.Time.
func (s PositionSample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Sanitized returns a copy with out-of-range optional fields dropped:
// a heading outside [0,360) or a negative speed becomes absent. The
// sample itself is still acceptable; only the bad field is lost.
func (s PositionSample) Sanitized() PositionSample {
	if s.Heading != nil && (*s.Heading < 0 || *s.Heading >= 360) {
		s.Heading = nil
	}
	if s.Speed != nil && *s.Speed < 0 {
		s.Speed = nil
	}
	return s
}

// SampleHandler receives accepted samples.
type SampleHandler func(sample PositionSample)

// FailureHandler receives acquisition failures.
type FailureHandler func(failure *Failure)

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the acquisition layer. Position-source failures
// map 1:1 onto these; use with NewFailure to add operation context.
var (
	ErrUnsupported      = fmt.Errorf("location capability not supported")
	ErrPermissionDenied = fmt.Errorf("location permission denied")
	ErrUnavailable      = fmt.Errorf("position unavailable")
	ErrTimeout          = fmt.Errorf("position request timed out")
	ErrInvalidData      = fmt.Errorf("sample failed coordinate validation")
	ErrUnknown          = fmt.Errorf("unknown location failure")
)

// FailureKind is a machine-parseable failure category. Every sentinel
// maps to exactly one kind.
type FailureKind string

const (
	KindUnsupported      FailureKind = "unsupported"
	KindPermissionDenied FailureKind = "permission-denied"
	KindUnavailable      FailureKind = "unavailable"
	KindTimeout          FailureKind = "timeout"
	KindInvalidData      FailureKind = "invalid-data"
	KindUnknown          FailureKind = "unknown"
)

var failureKindMap = map[error]FailureKind{
	ErrUnsupported:      KindUnsupported,
	ErrPermissionDenied: KindPermissionDenied,
	ErrUnavailable:      KindUnavailable,
	ErrTimeout:          KindTimeout,
	ErrInvalidData:      KindInvalidData,
	ErrUnknown:          KindUnknown,
}

// Failure wraps a sentinel error with operation context. Failures are
// stored as "last error" on the controller and session — they are
// never thrown past the engine boundary, callers read the error field.
type Failure struct {
	Op     string // operation name (e.g. "controller.GetCurrentPosition")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (f *Failure) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", f.Op, f.Detail, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Kind returns the failure's machine-parseable category.
func (f *Failure) Kind() FailureKind {
	return KindOf(f.Err)
}

// NewFailure creates a Failure wrapping a sentinel error.
func NewFailure(op string, err error, detail string) *Failure {
	return &Failure{Op: op, Err: err, Detail: detail}
}

// AsFailure converts an arbitrary error into a *Failure, preserving an
// existing Failure in the chain and tagging unrecognized errors with
// the given operation name.
func AsFailure(op string, err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Op: op, Err: err}
}

// KindOf returns the machine-parseable kind for the given error,
// walking the error chain with errors.Is. Returns KindUnknown if no
// sentinel matches.
func KindOf(err error) FailureKind {
	if err == nil {
		return KindUnknown
	}
	if kind, ok := failureKindMap[err]; ok {
		return kind
	}
	for sentinel, kind := range failureKindMap {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

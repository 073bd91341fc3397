// Package camerr defines the error taxonomy shared by every camcore
// component: the parameter system, the camera contract, and the
// acquisition driver all return errors of this shape rather than ad hoc
// strings, so callers can branch on Kind without parsing messages.
package camerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error. Zero value is never returned by camcore.
type Kind int

const (
	_ Kind = iota
	NotFound
	Unsupported
	AccessDenied
	TypeMismatch
	OutOfRange
	BusyRecording
	NotRecording
	AlreadyRecording
	EndOfStream
	Timeout
	Device
	Internal
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Unsupported:
		return "unsupported"
	case AccessDenied:
		return "access_denied"
	case TypeMismatch:
		return "type_mismatch"
	case OutOfRange:
		return "out_of_range"
	case BusyRecording:
		return "busy_recording"
	case NotRecording:
		return "not_recording"
	case AlreadyRecording:
		return "already_recording"
	case EndOfStream:
		return "end_of_stream"
	case Timeout:
		return "timeout"
	case Device:
		return "device"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across the camcore public
// API. Device errors additionally carry the backend's own error code.
type Error struct {
	Kind    Kind
	Message string
	Code    int // only meaningful when Kind == Device
}

func (e *Error) Error() string {
	if e.Kind == Device {
		return fmt.Sprintf("camcore: device error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("camcore: %s: %s", e.Kind, e.Message)
}

// Is reports whether err is a camcore *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, format, args...)
}

func Unsupportedf(format string, args ...any) *Error {
	return New(Unsupported, format, args...)
}

func AccessDeniedf(format string, args ...any) *Error {
	return New(AccessDenied, format, args...)
}

func TypeMismatchf(format string, args ...any) *Error {
	return New(TypeMismatch, format, args...)
}

func OutOfRangef(format string, args ...any) *Error {
	return New(OutOfRange, format, args...)
}

func BusyRecordingf(format string, args ...any) *Error {
	return New(BusyRecording, format, args...)
}

func NotRecordingf(format string, args ...any) *Error {
	return New(NotRecording, format, args...)
}

func AlreadyRecordingf(format string, args ...any) *Error {
	return New(AlreadyRecording, format, args...)
}

func EndOfStreamf(format string, args ...any) *Error {
	return New(EndOfStream, format, args...)
}

func Timeoutf(format string, args ...any) *Error {
	return New(Timeout, format, args...)
}

// Devicef builds a Device-kind error carrying the backend's own code.
func Devicef(code int, format string, args ...any) *Error {
	e := New(Device, format, args...)
	e.Code = code
	return e
}

func Internalf(format string, args ...any) *Error {
	return New(Internal, format, args...)
}

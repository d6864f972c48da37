package signal

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes signal resolution errors.
type ErrorCode string

const (
	// ErrCodeUnknownSignal indicates a name absent from the port registry, or
	// a name used in the wrong direction (writing an output, reading an input).
	ErrCodeUnknownSignal ErrorCode = "UNKNOWN_SIGNAL"

	// ErrCodeUnboundSignal indicates a declared port with no storage location
	// in the current model instance.
	ErrCodeUnboundSignal ErrorCode = "UNBOUND_SIGNAL"

	// ErrCodeStaleBinding indicates use of a table after its model instance
	// was released.
	ErrCodeStaleBinding ErrorCode = "STALE_BINDING"
)

// Error is a signal resolution error. Resolution errors are fatal to the
// scenario that hits them.
type Error struct {
	Code    ErrorCode
	Signal  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s (signal=%s)", e.Code, e.Message, e.Signal)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsUnknownSignal returns true if err is an UNKNOWN_SIGNAL error.
func IsUnknownSignal(err error) bool { return hasCode(err, ErrCodeUnknownSignal) }

// IsUnboundSignal returns true if err is an UNBOUND_SIGNAL error.
func IsUnboundSignal(err error) bool { return hasCode(err, ErrCodeUnboundSignal) }

// IsStaleBinding returns true if err is a STALE_BINDING error.
func IsStaleBinding(err error) bool { return hasCode(err, ErrCodeStaleBinding) }

// IsResolutionError returns true for any signal resolution error.
func IsResolutionError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

func unknown(name, msg string) *Error {
	return &Error{Code: ErrCodeUnknownSignal, Signal: name, Message: msg}
}

package remap

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned when an operation needs a loaded engine
	ErrNotRunning = errors.New("engine not running")

	// ErrClosed is returned by Load once the engine has been closed
	ErrClosed = errors.New("engine closed")

	// ErrUnknownResultType is returned for a result_type the engine does not know
	ErrUnknownResultType = errors.New("unknown result type")

	// ErrInvalidKeycode is returned when a keycode cannot be parsed
	ErrInvalidKeycode = errors.New("invalid keycode")

	// ErrInvalidValue is returned when a result value is out of range for its type
	ErrInvalidValue = errors.New("invalid result value")
)

// ConfigError reports a binding record that could not be loaded.
type ConfigError struct {
	Index   int
	Keycode string
	Reason  string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("binding %d (keycode %q)", e.Index, e.Keycode)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TranslationError reports a code that has no equivalent on a platform.
type TranslationError struct {
	Platform string
	Code     uint32
	// ToLogical is true when translating native -> logical
	ToLogical bool
}

func (e *TranslationError) Error() string {
	if e.ToLogical {
		return fmt.Sprintf("%s: native code 0x%X has no logical key", e.Platform, e.Code)
	}
	return fmt.Sprintf("%s: logical key 0x%X has no native code", e.Platform, e.Code)
}

// DriverError reports a failure talking to a virtual device driver or OS API.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

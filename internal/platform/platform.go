// Package platform connects the remap engine to the operating system: it
// captures physical key transitions and hosts the virtual keyboard and
// gamepad the engine writes to.
package platform

import (
	"context"
	"errors"
	"log"

	"overbind/internal/remap"
)

// ErrUnsupported is returned on platforms without an adapter
var ErrUnsupported = errors.New("platform: input interception is not supported on this OS")

// Handler receives one physical transition and reports whether it was
// consumed. Consumed events are suppressed where the OS allows it.
type Handler func(key remap.LogicalKey, pressed bool) bool

// Adapter is the per-OS boundary of the engine.
type Adapter interface {
	remap.OutputSink

	// Name identifies the adapter in logs and the status API.
	Name() string

	// TranslateToLogical maps a native key code to the logical key space.
	TranslateToLogical(native uint32) (remap.LogicalKey, error)

	// Listen delivers physical transitions to handler until ctx is done or
	// the source fails.
	Listen(ctx context.Context, handler Handler) error

	// Close releases the virtual devices and the input grab.
	Close() error
}

// Options selects devices for an adapter.
type Options struct {
	// Device is the input device to grab (Linux: a name under
	// /dev/input/by-id or /dev/input/by-path, or a full path).
	Device string
}

// New opens the adapter for the running OS.
func New(opts Options) (Adapter, error) {
	return newAdapter(opts)
}

// deliver calls handler and turns a panic into a logged, unconsumed event.
// OS hook callbacks must never unwind into the OS.
func deliver(handler Handler, key remap.LogicalKey, pressed bool) (consumed bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Platform: Recovered from panic handling key 0x%X: %v", uint32(key), r)
			consumed = false
		}
	}()
	return handler(key, pressed)
}

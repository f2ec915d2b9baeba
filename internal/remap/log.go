package remap

import (
	"log"
	"sync/atomic"
)

var debug atomic.Bool

// SetDebug turns per-event logging on or off for every engine.
func SetDebug(on bool) {
	debug.Store(on)
}

func debugf(format string, args ...any) {
	if debug.Load() {
		log.Printf("Engine: "+format, args...)
	}
}

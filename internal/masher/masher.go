// Package masher runs the automation loop that rapidly presses the configured
// mash outputs while the mash trigger keys are held.
package masher

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"overbind/internal/remap"
)

// DefaultRateHz is the tick rate used when none is configured.
const DefaultRateHz = 36

// Injector is the engine entry point the loop drives.
type Injector interface {
	Inject(slot uint8, pressed bool)
}

// Condition reports whether the target is in a state that accepts mashing
// (for example a dialogue box is open). The loop only toggles keys while
// the condition holds.
type Condition interface {
	Ready() bool
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func() bool

func (f ConditionFunc) Ready() bool { return f() }

// Always is a Condition that is always ready.
var Always = ConditionFunc(func() bool { return true })

// Loop alternates press and release of every mash slot while active.
type Loop struct {
	injector Injector
	cond     Condition
	slots    int
	interval time.Duration

	active atomic.Bool
	wake   chan struct{}

	// down is only touched by Run
	down bool
}

// New creates a loop over slots mash outputs ticking at rateHz.
func New(injector Injector, slots int, rateHz float64, cond Condition) *Loop {
	if rateHz <= 0 {
		rateHz = DefaultRateHz
	}
	if cond == nil {
		cond = Always
	}
	return &Loop{
		injector: injector,
		cond:     cond,
		slots:    slots,
		interval: time.Duration(float64(time.Second) / rateHz),
		wake:     make(chan struct{}, 1),
	}
}

// SetActive flips the loop on or off. It never blocks, so it can be used as
// the engine's masher change listener.
func (l *Loop) SetActive(active bool) {
	l.active.Store(active)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Active reports the last state passed to SetActive.
func (l *Loop) Active() bool {
	return l.active.Load()
}

// Run drives the loop until ctx is done. Held outputs are released on exit.
func (l *Loop) Run(ctx context.Context) error {
	if l.slots == 0 {
		log.Printf("Masher: No mash outputs configured, loop idle")
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	defer l.releaseAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
			if !l.active.Load() {
				l.releaseAll()
			}
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Loop) tick() {
	if !l.active.Load() || l.slots == 0 {
		return
	}
	if !l.cond.Ready() {
		l.releaseAll()
		return
	}

	l.down = !l.down
	for slot := 0; slot < l.slots; slot++ {
		l.injector.Inject(uint8(slot), l.down)
	}
}

func (l *Loop) releaseAll() {
	if !l.down {
		return
	}
	l.down = false
	l.injector.Inject(remap.ReleaseAll, false)
}

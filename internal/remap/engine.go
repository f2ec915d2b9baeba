package remap

import (
	"log"
	"sync"
	"sync/atomic"

	"overbind/internal/config"
)

// ReleaseAll is the Inject slot that releases every injected output.
const ReleaseAll uint8 = 0xFF

// Options configures an Engine.
type Options struct {
	// Sink receives keyboard events and gamepad frames. Nil discards output.
	Sink OutputSink

	// Overlay is toggled whenever the masher flag flips. Optional.
	Overlay Overlay

	// BlockKeyboardOnController stops keys that drive the pad, and keys
	// with no binding at all, from also reaching the virtual keyboard.
	BlockKeyboardOnController bool

	// MashSet are the outputs Inject cycles through. When empty the
	// keyboard codes of the mash trigger keys are used.
	MashSet []Action

	// OnMasherChange is called on every flip of the masher flag, in order.
	// It runs on the event goroutine and must not block.
	OnMasherChange func(active bool)
}

// Engine turns physical key transitions into virtual keyboard and gamepad
// output. One engine is shared by the platform event source and the mash
// loop.
type Engine struct {
	opts Options

	// life is held for reading by every event and for writing by Load, Stop
	// and Close, so a reset never interleaves with an event in flight.
	life sync.RWMutex

	// closed is guarded by life
	closed bool

	mu      sync.Mutex
	running bool
	table   *Table
	st      *store
	mash    []Action
	frame   GamepadFrame
	seq     uint64

	padMu  sync.Mutex
	pushed uint64

	masherActive atomic.Bool

	overlayCh   chan bool
	overlayDone chan struct{}
	closeOnce   sync.Once
}

// New creates a stopped engine.
func New(opts Options) *Engine {
	if opts.Sink == nil {
		opts.Sink = DiscardSink{}
	}
	e := &Engine{opts: opts}
	if opts.Overlay != nil {
		e.overlayCh = make(chan bool, 16)
		e.overlayDone = make(chan struct{})
		go e.overlayLoop()
	}
	return e
}

// Load builds the binding table and starts accepting events. Loading a
// running engine resets it first. On error the engine is left stopped.
// A closed engine cannot be loaded again.
func (e *Engine) Load(records []config.Binding) error {
	e.life.Lock()
	defer e.life.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.stopLocked()

	table, err := BuildTable(records)
	if err != nil {
		return err
	}

	mash := append([]Action(nil), e.opts.MashSet...)
	if len(mash) == 0 {
		for _, key := range table.MashTriggers() {
			b, _ := table.Binding(key)
			mash = append(mash, Action{Kind: KindKeyboard, Value: b.Action.Value})
			if len(mash) == config.MaxMashActions {
				break
			}
		}
	}

	e.mu.Lock()
	e.table = table
	e.st = newStore(table)
	e.mash = mash
	e.frame = GamepadFrame{}
	e.running = true
	e.mu.Unlock()

	s := table.Summary()
	log.Printf("Engine: Loaded %d bindings, %d socd keys, %d mash triggers", s.Bindings, s.Pairs, s.MashTriggers)
	return nil
}

// OnPhysicalEvent handles one physical transition. It reports whether the
// engine consumed the event; a stopped engine consumes nothing and the
// caller should let the event through untouched.
func (e *Engine) OnPhysicalEvent(key LogicalKey, pressed bool) bool {
	e.life.RLock()
	defer e.life.RUnlock()

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return false
	}
	debugf("Key 0x%X pressed=%v", uint32(key), pressed)
	p := e.planEvent(key, pressed)
	e.mu.Unlock()

	e.execute(p)
	return true
}

// Inject presses or releases one of the mash outputs. Slot ReleaseAll
// releases everything injected so far. Out of range slots are ignored.
func (e *Engine) Inject(slot uint8, pressed bool) {
	e.life.RLock()
	defer e.life.RUnlock()

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}

	var p plan
	st := e.st
	switch {
	case slot == ReleaseAll:
		for code := range st.injectedKeys {
			st.emit(&p.pre, code, false)
		}
		st.injectedKeys = make(map[uint16]bool)
		if st.injected != 0 {
			st.injected = 0
			e.stageFrame(&p)
		}

	case int(slot) < len(e.mash):
		a := e.mash[slot]
		switch a.Kind {
		case KindKeyboard:
			code := uint16(a.Value)
			if pressed {
				st.injectedKeys[code] = true
			} else {
				delete(st.injectedKeys, code)
			}
			st.emit(&p.pre, code, pressed)
		case KindFaceButton:
			if pressed {
				st.injected |= uint16(a.Value)
			} else {
				st.injected &^= uint16(a.Value)
			}
			e.stageFrame(&p)
		}

	default:
		debugf("Ignoring inject for slot %d", slot)
	}
	e.mu.Unlock()

	e.execute(p)
}

// Stop resets every key to neutral, releases held keyboard output and
// flushes a zeroed frame once. It waits for an event in flight to finish.
func (e *Engine) Stop() {
	e.life.Lock()
	defer e.life.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	release := e.st.reset()
	e.frame = GamepadFrame{}
	e.seq++
	seq := e.seq
	wasActive := e.masherActive.Swap(false)
	e.mu.Unlock()

	for _, code := range release {
		if err := e.opts.Sink.EmitVirtualKey(code, false); err != nil {
			log.Printf("Engine: Failed to release key 0x%X: %v", code, err)
		}
	}
	if len(release) > 0 {
		if err := e.opts.Sink.SyncKeyboard(); err != nil {
			log.Printf("Engine: Failed to sync keyboard: %v", err)
		}
	}

	e.padMu.Lock()
	e.pushed = seq
	if err := e.opts.Sink.UpdateGamepad(GamepadFrame{}); err != nil {
		log.Printf("Engine: Failed to flush gamepad: %v", err)
	}
	e.padMu.Unlock()

	if wasActive {
		e.notifyMasher(false)
	}
	log.Printf("Engine: Stopped")
}

// Close stops the engine and the overlay worker. The engine cannot be
// loaded again afterwards.
func (e *Engine) Close() {
	e.life.Lock()
	e.stopLocked()
	e.closed = true
	e.life.Unlock()

	e.closeOnce.Do(func() {
		if e.overlayCh != nil {
			close(e.overlayCh)
			<-e.overlayDone
		}
	})
}

// Running reports whether a table is loaded and events are accepted.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// MasherActive reports whether every mash trigger key is held.
func (e *Engine) MasherActive() bool {
	return e.masherActive.Load()
}

// MashSlots returns how many mash outputs Inject accepts.
func (e *Engine) MashSlots() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.mash)
}

// Frame returns the last frame built.
func (e *Engine) Frame() GamepadFrame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// Table returns the loaded binding table, or nil when stopped.
func (e *Engine) Table() *Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}
	return e.table
}

func (e *Engine) notifyMasher(active bool) {
	if e.opts.OnMasherChange != nil {
		e.opts.OnMasherChange(active)
	}
	if e.overlayCh == nil {
		return
	}
	select {
	case e.overlayCh <- active:
	default:
		log.Printf("Engine: Overlay queue full, dropping toggle %v", active)
	}
}

// overlayLoop applies overlay toggles in order off the event goroutine.
func (e *Engine) overlayLoop() {
	defer close(e.overlayDone)
	for active := range e.overlayCh {
		if err := e.opts.Overlay.Toggle(active); err != nil {
			log.Printf("Engine: Overlay toggle failed: %v", err)
		}
	}
}

package remap

import "log"

type keyEvent struct {
	code    uint16
	pressed bool
}

// plan is everything one event produces, computed under the state lock and
// executed after it is released.
type plan struct {
	pre   []keyEvent
	frame *GamepadFrame
	seq   uint64
	post  []keyEvent

	masherFlip bool
	masher     bool
}

// planEvent updates state for one physical transition and returns the
// output it produces. Called with e.mu held.
func (e *Engine) planEvent(key LogicalKey, pressed bool) plan {
	var p plan
	st := e.st

	k, bound := st.table.Binding(key)
	_, paired := st.pairs[key]

	if !bound && !paired {
		if !e.opts.BlockKeyboardOnController && key <= 0xFFFF {
			st.emit(&p.post, uint16(key), pressed)
		}
		return p
	}

	if bound {
		st.setPressed(key, pressed)
	}
	padChanged := st.resolve(key, pressed, &p.pre)

	if bound && k.Action.Kind == KindMashTrigger {
		p.masher, p.masherFlip = e.updateGate()
	}

	// Keyboard rebinds (and paired keys without a binding) only touch the
	// pad when they flipped a gamepad-bound opposite
	if !bound || k.Action.Kind == KindKeyboard || k.Action.Kind == KindMashTrigger {
		code := uint16(key)
		if bound {
			code = uint16(k.Action.Value)
		}
		st.emit(&p.pre, code, pressed)
		if padChanged {
			e.stageFrame(&p)
		}
		return p
	}

	e.stageFrame(&p)
	if !e.opts.BlockKeyboardOnController && key <= 0xFFFF {
		st.emit(&p.post, uint16(key), pressed)
	}
	return p
}

// stageFrame rebuilds the frame into p. Called with e.mu held.
func (e *Engine) stageFrame(p *plan) {
	f := e.st.buildFrame()
	e.frame = f
	e.seq++
	p.frame = &f
	p.seq = e.seq
}

// execute sends a plan to the sink and the masher collaborators. Sink
// failures are logged and do not stop the rest of the plan.
func (e *Engine) execute(p plan) {
	sink := e.opts.Sink

	for _, ev := range p.pre {
		if err := sink.EmitVirtualKey(ev.code, ev.pressed); err != nil {
			log.Printf("Engine: Failed to emit key 0x%X: %v", ev.code, err)
		}
	}
	if p.frame != nil {
		e.pushFrame(*p.frame, p.seq)
	}
	for _, ev := range p.post {
		if err := sink.EmitVirtualKey(ev.code, ev.pressed); err != nil {
			log.Printf("Engine: Failed to emit key 0x%X: %v", ev.code, err)
		}
	}
	if len(p.pre) > 0 || len(p.post) > 0 {
		if err := sink.SyncKeyboard(); err != nil {
			log.Printf("Engine: Failed to sync keyboard: %v", err)
		}
	}

	if p.masherFlip {
		e.notifyMasher(p.masher)
	}
}

// pushFrame sends a frame unless a newer one already went out. padMu
// serializes pushes so the pad never sees frames out of order.
func (e *Engine) pushFrame(f GamepadFrame, seq uint64) {
	e.padMu.Lock()
	defer e.padMu.Unlock()

	if seq <= e.pushed {
		debugf("Dropping stale frame %d (last pushed %d)", seq, e.pushed)
		return
	}
	e.pushed = seq
	if err := e.opts.Sink.UpdateGamepad(f); err != nil {
		log.Printf("Engine: Failed to update gamepad: %v", err)
	}
}

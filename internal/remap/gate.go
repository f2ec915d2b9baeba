package remap

// mashReady reports whether every mash trigger key is held. No triggers
// means never ready.
func (s *store) mashReady() bool {
	n := 0
	for i := range s.keys {
		k := &s.keys[i]
		if k.Action.Kind != KindMashTrigger {
			continue
		}
		if !k.pressed {
			return false
		}
		n++
	}
	return n > 0
}

// updateGate recomputes the masher flag and reports a flip.
func (e *Engine) updateGate() (active bool, flipped bool) {
	active = e.st.mashReady()
	if active == e.masherActive.Load() {
		return active, false
	}
	e.masherActive.Store(active)
	debugf("Masher active: %v", active)
	return active, true
}

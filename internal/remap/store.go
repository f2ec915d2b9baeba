package remap

// keyState is the live state of one non-SOCD binding.
type keyState struct {
	Binding
	pressed bool
}

// pairState is the live state of one side of a SOCD pair.
type pairState struct {
	spec    PairSpec
	pressed bool
	virtual bool
}

// store holds everything that changes while the engine runs. It is only
// touched with Engine.mu held.
type store struct {
	table *Table
	keys  []keyState
	pairs map[LogicalKey]*pairState

	// hat holds the d-pad code currently shown on each hat axis (x, y).
	hat [2]uint16

	// injected is the face button mask held by the mash loop.
	injected uint16
	// injectedKeys are keyboard codes held by the mash loop.
	injectedKeys map[uint16]bool

	// down tracks every keyboard code the engine has pressed and not yet
	// released, so Stop can release them.
	down map[uint16]bool
}

func newStore(t *Table) *store {
	s := &store{
		table:        t,
		keys:         make([]keyState, len(t.bindings)),
		pairs:        make(map[LogicalKey]*pairState, len(t.pairs)),
		injectedKeys: make(map[uint16]bool),
		down:         make(map[uint16]bool),
	}
	for i, b := range t.bindings {
		s.keys[i] = keyState{Binding: b}
	}
	for k, spec := range t.pairs {
		s.pairs[k] = &pairState{spec: spec}
	}
	return s
}

// setPressed records a physical transition of a bound key. It reports the
// binding and whether the state actually changed.
func (s *store) setPressed(key LogicalKey, pressed bool) (*keyState, bool) {
	i, ok := s.table.index[key]
	if !ok {
		return nil, false
	}
	k := &s.keys[i]
	if k.pressed == pressed {
		return k, false
	}
	k.pressed = pressed

	if k.Action.Kind == KindFaceButton && isDpadCode(k.Action.Value) {
		s.updateHat(uint16(k.Action.Value), pressed)
	}
	return k, true
}

// effective reports whether a bound key currently contributes output. A key
// in a SOCD pair only counts while it holds the virtual press.
func (s *store) effective(k *keyState) bool {
	if p, ok := s.pairs[k.Key]; ok {
		return p.virtual
	}
	return k.pressed
}

// emit appends a keyboard event and keeps the down set current.
func (s *store) emit(out *[]keyEvent, code uint16, pressed bool) {
	if code == 0 {
		return
	}
	if pressed {
		s.down[code] = true
	} else {
		delete(s.down, code)
	}
	*out = append(*out, keyEvent{code: code, pressed: pressed})
}

// reset forces every key to neutral and returns the keyboard codes that
// still need a release.
func (s *store) reset() []uint16 {
	for i := range s.keys {
		s.keys[i].pressed = false
	}
	for _, p := range s.pairs {
		p.pressed = false
		p.virtual = false
	}
	s.hat = [2]uint16{}
	s.injected = 0

	release := make([]uint16, 0, len(s.down))
	for code := range s.down {
		release = append(release, code)
	}
	s.down = make(map[uint16]bool)
	s.injectedKeys = make(map[uint16]bool)
	return release
}

package remap

// resolve applies last-press-wins to a transition of a paired key. Any
// keyboard event synthesized for the opposite key is appended to out.
// Face button and analog opposites change only virtual state; resolve
// reports true when such a change needs a new frame.
func (s *store) resolve(key LogicalKey, pressed bool, out *[]keyEvent) (padChanged bool) {
	p, ok := s.pairs[key]
	if !ok {
		return false
	}
	p.pressed = pressed
	p.virtual = pressed

	o, ok := s.pairs[p.spec.Opposite]
	if !ok {
		debugf("No pair entry for opposite 0x%X of 0x%X", uint32(p.spec.Opposite), uint32(key))
		return false
	}

	switch {
	case pressed && o.pressed && o.virtual:
		o.virtual = false
		s.synthesize(p.spec, false, out)
	case !pressed && o.pressed:
		o.virtual = true
		s.synthesize(p.spec, true, out)
	default:
		return false
	}
	return p.spec.OppositeKind != KindKeyboard
}

// synthesize emits the opposite key's mapped keyboard output, if it has one.
func (s *store) synthesize(spec PairSpec, pressed bool, out *[]keyEvent) {
	if spec.OppositeKind != KindKeyboard {
		return
	}
	code := uint32(spec.Opposite)
	if spec.HasMapping {
		code = spec.OppositeMapping
	}
	if code > 0xFFFF {
		debugf("Opposite output 0x%X is outside the keyboard range", code)
		return
	}
	debugf("SOCD: 0x%X -> %v", code, pressed)
	s.emit(out, uint16(code), pressed)
}

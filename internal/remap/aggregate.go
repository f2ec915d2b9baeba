package remap

// axisPriority ranks stick values so that any held direction beats neutral
// and positive values beat negative ones of equal magnitude.
func axisPriority(v int32) int32 {
	switch {
	case v < 0:
		return -v
	case v > 0:
		return v + 32767
	}
	return 0
}

func hatAxis(code uint16) int {
	if code == ButtonDpadLeft || code == ButtonDpadRight {
		return 0
	}
	return 1
}

// dpadHeld reports whether any key bound to the d-pad code is physically down.
func (s *store) dpadHeld(code uint16) bool {
	for i := range s.keys {
		k := &s.keys[i]
		if k.pressed && k.Action.Kind == KindFaceButton && uint16(k.Action.Value) == code {
			return true
		}
	}
	return false
}

// updateHat moves the hat for a d-pad transition. A release falls back to
// the complementary direction while it is still held.
func (s *store) updateHat(code uint16, pressed bool) {
	axis := hatAxis(code)
	if pressed {
		s.hat[axis] = code
		return
	}

	comp, ok := s.table.DpadComplement(code)
	switch {
	case ok && s.dpadHeld(comp):
		s.hat[axis] = comp
	case s.dpadHeld(code):
		s.hat[axis] = code
	default:
		s.hat[axis] = 0
	}
}

// buildFrame derives a complete gamepad frame from the current key state.
func (s *store) buildFrame() GamepadFrame {
	var f GamepadFrame
	var axis [4]int32
	var prio [4]int32

	for i := range s.keys {
		k := &s.keys[i]
		if !s.effective(k) {
			continue
		}
		v := k.Action.Value
		switch k.Action.Kind {
		case KindFaceButton:
			if !isDpadCode(v) {
				f.Buttons |= uint16(v)
			}
		case KindLeftTrigger:
			if uint16(v) > f.LeftTrigger {
				f.LeftTrigger = uint16(v)
			}
		case KindRightTrigger:
			if uint16(v) > f.RightTrigger {
				f.RightTrigger = uint16(v)
			}
		case KindThumbAxis:
			if p := axisPriority(v); p > prio[k.Action.Axis] {
				prio[k.Action.Axis] = p
				axis[k.Action.Axis] = v
			}
		}
	}

	f.Buttons |= s.hat[0] | s.hat[1]

	// The losing side of a face button pair never shows, even if the hat
	// still points at it. Winners are applied after losers.
	var win, lose uint16
	for _, p := range s.pairs {
		k, ok := s.table.Binding(p.spec.Key)
		if !ok || k.Action.Kind != KindFaceButton {
			continue
		}
		if p.virtual {
			win |= uint16(k.Action.Value)
		} else if p.pressed {
			lose |= uint16(k.Action.Value)
		}
	}
	f.Buttons = f.Buttons&^lose | win | s.injected

	f.ThumbLX = int16(axis[AxisLX])
	f.ThumbLY = int16(axis[AxisLY])
	f.ThumbRX = int16(axis[AxisRX])
	f.ThumbRY = int16(axis[AxisRY])
	return f
}

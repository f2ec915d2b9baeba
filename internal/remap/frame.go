package remap

import "math"

// Xbox 360 button bits, as used by XInput and the ViGEm XUSB report.
const (
	ButtonDpadUp        uint16 = 0x0001
	ButtonDpadDown      uint16 = 0x0002
	ButtonDpadLeft      uint16 = 0x0004
	ButtonDpadRight     uint16 = 0x0008
	ButtonStart         uint16 = 0x0010
	ButtonBack          uint16 = 0x0020
	ButtonLeftThumb     uint16 = 0x0040
	ButtonRightThumb    uint16 = 0x0080
	ButtonLeftShoulder  uint16 = 0x0100
	ButtonRightShoulder uint16 = 0x0200
	ButtonGuide         uint16 = 0x0400
	ButtonA             uint16 = 0x1000
	ButtonB             uint16 = 0x2000
	ButtonX             uint16 = 0x4000
	ButtonY             uint16 = 0x8000

	dpadMask uint16 = 0x000F
)

// TriggerMax is the full-scale trigger value carried in a GamepadFrame.
const TriggerMax = 1023

// GamepadFrame is a complete virtual pad snapshot. Y axes follow the evdev
// convention (positive is down).
type GamepadFrame struct {
	Buttons      uint16 `json:"buttons"`
	LeftTrigger  uint16 `json:"left_trigger"`
	RightTrigger uint16 `json:"right_trigger"`
	ThumbLX      int16  `json:"thumb_lx"`
	ThumbLY      int16  `json:"thumb_ly"`
	ThumbRX      int16  `json:"thumb_rx"`
	ThumbRY      int16  `json:"thumb_ry"`
}

// DpadX returns the horizontal hat value: -1 left, 1 right, 0 neutral.
func (f GamepadFrame) DpadX() int8 {
	return hatFromBits(f.Buttons&ButtonDpadLeft != 0, f.Buttons&ButtonDpadRight != 0)
}

// DpadY returns the vertical hat value: -1 up, 1 down, 0 neutral.
func (f GamepadFrame) DpadY() int8 {
	return hatFromBits(f.Buttons&ButtonDpadUp != 0, f.Buttons&ButtonDpadDown != 0)
}

// IsZero reports whether the frame is the neutral frame.
func (f GamepadFrame) IsZero() bool {
	return f == GamepadFrame{}
}

// FlipAxis converts a stick value between the XInput (positive up) and
// evdev (positive down) conventions. Full scale maps to full scale both
// ways, so -32768 and 32767 swap.
func FlipAxis(v int16) int16 {
	switch v {
	case math.MinInt16:
		return math.MaxInt16
	case math.MaxInt16:
		return math.MinInt16
	}
	return -v
}

func hatFromBits(neg, pos bool) int8 {
	switch {
	case neg && !pos:
		return -1
	case pos && !neg:
		return 1
	}
	return 0
}

// dpadOpposite returns the mutually exclusive direction of a d-pad code.
func dpadOpposite(code uint16) (uint16, bool) {
	switch code {
	case ButtonDpadUp:
		return ButtonDpadDown, true
	case ButtonDpadDown:
		return ButtonDpadUp, true
	case ButtonDpadLeft:
		return ButtonDpadRight, true
	case ButtonDpadRight:
		return ButtonDpadLeft, true
	}
	return 0, false
}

// isDpadCode reports whether a face button value is a single d-pad direction.
func isDpadCode(v int32) bool {
	_, ok := dpadOpposite(uint16(v))
	return v > 0 && v < 0x10 && ok
}

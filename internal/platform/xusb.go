package platform

import "overbind/internal/remap"

// xusbReport mirrors XUSB_REPORT from the ViGEm client API.
type xusbReport struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// toXUSB converts a frame to XInput units: 8-bit triggers and Y axes with
// positive up.
func toXUSB(f remap.GamepadFrame) xusbReport {
	return xusbReport{
		Buttons:      f.Buttons,
		LeftTrigger:  uint8(uint32(f.LeftTrigger) * 255 / remap.TriggerMax),
		RightTrigger: uint8(uint32(f.RightTrigger) * 255 / remap.TriggerMax),
		ThumbLX:      f.ThumbLX,
		ThumbLY:      remap.FlipAxis(f.ThumbLY),
		ThumbRX:      f.ThumbRX,
		ThumbRY:      remap.FlipAxis(f.ThumbRY),
	}
}


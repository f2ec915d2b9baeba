package platform

import (
	"math"

	"overbind/internal/remap"
)

// Linux input event codes used by the virtual pad (input-event-codes.h).
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0

	absX     = 0x00
	absY     = 0x01
	absZ     = 0x02
	absRX    = 0x03
	absRY    = 0x04
	absRZ    = 0x05
	absHat0X = 0x10
	absHat0Y = 0x11

	btnSouth  = 0x130
	btnEast   = 0x131
	btnNorth  = 0x133
	btnWest   = 0x134
	btnTL     = 0x136
	btnTR     = 0x137
	btnSelect = 0x13a
	btnStart  = 0x13b
	btnMode   = 0x13c
	btnThumbL = 0x13d
	btnThumbR = 0x13e
)

// padButtons maps frame button bits to pad key codes, xpad layout.
var padButtons = []struct {
	bit  uint16
	code uint16
}{
	{remap.ButtonA, btnSouth},
	{remap.ButtonB, btnEast},
	{remap.ButtonX, btnNorth},
	{remap.ButtonY, btnWest},
	{remap.ButtonLeftShoulder, btnTL},
	{remap.ButtonRightShoulder, btnTR},
	{remap.ButtonBack, btnSelect},
	{remap.ButtonStart, btnStart},
	{remap.ButtonGuide, btnMode},
	{remap.ButtonLeftThumb, btnThumbL},
	{remap.ButtonRightThumb, btnThumbR},
}

type padAxis struct {
	code     uint16
	min, max int32
}

var padAxes = []padAxis{
	{absX, math.MinInt16, math.MaxInt16},
	{absY, math.MinInt16, math.MaxInt16},
	{absRX, math.MinInt16, math.MaxInt16},
	{absRY, math.MinInt16, math.MaxInt16},
	{absZ, 0, remap.TriggerMax},
	{absRZ, 0, remap.TriggerMax},
	{absHat0X, -1, 1},
	{absHat0Y, -1, 1},
}

// padEvent is one event written to the virtual pad.
type padEvent struct {
	typ   uint16
	code  uint16
	value int32
}

func axisValues(f remap.GamepadFrame) map[uint16]int32 {
	return map[uint16]int32{
		absX:     int32(f.ThumbLX),
		absY:     int32(f.ThumbLY),
		absRX:    int32(f.ThumbRX),
		absRY:    int32(f.ThumbRY),
		absZ:     int32(f.LeftTrigger),
		absRZ:    int32(f.RightTrigger),
		absHat0X: int32(f.DpadX()),
		absHat0Y: int32(f.DpadY()),
	}
}

// padEvents returns the events that move the pad from prev to next,
// terminated by a SYN_REPORT. No change yields nil.
func padEvents(prev, next remap.GamepadFrame) []padEvent {
	var out []padEvent

	for _, b := range padButtons {
		was, is := prev.Buttons&b.bit != 0, next.Buttons&b.bit != 0
		if was != is {
			v := int32(0)
			if is {
				v = 1
			}
			out = append(out, padEvent{evKey, b.code, v})
		}
	}

	before, after := axisValues(prev), axisValues(next)
	for _, a := range padAxes {
		if before[a.code] != after[a.code] {
			out = append(out, padEvent{evAbs, a.code, after[a.code]})
		}
	}

	if len(out) == 0 {
		return nil
	}
	return append(out, padEvent{evSyn, synReport, 0})
}

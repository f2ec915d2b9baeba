package remap

import (
	"fmt"
	"math"

	"overbind/internal/config"
)

// LogicalKey is a platform-neutral key identifier (a Windows virtual-key code).
type LogicalKey uint32

// ActionKind tags what a key produces.
type ActionKind uint8

const (
	KindNone ActionKind = iota
	KindKeyboard
	KindFaceButton
	KindLeftTrigger
	KindRightTrigger
	KindThumbAxis
	KindMashTrigger
	KindSocd
)

func (k ActionKind) String() string {
	switch k {
	case KindKeyboard:
		return "keyboard"
	case KindFaceButton:
		return "face_button"
	case KindLeftTrigger:
		return "left_trigger"
	case KindRightTrigger:
		return "right_trigger"
	case KindThumbAxis:
		return "thumb_axis"
	case KindMashTrigger:
		return "mash_trigger"
	case KindSocd:
		return "socd"
	default:
		return "none"
	}
}

// Axis selects one of the four stick axes.
type Axis uint8

const (
	AxisLX Axis = iota
	AxisLY
	AxisRX
	AxisRY
)

// Action is a configured output with its value already in output units:
// keyboard codes in the logical key space, triggers 0-1023, axes int16.
// For KindSocd, Value is the opposite key's raw code.
type Action struct {
	Kind  ActionKind
	Axis  Axis
	Value int32
}

// KeyCode returns the keyboard code carried by keyboard and mash_trigger actions.
func (a Action) KeyCode() (uint16, bool) {
	if a.Kind == KindKeyboard || a.Kind == KindMashTrigger {
		return uint16(a.Value), true
	}
	return 0, false
}

func (a Action) isAnalog() bool {
	return a.Kind == KindLeftTrigger || a.Kind == KindRightTrigger || a.Kind == KindThumbAxis
}

func (a Action) String() string {
	switch a.Kind {
	case KindThumbAxis:
		return fmt.Sprintf("thumb_%s(%d)", [...]string{"lx", "ly", "rx", "ry"}[a.Axis], a.Value)
	case KindFaceButton:
		return fmt.Sprintf("face_button(0x%04X)", a.Value)
	default:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Value)
	}
}

// ParseAction converts one configuration record's result into an Action,
// applying unit conversion.
func ParseAction(resultType string, value int) (Action, error) {
	switch resultType {
	case "keyboard", "mash_trigger":
		if value <= 0 || value > 0xFE {
			return Action{}, fmt.Errorf("%w: keyboard code %d out of range", ErrInvalidValue, value)
		}
		kind := KindKeyboard
		if resultType == "mash_trigger" {
			kind = KindMashTrigger
		}
		return Action{Kind: kind, Value: int32(value)}, nil

	case "face_button":
		if value <= 0 || value > math.MaxUint16 {
			return Action{}, fmt.Errorf("%w: face button mask 0x%X", ErrInvalidValue, value)
		}
		if value < 0x10 {
			if _, ok := dpadOpposite(uint16(value)); !ok {
				return Action{}, fmt.Errorf("%w: d-pad code 0x%X is not a single direction", ErrInvalidValue, value)
			}
		}
		return Action{Kind: KindFaceButton, Value: int32(value)}, nil

	case "left_trigger", "trigger_l":
		return Action{Kind: KindLeftTrigger, Value: scaleTrigger(value)}, nil

	case "right_trigger", "trigger_r":
		return Action{Kind: KindRightTrigger, Value: scaleTrigger(value)}, nil

	case "thumb_lx":
		return Action{Kind: KindThumbAxis, Axis: AxisLX, Value: clampAxis(value)}, nil
	case "thumb_ly":
		return Action{Kind: KindThumbAxis, Axis: AxisLY, Value: int32(FlipAxis(int16(clampAxis(value))))}, nil
	case "thumb_rx":
		return Action{Kind: KindThumbAxis, Axis: AxisRX, Value: clampAxis(value)}, nil
	case "thumb_ry":
		return Action{Kind: KindThumbAxis, Axis: AxisRY, Value: int32(FlipAxis(int16(clampAxis(value))))}, nil

	case "socd":
		if value < 0 {
			return Action{}, fmt.Errorf("%w: opposite keycode %d", ErrInvalidValue, value)
		}
		return Action{Kind: KindSocd, Value: int32(value)}, nil
	}

	return Action{}, fmt.Errorf("%w: %q", ErrUnknownResultType, resultType)
}

// ParseMashActions converts the configured mash outputs. Only keyboard and
// face button outputs can be mashed.
func ParseMashActions(records []config.Binding) ([]Action, error) {
	if len(records) > config.MaxMashActions {
		return nil, fmt.Errorf("at most %d mash actions are supported", config.MaxMashActions)
	}
	out := make([]Action, 0, len(records))
	for i, rec := range records {
		a, err := ParseAction(rec.ResultType, rec.ResultValue)
		if err == nil && a.Kind != KindKeyboard && a.Kind != KindFaceButton {
			err = fmt.Errorf("%w: %s cannot be mashed", ErrInvalidValue, rec.ResultType)
		}
		if err != nil {
			return nil, &ConfigError{Index: i, Keycode: rec.Keycode, Reason: "mash action", Err: err}
		}
		out = append(out, a)
	}
	return out, nil
}

// scaleTrigger maps a 0-255 trigger value to the 0-1023 output range.
func scaleTrigger(v int) int32 {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return int32(v * TriggerMax / 255)
}

func clampAxis(v int) int32 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int32(v)
}

// Package keymap defines the logical key code space shared by the binding
// file and every platform adapter.
//
// Logical codes are Windows virtual-key codes. The binding file has always
// stored keys in that space, so the Windows adapter translates 1:1 and the
// other adapters translate to and from it.
package keymap

import (
	"fmt"
	"strconv"
	"strings"
)

// Named virtual-key codes that the engine and adapters refer to directly.
const (
	VKBack     uint16 = 0x08
	VKTab      uint16 = 0x09
	VKReturn   uint16 = 0x0D
	VKShift    uint16 = 0x10
	VKControl  uint16 = 0x11
	VKMenu     uint16 = 0x12
	VKPause    uint16 = 0x13
	VKCapital  uint16 = 0x14
	VKEscape   uint16 = 0x1B
	VKSpace    uint16 = 0x20
	VKPrior    uint16 = 0x21
	VKNext     uint16 = 0x22
	VKEnd      uint16 = 0x23
	VKHome     uint16 = 0x24
	VKLeft     uint16 = 0x25
	VKUp       uint16 = 0x26
	VKRight    uint16 = 0x27
	VKDown     uint16 = 0x28
	VKSnapshot uint16 = 0x2C
	VKInsert   uint16 = 0x2D
	VKDelete   uint16 = 0x2E
	VKLWin     uint16 = 0x5B
	VKRWin     uint16 = 0x5C
	VKApps     uint16 = 0x5D
	VKNumpad0  uint16 = 0x60
	VKMultiply uint16 = 0x6A
	VKAdd      uint16 = 0x6B
	VKSubtract uint16 = 0x6D
	VKDecimal  uint16 = 0x6E
	VKDivide   uint16 = 0x6F
	VKF1       uint16 = 0x70
	VKF24      uint16 = 0x87
	VKNumlock  uint16 = 0x90
	VKScroll   uint16 = 0x91
	VKLShift   uint16 = 0xA0
	VKRShift   uint16 = 0xA1
	VKLControl uint16 = 0xA2
	VKRControl uint16 = 0xA3
	VKLMenu    uint16 = 0xA4
	VKRMenu    uint16 = 0xA5
	VKOEM1     uint16 = 0xBA // ;:
	VKOEMPlus  uint16 = 0xBB
	VKOEMComma uint16 = 0xBC
	VKOEMMinus uint16 = 0xBD
	VKOEMDot   uint16 = 0xBE
	VKOEM2     uint16 = 0xBF // /?
	VKOEM3     uint16 = 0xC0 // `~
	VKOEM4     uint16 = 0xDB // [{
	VKOEM5     uint16 = 0xDC // \|
	VKOEM6     uint16 = 0xDD // ]}
	VKOEM7     uint16 = 0xDE // '"
	VKOEM102   uint16 = 0xE2
)

var names = map[uint16]string{
	VKBack:     "BACKSPACE",
	VKTab:      "TAB",
	VKReturn:   "ENTER",
	VKShift:    "SHIFT",
	VKControl:  "CTRL",
	VKMenu:     "ALT",
	VKPause:    "PAUSE",
	VKCapital:  "CAPSLOCK",
	VKEscape:   "ESC",
	VKSpace:    "SPACE",
	VKPrior:    "PAGEUP",
	VKNext:     "PAGEDOWN",
	VKEnd:      "END",
	VKHome:     "HOME",
	VKLeft:     "LEFT",
	VKUp:       "UP",
	VKRight:    "RIGHT",
	VKDown:     "DOWN",
	VKSnapshot: "PRINTSCREEN",
	VKInsert:   "INSERT",
	VKDelete:   "DELETE",
	VKLWin:     "LWIN",
	VKRWin:     "RWIN",
	VKApps:     "MENU",
	VKMultiply: "NUMPAD*",
	VKAdd:      "NUMPAD+",
	VKSubtract: "NUMPAD-",
	VKDecimal:  "NUMPAD.",
	VKDivide:   "NUMPAD/",
	VKNumlock:  "NUMLOCK",
	VKScroll:   "SCROLLLOCK",
	VKLShift:   "LSHIFT",
	VKRShift:   "RSHIFT",
	VKLControl: "LCTRL",
	VKRControl: "RCTRL",
	VKLMenu:    "LALT",
	VKRMenu:    "RALT",
	VKOEM1:     ";",
	VKOEMPlus:  "=",
	VKOEMComma: ",",
	VKOEMMinus: "-",
	VKOEMDot:   ".",
	VKOEM2:     "/",
	VKOEM3:     "`",
	VKOEM4:     "[",
	VKOEM5:     "\\",
	VKOEM6:     "]",
	VKOEM7:     "'",
	VKOEM102:   "OEM102",
}

var byName map[string]uint16

func init() {
	byName = make(map[string]uint16, 128)
	for vk := uint16(0); vk <= 0xFE; vk++ {
		if n := Name(vk); n != "" {
			byName[n] = vk
		}
	}
}

// Name returns the display name of a virtual-key code, or "" when the code
// is not part of the supported key space.
func Name(vk uint16) string {
	if n, ok := names[vk]; ok {
		return n
	}

	// Letters A-Z and digits 0-9 share their ASCII value
	if (vk >= 0x41 && vk <= 0x5A) || (vk >= 0x30 && vk <= 0x39) {
		return string(rune(vk))
	}

	if vk >= VKNumpad0 && vk <= VKNumpad0+9 {
		return fmt.Sprintf("NUMPAD%d", vk-VKNumpad0)
	}

	if vk >= VKF1 && vk <= VKF24 {
		return fmt.Sprintf("F%d", vk-VKF1+1)
	}

	return ""
}

// Known reports whether vk is a supported virtual-key code.
func Known(vk uint16) bool {
	return Name(vk) != ""
}

// Lookup resolves a key name (case-insensitive) to its virtual-key code.
func Lookup(name string) (uint16, bool) {
	vk, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	return vk, ok
}

// ParseCode parses the hex keycode notation used by the binding file
// ("41", "0x41" and "0X41" are all accepted).
func ParseCode(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, fmt.Errorf("empty keycode")
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hexadecimal keycode %q: %w", s, err)
	}
	return uint32(v), nil
}

// FormatCode renders a code the way the binding file stores it.
func FormatCode(code uint32) string {
	return strconv.FormatUint(uint64(code), 16)
}

// IsExtended reports whether a virtual key needs KEYEVENTF_EXTENDEDKEY when
// injected as a scan code.
func IsExtended(vk uint16) bool {
	switch vk {
	case VKPrior, VKNext, VKEnd, VKHome,
		VKLeft, VKUp, VKRight, VKDown,
		VKSnapshot, VKInsert, VKDelete,
		VKNumlock, VKRControl, VKRMenu:
		return true
	}
	return false
}

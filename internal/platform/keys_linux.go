//go:build linux

package platform

import (
	"github.com/holoplot/go-evdev"

	"overbind/internal/keymap"
)

// vkToEvdev lists the logical keys the Linux adapter can read and write.
// Generic modifiers come before their left/right variants so that reading
// a modifier yields the side-specific code, as the Windows hook reports it.
var vkToEvdev = []struct {
	vk   uint16
	code evdev.EvCode
}{
	{keymap.VKBack, evdev.KEY_BACKSPACE},
	{keymap.VKTab, evdev.KEY_TAB},
	{0x0C, evdev.KEY_CLEAR},
	{keymap.VKReturn, evdev.KEY_ENTER},
	{keymap.VKShift, evdev.KEY_LEFTSHIFT},
	{keymap.VKControl, evdev.KEY_LEFTCTRL},
	{keymap.VKMenu, evdev.KEY_LEFTALT},
	{keymap.VKPause, evdev.KEY_PAUSE},
	{keymap.VKCapital, evdev.KEY_CAPSLOCK},
	{keymap.VKEscape, evdev.KEY_ESC},
	{keymap.VKSpace, evdev.KEY_SPACE},
	{keymap.VKPrior, evdev.KEY_PAGEUP},
	{keymap.VKNext, evdev.KEY_PAGEDOWN},
	{keymap.VKEnd, evdev.KEY_END},
	{keymap.VKHome, evdev.KEY_HOME},
	{keymap.VKLeft, evdev.KEY_LEFT},
	{keymap.VKUp, evdev.KEY_UP},
	{keymap.VKRight, evdev.KEY_RIGHT},
	{keymap.VKDown, evdev.KEY_DOWN},
	{keymap.VKSnapshot, evdev.KEY_SYSRQ},
	{keymap.VKInsert, evdev.KEY_INSERT},
	{keymap.VKDelete, evdev.KEY_DELETE},

	{0x30, evdev.KEY_0}, {0x31, evdev.KEY_1}, {0x32, evdev.KEY_2}, {0x33, evdev.KEY_3},
	{0x34, evdev.KEY_4}, {0x35, evdev.KEY_5}, {0x36, evdev.KEY_6}, {0x37, evdev.KEY_7},
	{0x38, evdev.KEY_8}, {0x39, evdev.KEY_9},

	{0x41, evdev.KEY_A}, {0x42, evdev.KEY_B}, {0x43, evdev.KEY_C}, {0x44, evdev.KEY_D},
	{0x45, evdev.KEY_E}, {0x46, evdev.KEY_F}, {0x47, evdev.KEY_G}, {0x48, evdev.KEY_H},
	{0x49, evdev.KEY_I}, {0x4A, evdev.KEY_J}, {0x4B, evdev.KEY_K}, {0x4C, evdev.KEY_L},
	{0x4D, evdev.KEY_M}, {0x4E, evdev.KEY_N}, {0x4F, evdev.KEY_O}, {0x50, evdev.KEY_P},
	{0x51, evdev.KEY_Q}, {0x52, evdev.KEY_R}, {0x53, evdev.KEY_S}, {0x54, evdev.KEY_T},
	{0x55, evdev.KEY_U}, {0x56, evdev.KEY_V}, {0x57, evdev.KEY_W}, {0x58, evdev.KEY_X},
	{0x59, evdev.KEY_Y}, {0x5A, evdev.KEY_Z},

	{keymap.VKLWin, evdev.KEY_LEFTMETA},
	{keymap.VKRWin, evdev.KEY_RIGHTMETA},
	{keymap.VKApps, evdev.KEY_COMPOSE},

	{keymap.VKNumpad0, evdev.KEY_KP0}, {keymap.VKNumpad0 + 1, evdev.KEY_KP1},
	{keymap.VKNumpad0 + 2, evdev.KEY_KP2}, {keymap.VKNumpad0 + 3, evdev.KEY_KP3},
	{keymap.VKNumpad0 + 4, evdev.KEY_KP4}, {keymap.VKNumpad0 + 5, evdev.KEY_KP5},
	{keymap.VKNumpad0 + 6, evdev.KEY_KP6}, {keymap.VKNumpad0 + 7, evdev.KEY_KP7},
	{keymap.VKNumpad0 + 8, evdev.KEY_KP8}, {keymap.VKNumpad0 + 9, evdev.KEY_KP9},
	{keymap.VKMultiply, evdev.KEY_KPASTERISK},
	{keymap.VKAdd, evdev.KEY_KPPLUS},
	{keymap.VKSubtract, evdev.KEY_KPMINUS},
	{keymap.VKDecimal, evdev.KEY_KPDOT},
	{keymap.VKDivide, evdev.KEY_KPSLASH},

	{keymap.VKF1, evdev.KEY_F1}, {keymap.VKF1 + 1, evdev.KEY_F2}, {keymap.VKF1 + 2, evdev.KEY_F3},
	{keymap.VKF1 + 3, evdev.KEY_F4}, {keymap.VKF1 + 4, evdev.KEY_F5}, {keymap.VKF1 + 5, evdev.KEY_F6},
	{keymap.VKF1 + 6, evdev.KEY_F7}, {keymap.VKF1 + 7, evdev.KEY_F8}, {keymap.VKF1 + 8, evdev.KEY_F9},
	{keymap.VKF1 + 9, evdev.KEY_F10}, {keymap.VKF1 + 10, evdev.KEY_F11}, {keymap.VKF1 + 11, evdev.KEY_F12},
	{keymap.VKF1 + 12, evdev.KEY_F13}, {keymap.VKF1 + 13, evdev.KEY_F14}, {keymap.VKF1 + 14, evdev.KEY_F15},
	{keymap.VKF1 + 15, evdev.KEY_F16}, {keymap.VKF1 + 16, evdev.KEY_F17}, {keymap.VKF1 + 17, evdev.KEY_F18},
	{keymap.VKF1 + 18, evdev.KEY_F19}, {keymap.VKF1 + 19, evdev.KEY_F20}, {keymap.VKF1 + 20, evdev.KEY_F21},
	{keymap.VKF1 + 21, evdev.KEY_F22}, {keymap.VKF1 + 22, evdev.KEY_F23}, {keymap.VKF24, evdev.KEY_F24},

	{keymap.VKNumlock, evdev.KEY_NUMLOCK},
	{keymap.VKScroll, evdev.KEY_SCROLLLOCK},
	{keymap.VKLShift, evdev.KEY_LEFTSHIFT},
	{keymap.VKRShift, evdev.KEY_RIGHTSHIFT},
	{keymap.VKLControl, evdev.KEY_LEFTCTRL},
	{keymap.VKRControl, evdev.KEY_RIGHTCTRL},
	{keymap.VKLMenu, evdev.KEY_LEFTALT},
	{keymap.VKRMenu, evdev.KEY_RIGHTALT},

	{keymap.VKOEM1, evdev.KEY_SEMICOLON},
	{keymap.VKOEMPlus, evdev.KEY_EQUAL},
	{keymap.VKOEMComma, evdev.KEY_COMMA},
	{keymap.VKOEMMinus, evdev.KEY_MINUS},
	{keymap.VKOEMDot, evdev.KEY_DOT},
	{keymap.VKOEM2, evdev.KEY_SLASH},
	{keymap.VKOEM3, evdev.KEY_GRAVE},
	{keymap.VKOEM4, evdev.KEY_LEFTBRACE},
	{keymap.VKOEM5, evdev.KEY_BACKSLASH},
	{keymap.VKOEM6, evdev.KEY_RIGHTBRACE},
	{keymap.VKOEM7, evdev.KEY_APOSTROPHE},
	{keymap.VKOEM102, evdev.KEY_102ND},
}

var (
	evdevByVK = make(map[uint16]evdev.EvCode, len(vkToEvdev))
	vkByEvdev = make(map[evdev.EvCode]uint16, len(vkToEvdev))
)

func init() {
	for _, m := range vkToEvdev {
		evdevByVK[m.vk] = m.code
		vkByEvdev[m.code] = m.vk
	}
}

// keyboardCodes lists every evdev key the virtual keyboard can emit.
func keyboardCodes() []evdev.EvCode {
	seen := make(map[evdev.EvCode]bool, len(vkToEvdev))
	codes := make([]evdev.EvCode, 0, len(vkToEvdev))
	for _, m := range vkToEvdev {
		if !seen[m.code] {
			seen[m.code] = true
			codes = append(codes, m.code)
		}
	}
	return codes
}

package keymap

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		vk   uint16
		want string
	}{
		{0x41, "A"},
		{0x5A, "Z"},
		{0x30, "0"},
		{VKLeft, "LEFT"},
		{VKF1, "F1"},
		{0x7B, "F12"},
		{VKNumpad0 + 7, "NUMPAD7"},
		{VKOEM4, "["},
		{0x07, ""},
	}

	for _, tt := range tests {
		if got := Name(tt.vk); got != tt.want {
			t.Errorf("Name(0x%X): expected %q, got %q", tt.vk, tt.want, got)
		}
	}
}

func TestLookup(t *testing.T) {
	vk, ok := Lookup("space")
	if !ok || vk != VKSpace {
		t.Errorf("Expected SPACE to resolve to 0x%X, got 0x%X (ok=%v)", VKSpace, vk, ok)
	}

	vk, ok = Lookup(" f12 ")
	if !ok || vk != 0x7B {
		t.Errorf("Expected F12 to resolve to 0x7B, got 0x%X (ok=%v)", vk, ok)
	}

	if _, ok := Lookup("NOPE"); ok {
		t.Error("Expected unknown key name to fail")
	}
}

func TestParseCode(t *testing.T) {
	for _, in := range []string{"41", "0x41", "0X41", " 41 "} {
		code, err := ParseCode(in)
		if err != nil {
			t.Fatalf("ParseCode(%q) returned error: %v", in, err)
		}
		if code != 0x41 {
			t.Errorf("ParseCode(%q): expected 0x41, got 0x%X", in, code)
		}
	}

	for _, in := range []string{"", "zz", "0x"} {
		if _, err := ParseCode(in); err == nil {
			t.Errorf("Expected ParseCode(%q) to fail", in)
		}
	}

	if got := FormatCode(0xA0); got != "a0" {
		t.Errorf("Expected FormatCode(0xA0) = a0, got %s", got)
	}
}

func TestIsExtended(t *testing.T) {
	if !IsExtended(VKLeft) || !IsExtended(VKRControl) {
		t.Error("Expected arrow keys and right ctrl to be extended")
	}
	if IsExtended(0x41) {
		t.Error("Expected A not to be extended")
	}
}

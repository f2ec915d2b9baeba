package remap

import (
	"fmt"
	"log"

	"overbind/internal/config"
	"overbind/internal/keymap"
)

// Binding is one resolved non-SOCD entry of the table.
type Binding struct {
	Key    LogicalKey
	Action Action
}

// PairSpec describes one side of a SOCD pair as loaded from configuration.
type PairSpec struct {
	Key      LogicalKey
	Opposite LogicalKey

	// OppositeKind is how the opposite key is restored or released:
	// KindKeyboard, KindFaceButton, or an analog kind that is resolved
	// through the gamepad frame instead of a discrete event.
	OppositeKind ActionKind

	// OppositeMapping is the opposite key's rebound output (keyboard code or
	// button mask). When HasMapping is false the raw opposite code is used.
	OppositeMapping uint32
	HasMapping      bool
}

// Table is the immutable result of loading a binding file.
type Table struct {
	bindings     []Binding
	index        map[LogicalKey]int
	pairs        map[LogicalKey]PairSpec
	dpad         map[uint16]uint16
	mashTriggers []LogicalKey
}

// Summary counts what a table contains.
type Summary struct {
	Bindings     int `json:"bindings"`
	Pairs        int `json:"pairs"`
	Dpad         int `json:"dpad"`
	MashTriggers int `json:"mash_triggers"`
}

type socdRecord struct {
	index    int
	keycode  string
	key      LogicalKey
	opposite LogicalKey
}

// BuildTable loads binding records. Records are processed in order and the
// first binding for a key wins.
func BuildTable(records []config.Binding) (*Table, error) {
	t := &Table{
		index: make(map[LogicalKey]int),
		pairs: make(map[LogicalKey]PairSpec),
		dpad:  make(map[uint16]uint16),
	}

	var socd []socdRecord
	for i, rec := range records {
		code, err := keymap.ParseCode(rec.Keycode)
		if err != nil {
			return nil, &ConfigError{Index: i, Keycode: rec.Keycode, Reason: "malformed keycode",
				Err: fmt.Errorf("%w: %v", ErrInvalidKeycode, err)}
		}
		key := LogicalKey(code)

		action, err := ParseAction(rec.ResultType, rec.ResultValue)
		if err != nil {
			return nil, &ConfigError{Index: i, Keycode: rec.Keycode, Err: err}
		}

		if action.Kind == KindSocd {
			socd = append(socd, socdRecord{index: i, keycode: rec.Keycode, key: key, opposite: LogicalKey(action.Value)})
			continue
		}

		if _, dup := t.index[key]; dup {
			log.Printf("Engine: Ignoring duplicate binding for key 0x%X (%s)", code, rec.ResultType)
			continue
		}
		t.index[key] = len(t.bindings)
		t.bindings = append(t.bindings, Binding{Key: key, Action: action})
		debugf("Keycode: 0x%X, Action: %s", code, action)

		if action.Kind == KindFaceButton && isDpadCode(action.Value) {
			opp, _ := dpadOpposite(uint16(action.Value))
			t.dpad[uint16(action.Value)] = opp
			t.dpad[opp] = uint16(action.Value)
		}
		if action.Kind == KindMashTrigger {
			t.mashTriggers = append(t.mashTriggers, key)
		}
	}

	for _, rec := range socd {
		if rec.key == rec.opposite {
			return nil, &ConfigError{Index: rec.index, Keycode: rec.keycode, Reason: "socd key cannot be its own opposite",
				Err: ErrInvalidValue}
		}
		if _, dup := t.pairs[rec.key]; dup {
			log.Printf("Engine: Ignoring duplicate socd entry for key 0x%X", uint32(rec.key))
			continue
		}
		t.pairs[rec.key] = t.resolvePair(rec.key, rec.opposite)
	}

	// Either side of a pair must resolve, even if only one direction was configured
	for _, rec := range socd {
		spec, ok := t.pairs[rec.key]
		if !ok || spec.Opposite != rec.opposite {
			continue
		}
		if _, ok := t.pairs[rec.opposite]; !ok {
			t.pairs[rec.opposite] = t.resolvePair(rec.opposite, rec.key)
		}
	}

	return t, nil
}

// resolvePair builds key's pair entry, taking the opposite key's rebound
// output when it has one so a restored press matches what the user mapped.
func (t *Table) resolvePair(key, opposite LogicalKey) PairSpec {
	spec := PairSpec{Key: key, Opposite: opposite, OppositeKind: KindKeyboard}

	if b, ok := t.Binding(opposite); ok {
		switch b.Action.Kind {
		case KindKeyboard, KindMashTrigger:
			spec.OppositeMapping = uint32(b.Action.Value)
			spec.HasMapping = true
		case KindFaceButton:
			spec.OppositeKind = KindFaceButton
			spec.OppositeMapping = uint32(b.Action.Value)
			spec.HasMapping = true
		default:
			spec.OppositeKind = b.Action.Kind
		}
	}

	debugf("Keycode: 0x%X, OppositeKeycode: 0x%X, OppositeKind: %s, OppositeMapping: 0x%X (mapped=%v)",
		uint32(key), uint32(opposite), spec.OppositeKind, spec.OppositeMapping, spec.HasMapping)
	return spec
}

// Binding returns the non-SOCD binding for key.
func (t *Table) Binding(key LogicalKey) (Binding, bool) {
	i, ok := t.index[key]
	if !ok {
		return Binding{}, false
	}
	return t.bindings[i], true
}

// Bindings returns the non-SOCD bindings in load order.
func (t *Table) Bindings() []Binding {
	return append([]Binding(nil), t.bindings...)
}

// Pair returns the SOCD pair entry for key.
func (t *Table) Pair(key LogicalKey) (PairSpec, bool) {
	p, ok := t.pairs[key]
	return p, ok
}

// DpadComplement returns the opposite of a configured d-pad code.
func (t *Table) DpadComplement(code uint16) (uint16, bool) {
	c, ok := t.dpad[code]
	return c, ok
}

// MashTriggers returns the keys tagged mash_trigger, in load order.
func (t *Table) MashTriggers() []LogicalKey {
	return append([]LogicalKey(nil), t.mashTriggers...)
}

// Summary counts the table's entries.
func (t *Table) Summary() Summary {
	return Summary{
		Bindings:     len(t.bindings),
		Pairs:        len(t.pairs),
		Dpad:         len(t.dpad),
		MashTriggers: len(t.mashTriggers),
	}
}

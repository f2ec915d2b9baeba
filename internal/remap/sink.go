package remap

// OutputSink receives everything the engine produces. Implementations may
// block briefly on driver I/O; the engine never holds its state lock while
// calling them.
type OutputSink interface {
	EmitVirtualKey(code uint16, pressed bool) error
	SyncKeyboard() error
	UpdateGamepad(frame GamepadFrame) error
}

// Overlay is the visual "masher active" indicator.
type Overlay interface {
	Toggle(active bool) error
}

// DiscardSink drops all output. Used for dry runs.
type DiscardSink struct{}

func (DiscardSink) EmitVirtualKey(uint16, bool) error { return nil }
func (DiscardSink) SyncKeyboard() error               { return nil }
func (DiscardSink) UpdateGamepad(GamepadFrame) error  { return nil }

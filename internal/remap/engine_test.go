package remap

import (
	"errors"
	"sync"
	"testing"
	"time"

	"overbind/internal/config"
)

const (
	keyA     LogicalKey = 0x41
	keyD     LogicalKey = 0x44
	keyQ     LogicalKey = 0x51
	keyE     LogicalKey = 0x45
	keyLeft  LogicalKey = 0x25
	keyUp    LogicalKey = 0x26
	keyRight LogicalKey = 0x27
	keyDown  LogicalKey = 0x28
	keySpace LogicalKey = 0x20
)

type recordingSink struct {
	mu     sync.Mutex
	keys   []keyEvent
	held   map[uint16]bool
	frames []GamepadFrame
	syncs  int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{held: make(map[uint16]bool)}
}

func (s *recordingSink) EmitVirtualKey(code uint16, pressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, keyEvent{code: code, pressed: pressed})
	if pressed {
		s.held[code] = true
	} else {
		delete(s.held, code)
	}
	return nil
}

func (s *recordingSink) SyncKeyboard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
	return nil
}

func (s *recordingSink) UpdateGamepad(f GamepadFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

func (s *recordingSink) isHeld(code LogicalKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held[uint16(code)]
}

func (s *recordingSink) lastFrame(t *testing.T) GamepadFrame {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		t.Fatal("Expected at least one gamepad frame")
	}
	return s.frames[len(s.frames)-1]
}

func (s *recordingSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) keyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func newTestEngine(t *testing.T, opts Options, records ...config.Binding) (*Engine, *recordingSink) {
	t.Helper()
	sink := newRecordingSink()
	opts.Sink = sink
	e := New(opts)
	if err := e.Load(records); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	t.Cleanup(e.Close)
	return e, sink
}

func TestSocdLastPressWins(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("41", "socd", 0x44),
		rec("44", "socd", 0x41),
	)

	e.OnPhysicalEvent(keyA, true)
	e.OnPhysicalEvent(keyD, true)
	if sink.isHeld(keyA) || !sink.isHeld(keyD) {
		t.Errorf("Expected D virtually pressed and A released after A,D")
	}

	e.OnPhysicalEvent(keyD, false)
	if !sink.isHeld(keyA) || sink.isHeld(keyD) {
		t.Errorf("Expected A restored after releasing D")
	}

	e.OnPhysicalEvent(keyD, true)
	e.OnPhysicalEvent(keyA, false)
	if sink.isHeld(keyA) || !sink.isHeld(keyD) {
		t.Errorf("Expected only D held after releasing A")
	}

	e.OnPhysicalEvent(keyD, false)
	if sink.isHeld(keyA) || sink.isHeld(keyD) {
		t.Errorf("Expected nothing held after releasing both")
	}
	if sink.frameCount() != 0 {
		t.Errorf("Expected no gamepad frames for keyboard pairs, got %d", sink.frameCount())
	}
}

func TestSocdRestoresMappedOutput(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("41", "keyboard", 0x4A),
		rec("44", "keyboard", 0x4C),
		rec("41", "socd", 0x44),
		rec("44", "socd", 0x41),
	)

	e.OnPhysicalEvent(keyA, true)
	e.OnPhysicalEvent(keyD, true)
	if sink.isHeld(0x4A) || !sink.isHeld(0x4C) {
		t.Errorf("Expected mapped J released and L pressed")
	}
	e.OnPhysicalEvent(keyD, false)
	if !sink.isHeld(0x4A) || sink.isHeld(0x4C) {
		t.Errorf("Expected mapped J restored")
	}
	if sink.isHeld(keyA) || sink.isHeld(keyD) {
		t.Errorf("Expected raw codes never to be emitted")
	}
}

func TestAxisPriorityIndependentOfOrder(t *testing.T) {
	for _, order := range [][]LogicalKey{{keyLeft, keyRight}, {keyRight, keyLeft}} {
		e, sink := newTestEngine(t, Options{},
			rec("25", "thumb_lx", -32768),
			rec("27", "thumb_lx", 32767),
		)
		e.OnPhysicalEvent(order[0], true)
		e.OnPhysicalEvent(order[1], true)
		if got := sink.lastFrame(t).ThumbLX; got != 32767 {
			t.Errorf("Order %v: Expected 32767, got %d", order, got)
		}
	}
}

func TestStickSocdScenario(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("25", "thumb_lx", -32768),
		rec("27", "thumb_lx", 32767),
		rec("25", "socd", 0x27),
		rec("27", "socd", 0x25),
	)

	steps := []struct {
		key     LogicalKey
		pressed bool
		want    int16
	}{
		{keyLeft, true, -32768},
		{keyRight, true, 32767},
		{keyRight, false, -32768},
		{keyLeft, false, 0},
	}
	for i, s := range steps {
		e.OnPhysicalEvent(s.key, s.pressed)
		if got := sink.lastFrame(t).ThumbLX; got != s.want {
			t.Errorf("Step %d: Expected thumb_lx %d, got %d", i, s.want, got)
		}
	}
}

func TestTriggersTakeMax(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("51", "left_trigger", 100),
		rec("45", "left_trigger", 255),
	)
	e.OnPhysicalEvent(keyQ, true)
	e.OnPhysicalEvent(keyE, true)
	if got := sink.lastFrame(t).LeftTrigger; got != 1023 {
		t.Errorf("Expected 1023, got %d", got)
	}
	e.OnPhysicalEvent(keyE, false)
	if got := sink.lastFrame(t).LeftTrigger; got != 401 {
		t.Errorf("Expected 401, got %d", got)
	}
}

func TestDpadComplementOnRelease(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("26", "face_button", int(ButtonDpadUp)),
		rec("28", "face_button", int(ButtonDpadDown)),
	)

	e.OnPhysicalEvent(keyUp, true)
	e.OnPhysicalEvent(keyDown, true)
	if got := sink.lastFrame(t).DpadY(); got != 1 {
		t.Errorf("Expected hat down after pressing Down, got %d", got)
	}

	e.OnPhysicalEvent(keyDown, false)
	f := sink.lastFrame(t)
	if f.DpadY() != -1 || f.Buttons != ButtonDpadUp {
		t.Errorf("Expected hat up after releasing Down, got %d (buttons 0x%X)", f.DpadY(), f.Buttons)
	}

	e.OnPhysicalEvent(keyUp, false)
	if f := sink.lastFrame(t); f.DpadY() != 0 || f.Buttons != 0 {
		t.Errorf("Expected neutral hat, got %d (buttons 0x%X)", f.DpadY(), f.Buttons)
	}
}

func TestFaceButtonSocdPair(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("25", "face_button", int(ButtonDpadLeft)),
		rec("27", "face_button", int(ButtonDpadRight)),
		rec("25", "socd", 0x27),
		rec("27", "socd", 0x25),
	)

	e.OnPhysicalEvent(keyLeft, true)
	e.OnPhysicalEvent(keyRight, true)
	if got := sink.lastFrame(t).Buttons; got != ButtonDpadRight {
		t.Errorf("Expected only right, got 0x%X", got)
	}
	e.OnPhysicalEvent(keyRight, false)
	if got := sink.lastFrame(t).Buttons; got != ButtonDpadLeft {
		t.Errorf("Expected left restored, got 0x%X", got)
	}
}

func TestMashTriggerGate(t *testing.T) {
	var mu sync.Mutex
	var flips []bool
	e, _ := newTestEngine(t, Options{OnMasherChange: func(active bool) {
		mu.Lock()
		flips = append(flips, active)
		mu.Unlock()
	}},
		rec("51", "mash_trigger", 0x51),
		rec("45", "mash_trigger", 0x45),
	)

	e.OnPhysicalEvent(keyQ, true)
	if e.MasherActive() {
		t.Error("Expected masher inactive with one trigger held")
	}
	e.OnPhysicalEvent(keyE, true)
	if !e.MasherActive() {
		t.Error("Expected masher active with both triggers held")
	}
	e.OnPhysicalEvent(keyQ, false)
	if e.MasherActive() {
		t.Error("Expected masher inactive after releasing a trigger")
	}
	e.OnPhysicalEvent(keyQ, true)
	if !e.MasherActive() {
		t.Error("Expected masher active again")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []bool{true, false, true}
	if len(flips) != len(want) {
		t.Fatalf("Expected flips %v, got %v", want, flips)
	}
	for i := range want {
		if flips[i] != want[i] {
			t.Errorf("Flip %d: Expected %v, got %v", i, want[i], flips[i])
		}
	}
}

func TestNoMashTriggersNeverActive(t *testing.T) {
	e, _ := newTestEngine(t, Options{}, rec("41", "keyboard", 0x42))
	e.OnPhysicalEvent(keyA, true)
	if e.MasherActive() {
		t.Error("Expected masher inactive with no triggers")
	}
}

func TestRepeatedTransitionIsIdempotent(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("20", "face_button", int(ButtonA|ButtonX)),
		rec("26", "face_button", int(ButtonDpadUp)),
	)

	for _, key := range []LogicalKey{keySpace, keyUp} {
		e.OnPhysicalEvent(key, true)
		first := sink.lastFrame(t)
		e.OnPhysicalEvent(key, true)
		if second := sink.lastFrame(t); second != first {
			t.Errorf("Key 0x%X: Expected %+v, got %+v", uint32(key), first, second)
		}
	}
}

func TestKeyboardShortCircuit(t *testing.T) {
	e, sink := newTestEngine(t, Options{}, rec("41", "keyboard", 0x42))

	e.OnPhysicalEvent(keyA, true)
	e.OnPhysicalEvent(keyA, false)

	if sink.frameCount() != 0 {
		t.Errorf("Expected no gamepad update, got %d", sink.frameCount())
	}
	if len(sink.keys) != 2 || sink.keys[0] != (keyEvent{0x42, true}) || sink.keys[1] != (keyEvent{0x42, false}) {
		t.Errorf("Expected B down/up, got %v", sink.keys)
	}
	if sink.syncs != 2 {
		t.Errorf("Expected 2 syncs, got %d", sink.syncs)
	}
}

func TestPassthroughAndBlock(t *testing.T) {
	e, sink := newTestEngine(t, Options{}, rec("5A", "face_button", int(ButtonA)))

	e.OnPhysicalEvent(keySpace, true)
	if !sink.isHeld(keySpace) || sink.frameCount() != 0 {
		t.Error("Expected unbound key passed through without a frame")
	}
	e.OnPhysicalEvent(0x5A, true)
	if !sink.isHeld(0x5A) || sink.lastFrame(t).Buttons != ButtonA {
		t.Error("Expected controller key to update the pad and pass through")
	}

	blocked, bsink := newTestEngine(t, Options{BlockKeyboardOnController: true}, rec("5A", "face_button", int(ButtonA)))
	blocked.OnPhysicalEvent(keySpace, true)
	blocked.OnPhysicalEvent(0x5A, true)
	if bsink.keyCount() != 0 {
		t.Errorf("Expected no keyboard output when blocked, got %v", bsink.keys)
	}
	if bsink.lastFrame(t).Buttons != ButtonA {
		t.Error("Expected pad output while keyboard is blocked")
	}
}

func TestStopResetsAndFlushes(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("5A", "face_button", int(ButtonA)),
		rec("41", "keyboard", 0x42),
	)

	e.OnPhysicalEvent(0x5A, true)
	e.OnPhysicalEvent(keyA, true)
	frames := sink.frameCount()

	e.Stop()

	if sink.frameCount() != frames+1 {
		t.Errorf("Expected exactly one flush, got %d new frames", sink.frameCount()-frames)
	}
	if !sink.lastFrame(t).IsZero() {
		t.Errorf("Expected zero frame, got %+v", sink.lastFrame(t))
	}
	if sink.isHeld(0x42) || sink.isHeld(0x5A) {
		t.Error("Expected held keyboard output released on stop")
	}
	if e.Running() {
		t.Error("Expected engine stopped")
	}

	keys := sink.keyCount()
	if e.OnPhysicalEvent(keyA, true) {
		t.Error("Expected stopped engine not to consume events")
	}
	if sink.keyCount() != keys {
		t.Error("Expected no output after stop")
	}

	e.Stop()
	if sink.frameCount() != frames+1 {
		t.Error("Expected second stop to be a no-op")
	}
}

func TestStopConcurrentWithEvents(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("25", "thumb_lx", -32768),
		rec("27", "thumb_lx", 32767),
		rec("25", "socd", 0x27),
		rec("27", "socd", 0x25),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			e.OnPhysicalEvent(keyLeft, i%2 == 0)
			e.OnPhysicalEvent(keyRight, i%3 == 0)
		}
	}()

	time.Sleep(time.Millisecond)
	e.Stop()
	frames := sink.frameCount()
	if !sink.lastFrame(t).IsZero() {
		t.Errorf("Expected zero frame as the last output, got %+v", sink.lastFrame(t))
	}
	wg.Wait()

	if sink.frameCount() != frames {
		t.Errorf("Expected no frames after stop, got %d more", sink.frameCount()-frames)
	}
}

func TestInject(t *testing.T) {
	e, sink := newTestEngine(t, Options{MashSet: []Action{
		{Kind: KindKeyboard, Value: 0x5A},
		{Kind: KindFaceButton, Value: int32(ButtonB)},
	}}, rec("51", "mash_trigger", 0x51))

	e.Inject(0, true)
	if !sink.isHeld(0x5A) {
		t.Error("Expected Z pressed by slot 0")
	}
	e.Inject(1, true)
	if sink.lastFrame(t).Buttons != ButtonB {
		t.Errorf("Expected B on the pad, got 0x%X", sink.lastFrame(t).Buttons)
	}

	keys := sink.keyCount()
	e.Inject(7, true)
	if sink.keyCount() != keys {
		t.Error("Expected out of range slot to be ignored")
	}

	e.Inject(ReleaseAll, false)
	if sink.isHeld(0x5A) {
		t.Error("Expected Z released")
	}
	if sink.lastFrame(t).Buttons != 0 {
		t.Errorf("Expected pad cleared, got 0x%X", sink.lastFrame(t).Buttons)
	}
}

func TestInjectDefaultsToTriggerKeys(t *testing.T) {
	e, sink := newTestEngine(t, Options{},
		rec("51", "mash_trigger", 0x52),
		rec("45", "mash_trigger", 0x46),
	)

	e.Inject(1, true)
	if !sink.isHeld(0x46) {
		t.Error("Expected slot 1 to press the second trigger's key")
	}
	e.Stop()
	if sink.isHeld(0x46) {
		t.Error("Expected stop to release injected keys")
	}
}

type chanOverlay chan bool

func (c chanOverlay) Toggle(active bool) error {
	c <- active
	return nil
}

func TestOverlayToggledOnFlip(t *testing.T) {
	overlay := make(chanOverlay, 4)
	e, _ := newTestEngine(t, Options{Overlay: overlay}, rec("51", "mash_trigger", 0x51))

	e.OnPhysicalEvent(keyQ, true)
	e.OnPhysicalEvent(keyQ, false)

	for _, want := range []bool{true, false} {
		select {
		case got := <-overlay:
			if got != want {
				t.Errorf("Expected toggle %v, got %v", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for toggle %v", want)
		}
	}
}

func TestStaleFrameDropped(t *testing.T) {
	sink := newRecordingSink()
	e := New(Options{Sink: sink})

	e.pushFrame(GamepadFrame{Buttons: ButtonA}, 2)
	e.pushFrame(GamepadFrame{Buttons: ButtonB}, 1)

	if sink.frameCount() != 1 || sink.frames[0].Buttons != ButtonA {
		t.Errorf("Expected only the newer frame, got %v", sink.frames)
	}
}

func TestLoadErrorLeavesEngineStopped(t *testing.T) {
	e := New(Options{})
	if err := e.Load([]config.Binding{rec("xyz", "keyboard", 1)}); err == nil {
		t.Fatal("Expected load error")
	}
	if e.Running() {
		t.Error("Expected engine stopped after failed load")
	}
	if e.OnPhysicalEvent(keyA, true) {
		t.Error("Expected event not consumed")
	}
}

func TestMixedSocdPairs(t *testing.T) {
	type step struct {
		key     LogicalKey
		pressed bool
		lx      int16
		buttons uint16
		held    uint16
	}
	tests := []struct {
		name    string
		records []config.Binding
		steps   []step
	}{
		{
			name: "keyboard against stick",
			records: []config.Binding{
				rec("25", "thumb_lx", -32768),
				rec("27", "keyboard", 0x58),
				rec("25", "socd", 0x27),
				rec("27", "socd", 0x25),
			},
			steps: []step{
				{key: keyLeft, pressed: true, lx: -32768},
				{key: keyRight, pressed: true, lx: 0, held: 0x58},
				{key: keyRight, pressed: false, lx: -32768},
				{key: keyLeft, pressed: false, lx: 0},
			},
		},
		{
			name: "keyboard against face button",
			records: []config.Binding{
				rec("41", "face_button", int(ButtonA)),
				rec("44", "keyboard", 0x44),
				rec("41", "socd", 0x44),
				rec("44", "socd", 0x41),
			},
			steps: []step{
				{key: keyA, pressed: true, buttons: ButtonA},
				{key: keyD, pressed: true, buttons: 0, held: 0x44},
				{key: keyD, pressed: false, buttons: ButtonA},
				{key: keyA, pressed: false, buttons: 0},
			},
		},
		{
			name: "unbound key against stick",
			records: []config.Binding{
				rec("25", "thumb_lx", -32768),
				rec("25", "socd", 0x27),
				rec("27", "socd", 0x25),
			},
			steps: []step{
				{key: keyLeft, pressed: true, lx: -32768},
				{key: keyRight, pressed: true, lx: 0, held: uint16(keyRight)},
				{key: keyRight, pressed: false, lx: -32768},
				{key: keyLeft, pressed: false, lx: 0},
			},
		},
		{
			name: "stick pressed over held keyboard key",
			records: []config.Binding{
				rec("25", "thumb_lx", -32768),
				rec("27", "keyboard", 0x58),
				rec("25", "socd", 0x27),
				rec("27", "socd", 0x25),
			},
			steps: []step{
				{key: keyRight, pressed: true, lx: 0, held: 0x58},
				{key: keyLeft, pressed: true, lx: -32768},
				{key: keyLeft, pressed: false, lx: 0, held: 0x58},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, sink := newTestEngine(t, Options{}, tt.records...)

			for i, s := range tt.steps {
				e.OnPhysicalEvent(s.key, s.pressed)

				var f GamepadFrame
				if sink.frameCount() > 0 {
					f = sink.lastFrame(t)
				}
				if f.ThumbLX != s.lx {
					t.Errorf("Step %d: expected lx %d, got %d", i, s.lx, f.ThumbLX)
				}
				if f.Buttons != s.buttons {
					t.Errorf("Step %d: expected buttons 0x%X, got 0x%X", i, s.buttons, f.Buttons)
				}
				if s.held != 0 && !sink.isHeld(LogicalKey(s.held)) {
					t.Errorf("Step %d: expected key 0x%X held", i, s.held)
				}
				if f != e.Frame() {
					t.Errorf("Step %d: pad shows %+v but engine built %+v", i, f, e.Frame())
				}
			}
		})
	}
}

func TestLoadAfterCloseFails(t *testing.T) {
	overlay := make(chanOverlay, 4)
	sink := newRecordingSink()
	e := New(Options{Sink: sink, Overlay: overlay})
	records := []config.Binding{rec("51", "mash_trigger", 0x51)}

	if err := e.Load(records); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e.Close()

	if err := e.Load(records); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
	if e.Running() {
		t.Error("Expected engine to stay stopped after close")
	}
	if e.OnPhysicalEvent(keyQ, true) {
		t.Error("Expected event not consumed after close")
	}
	if e.MasherActive() {
		t.Error("Expected masher inactive after close")
	}

	// Closing twice is harmless
	e.Close()
}

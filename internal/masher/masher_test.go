package masher

import (
	"context"
	"sync"
	"testing"
	"time"

	"overbind/internal/remap"
)

type injectCall struct {
	slot    uint8
	pressed bool
}

type recordingInjector struct {
	mu    sync.Mutex
	calls []injectCall
}

func (r *recordingInjector) Inject(slot uint8, pressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, injectCall{slot, pressed})
}

func (r *recordingInjector) snapshot() []injectCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]injectCall(nil), r.calls...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestLoopAlternatesWhileActive(t *testing.T) {
	inj := &recordingInjector{}
	l := New(inj, 2, 500, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	l.SetActive(true)
	waitFor(t, "two ticks", func() bool { return len(inj.snapshot()) >= 4 })

	calls := inj.snapshot()
	if calls[0] != (injectCall{0, true}) || calls[1] != (injectCall{1, true}) {
		t.Errorf("Expected first tick to press slots 0 and 1, got %v", calls[:2])
	}
	if calls[2] != (injectCall{0, false}) || calls[3] != (injectCall{1, false}) {
		t.Errorf("Expected second tick to release slots 0 and 1, got %v", calls[2:4])
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestLoopReleasesOnDeactivate(t *testing.T) {
	inj := &recordingInjector{}
	l := New(inj, 1, 500, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	l.SetActive(true)
	waitFor(t, "first press", func() bool {
		for _, c := range inj.snapshot() {
			if c.pressed {
				return true
			}
		}
		return false
	})

	l.SetActive(false)
	waitFor(t, "release", func() bool {
		calls := inj.snapshot()
		last := calls[len(calls)-1]
		return last.slot == remap.ReleaseAll || !last.pressed
	})

	n := len(inj.snapshot())
	time.Sleep(30 * time.Millisecond)
	if len(inj.snapshot()) != n {
		t.Error("Expected no injects after deactivating")
	}
	if l.Active() {
		t.Error("Expected loop inactive")
	}
}

func TestLoopWaitsForCondition(t *testing.T) {
	inj := &recordingInjector{}
	var ready sync.Mutex
	isReady := false
	cond := ConditionFunc(func() bool {
		ready.Lock()
		defer ready.Unlock()
		return isReady
	})
	l := New(inj, 1, 500, cond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	l.SetActive(true)
	time.Sleep(30 * time.Millisecond)
	if n := len(inj.snapshot()); n != 0 {
		t.Errorf("Expected no injects while not ready, got %d", n)
	}

	ready.Lock()
	isReady = true
	ready.Unlock()
	waitFor(t, "inject once ready", func() bool { return len(inj.snapshot()) > 0 })
}

func TestNewDefaults(t *testing.T) {
	l := New(&recordingInjector{}, 1, 0, nil)
	if l.interval != time.Second/DefaultRateHz {
		t.Errorf("Expected %v interval, got %v", time.Second/DefaultRateHz, l.interval)
	}
	if !l.cond.Ready() {
		t.Error("Expected default condition to be ready")
	}
}

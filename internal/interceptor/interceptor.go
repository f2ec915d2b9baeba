// Package interceptor owns the running remap session: it wires the engine to
// a platform adapter and the mash loop, and starts and stops them together.
package interceptor

import (
	"context"
	"errors"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"overbind/internal/config"
	"overbind/internal/masher"
	"overbind/internal/platform"
	"overbind/internal/remap"
)

// ErrNoAdapter is returned when the adapter factory yields nothing
var ErrNoAdapter = errors.New("interceptor: no platform adapter")

// Observer receives live state. Callbacks run on the event goroutine and
// must not block.
type Observer interface {
	FrameChanged(frame remap.GamepadFrame)
	MasherChanged(active bool)
	StateChanged(running bool)
}

// Observers fans callbacks out to several observers in order.
type Observers []Observer

func (o Observers) FrameChanged(frame remap.GamepadFrame) {
	for _, obs := range o {
		obs.FrameChanged(frame)
	}
}

func (o Observers) MasherChanged(active bool) {
	for _, obs := range o {
		obs.MasherChanged(active)
	}
}

func (o Observers) StateChanged(running bool) {
	for _, obs := range o {
		obs.StateChanged(running)
	}
}

// Options configures an Interceptor.
type Options struct {
	Config *config.Manager

	// NewAdapter opens the platform adapter. Defaults to platform.New.
	NewAdapter func(platform.Options) (platform.Adapter, error)

	// Condition gates the mash loop. Defaults to masher.Always.
	Condition masher.Condition

	Observer Observer
}

// Status is a snapshot for the tray and the API.
type Status struct {
	Running      bool               `json:"running"`
	MasherActive bool               `json:"masher_active"`
	Platform     string             `json:"platform,omitempty"`
	Frame        remap.GamepadFrame `json:"frame"`
	LastError    string             `json:"last_error,omitempty"`
}

// Interceptor starts and stops remap sessions.
type Interceptor struct {
	opts Options

	mu      sync.Mutex
	running bool
	engine  *remap.Engine
	adapter platform.Adapter
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// New creates a stopped interceptor.
func New(opts Options) *Interceptor {
	if opts.NewAdapter == nil {
		opts.NewAdapter = platform.New
	}
	if opts.Condition == nil {
		opts.Condition = masher.Always
	}
	return &Interceptor{opts: opts}
}

// Start loads the current configuration and begins intercepting. Starting
// a running interceptor is a no-op. On error nothing is left running.
func (i *Interceptor) Start() error {
	i.mu.Lock()
	started, err := i.startLocked()
	i.mu.Unlock()

	if started != nil {
		i.notifyState(true)
		close(started)
	}
	return err
}

// startLocked returns a channel the caller closes once the start has been
// announced, so a session that fails at once never reports stopped first.
func (i *Interceptor) startLocked() (chan struct{}, error) {
	if i.running {
		return nil, nil
	}

	settings := i.opts.Config.Settings()
	bindings := i.opts.Config.Bindings()

	mash, err := remap.ParseMashActions(settings.MashActions)
	if err != nil {
		return nil, err
	}

	adapter, err := i.opts.NewAdapter(platform.Options{Device: settings.SelectedInput})
	if err != nil {
		return nil, err
	}
	if adapter == nil {
		return nil, ErrNoAdapter
	}

	var loop *masher.Loop
	engineOpts := remap.Options{
		Sink:                      &observedSink{OutputSink: adapter, observer: i.opts.Observer},
		BlockKeyboardOnController: settings.BlockKbOnController,
		MashSet:                   mash,
		OnMasherChange: func(active bool) {
			loop.SetActive(active)
			if i.opts.Observer != nil {
				i.opts.Observer.MasherChanged(active)
			}
		},
	}
	if settings.OverlayEnabled {
		engineOpts.Overlay = masher.NewOverlay(settings.OverlayAddress)
	}

	engine := remap.New(engineOpts)
	if err := engine.Load(bindings); err != nil {
		engine.Close()
		adapter.Close()
		return nil, err
	}
	loop = masher.New(engine, engine.MashSlots(), settings.MashRateHz, i.opts.Condition)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return adapter.Listen(gctx, engine.OnPhysicalEvent)
	})
	g.Go(func() error {
		return loop.Run(gctx)
	})

	done := make(chan struct{})
	i.running = true
	i.engine = engine
	i.adapter = adapter
	i.cancel = cancel
	i.done = done
	i.lastErr = nil

	started := make(chan struct{})
	go func() {
		<-started
		i.wait(g, cancel, engine, adapter, done)
	}()

	log.Printf("Interceptor: Started on %s", adapter.Name())
	return started, nil
}

// wait tears the session down once every goroutine has exited, whether
// Stop asked for it or the input source failed.
func (i *Interceptor) wait(g *errgroup.Group, cancel context.CancelFunc, engine *remap.Engine, adapter platform.Adapter, done chan struct{}) {
	err := g.Wait()
	cancel()

	// Engine first so its reset reaches the devices before they close
	engine.Close()
	if cerr := adapter.Close(); cerr != nil {
		log.Printf("Interceptor: Failed to close adapter: %v", cerr)
	}

	i.mu.Lock()
	if i.done == done {
		i.running = false
		i.engine = nil
		i.adapter = nil
		i.cancel = nil
		i.lastErr = err
	}
	i.mu.Unlock()

	if err != nil {
		log.Printf("Interceptor: Stopped with error: %v", err)
	} else {
		log.Printf("Interceptor: Stopped")
	}
	i.notifyState(false)
	close(done)
}

// Stop ends the session and waits for teardown. Stopping a stopped
// interceptor is a no-op.
func (i *Interceptor) Stop() error {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	running := i.running
	i.mu.Unlock()

	if !running {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Restart stops a running session and starts a new one with the current
// configuration. A stopped interceptor stays stopped.
func (i *Interceptor) Restart() error {
	if !i.IsRunning() {
		return nil
	}
	if err := i.Stop(); err != nil {
		return err
	}
	return i.Start()
}

// IsRunning reports whether a session is active.
func (i *Interceptor) IsRunning() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running
}

// Status returns a snapshot of the session.
func (i *Interceptor) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	s := Status{Running: i.running}
	if i.lastErr != nil {
		s.LastError = i.lastErr.Error()
	}
	if i.engine != nil {
		s.MasherActive = i.engine.MasherActive()
		s.Frame = i.engine.Frame()
	}
	if i.adapter != nil {
		s.Platform = i.adapter.Name()
	}
	return s
}

func (i *Interceptor) notifyState(running bool) {
	if i.opts.Observer != nil {
		i.opts.Observer.StateChanged(running)
	}
}

// observedSink forwards to the adapter and reports frames to the observer.
type observedSink struct {
	remap.OutputSink
	observer Observer
}

func (s *observedSink) UpdateGamepad(frame remap.GamepadFrame) error {
	err := s.OutputSink.UpdateGamepad(frame)
	if s.observer != nil {
		s.observer.FrameChanged(frame)
	}
	return err
}

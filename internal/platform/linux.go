//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/holoplot/go-evdev"

	"overbind/internal/remap"
)

const (
	defaultInputDevice = "/dev/input/event0"
	keyboardName       = "OverBind Virtual Keyboard"
)

type linuxAdapter struct {
	path string
	in   *evdev.InputDevice

	kbdMu sync.Mutex
	kbd   *evdev.InputDevice
	pad   *uinputPad
}

func newAdapter(opts Options) (Adapter, error) {
	path := resolveDevice(opts.Device)

	in, err := evdev.Open(path)
	if err != nil {
		return nil, &remap.DriverError{Op: "open " + path, Err: err}
	}

	kbd, err := evdev.CreateDevice(keyboardName,
		evdev.InputID{BusType: busUSB, Vendor: 0x4f56, Product: 0x0001, Version: 1},
		map[evdev.EvType][]evdev.EvCode{
			evdev.EV_KEY: keyboardCodes(),
		})
	if err != nil {
		in.Close()
		return nil, &remap.DriverError{Op: "create virtual keyboard", Err: err}
	}

	pad, err := openPad()
	if err != nil {
		kbd.Close()
		in.Close()
		return nil, err
	}

	name, _ := in.Name()
	log.Printf("Platform: Using input device %s (%s)", path, name)
	return &linuxAdapter{path: path, in: in, kbd: kbd, pad: pad}, nil
}

// resolveDevice turns the selected_input setting into a device node. Names
// are looked up under /dev/input/by-id first, then /dev/input/by-path.
func resolveDevice(selected string) string {
	if selected == "" {
		return defaultInputDevice
	}
	if strings.HasPrefix(selected, "/") {
		return selected
	}
	for _, dir := range []string{"/dev/input/by-id", "/dev/input/by-path"} {
		link := filepath.Join(dir, selected)
		target, err := os.Readlink(link)
		if err != nil {
			continue
		}
		return filepath.Join("/dev/input", filepath.Base(target))
	}
	log.Printf("Platform: Input %q not found, falling back to %s", selected, defaultInputDevice)
	return defaultInputDevice
}

func (a *linuxAdapter) Name() string {
	return "linux"
}

func (a *linuxAdapter) TranslateToLogical(native uint32) (remap.LogicalKey, error) {
	vk, ok := vkByEvdev[evdev.EvCode(native)]
	if !ok {
		return 0, &remap.TranslationError{Platform: "linux", Code: native, ToLogical: true}
	}
	return remap.LogicalKey(vk), nil
}

// Listen grabs the input device and reads key events until ctx is done.
// Events the engine does not consume are forwarded to the virtual keyboard
// unchanged, since the grab hides them from everyone else.
func (a *linuxAdapter) Listen(ctx context.Context, handler Handler) error {
	if err := a.in.Grab(); err != nil {
		return &remap.DriverError{Op: "grab " + a.path, Err: err}
	}
	defer a.in.Ungrab()

	// ReadOne blocks; closing the device is the only way to interrupt it
	stop := context.AfterFunc(ctx, func() {
		a.in.Close()
	})
	defer stop()

	log.Printf("Platform: Listening on %s", a.path)
	for {
		ev, err := a.in.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &remap.DriverError{Op: "read " + a.path, Err: err}
		}

		// Value 2 is autorepeat; the engine only tracks transitions
		if ev.Type != evdev.EV_KEY || ev.Value == 2 {
			continue
		}
		pressed := ev.Value == 1

		key, err := a.TranslateToLogical(uint32(ev.Code))
		if err != nil {
			a.forward(ev.Code, pressed)
			continue
		}
		if !deliver(handler, key, pressed) {
			a.forward(ev.Code, pressed)
		}
	}
}

func (a *linuxAdapter) forward(code evdev.EvCode, pressed bool) {
	if err := a.writeKey(code, pressed); err != nil {
		log.Printf("Platform: Failed to forward key %d: %v", code, err)
		return
	}
	if err := a.SyncKeyboard(); err != nil {
		log.Printf("Platform: Failed to sync keyboard: %v", err)
	}
}

func (a *linuxAdapter) writeKey(code evdev.EvCode, pressed bool) error {
	v := int32(0)
	if pressed {
		v = 1
	}
	a.kbdMu.Lock()
	defer a.kbdMu.Unlock()
	return a.kbd.WriteOne(&evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: v})
}

func (a *linuxAdapter) EmitVirtualKey(code uint16, pressed bool) error {
	ev, ok := evdevByVK[code]
	if !ok {
		return &remap.TranslationError{Platform: "linux", Code: uint32(code)}
	}
	if err := a.writeKey(ev, pressed); err != nil {
		return &remap.DriverError{Op: "write keyboard", Err: err}
	}
	return nil
}

func (a *linuxAdapter) SyncKeyboard() error {
	a.kbdMu.Lock()
	defer a.kbdMu.Unlock()
	if err := a.kbd.WriteOne(&evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT}); err != nil {
		return &remap.DriverError{Op: "sync keyboard", Err: err}
	}
	return nil
}

func (a *linuxAdapter) UpdateGamepad(frame remap.GamepadFrame) error {
	return a.pad.Update(frame)
}

func (a *linuxAdapter) Close() error {
	var errs []error
	if err := a.pad.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close gamepad: %w", err))
	}
	a.kbdMu.Lock()
	if err := a.kbd.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close keyboard: %w", err))
	}
	a.kbdMu.Unlock()
	// The input device may already be closed by Listen's cancellation
	if err := a.in.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("close input: %w", err))
	}
	return errors.Join(errs...)
}

//go:build windows

package platform

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"overbind/internal/keymap"
	"overbind/internal/remap"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procSendInput           = user32.NewProc("SendInput")
	procMapVirtualKey       = user32.NewProc("MapVirtualKeyW")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	WH_KEYBOARD_LL = 13
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105
	WM_QUIT        = 0x0012

	INPUT_KEYBOARD        = 1
	KEYEVENTF_EXTENDEDKEY = 0x0001
	KEYEVENTF_KEYUP       = 0x0002
	KEYEVENTF_SCANCODE    = 0x0008
	MAPVK_VK_TO_VSC       = 0

	// injectedTag marks events sent by this process so the hook lets them by
	injectedTag = 0x4F564244
)

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// keyboardINPUT is INPUT with the keyboard union member. The trailing pad
// brings it to sizeof(INPUT), which is sized by the larger MOUSEINPUT.
type keyboardINPUT struct {
	Type uint32
	Ki   keybdInput
	_    [8]byte
}

var (
	// The low-level hook has no user data pointer, so the active adapter
	// is process-wide.
	activeHook   atomic.Pointer[hookState]
	hookCallback uintptr
	callbackOnce sync.Once
)

type hookState struct {
	hook    uintptr
	handler Handler
}

type windowsAdapter struct {
	inMu    sync.Mutex
	pending []keyboardINPUT

	pad *vigemPad
}

func newAdapter(opts Options) (Adapter, error) {
	a := &windowsAdapter{}
	pad, err := openVigem()
	if err != nil {
		log.Printf("Platform: Virtual gamepad unavailable, pad output disabled: %v", err)
	} else {
		a.pad = pad
	}
	return a, nil
}

func (a *windowsAdapter) Name() string {
	return "windows"
}

// TranslateToLogical is the identity: logical keys are virtual-key codes.
func (a *windowsAdapter) TranslateToLogical(native uint32) (remap.LogicalKey, error) {
	if native == 0 || native > 0xFE {
		return 0, &remap.TranslationError{Platform: "windows", Code: native, ToLogical: true}
	}
	return remap.LogicalKey(native), nil
}

// Listen installs a low-level keyboard hook and pumps messages on a locked
// OS thread until ctx is done.
func (a *windowsAdapter) Listen(ctx context.Context, handler Handler) error {
	callbackOnce.Do(func() {
		hookCallback = syscall.NewCallback(keyboardHookProc)
	})

	errCh := make(chan error, 1)
	threadID := make(chan uint32, 1)

	// Hooks must be registered in the same thread that runs the message loop
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hMod, _, _ := procGetModuleHandle.Call(0)
		hook, _, err := procSetWindowsHookEx.Call(WH_KEYBOARD_LL, hookCallback, hMod, 0)
		if hook == 0 {
			errCh <- &remap.DriverError{Op: "SetWindowsHookEx", Err: err}
			close(threadID)
			return
		}
		state := &hookState{hook: hook, handler: handler}
		if !activeHook.CompareAndSwap(nil, state) {
			procUnhookWindowsHookEx.Call(hook)
			errCh <- errors.New("platform: a keyboard hook is already installed")
			close(threadID)
			return
		}
		threadID <- windows.GetCurrentThreadId()

		log.Println("Platform: Windows keyboard hook started.")

		var msg struct {
			Hwnd    syscall.Handle
			Message uint32
			Wparam  uintptr
			Lparam  uintptr
			Time    uint32
			Pt      struct{ X, Y int32 }
		}
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
		}

		activeHook.Store(nil)
		procUnhookWindowsHookEx.Call(hook)
		log.Println("Platform: Windows keyboard hook removed.")
		errCh <- nil
	}()

	tid, ok := <-threadID
	if !ok {
		return <-errCh
	}

	select {
	case <-ctx.Done():
		procPostThreadMessage.Call(uintptr(tid), WM_QUIT, 0, 0)
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	state := activeHook.Load()
	if nCode == 0 && state != nil {
		kbd := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		if kbd.DwExtraInfo != injectedTag {
			var pressed, known bool
			switch wParam {
			case WM_KEYDOWN, WM_SYSKEYDOWN:
				pressed, known = true, true
			case WM_KEYUP, WM_SYSKEYUP:
				known = true
			}
			if known && deliver(state.handler, remap.LogicalKey(kbd.VkCode), pressed) {
				return 1
			}
		}
	}
	var hook uintptr
	if state != nil {
		hook = state.hook
	}
	ret, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return ret
}

// EmitVirtualKey queues a scan code event; SyncKeyboard sends the queue in
// one SendInput call.
func (a *windowsAdapter) EmitVirtualKey(code uint16, pressed bool) error {
	scan, _, _ := procMapVirtualKey.Call(uintptr(code), MAPVK_VK_TO_VSC)
	if scan == 0 {
		return &remap.TranslationError{Platform: "windows", Code: uint32(code)}
	}

	flags := uint32(KEYEVENTF_SCANCODE)
	if keymap.IsExtended(code) {
		flags |= KEYEVENTF_EXTENDEDKEY
	}
	if !pressed {
		flags |= KEYEVENTF_KEYUP
	}

	a.inMu.Lock()
	a.pending = append(a.pending, keyboardINPUT{
		Type: INPUT_KEYBOARD,
		Ki:   keybdInput{Scan: uint16(scan), Flags: flags, ExtraInfo: injectedTag},
	})
	a.inMu.Unlock()
	return nil
}

func (a *windowsAdapter) SyncKeyboard() error {
	a.inMu.Lock()
	batch := a.pending
	a.pending = nil
	a.inMu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	n, _, err := procSendInput.Call(
		uintptr(len(batch)),
		uintptr(unsafe.Pointer(&batch[0])),
		unsafe.Sizeof(batch[0]),
	)
	if int(n) != len(batch) {
		return &remap.DriverError{Op: fmt.Sprintf("SendInput (%d/%d sent)", n, len(batch)), Err: err}
	}
	return nil
}

func (a *windowsAdapter) UpdateGamepad(frame remap.GamepadFrame) error {
	if a.pad == nil {
		return nil
	}
	return a.pad.Update(toXUSB(frame))
}

func (a *windowsAdapter) Close() error {
	if a.pad != nil {
		a.pad.Close()
	}
	return nil
}

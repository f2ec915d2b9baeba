//go:build linux

package platform

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"overbind/internal/remap"
)

// uinput.h ioctls and limits.
const (
	uinputPath        = "/dev/uinput"
	uinputMaxNameSize = 80
	uiDevCreate       = 0x5501
	uiDevDestroy      = 0x5502
	uiSetEvBit        = 0x40045564
	uiSetKeyBit       = 0x40045565
	uiSetAbsBit       = 0x40045567
	absCount          = 64
	busUSB            = 0x03
)

const padName = "OverBind Virtual Gamepad"

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputUserDev is the legacy struct uinput_user_dev written before
// UI_DEV_CREATE.
type uinputUserDev struct {
	Name       [uinputMaxNameSize]byte
	ID         inputID
	EffectsMax uint32
	Absmax     [absCount]int32
	Absmin     [absCount]int32
	Absfuzz    [absCount]int32
	Absflat    [absCount]int32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type ioctlStep struct {
	req uint
	v   int
}

// uinputPad is an Xbox 360 style pad created through /dev/uinput.
type uinputPad struct {
	mu   sync.Mutex
	f    *os.File
	last remap.GamepadFrame
}

func openPad() (*uinputPad, error) {
	f, err := os.OpenFile(uinputPath, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, &remap.DriverError{Op: "open " + uinputPath, Err: err}
	}

	fd := int(f.Fd())
	steps := []ioctlStep{
		{uiSetEvBit, evKey},
		{uiSetEvBit, evAbs},
		{uiSetEvBit, evSyn},
	}
	for _, b := range padButtons {
		steps = append(steps, ioctlStep{uiSetKeyBit, int(b.code)})
	}
	for _, a := range padAxes {
		steps = append(steps, ioctlStep{uiSetAbsBit, int(a.code)})
	}
	for _, s := range steps {
		if err := unix.IoctlSetInt(fd, s.req, s.v); err != nil {
			f.Close()
			return nil, &remap.DriverError{Op: fmt.Sprintf("uinput ioctl 0x%X(%d)", s.req, s.v), Err: err}
		}
	}

	dev := uinputUserDev{
		// Microsoft Xbox 360 pad ids so games pick an Xbox layout
		ID: inputID{Bustype: busUSB, Vendor: 0x045e, Product: 0x028e, Version: 0x0110},
	}
	copy(dev.Name[:], padName)
	for _, a := range padAxes {
		dev.Absmin[a.code] = a.min
		dev.Absmax[a.code] = a.max
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &dev); err != nil {
		f.Close()
		return nil, fmt.Errorf("encode uinput device: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return nil, &remap.DriverError{Op: "write uinput device", Err: err}
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		f.Close()
		return nil, &remap.DriverError{Op: "UI_DEV_CREATE", Err: err}
	}

	return &uinputPad{f: f}, nil
}

// Update writes the difference between the last frame and f.
func (p *uinputPad) Update(f remap.GamepadFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.f == nil {
		return &remap.DriverError{Op: "write gamepad", Err: os.ErrClosed}
	}
	events := padEvents(p.last, f)
	if len(events) == 0 {
		return nil
	}

	buf := make([]byte, 0, len(events)*int(unsafe.Sizeof(inputEvent{})))
	for _, e := range events {
		ev := inputEvent{Type: e.typ, Code: e.code, Value: e.value}
		buf = append(buf, unsafe.Slice((*byte)(unsafe.Pointer(&ev)), unsafe.Sizeof(ev))...)
	}
	if _, err := p.f.Write(buf); err != nil {
		return &remap.DriverError{Op: "write gamepad", Err: err}
	}
	p.last = f
	return nil
}

func (p *uinputPad) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.f == nil {
		return nil
	}
	unix.IoctlSetInt(int(p.f.Fd()), uiDevDestroy, 0)
	err := p.f.Close()
	p.f = nil
	return err
}

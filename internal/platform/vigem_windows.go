//go:build windows

package platform

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"overbind/internal/remap"
)

// ViGEmClient.dll ships next to the executable; it is not a system DLL.
var (
	vigemClient           = windows.NewLazyDLL("ViGEmClient.dll")
	procVigemAlloc        = vigemClient.NewProc("vigem_alloc")
	procVigemConnect      = vigemClient.NewProc("vigem_connect")
	procVigemDisconnect   = vigemClient.NewProc("vigem_disconnect")
	procVigemFree         = vigemClient.NewProc("vigem_free")
	procVigemX360Alloc    = vigemClient.NewProc("vigem_target_x360_alloc")
	procVigemTargetAdd    = vigemClient.NewProc("vigem_target_add")
	procVigemTargetRemove = vigemClient.NewProc("vigem_target_remove")
	procVigemTargetFree   = vigemClient.NewProc("vigem_target_free")
	procVigemX360Update   = vigemClient.NewProc("vigem_target_x360_update")
)

const vigemErrorNone = 0x20000000

type vigemPad struct {
	mu     sync.Mutex
	client uintptr
	target uintptr
}

func openVigem() (*vigemPad, error) {
	if err := vigemClient.Load(); err != nil {
		return nil, &remap.DriverError{Op: "load ViGEmClient.dll", Err: err}
	}

	client, _, _ := procVigemAlloc.Call()
	if client == 0 {
		return nil, &remap.DriverError{Op: "vigem_alloc", Err: fmt.Errorf("allocation failed")}
	}
	if r, _, _ := procVigemConnect.Call(client); r != vigemErrorNone {
		procVigemFree.Call(client)
		return nil, &remap.DriverError{Op: "vigem_connect", Err: fmt.Errorf("error 0x%X (is ViGEmBus installed?)", r)}
	}

	target, _, _ := procVigemX360Alloc.Call()
	if target == 0 {
		procVigemDisconnect.Call(client)
		procVigemFree.Call(client)
		return nil, &remap.DriverError{Op: "vigem_target_x360_alloc", Err: fmt.Errorf("allocation failed")}
	}
	if r, _, _ := procVigemTargetAdd.Call(client, target); r != vigemErrorNone {
		procVigemTargetFree.Call(target)
		procVigemDisconnect.Call(client)
		procVigemFree.Call(client)
		return nil, &remap.DriverError{Op: "vigem_target_add", Err: fmt.Errorf("error 0x%X", r)}
	}

	return &vigemPad{client: client, target: target}, nil
}

// Update sends a report. XUSB_REPORT is larger than a register, so the
// by-value argument is passed as a pointer to a copy on amd64.
func (p *vigemPad) Update(report xusbReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == 0 {
		return nil
	}
	r, _, _ := procVigemX360Update.Call(p.client, p.target, uintptr(unsafe.Pointer(&report)))
	if r != vigemErrorNone {
		return &remap.DriverError{Op: "vigem_target_x360_update", Err: fmt.Errorf("error 0x%X", r)}
	}
	return nil
}

func (p *vigemPad) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == 0 {
		return
	}
	procVigemTargetRemove.Call(p.client, p.target)
	procVigemTargetFree.Call(p.target)
	procVigemDisconnect.Call(p.client)
	procVigemFree.Call(p.client)
	p.client, p.target = 0, 0
}

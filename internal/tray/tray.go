// Package tray provides the system tray menu using getlantern/systray.
package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"

	"overbind/internal/remap"
)

// Controller is what the Enable and Disable items drive.
type Controller interface {
	Start() error
	Stop() error
	IsRunning() bool
}

// Tray manages the system tray icon and menu
type Tray struct {
	ctl    Controller
	onExit func()

	mu      sync.Mutex
	enable  *systray.MenuItem
	disable *systray.MenuItem
	quitCh  chan struct{}
}

// New creates a tray for ctl. onExit runs after the tray loop ends.
func New(ctl Controller, onExit func()) *Tray {
	return &Tray{
		ctl:    ctl,
		onExit: onExit,
		quitCh: make(chan struct{}),
	}
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() {
		close(t.quitCh)
		if t.onExit != nil {
			t.onExit()
		}
	})
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle("OverBind")
	systray.SetIcon(getIcon())

	enable := systray.AddMenuItem("Enable", "Start remapping")
	disable := systray.AddMenuItem("Disable", "Stop remapping")
	systray.AddSeparator()
	exit := systray.AddMenuItem("Exit", "Quit OverBind")

	t.mu.Lock()
	t.enable, t.disable = enable, disable
	t.mu.Unlock()
	t.StateChanged(t.ctl.IsRunning())

	go func() {
		for {
			select {
			case <-enable.ClickedCh:
				if err := t.ctl.Start(); err != nil {
					log.Printf("Tray: Failed to enable: %v", err)
				}
			case <-disable.ClickedCh:
				if err := t.ctl.Stop(); err != nil {
					log.Printf("Tray: Failed to disable: %v", err)
				}
			case <-exit.ClickedCh:
				log.Printf("Tray: Exit requested")
				systray.Quit()
				return
			case <-t.quitCh:
				return
			}
		}
	}()
}

// StateChanged reflects the interceptor state in the menu
func (t *Tray) StateChanged(running bool) {
	t.mu.Lock()
	enable, disable := t.enable, t.disable
	t.mu.Unlock()
	if enable == nil {
		return
	}

	if running {
		enable.Check()
		enable.Disable()
		disable.Uncheck()
		disable.Enable()
		systray.SetTooltip("OverBind: enabled")
	} else {
		enable.Uncheck()
		enable.Enable()
		disable.Check()
		disable.Disable()
		systray.SetTooltip("OverBind: disabled")
	}
}

// MasherChanged shows the masher state in the tooltip
func (t *Tray) MasherChanged(active bool) {
	t.mu.Lock()
	ready := t.enable != nil
	t.mu.Unlock()
	if !ready {
		return
	}
	if active {
		systray.SetTooltip("OverBind: enabled, masher active")
	} else {
		systray.SetTooltip("OverBind: enabled")
	}
}

// FrameChanged is ignored by the tray
func (t *Tray) FrameChanged(remap.GamepadFrame) {}

// getIcon returns a placeholder icon (valid 16x16 ICO)
func getIcon() []byte {
	// A valid 16x16 32-bit ICO file with correct size and DIB header
	icon := make([]byte, 1118)
	// ICO Header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon Directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00, // Size: 1024 (pixels) + 40 (header) + 32 (mask) = 1096 bytes
		0x16, 0x00, 0x00, 0x00, // Offset
	})
	// DIB Header
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00, // Size
		0x10, 0x00, 0x00, 0x00, // Width
		0x20, 0x00, 0x00, 0x00, // Height (16 * 2 for icon)
		0x01, 0x00, // Planes
		0x20, 0x00, // BPP
		0x00, 0x00, 0x00, 0x00, // Compression
		0x00, 0x04, 0x00, 0x00, // Image Size
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	// The rest (pixels and mask) can stay 0 for transparency
	return icon
}

//go:build windows

package masher

import (
	"io"
	"os"
)

// DefaultOverlayAddress is the named pipe the injected overlay serves.
const DefaultOverlayAddress = `\\.\pipe\masher_overlay_v2.0.2-beta`

// Named pipes open like files; OPEN_EXISTING fails fast when no overlay is
// listening.
func dialOverlay(address string) (io.WriteCloser, error) {
	return os.OpenFile(address, os.O_WRONLY, 0)
}

//go:build !windows

package masher

import (
	"io"
	"net"
)

// DefaultOverlayAddress is the unix socket the overlay library listens on.
const DefaultOverlayAddress = "/tmp/masher_overlay.sock"

func dialOverlay(address string) (io.WriteCloser, error) {
	return net.DialTimeout("unix", address, dialTimeout)
}

package masher

import (
	"fmt"
	"log"
	"time"
)

const (
	msgActive   = "masher_active"
	msgInactive = "masher_inactive"

	dialTimeout = 200 * time.Millisecond
)

// Overlay sends masher state to the overlay process. A fresh connection is
// made per toggle, matching how the overlay's listener accepts one command
// per connection.
type Overlay struct {
	address string
}

// NewOverlay returns an overlay client. An empty address uses the platform
// default.
func NewOverlay(address string) *Overlay {
	if address == "" {
		address = DefaultOverlayAddress
	}
	return &Overlay{address: address}
}

// Address returns the socket or pipe the client writes to.
func (o *Overlay) Address() string {
	return o.address
}

// Toggle shows or hides the overlay.
func (o *Overlay) Toggle(active bool) error {
	msg := msgInactive
	if active {
		msg = msgActive
	}

	w, err := dialOverlay(o.address)
	if err != nil {
		return fmt.Errorf("connect overlay %s: %w", o.address, err)
	}
	defer w.Close()

	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write overlay: %w", err)
	}
	log.Printf("Masher: Overlay %s", msg)
	return nil
}

//go:build !windows

package masher

import (
	"io"
	"net"
	"path/filepath"
	"testing"
)

func TestOverlayToggleWritesCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	got := make(chan string, 2)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			b, _ := io.ReadAll(conn)
			conn.Close()
			got <- string(b)
		}
	}()

	o := NewOverlay(path)
	if err := o.Toggle(true); err != nil {
		t.Fatalf("Toggle(true) failed: %v", err)
	}
	if err := o.Toggle(false); err != nil {
		t.Fatalf("Toggle(false) failed: %v", err)
	}

	if msg := <-got; msg != "masher_active" {
		t.Errorf("Expected masher_active, got %q", msg)
	}
	if msg := <-got; msg != "masher_inactive" {
		t.Errorf("Expected masher_inactive, got %q", msg)
	}
}

func TestOverlayToggleNoListener(t *testing.T) {
	o := NewOverlay(filepath.Join(t.TempDir(), "missing.sock"))
	if err := o.Toggle(true); err == nil {
		t.Error("Expected error when no overlay is listening")
	}
}

func TestOverlayDefaultAddress(t *testing.T) {
	if NewOverlay("").Address() != DefaultOverlayAddress {
		t.Error("Expected default overlay address")
	}
}

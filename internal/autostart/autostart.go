// Package autostart registers OverBind to start on login.
package autostart

import (
	"fmt"
	"os"
)

const (
	// Label identifies the login item on every OS
	Label = "com.overbind.agent"

	appName = "OverBind"
)

// Enable enables auto-start on login
func Enable() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	return enable(execPath)
}

// Disable disables auto-start on login
func Disable() error {
	return disable()
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	return isEnabled()
}

// Package config provides configuration management for OverBind.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	// AppDirName is the per-user data directory name
	AppDirName = "OverBind"

	// BindingsFileName holds the key bindings
	BindingsFileName = "OverBind_conf.json"

	// SettingsFileName holds the application settings
	SettingsFileName = "OverBind_app_settings.json"

	// LogFileName is written next to the configuration files
	LogFileName = "error.log"

	// MaxMashActions is the number of outputs the masher can cycle through
	MaxMashActions = 3
)

// Binding is one record of the bindings file.
type Binding struct {
	// Keycode is the physical key as a hex virtual-key code (e.g. "41")
	Keycode string `json:"keycode" yaml:"keycode"`

	// ResultType selects the output kind (keyboard, face_button, thumb_lx, socd, ...)
	ResultType string `json:"result_type" yaml:"result_type"`

	// ResultValue is the output value; for socd it is the opposite raw keycode
	ResultValue int `json:"result_value" yaml:"result_value"`
}

// Settings contains general application settings
type Settings struct {
	// CloseToTray hides instead of exiting when the tray is used
	CloseToTray bool `json:"close_to_tray"`

	// SelectedInput is the evdev device to grab on Linux (path or /dev/input/by-id name)
	SelectedInput string `json:"selected_input,omitempty"`

	// BlockKbOnController stops physical keys from reaching the virtual keyboard
	BlockKbOnController bool `json:"block_kb_on_controller"`

	// MashActions are the outputs the masher cycles through (at most MaxMashActions).
	// When empty the mash_trigger bindings' own outputs are used.
	MashActions []Binding `json:"mash_actions,omitempty"`

	// MashRateHz is the masher tick rate
	MashRateHz float64 `json:"mash_rate_hz,omitempty"`

	// OverlayEnabled sends masher state to the overlay process
	OverlayEnabled bool `json:"overlay_enabled"`

	// OverlayAddress overrides the overlay socket/pipe address
	OverlayAddress string `json:"overlay_address,omitempty"`

	// APIEnabled enables the local control API
	APIEnabled bool `json:"api_enabled"`

	// APIPort is the port for the API server
	APIPort int `json:"api_port"`

	// APIToken is an optional authentication token for API requests
	APIToken string `json:"api_token,omitempty"`

	// StartOnBoot registers OverBind to start on login
	StartOnBoot bool `json:"start_on_boot"`
}

// DefaultSettings returns settings with sensible defaults
func DefaultSettings() Settings {
	return Settings{
		CloseToTray: true,
		MashRateHz:  36,
		APIEnabled:  false,
		APIPort:     18181,
	}
}

// DefaultBindings returns the bindings written on first run: A/D as a
// SOCD pair.
func DefaultBindings() []Binding {
	return []Binding{
		{Keycode: "41", ResultType: "socd", ResultValue: 0x44},
		{Keycode: "44", ResultType: "socd", ResultValue: 0x41},
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	mu        sync.Mutex
	dir       string
	bindings  []Binding
	settings  Settings
	onChanged func()
}

// NewManager creates a configuration manager rooted at the per-user data dir
func NewManager() (*Manager, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(dir)
}

// NewManagerAt creates a configuration manager rooted at dir
func NewManagerAt(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}
	return &Manager{
		dir:      dir,
		bindings: DefaultBindings(),
		settings: DefaultSettings(),
	}, nil
}

// DefaultDir returns the per-OS data directory
func DefaultDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppDirName), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, AppDirName), nil
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, AppDirName), nil
	}
}

// Dir returns the configuration directory
func (m *Manager) Dir() string {
	return m.dir
}

// BindingsPath returns the bindings file path
func (m *Manager) BindingsPath() string {
	return filepath.Join(m.dir, BindingsFileName)
}

// SettingsPath returns the settings file path
func (m *Manager) SettingsPath() string {
	return filepath.Join(m.dir, SettingsFileName)
}

// LogPath returns the log file path
func (m *Manager) LogPath() string {
	return filepath.Join(m.dir, LogFileName)
}

// Load reads both files from disk, writing defaults for any that are missing
func (m *Manager) Load() error {
	m.mu.Lock()
	err := m.loadLocked()
	cb := m.onChanged
	m.mu.Unlock()

	if err == nil && cb != nil {
		cb()
	}
	return err
}

func (m *Manager) loadLocked() error {
	bindings, err := ReadBindingsFile(m.BindingsPath())
	switch {
	case os.IsNotExist(err):
		log.Printf("Config: No bindings file, writing defaults to %s", m.BindingsPath())
		if err := writeJSON(m.BindingsPath(), m.bindings); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		m.bindings = bindings
	}

	data, err := os.ReadFile(m.SettingsPath())
	switch {
	case os.IsNotExist(err):
		log.Printf("Config: No settings file, writing defaults to %s", m.SettingsPath())
		return writeJSON(m.SettingsPath(), m.settings)
	case err != nil:
		return err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to parse %s: %w", m.SettingsPath(), err)
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	m.settings = settings
	return nil
}

// Save writes both files to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Printf("Config: Saving configuration to %s", m.dir)
	if err := writeJSON(m.BindingsPath(), m.bindings); err != nil {
		return err
	}
	return writeJSON(m.SettingsPath(), m.settings)
}

// Bindings returns a copy of the current bindings
func (m *Manager) Bindings() []Binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Binding, len(m.bindings))
	copy(out, m.bindings)
	return out
}

// SetBindings replaces the bindings
func (m *Manager) SetBindings(bindings []Binding) {
	m.mu.Lock()
	m.bindings = append([]Binding(nil), bindings...)
	cb := m.onChanged
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Settings returns the current settings
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.settings
	s.MashActions = append([]Binding(nil), m.settings.MashActions...)
	return s
}

// SetSettings validates and replaces the settings
func (m *Manager) SetSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.settings = settings
	cb := m.onChanged
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// Validate checks settings invariants that the engine relies on
func (s Settings) Validate() error {
	if len(s.MashActions) > MaxMashActions {
		return fmt.Errorf("at most %d mash actions are supported, got %d", MaxMashActions, len(s.MashActions))
	}
	if s.MashRateHz < 0 {
		return fmt.Errorf("mash rate must not be negative")
	}
	if s.APIPort < 0 || s.APIPort > 65535 {
		return fmt.Errorf("invalid api port %d", s.APIPort)
	}
	return nil
}

// ReadBindingsFile reads a JSON bindings file
func ReadBindingsFile(path string) ([]Binding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bindings []Binding
	if err := json.Unmarshal(data, &bindings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return bindings, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

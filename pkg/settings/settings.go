// Package settings manages persistent user settings for the netconsole CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Fallbacks used when a setting is not set.
const (
	DefaultInventoryPath = "/etc/netconsole/inventory.yaml"
	DefaultAuditLogPath  = "/var/log/netconsole/audit.log"
	DefaultListenAddr    = ":8080"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultDevice is the device to use when -d is not specified
	DefaultDevice string `json:"default_device,omitempty"`

	// InventoryPath overrides the default inventory file
	InventoryPath string `json:"inventory_path,omitempty"`

	// AuditLog overrides the default audit log file
	AuditLog string `json:"audit_log,omitempty"`

	// IntentTimeout bounds each device write, as a Go duration ("30s")
	IntentTimeout string `json:"intent_timeout,omitempty"`

	// ListenAddr is the address "netconsole serve" listens on
	ListenAddr string `json:"listen_addr,omitempty"`
}

// Keys lists the setting names accepted by Set and Get, in display order.
var Keys = []string{"default_device", "inventory_path", "audit_log", "intent_timeout", "listen_addr"}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "netconsole_settings.json"
	}
	return filepath.Join(home, ".netconsole", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Set assigns a setting by name. Values are checked where a malformed value
// would only surface later, such as an unparsable timeout.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "default_device", "device":
		s.DefaultDevice = value
	case "inventory_path", "inventory":
		s.InventoryPath = value
	case "audit_log":
		s.AuditLog = value
	case "intent_timeout", "timeout":
		if value != "" {
			d, err := time.ParseDuration(value)
			if err != nil || d <= 0 {
				return fmt.Errorf("intent_timeout must be a positive duration such as 30s, got %q", value)
			}
		}
		s.IntentTimeout = value
	case "listen_addr", "listen":
		s.ListenAddr = value
	default:
		return fmt.Errorf("unknown setting: %s (valid: %v)", key, Keys)
	}
	return nil
}

// Get returns a setting by name as stored, without fallbacks.
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case "default_device", "device":
		return s.DefaultDevice, nil
	case "inventory_path", "inventory":
		return s.InventoryPath, nil
	case "audit_log":
		return s.AuditLog, nil
	case "intent_timeout", "timeout":
		return s.IntentTimeout, nil
	case "listen_addr", "listen":
		return s.ListenAddr, nil
	}
	return "", fmt.Errorf("unknown setting: %s (valid: %v)", key, Keys)
}

// GetInventoryPath returns the inventory path (with fallback)
func (s *Settings) GetInventoryPath() string {
	if s.InventoryPath != "" {
		return s.InventoryPath
	}
	return DefaultInventoryPath
}

// GetAuditLog returns the audit log path (with fallback)
func (s *Settings) GetAuditLog() string {
	if s.AuditLog != "" {
		return s.AuditLog
	}
	return DefaultAuditLogPath
}

// GetListenAddr returns the HTTP listen address (with fallback)
func (s *Settings) GetListenAddr() string {
	if s.ListenAddr != "" {
		return s.ListenAddr
	}
	return DefaultListenAddr
}

// GetIntentTimeout returns the configured per-intent timeout, or zero when
// unset or unparsable so that the reconciler default applies.
func (s *Settings) GetIntentTimeout() time.Duration {
	d, err := time.ParseDuration(s.IntentTimeout)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

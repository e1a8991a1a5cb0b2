// Package settings manages persistent user settings for the confpush CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds persistent user preferences
type Settings struct {
	// InventoryPath is the inventory file to use when -I is not specified
	InventoryPath string `json:"inventory_path,omitempty"`

	// ConfigDir overrides the default intended-config directory
	ConfigDir string `json:"config_dir,omitempty"`

	// AuditLog overrides the default audit trail location
	AuditLog string `json:"audit_log,omitempty"`

	// LockAddr is the Redis address used for per-device deployment locks
	LockAddr string `json:"lock_addr,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "confpush_settings.json"
	}
	return filepath.Join(home, ".confpush", "settings.json")
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

// GetConfigDir returns the intended-config directory (with fallback)
func (s *Settings) GetConfigDir() string {
	if s.ConfigDir != "" {
		return s.ConfigDir
	}
	return "/etc/confpush/configs"
}

// GetAuditLog returns the audit trail path (with fallback)
func (s *Settings) GetAuditLog() string {
	if s.AuditLog != "" {
		return s.AuditLog
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "confpush_audit.jsonl"
	}
	return filepath.Join(home, ".confpush", "audit.jsonl")
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetConfigDir(); got != "/etc/confpush/configs" {
		t.Errorf("GetConfigDir() default = %q, want %q", got, "/etc/confpush/configs")
	}
	if s.InventoryPath != "" {
		t.Errorf("InventoryPath should be empty, got %q", s.InventoryPath)
	}
	if s.LockAddr != "" {
		t.Errorf("LockAddr should be empty, got %q", s.LockAddr)
	}
	if s.GetAuditLog() == "" {
		t.Error("GetAuditLog() should always return a path")
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{
		InventoryPath: "/etc/confpush/inventory.yaml",
		ConfigDir:     "/path",
		LockAddr:      "127.0.0.1:6379",
	}

	s.Clear()

	if s.InventoryPath != "" || s.ConfigDir != "" || s.LockAddr != "" {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "settings.json")

	original := &Settings{
		InventoryPath: "/etc/confpush/inventory.yaml",
		ConfigDir:     "/srv/intended",
		AuditLog:      "/var/log/confpush/audit.jsonl",
		LockAddr:      "127.0.0.1:6379",
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if loaded.InventoryPath != original.InventoryPath {
		t.Errorf("InventoryPath = %q, want %q", loaded.InventoryPath, original.InventoryPath)
	}
	if loaded.ConfigDir != original.ConfigDir {
		t.Errorf("ConfigDir = %q, want %q", loaded.ConfigDir, original.ConfigDir)
	}
	if loaded.LockAddr != original.LockAddr {
		t.Errorf("LockAddr = %q, want %q", loaded.LockAddr, original.LockAddr)
	}
}

func TestSettings_LoadMissing(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("LoadFrom missing file should not error, got %v", err)
	}
	if s == nil {
		t.Fatal("LoadFrom should return empty settings")
	}
}

func TestSettings_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom should reject corrupt settings")
	}
}

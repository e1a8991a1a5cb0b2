// Package intent supplies the candidate configuration text for a device.
// The deployment core only consumes the Store interface; the directory
// implementation below reads rendered configs produced by an external
// intent pipeline.
package intent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrConfigNotFound indicates no intended configuration exists for a device.
// Deployments surface this before any connection is attempted.
var ErrConfigNotFound = errors.New("intended configuration not found")

// Store provides intended configuration text per device.
type Store interface {
	GetIntendedConfig(device string) (string, error)
}

// FileStore reads intended configs from a directory, one file per device
// named <device>.cfg (with <device>.conf accepted as a fallback).
type FileStore struct {
	dir string
}

// NewFileStore creates a directory-backed config store.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// GetIntendedConfig returns the intended config for the device.
// A missing file or an empty file both yield ErrConfigNotFound: an empty
// intent is indistinguishable from a broken render and must not reach a
// device.
func (s *FileStore) GetIntendedConfig(device string) (string, error) {
	for _, ext := range []string{".cfg", ".conf"} {
		path := filepath.Join(s.dir, device+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("reading intended config %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", fmt.Errorf("intended config %s is empty: %w", path, ErrConfigNotFound)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("device %s: %w", device, ErrConfigNotFound)
}

// Preview returns the first n lines of a config for diagnostic logging.
func Preview(config string, n int) string {
	lines := strings.Split(config, "\n")
	if len(lines) <= n {
		return config
	}
	return strings.Join(lines[:n], "\n") + "\n..."
}

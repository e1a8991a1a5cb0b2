// Package transport abstracts vendor device-management protocols behind one
// capability surface: open a session, stage candidate configuration, diff it
// against running state, then commit or discard. Every driver maps its
// native errors into the closed failure-kind set in errors.go so callers
// never reason about vendor-specific types.
package transport

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/confpush-net/confpush/pkg/creds"
	"github.com/confpush-net/confpush/pkg/inventory"
	"github.com/confpush-net/confpush/pkg/util"
)

// LoadMode selects how staged configuration combines with running state.
type LoadMode string

const (
	// Merge combines the candidate with the running configuration.
	Merge LoadMode = "merge"
	// Replace supersedes the entire running configuration.
	Replace LoadMode = "replace"
)

// Facts is a key/value snapshot of device state, used for post-commit
// verification only.
type Facts map[string]string

// Session is a live connection to one device. It is owned by exactly one
// deployment attempt and is not safe for concurrent use. Close must be
// idempotent.
type Session interface {
	// Stage loads candidate configuration without applying it.
	Stage(ctx context.Context, config string, mode LoadMode) error

	// Diff returns the textual delta between running and candidate
	// configuration. Empty text means no pending change.
	Diff(ctx context.Context) (string, error)

	// Commit makes the staged candidate the running configuration.
	Commit(ctx context.Context) error

	// Discard abandons the staged candidate.
	Discard(ctx context.Context) error

	// Facts returns a state snapshot for verification.
	Facts(ctx context.Context) (Facts, error)

	// Close releases the connection. Safe to call more than once.
	Close(ctx context.Context) error
}

// Transport opens sessions to devices of one vendor family.
type Transport interface {
	Open(ctx context.Context, target *inventory.Target, c creds.Credentials) (Session, error)
}

// Factory constructs a Transport. Drivers register one under their name.
type Factory func() Transport

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a driver available under the given name. Drivers call
// this from init; a duplicate name panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("transport: duplicate driver " + name)
	}
	registry[name] = factory
}

// New returns a Transport for the named driver.
func New(name string) (Transport, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("driver %q: %w", name, util.ErrUnknownDriver)
	}
	return factory(), nil
}

// Drivers returns the registered driver names in sorted order.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallTimeout returns the per-call timeout for a target, honoring the
// "timeout" connection option (seconds).
func CallTimeout(target *inventory.Target, def time.Duration) time.Duration {
	if v := target.Option("timeout", ""); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}

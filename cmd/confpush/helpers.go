package main

import (
	"fmt"
	"os"
	"os/user"
	"syscall"

	"golang.org/x/term"

	"github.com/confpush-net/confpush/pkg/creds"
	"github.com/confpush-net/confpush/pkg/inventory"
)

// loadInventory reads the inventory selected by -I or settings.
func loadInventory() (*inventory.Inventory, error) {
	if inventoryPath == "" {
		return nil, fmt.Errorf("no inventory specified: use -I or 'confpush settings set inventory <path>'")
	}
	return inventory.Load(inventoryPath)
}

// newResolver builds the credential resolver for this invocation.
// With --prompt-password the operator types the password once and it is
// used for every target in the run; otherwise secrets come from the
// environment-backed store with the documented admin/admin fallback.
func newResolver() (*creds.Resolver, error) {
	if promptPassword {
		fmt.Fprint(os.Stderr, "Device password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return creds.NewResolver(nil, creds.ResolverOptions{
			DefaultUsername: currentUser(),
			DefaultPassword: string(raw),
		}), nil
	}
	return creds.NewResolver(creds.NewEnvStore(""), creds.ResolverOptions{}), nil
}

// currentUser returns the local username for lock holdership and audit.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// connectHint is printed after a connection failure so operators know what
// to check before retrying.
const connectHint = `Please verify:
  - Device is reachable
  - Credentials are correct
  - Management interface is configured
  - SSH/API is enabled on the device`

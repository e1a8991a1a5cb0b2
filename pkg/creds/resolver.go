// Package creds resolves device login credentials through an ordered chain
// of sources. Resolution never fails: every field that cannot be fetched
// from the configured secret store falls back to an injectable default, so
// a deployment attempt always starts with a usable username/password pair.
package creds

import (
	"fmt"

	"github.com/confpush-net/confpush/pkg/inventory"
	"github.com/confpush-net/confpush/pkg/util"
)

// SecretType selects which field of a secrets group to fetch.
type SecretType string

const (
	SecretUsername SecretType = "username"
	SecretPassword SecretType = "password"
)

// Provenance records where a credential pair came from.
type Provenance string

const (
	// FromSecretStore means at least one field was fetched from the store.
	FromSecretStore Provenance = "from_secret_store"
	// Default means both fields are the configured fallback values.
	Default Provenance = "default"
)

// Credentials is a resolved username/password pair. The password is redacted
// in all formatted output; lifetime is a single deployment attempt.
type Credentials struct {
	Username   string
	Password   string
	Provenance Provenance
}

// String renders the pair with the password redacted.
func (c Credentials) String() string {
	return fmt.Sprintf("%s/<hidden> (%s)", c.Username, c.Provenance)
}

// SecretStore fetches individual secrets from a named secrets group.
// The target is passed for template context; implementations may ignore it.
type SecretStore interface {
	GetSecret(group string, secretType SecretType, target *inventory.Target) (string, error)
}

// ResolverOptions configures the fallback pair used when the secret store
// cannot supply a field.
type ResolverOptions struct {
	DefaultUsername string
	DefaultPassword string
}

// Resolver resolves credentials for deployment targets. It holds no mutable
// state and is safe to call concurrently for different targets.
type Resolver struct {
	store SecretStore
	opts  ResolverOptions
}

// NewResolver creates a resolver backed by the given store. A nil store
// means no secret store is configured; every target resolves to the
// default pair. Unset option fields fall back to admin/admin.
func NewResolver(store SecretStore, opts ResolverOptions) *Resolver {
	if opts.DefaultUsername == "" {
		opts.DefaultUsername = "admin"
	}
	if opts.DefaultPassword == "" {
		opts.DefaultPassword = "admin"
	}
	return &Resolver{store: store, opts: opts}
}

// Resolve produces credentials for the target. Each field is resolved
// independently: secret store first (when the target names a secrets group),
// then the configured default. Store errors and empty results are treated
// as unavailable, never as fatal.
func (r *Resolver) Resolve(target *inventory.Target) Credentials {
	log := util.WithDevice(target.Name)

	creds := Credentials{
		Username:   r.opts.DefaultUsername,
		Password:   r.opts.DefaultPassword,
		Provenance: Default,
	}

	if target.SecretsGroup == "" || r.store == nil {
		log.Debug("no secrets group configured, using default credentials")
		return creds
	}

	usernameFromStore := r.fetch(target, SecretUsername, &creds.Username)
	passwordFromStore := r.fetch(target, SecretPassword, &creds.Password)

	if usernameFromStore || passwordFromStore {
		creds.Provenance = FromSecretStore
		log.Infof("using credentials from secrets group %s (username %s)",
			target.SecretsGroup, creds.Username)
	} else {
		log.Warnf("secrets group %s is configured but no secrets could be retrieved, using default credentials",
			target.SecretsGroup)
	}

	return creds
}

// fetch resolves one field from the store. Returns true and overwrites dst
// on success; on any error or empty value it leaves dst at its default.
func (r *Resolver) fetch(target *inventory.Target, st SecretType, dst *string) bool {
	log := util.WithDevice(target.Name)

	value, err := r.store.GetSecret(target.SecretsGroup, st, target)
	if err != nil {
		log.Debugf("could not retrieve %s from secrets group %s: %v", st, target.SecretsGroup, err)
		return false
	}
	if value == "" {
		log.Debugf("%s secret in group %s is empty, using default", st, target.SecretsGroup)
		return false
	}

	*dst = value
	return true
}

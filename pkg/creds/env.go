package creds

import (
	"fmt"
	"os"
	"strings"

	"github.com/confpush-net/confpush/pkg/inventory"
)

// EnvStore resolves secrets from environment variables. A secret in group
// "lab-creds" of type username is read from CONFPUSH_LAB_CREDS_USERNAME.
// Non-alphanumeric characters in the group name map to underscores.
type EnvStore struct {
	prefix string
}

// NewEnvStore creates an environment-backed secret store. An empty prefix
// defaults to "CONFPUSH".
func NewEnvStore(prefix string) *EnvStore {
	if prefix == "" {
		prefix = "CONFPUSH"
	}
	return &EnvStore{prefix: prefix}
}

// GetSecret looks up the environment variable for the group and type.
// An unset variable is an error; the resolver treats it as unavailable.
func (s *EnvStore) GetSecret(group string, secretType SecretType, _ *inventory.Target) (string, error) {
	name := s.varName(group, secretType)
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("environment variable %s not set", name)
	}
	return value, nil
}

func (s *EnvStore) varName(group string, secretType SecretType) string {
	sanitized := make([]byte, 0, len(group))
	for i := 0; i < len(group); i++ {
		c := group[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			sanitized = append(sanitized, c)
		} else {
			sanitized = append(sanitized, '_')
		}
	}
	return strings.ToUpper(s.prefix + "_" + string(sanitized) + "_" + string(secretType))
}

// Package inventory loads the device inventory used to address deployment
// targets. The inventory is a YAML file mapping device names to their
// management address, transport driver, and optional connection parameters.
package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/confpush-net/confpush/pkg/util"
)

// Target identifies one device to configure. It is immutable for the
// duration of a deployment attempt; the deployment core never mutates it.
type Target struct {
	Name         string            `yaml:"-"`
	MgmtAddr     string            `yaml:"mgmt_addr"`
	Driver       string            `yaml:"driver"`
	SecretsGroup string            `yaml:"secrets_group,omitempty"`
	Options      map[string]string `yaml:"options,omitempty"`
}

// Validate checks that the target carries everything a deployment needs
// before any connection is attempted.
func (t *Target) Validate() error {
	var v util.ValidationBuilder
	v.Add(t.Name != "", "device name is required")
	v.Add(t.MgmtAddr != "", fmt.Sprintf("device %s has no management address", t.Name))
	v.Add(t.Driver != "", fmt.Sprintf("device %s has no transport driver configured", t.Name))
	return v.Build()
}

// Option returns the named connection option or the given default.
func (t *Target) Option(key, def string) string {
	if v, ok := t.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// Inventory is the set of known deployment targets, keyed by device name.
type Inventory struct {
	Devices map[string]*Target `yaml:"devices"`
}

// Load reads an inventory YAML file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes inventory YAML and fills in each target's name from its key.
func Parse(data []byte) (*Inventory, error) {
	inv := &Inventory{}
	if err := yaml.Unmarshal(data, inv); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}
	if inv.Devices == nil {
		inv.Devices = make(map[string]*Target)
	}
	for name, t := range inv.Devices {
		if t == nil {
			return nil, fmt.Errorf("parsing inventory: device %s has no attributes", name)
		}
		t.Name = name
	}
	return inv, nil
}

// Get returns the named target or util.ErrNotFound.
func (inv *Inventory) Get(name string) (*Target, error) {
	t, ok := inv.Devices[name]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", name, util.ErrNotFound)
	}
	return t, nil
}

// Names returns all device names in sorted order.
func (inv *Inventory) Names() []string {
	names := make([]string, 0, len(inv.Devices))
	for name := range inv.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

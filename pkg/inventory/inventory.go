// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

// Package inventory holds the switch inventory and the variable tables used to render
// desired configuration.
package inventory

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"gopkg.in/yaml.v3"
)

var log = logging.GetLogger("inventory")

var validate = validator.New()

// Transport kinds
const (
	TransportREST = "rest"
	TransportSSH  = "ssh"
	TransportGNMI = "gnmi"
)

// Vendors
const (
	VendorAruba = "aruba"
	VendorDell  = "dell"
)

// Switch is a managed switch.
type Switch struct {
	Hostname  string `yaml:"hostname" validate:"required,hostname_rfc1123"`
	IP        string `yaml:"ip" validate:"required,ip"`
	Vendor    string `yaml:"vendor,omitempty" validate:"omitempty,oneof=aruba dell"`
	Platform  string `yaml:"platform,omitempty"`
	Role      string `yaml:"role" validate:"required,oneof=spine leaf leaf-bmc cdu edge"`
	Transport string `yaml:"transport,omitempty" validate:"omitempty,oneof=rest ssh gnmi"`
	// Port overrides the default port of the transport
	Port int `yaml:"port,omitempty" validate:"gte=0,lte=65535"`
	// AllowForce permits uploading straight to the running configuration
	AllowForce bool `yaml:"allowForce,omitempty"`
}

func (s *Switch) String() string {
	return fmt.Sprintf("%s (%s)", s.Hostname, s.IP)
}

// TransportOrDefault returns the configured transport, or the vendor's native one.
func (s *Switch) TransportOrDefault() string {
	if s.Transport != "" {
		return s.Transport
	}
	if s.Vendor == VendorAruba {
		return TransportREST
	}
	return TransportSSH
}

// Inventory is an ordered, read-only list of switches.
type Inventory struct {
	Switches []*Switch `yaml:"switches" validate:"dive"`
}

// New creates an inventory from switches, validating them.
func New(switches ...*Switch) (*Inventory, error) {
	inv := &Inventory{Switches: switches}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Load reads an inventory YAML file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewNotFound("reading inventory %s: %v", path, err)
	}
	inv := &Inventory{}
	if err := yaml.Unmarshal(data, inv); err != nil {
		return nil, errors.NewInvalid("inventory %s: %v", path, err)
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	log.Infof("Loaded %d switches from %s", len(inv.Switches), path)
	return inv, nil
}

// Validate checks every switch and rejects duplicate hostnames or addresses.
func (i *Inventory) Validate() error {
	if err := validate.Struct(i); err != nil {
		return errors.NewInvalid("inventory: %v", err)
	}
	names := map[string]bool{}
	ips := map[string]bool{}
	for _, s := range i.Switches {
		if s == nil {
			return errors.NewInvalid("inventory: empty switch entry")
		}
		if names[s.Hostname] {
			return errors.NewInvalid("inventory: duplicate hostname %s", s.Hostname)
		}
		if ips[s.IP] {
			return errors.NewInvalid("inventory: duplicate address %s", s.IP)
		}
		names[s.Hostname] = true
		ips[s.IP] = true
	}
	return nil
}

// Lookup finds a switch by hostname.
func (i *Inventory) Lookup(hostname string) (*Switch, error) {
	for _, s := range i.Switches {
		if s.Hostname == hostname {
			return s, nil
		}
	}
	return nil, errors.NewNotFound("switch %s not in inventory", hostname)
}

// Filter returns an inventory restricted to the named switches, keeping inventory order.
// No names selects every switch.
func (i *Inventory) Filter(names ...string) (*Inventory, error) {
	if len(names) == 0 {
		return i, nil
	}
	want := map[string]bool{}
	for _, n := range names {
		if _, err := i.Lookup(n); err != nil {
			return nil, err
		}
		want[n] = true
	}
	out := &Inventory{}
	for _, s := range i.Switches {
		if want[s.Hostname] {
			out.Switches = append(out.Switches, s)
		}
	}
	return out, nil
}

// Hostnames lists the switches in inventory order.
func (i *Inventory) Hostnames() []string {
	names := make([]string, 0, len(i.Switches))
	for _, s := range i.Switches {
		names = append(names, s.Hostname)
	}
	return names
}

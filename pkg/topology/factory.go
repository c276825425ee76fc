// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NodeFactory produces fresh nodes for a layer.
type NodeFactory interface {
	NewNode(arch Architecture) (*Node, error)
}

// PortGroup is a run of identical ports on a hardware model.
type PortGroup struct {
	Count  int   `yaml:"count" validate:"min=1"`
	Speed  int   `yaml:"speed" validate:"min=1"`
	Speeds []int `yaml:"speeds,omitempty"`
}

// Model describes the port layout of a hardware model.
type Model struct {
	Name  string      `yaml:"name" validate:"required"`
	Ports []PortGroup `yaml:"ports" validate:"required,min=1,dive"`
}

// Role binds an architecture tag to a model and its uplink policy.
type Role struct {
	Arch    Architecture   `yaml:"arch" validate:"required"`
	Model   string         `yaml:"model" validate:"required"`
	Prefix  string         `yaml:"prefix,omitempty"`
	Uplinks []UplinkPolicy `yaml:"uplinks,omitempty" validate:"dive"`
}

// ArchitectureDefinition lists the hardware models and the role each architecture plays.
type ArchitectureDefinition struct {
	Name   string  `yaml:"name"`
	Models []Model `yaml:"models" validate:"required,dive"`
	Roles  []Role  `yaml:"roles" validate:"required,dive"`
}

// LoadArchitecture reads and validates an architecture definition file.
func LoadArchitecture(path string) (*ArchitectureDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewNotFound("reading architecture %s: %v", path, err)
	}
	def := &ArchitectureDefinition{}
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, errors.NewInvalid("architecture %s: %v", path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, errors.NewInvalid("architecture %s: %v", path, err)
	}
	return def, nil
}

// Validate checks the definition is internally consistent.
func (d *ArchitectureDefinition) Validate() error {
	if err := validator.New().Struct(d); err != nil {
		return err
	}
	for _, r := range d.Roles {
		if d.model(r.Model) == nil {
			return errors.NewInvalid("role %s references unknown model %s", r.Arch, r.Model)
		}
	}
	return nil
}

func (d *ArchitectureDefinition) model(name string) *Model {
	for i := range d.Models {
		if d.Models[i].Name == name {
			return &d.Models[i]
		}
	}
	return nil
}

func (d *ArchitectureDefinition) role(arch Architecture) *Role {
	for i := range d.Roles {
		if d.Roles[i].Arch == arch {
			return &d.Roles[i]
		}
	}
	return nil
}

// Instantiate creates a node of the given role with an explicit id.
func (d *ArchitectureDefinition) Instantiate(id string, arch Architecture) (*Node, error) {
	role := d.role(arch)
	if role == nil {
		return nil, errors.NewNotFound("architecture %s has no role %s", d.Name, arch)
	}
	model := d.model(role.Model)
	if model == nil {
		return nil, errors.NewNotFound("role %s references unknown model %s", arch, role.Model)
	}

	n := &Node{
		ID:      id,
		Arch:    arch,
		Model:   model.Name,
		Uplinks: append([]UplinkPolicy(nil), role.Uplinks...),
	}
	for _, group := range model.Ports {
		for i := 0; i < group.Count; i++ {
			n.AddPort(group.Speed, group.Speeds...)
		}
	}
	return n, nil
}

// ModelFactory creates nodes from an architecture definition, numbering them per architecture.
type ModelFactory struct {
	def      *ArchitectureDefinition
	counters map[Architecture]int
}

// NewModelFactory creates a factory for the given definition.
func NewModelFactory(def *ArchitectureDefinition) *ModelFactory {
	return &ModelFactory{
		def:      def,
		counters: map[Architecture]int{},
	}
}

// NewNode creates the next node of the given architecture, e.g. sw-spine-001.
func (f *ModelFactory) NewNode(arch Architecture) (*Node, error) {
	role := f.def.role(arch)
	if role == nil {
		return nil, errors.NewNotFound("no node model for architecture %s", arch)
	}
	prefix := role.Prefix
	if prefix == "" {
		prefix = "sw-" + string(arch)
	}
	f.counters[arch]++
	return f.def.Instantiate(fmt.Sprintf("%s-%03d", prefix, f.counters[arch]), arch)
}

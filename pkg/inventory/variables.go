// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"os"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Variables are the IP, ASN, VLAN and ACL assignment tables used for rendering. Values in a
// switch's table override the global ones.
type Variables struct {
	Global   map[string]interface{}            `yaml:"global"`
	Switches map[string]map[string]interface{} `yaml:"switches"`
}

// LoadVariables reads a variables YAML file.
func LoadVariables(path string) (*Variables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewNotFound("reading variables %s: %v", path, err)
	}
	vars := &Variables{}
	if err := yaml.Unmarshal(data, vars); err != nil {
		return nil, errors.NewInvalid("variables %s: %v", path, err)
	}
	return vars, nil
}

// ForSwitch returns the merged variable table of a switch. The result is a fresh map; the
// tables it was built from are never modified.
func (v *Variables) ForSwitch(hostname string) map[string]interface{} {
	out := map[string]interface{}{"hostname": hostname}
	if v == nil {
		return out
	}
	for k, val := range v.Global {
		out[k] = val
	}
	for k, val := range v.Switches[hostname] {
		out[k] = val
	}
	return out
}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"regexp"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// Dialect is the command table of a switch CLI. Commands containing %s take a checkpoint
// name; ArmRevert takes the window in minutes through %d. An empty command means the switch
// lacks the facility.
type Dialect struct {
	Name             string   `yaml:"name" validate:"required"`
	Prompt           string   `yaml:"prompt,omitempty"`
	Setup            []string `yaml:"setup,omitempty"`
	ShowRunning      string   `yaml:"showRunning" validate:"required"`
	ShowVersion      string   `yaml:"showVersion,omitempty"`
	ConfigMode       string   `yaml:"configMode" validate:"required"`
	ExitConfig       string   `yaml:"exitConfig" validate:"required"`
	BeginTransaction string   `yaml:"beginTransaction,omitempty"`
	Commit           string   `yaml:"commit,omitempty"`
	Abort            string   `yaml:"abort,omitempty"`
	DryRun           string   `yaml:"dryRun,omitempty"`
	Checkpoint       string   `yaml:"checkpoint,omitempty"`
	Restore          string   `yaml:"restore,omitempty"`
	ArmRevert        string   `yaml:"armRevert,omitempty"`
	Confirm          string   `yaml:"confirm,omitempty"`
	Persist          string   `yaml:"persist" validate:"required"`
	ErrorMarkers     []string `yaml:"errorMarkers,omitempty"`
}

// Transactional reports whether configuration can be staged before it takes effect.
func (d *Dialect) Transactional() bool {
	return d.BeginTransaction != "" && d.Commit != ""
}

// PromptPattern compiles the prompt, falling back to DefaultPrompt.
func (d *Dialect) PromptPattern() (*regexp.Regexp, error) {
	if d.Prompt == "" {
		return DefaultPrompt, nil
	}
	re, err := regexp.Compile(d.Prompt)
	if err != nil {
		return nil, errors.NewInvalid("dialect %s prompt: %v", d.Name, err)
	}
	return re, nil
}

// DefaultDialects are the built-in command tables, keyed by vendor.
func DefaultDialects() map[string]*Dialect {
	return map[string]*Dialect{
		"aruba": {
			Name:         "aruba",
			Setup:        []string{"no page"},
			ShowRunning:  "show running-config",
			ShowVersion:  "show version",
			ConfigMode:   "configure terminal",
			ExitConfig:   "end",
			Checkpoint:   "copy running-config checkpoint %s",
			Restore:      "copy checkpoint %s running-config",
			ArmRevert:    "checkpoint auto %d",
			Confirm:      "checkpoint auto confirm",
			Persist:      "write memory",
			ErrorMarkers: []string{"% Invalid input", "% Command incomplete", "% Unknown command", "Error:"},
		},
		"dell": {
			Name:             "dell",
			Setup:            []string{"terminal length 0"},
			ShowRunning:      "show running-configuration",
			ShowVersion:      "show version",
			ConfigMode:       "configure terminal",
			ExitConfig:       "end",
			BeginTransaction: "start transaction",
			Commit:           "commit",
			Abort:            "discard",
			Checkpoint:       "copy running-configuration config://%s",
			Restore:          "rollback config://%s",
			ArmRevert:        "commit confirmed %d",
			Confirm:          "commit confirm",
			Persist:          "write memory",
			ErrorMarkers:     []string{"% Error", "Invalid input", "Incomplete command"},
		},
	}
}

// MergeDialects overlays configured dialects onto the defaults. A configured dialect replaces
// the built-in one of the same vendor entirely.
func MergeDialects(overrides map[string]*Dialect) map[string]*Dialect {
	out := DefaultDialects()
	for vendor, d := range overrides {
		out[vendor] = d
	}
	return out
}

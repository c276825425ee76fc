// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads the settings of the fabric reconciler.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/transport"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"gopkg.in/yaml.v3"
)

var log = logging.GetLogger("config")

// Environment variables overriding the credentials of the config file
const (
	EnvUsername = "FABRIC_USERNAME"
	EnvPassword = "FABRIC_PASSWORD"
)

// RolloutSettings tune the safe-rollout protocol.
type RolloutSettings struct {
	RevertWindow      time.Duration `yaml:"revertWindow" validate:"gte=1m,lte=30m"`
	ConfirmRetryDelay time.Duration `yaml:"confirmRetryDelay" validate:"gt=0"`
	ConfirmMargin     time.Duration `yaml:"confirmMargin" validate:"gte=0"`
	ProbeTimeout      time.Duration `yaml:"probeTimeout" validate:"gt=0"`
	ProbeRetries      uint64        `yaml:"probeRetries" validate:"gt=0"`
	ProbeDelay        time.Duration `yaml:"probeDelay" validate:"gt=0"`
}

// Config holds every setting of a reconciliation run.
type Config struct {
	Credentials transport.Credentials `yaml:"credentials"`
	SSH         transport.SSHConfig   `yaml:"ssh"`
	HTTPTimeout time.Duration         `yaml:"httpTimeout" validate:"gt=0"`
	InsecureTLS bool                  `yaml:"insecureTLS"`
	GNMI        transport.GNMIOptions `yaml:"gnmi"`
	GNMIPort    int                   `yaml:"gnmiPort" validate:"gt=0,lt=65536"`
	Rollout     RolloutSettings       `yaml:"rollout"`
	Workers     int                   `yaml:"workers" validate:"min=1,max=64"`
	// Version selects the template set, for example "1.6"
	Version     string                        `yaml:"csmVersion" validate:"required"`
	Domains     []string                      `yaml:"domains" validate:"min=1,dive,oneof=acl vlan bgp"`
	TemplateDir string                        `yaml:"templateDir,omitempty" validate:"omitempty,dir"`
	CachePath   string                        `yaml:"cachePath,omitempty"`
	CacheMaxAge time.Duration                 `yaml:"cacheMaxAge" validate:"gte=0"`
	Dialects    map[string]*transport.Dialect `yaml:"dialects,omitempty" validate:"dive"`
	MetricsAddr string                        `yaml:"metricsAddr,omitempty" validate:"omitempty,hostname_port"`
}

// Default returns the settings used for anything a config file leaves out.
func Default() *Config {
	return &Config{
		SSH:         transport.SSHConfig{Timeout: 30 * time.Second},
		HTTPTimeout: 30 * time.Second,
		GNMI:        transport.GNMIOptions{Timeout: 10 * time.Second},
		GNMIPort:    transport.DefaultGNMIPort,
		Rollout: RolloutSettings{
			RevertWindow:      2 * time.Minute,
			ConfirmRetryDelay: 5 * time.Second,
			ConfirmMargin:     15 * time.Second,
			ProbeTimeout:      5 * time.Second,
			ProbeRetries:      30,
			ProbeDelay:        10 * time.Second,
		},
		Workers:     5,
		Version:     drift.DefaultVersion,
		Domains:     []string{string(drift.DomainACL), string(drift.DomainVLAN), string(drift.DomainBGP)},
		CacheMaxAge: 24 * time.Hour,
	}
}

// Load reads a YAML config file over the defaults, applies the environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewNotFound("reading config %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.NewInvalid("parsing config %s: %v", path, err)
		}
		log.Infof("Loaded config %s", path)
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvUsername); ok {
		c.Credentials.Username = v
	}
	if v, ok := os.LookupEnv(EnvPassword); ok {
		c.Credentials.Password = v
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.NewInvalid("invalid config: %v", err)
	}
	if c.Credentials.Password == "" && c.Credentials.PrivateKeyFile == "" {
		return errors.NewInvalid("invalid config: a password or a private key is required")
	}
	for vendor, d := range c.Dialects {
		if _, err := d.PromptPattern(); err != nil {
			return errors.NewInvalid("invalid config: dialect %s: %v", vendor, err)
		}
	}
	return nil
}

// ConfigDomains returns the configured domains in reconciliation order.
func (c *Config) ConfigDomains() []drift.Domain {
	var out []drift.Domain
	for _, d := range drift.Domains {
		for _, name := range c.Domains {
			if name == string(d) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

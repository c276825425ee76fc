// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"os"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Credentials authenticate management sessions.
type Credentials struct {
	Username             string `yaml:"username" validate:"required"`
	Password             string `yaml:"password,omitempty"`
	PrivateKeyFile       string `yaml:"privateKeyFile,omitempty" validate:"omitempty,file"`
	PrivateKeyPassphrase string `yaml:"privateKeyPassphrase,omitempty"`
}

// SSHConfig controls host verification and timeouts of SSH sessions.
type SSHConfig struct {
	KnownHostsPath     string        `yaml:"knownHostsPath,omitempty"`
	InsecureSkipVerify bool          `yaml:"insecureSkipVerify,omitempty"`
	Timeout            time.Duration `yaml:"timeout,omitempty"`
	Port               int           `yaml:"port,omitempty"`
}

func buildHostKeyCallback(config SSHConfig) (ssh.HostKeyCallback, error) {
	if config.KnownHostsPath != "" {
		callback, err := knownhosts.New(config.KnownHostsPath)
		if err != nil {
			return nil, errors.NewInvalid("parsing known_hosts %s: %v", config.KnownHostsPath, err)
		}
		return callback, nil
	}
	if config.InsecureSkipVerify {
		log.Warnf("SSH host key verification is disabled")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return nil, errors.NewInvalid("no SSH host key verification configured: set a known_hosts path or enable insecureSkipVerify")
}

func buildAuthMethods(creds Credentials) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if creds.PrivateKeyFile != "" {
		key, err := os.ReadFile(creds.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading private key: %w", err)
		}
		var signer ssh.Signer
		if creds.PrivateKeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(creds.PrivateKeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if creds.Password != "" {
		methods = append(methods, ssh.Password(creds.Password))
	}

	if len(methods) == 0 {
		return nil, errors.NewInvalid("no SSH authentication method configured")
	}
	return methods, nil
}

// ClientConfig builds the x/crypto/ssh configuration for a session.
func ClientConfig(creds Credentials, config SSHConfig) (*ssh.ClientConfig, error) {
	callback, err := buildHostKeyCallback(config)
	if err != nil {
		return nil, err
	}
	methods, err := buildAuthMethods(creds)
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            methods,
		HostKeyCallback: callback,
		Timeout:         config.Timeout,
	}, nil
}

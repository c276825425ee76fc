// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load("testdata/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "admin", c.Credentials.Username)
	assert.True(t, c.SSH.InsecureSkipVerify)
	assert.Equal(t, 20*time.Second, c.SSH.Timeout)
	assert.Equal(t, 15*time.Second, c.HTTPTimeout)
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, 3*time.Minute, c.Rollout.RevertWindow)
	assert.Equal(t, uint64(12), c.Rollout.ProbeRetries)
	// unset values keep their defaults
	assert.Equal(t, 5*time.Second, c.Rollout.ConfirmRetryDelay)
	assert.Equal(t, 9339, c.GNMIPort)
	assert.Equal(t, []drift.Domain{drift.DomainVLAN, drift.DomainBGP}, c.ConfigDomains())
	require.Contains(t, c.Dialects, "dell")
	assert.True(t, c.Dialects["dell"].Transactional())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvUsername, "operator")
	t.Setenv(EnvPassword, "from-env")
	c, err := Load("testdata/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "operator", c.Credentials.Username)
	assert.Equal(t, "from-env", c.Credentials.Password)

	// the defaults alone are enough once credentials come from the environment
	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Workers)
	assert.Len(t, c.ConfigDomains(), 3)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("testdata/missing.yaml")
	assert.True(t, errors.IsNotFound(err))

	dir := t.TempDir()
	write := func(name, text string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
		return path
	}

	_, err = Load(write("syntax.yaml", "workers: [\n"))
	assert.True(t, errors.IsInvalid(err))

	_, err = Load(write("nopassword.yaml", "credentials:\n  username: admin\n"))
	assert.True(t, errors.IsInvalid(err))

	_, err = Load(write("workers.yaml", "credentials: {username: admin, password: x}\nworkers: 0\n"))
	assert.True(t, errors.IsInvalid(err))

	_, err = Load(write("domain.yaml", "credentials: {username: admin, password: x}\ndomains: [ospf]\n"))
	assert.True(t, errors.IsInvalid(err))

	_, err = Load(write("window.yaml", "credentials: {username: admin, password: x}\nrollout:\n  revertWindow: 10s\n"))
	assert.True(t, errors.IsInvalid(err))

	_, err = Load(write("dialect.yaml", `credentials: {username: admin, password: x}
dialects:
  dell: {name: dell, prompt: "(", showRunning: s, configMode: c, exitConfig: e, persist: p}
`))
	assert.True(t, errors.IsInvalid(err))
}

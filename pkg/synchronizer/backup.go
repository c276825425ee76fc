// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package synchronizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ManifestEntry describes the saved running configuration of one switch.
type ManifestEntry struct {
	Hostname string `yaml:"hostname"`
	IP       string `yaml:"ip"`
	File     string `yaml:"file"`
	SHA256   string `yaml:"sha256"`
	Bytes    int    `yaml:"bytes"`
}

// Manifest lists the files of a backup folder in inventory order.
type Manifest struct {
	Created time.Time        `yaml:"created"`
	Entries []*ManifestEntry `yaml:"entries"`
}

// Entry returns the entry of a switch, or nil.
func (m *Manifest) Entry(hostname string) *ManifestEntry {
	for _, e := range m.Entries {
		if e.Hostname == hostname {
			return e
		}
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Backup saves the running configuration of every switch of inv into dir as <hostname>.cfg and
// writes the manifest. The manifest is only written when every switch was saved.
func (s *Synchronizer) Backup(ctx context.Context, inv *inventory.Inventory, dir string) (*Manifest, error) {
	if s.reader == nil {
		return nil, errors.NewInvalid("no config reader configured")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.NewInvalid("creating backup folder %s: %v", dir, err)
	}

	entries := make([]*ManifestEntry, len(inv.Switches))
	var mu sync.Mutex
	var errs *multierror.Error
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, sw := range inv.Switches {
		i, sw := i, sw
		g.Go(func() error {
			entry, err := s.backupSwitch(ctx, sw, dir)
			if err != nil {
				log.Warnf("Backup of %s failed: %v", sw.Hostname, err)
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return nil
			}
			entries[i] = entry
			return nil
		})
	}
	_ = g.Wait()
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	m := &Manifest{Created: time.Now().UTC(), Entries: entries}
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0640); err != nil {
		return nil, errors.NewInvalid("writing manifest: %v", err)
	}
	log.Infof("Saved %d running configurations to %s", len(entries), dir)
	return m, nil
}

func (s *Synchronizer) backupSwitch(ctx context.Context, sw *inventory.Switch, dir string) (*ManifestEntry, error) {
	running, err := s.reader.RunningConfig(ctx, sw)
	if err != nil {
		return nil, err
	}
	if len(running) == 0 {
		return nil, errors.NewInvalid("%s returned an empty running configuration", sw.Hostname)
	}
	data := []byte(running)
	file := sw.Hostname + ".cfg"
	if err := os.WriteFile(filepath.Join(dir, file), data, 0640); err != nil {
		return nil, errors.NewInvalid("writing backup of %s: %v", sw.Hostname, err)
	}
	return &ManifestEntry{
		Hostname: sw.Hostname,
		IP:       sw.IP,
		File:     file,
		SHA256:   checksum(data),
		Bytes:    len(data),
	}, nil
}

// LoadManifest reads the manifest of a backup folder.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, errors.NewNotFound("no backup manifest in %s: %v", dir, err)
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.NewInvalid("backup manifest in %s: %v", dir, err)
	}
	return m, nil
}

// VerifyBackup checks that dir holds an intact, non-empty backup of every switch of inv.
func VerifyBackup(dir string, inv *inventory.Inventory) error {
	m, err := LoadManifest(dir)
	if err != nil {
		return err
	}
	var errs *multierror.Error
	for _, sw := range inv.Switches {
		e := m.Entry(sw.Hostname)
		if e == nil {
			errs = multierror.Append(errs, errors.NewNotFound("no backup of %s in %s", sw.Hostname, dir))
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.Base(e.File)))
		if err != nil {
			errs = multierror.Append(errs, errors.NewNotFound("backup of %s: %v", sw.Hostname, err))
			continue
		}
		if len(data) == 0 || len(data) != e.Bytes || checksum(data) != e.SHA256 {
			errs = multierror.Append(errs, errors.NewInvalid("backup of %s in %s does not match its manifest", sw.Hostname, dir))
		}
	}
	return errs.ErrorOrNil()
}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package store caches what was learned about switches between runs.
package store

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	bolt "go.etcd.io/bbolt"
)

var log = logging.GetLogger("store")

const (
	// VendorBucket is the bolt bucket holding vendor records keyed by switch IP
	VendorBucket = "vendors"
)

// VendorRecord is the last known identity of a switch.
type VendorRecord struct {
	Vendor   string    `json:"vendor"`
	Platform string    `json:"platform"`
	Hostname string    `json:"hostname"`
	Firmware string    `json:"firmware"`
	Updated  time.Time `json:"updated"`
}

// VendorCache maps switch management IPs to vendor records.
type VendorCache interface {
	io.Closer

	// Get returns the record for ip; a missing or stale record is a NotFound error
	Get(ip string) (*VendorRecord, error)

	// Put stores the record for ip, stamping it with the current time
	Put(ip string, record *VendorRecord) error
}

// BoltVendorCache is a VendorCache persisted in a bbolt file.
type BoltVendorCache struct {
	db     *bolt.DB
	maxAge time.Duration
	now    func() time.Time
}

// NewBoltVendorCache opens or creates the cache at path. Records older than maxAge are
// treated as absent; zero keeps them forever.
func NewBoltVendorCache(path string, maxAge time.Duration) (*BoltVendorCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewUnavailable("creating cache dir: %v", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.NewUnavailable("unable to open cache %s: %v", path, err)
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(VendorBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltVendorCache{db: db, maxAge: maxAge, now: time.Now}, nil
}

// Get implements VendorCache
func (c *BoltVendorCache) Get(ip string) (*VendorRecord, error) {
	if ip == "" {
		return nil, errors.NewInvalid("ip cannot be empty")
	}
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(VendorBucket)); b != nil {
			if v := b.Get([]byte(ip)); v != nil {
				data = append([]byte{}, v...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.NewNotFound("no vendor record for %s", ip)
	}

	record := &VendorRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		log.Warnf("Discarding corrupt vendor record for %s: %v", ip, err)
		return nil, errors.NewNotFound("no valid vendor record for %s", ip)
	}
	if c.maxAge > 0 && c.now().Sub(record.Updated) > c.maxAge {
		return nil, errors.NewNotFound("vendor record for %s is stale", ip)
	}
	return record, nil
}

// Put implements VendorCache
func (c *BoltVendorCache) Put(ip string, record *VendorRecord) error {
	if ip == "" {
		return errors.NewInvalid("ip cannot be empty")
	}
	stamped := *record
	stamped.Updated = c.now()
	data, err := json.Marshal(&stamped)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(VendorBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(ip), data)
	})
}

// Close closes the cache file.
func (c *BoltVendorCache) Close() error {
	return c.db.Close()
}

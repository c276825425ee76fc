// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/store"
	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// Default management ports
const (
	DefaultSSHPort   = 22
	DefaultHTTPSPort = 443
	DefaultGNMIPort  = 9339
)

// ConnectorOption configures a Connector
type ConnectorOption func(c *Connector)

// WithCredentials sets the credentials of every session
func WithCredentials(creds Credentials) ConnectorOption {
	return func(c *Connector) {
		c.creds = creds
	}
}

// WithSSH sets the SSH host verification and timeout
func WithSSH(config SSHConfig) ConnectorOption {
	return func(c *Connector) {
		c.ssh = config
	}
}

// WithREST sets the REST request timeout and certificate verification
func WithREST(timeout time.Duration, insecureTLS bool) ConnectorOption {
	return func(c *Connector) {
		c.httpTimeout = timeout
		c.insecureTLS = insecureTLS
	}
}

// WithGNMI sets how gNMI readers connect
func WithGNMI(opts GNMIOptions, port int) ConnectorOption {
	return func(c *Connector) {
		c.gnmi = opts
		c.gnmiPort = port
	}
}

// WithDialects replaces the CLI dialect table
func WithDialects(dialects map[string]*Dialect) ConnectorOption {
	return func(c *Connector) {
		c.dialects = dialects
	}
}

// WithVendorCache sets the cache consulted before detecting vendors
func WithVendorCache(cache store.VendorCache) ConnectorOption {
	return func(c *Connector) {
		c.cache = cache
	}
}

// WithRESTBase overrides how the REST root of a switch is derived
func WithRESTBase(base func(sw *inventory.Switch) string) ConnectorOption {
	return func(c *Connector) {
		c.restBase = base
	}
}

// WithReachability sets the probe run before any session is opened for reading
func WithReachability(r Reachability) ConnectorOption {
	return func(c *Connector) {
		c.probe = r
	}
}

// WithSessionDialer overrides how CLI sessions are opened
func WithSessionDialer(dial func(ctx context.Context, sw *inventory.Switch, dialect *Dialect) (CommandSession, error)) ConnectorOption {
	return func(c *Connector) {
		c.sshDial = dial
	}
}

// Connector opens the right kind of session for each switch. It reads running
// configurations for drift detection and dials rollout transports.
type Connector struct {
	creds       Credentials
	ssh         SSHConfig
	httpTimeout time.Duration
	insecureTLS bool
	gnmi        GNMIOptions
	gnmiPort    int
	dialects    map[string]*Dialect
	cache       store.VendorCache
	probe       Reachability

	restBase func(sw *inventory.Switch) string
	sshDial  func(ctx context.Context, sw *inventory.Switch, dialect *Dialect) (CommandSession, error)
}

// NewConnector creates a connector.
func NewConnector(opts ...ConnectorOption) *Connector {
	c := &Connector{
		httpTimeout: 10 * time.Second,
		gnmiPort:    DefaultGNMIPort,
		dialects:    DefaultDialects(),
	}
	c.restBase = func(sw *inventory.Switch) string {
		addr := sw.IP
		if sw.Port != 0 && sw.Transport == inventory.TransportREST {
			addr = net.JoinHostPort(sw.IP, strconv.Itoa(sw.Port))
		}
		return RESTBase(addr)
	}
	c.sshDial = c.dialSSH
	c.probe = NewProber()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns host:port of the management service used for rollouts to sw.
func (c *Connector) Address(sw *inventory.Switch) string {
	port := sw.Port
	if port == 0 {
		switch {
		case c.usesREST(sw, sw.Vendor):
			port = DefaultHTTPSPort
		case c.ssh.Port != 0:
			port = c.ssh.Port
		default:
			port = DefaultSSHPort
		}
	}
	return net.JoinHostPort(sw.IP, strconv.Itoa(port))
}

func (c *Connector) usesREST(sw *inventory.Switch, vendor string) bool {
	switch sw.Transport {
	case inventory.TransportREST:
		return true
	case inventory.TransportSSH:
		return false
	}
	return vendor == inventory.VendorAruba
}

func (c *Connector) dialSSH(ctx context.Context, sw *inventory.Switch, dialect *Dialect) (CommandSession, error) {
	config, err := ClientConfig(c.creds, c.ssh)
	if err != nil {
		return nil, err
	}
	prompt, err := dialect.PromptPattern()
	if err != nil {
		return nil, err
	}
	return DialSSH(ctx, c.sshAddress(sw), config, prompt, dialect.Setup...)
}

func (c *Connector) sshAddress(sw *inventory.Switch) string {
	port := sw.Port
	if port == 0 || sw.Transport != inventory.TransportSSH {
		port = DefaultSSHPort
		if c.ssh.Port != 0 {
			port = c.ssh.Port
		}
	}
	return net.JoinHostPort(sw.IP, strconv.Itoa(port))
}

func (c *Connector) restAddress(sw *inventory.Switch) string {
	port := DefaultHTTPSPort
	if sw.Port != 0 && sw.Transport == inventory.TransportREST {
		port = sw.Port
	}
	return net.JoinHostPort(sw.IP, strconv.Itoa(port))
}

func (c *Connector) gnmiAddress(sw *inventory.Switch) string {
	port := sw.Port
	if port == 0 {
		port = c.gnmiPort
	}
	return net.JoinHostPort(sw.IP, strconv.Itoa(port))
}

// reachable probes address before credentials are sent to it
func (c *Connector) reachable(ctx context.Context, sw *inventory.Switch, address string) error {
	if c.probe == nil {
		return nil
	}
	if err := c.probe.Probe(ctx, address); err != nil {
		return errors.NewUnavailable("%s: %v", sw.Hostname, err)
	}
	return nil
}

func (c *Connector) restSession(sw *inventory.Switch) (*RESTSession, error) {
	return NewRESTSession(c.restBase(sw), c.creds, WithHTTPTimeout(c.httpTimeout), WithInsecureTLS(c.insecureTLS))
}

func (c *Connector) dialect(sw *inventory.Switch, vendor string) (*Dialect, error) {
	d, ok := c.dialects[vendor]
	if !ok {
		return nil, errors.NewNotSupported("no CLI dialect for vendor %s of %s", vendor, sw.Hostname)
	}
	return d, nil
}

// Vendor returns the vendor of sw: from the inventory, then the cache, then by asking the switch.
func (c *Connector) Vendor(ctx context.Context, sw *inventory.Switch) (string, error) {
	if sw.Vendor != "" {
		return sw.Vendor, nil
	}
	if c.cache != nil {
		rec, err := c.cache.Get(sw.IP)
		if err == nil && rec.Vendor != "" {
			log.Debugf("Vendor of %s from cache: %s", sw.Hostname, rec.Vendor)
			return rec.Vendor, nil
		}
		if err != nil && !errors.IsNotFound(err) {
			log.Warnf("Vendor cache lookup for %s failed: %v", sw.Hostname, err)
		}
	}

	rec, err := c.detect(ctx, sw)
	if err != nil {
		return "", err
	}
	log.Infof("Detected %s as %s %s", sw.Hostname, rec.Vendor, rec.Platform)
	if c.cache != nil {
		if err := c.cache.Put(sw.IP, rec); err != nil {
			log.Warnf("Caching vendor of %s failed: %v", sw.Hostname, err)
		}
	}
	return rec.Vendor, nil
}

// detect tries the AOS-CX REST API first, then "show version" over SSH
func (c *Connector) detect(ctx context.Context, sw *inventory.Switch) (*store.VendorRecord, error) {
	if sw.Transport != inventory.TransportSSH {
		err := c.reachable(ctx, sw, c.restAddress(sw))
		if err == nil {
			var rec *store.VendorRecord
			if rec, err = c.detectREST(ctx, sw); err == nil {
				return rec, nil
			}
		}
		if sw.Transport == inventory.TransportREST {
			return nil, err
		}
	}

	if err := c.reachable(ctx, sw, c.sshAddress(sw)); err != nil {
		return nil, err
	}
	var firstErr error
	for _, vendor := range []string{inventory.VendorDell, inventory.VendorAruba} {
		d, err := c.dialect(sw, vendor)
		if err != nil || d.ShowVersion == "" {
			continue
		}
		rec, err := c.detectCLI(ctx, sw, d)
		if err == nil {
			return rec, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errors.NewNotFound("cannot determine vendor of %s", sw.Hostname)
	}
	return nil, firstErr
}

func (c *Connector) detectREST(ctx context.Context, sw *inventory.Switch) (*store.VendorRecord, error) {
	s, err := c.restSession(sw)
	if err != nil {
		return nil, err
	}
	if err := s.Login(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = s.Logout(ctx) }()
	info, err := s.System(ctx)
	if err != nil {
		return nil, err
	}
	return &store.VendorRecord{
		Vendor:   inventory.VendorAruba,
		Platform: info.PlatformName,
		Hostname: info.Hostname,
		Firmware: info.SoftwareVersion,
	}, nil
}

func (c *Connector) detectCLI(ctx context.Context, sw *inventory.Switch, d *Dialect) (*store.VendorRecord, error) {
	s, err := c.sshDial(ctx, sw, d)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	out, err := s.Send(ctx, d.ShowVersion)
	if err != nil {
		return nil, err
	}
	rec := &store.VendorRecord{Hostname: sw.Hostname}
	switch {
	case strings.Contains(out, "OS10"):
		rec.Vendor = inventory.VendorDell
	case strings.Contains(out, "ArubaOS-CX"):
		rec.Vendor = inventory.VendorAruba
	default:
		return nil, errors.NewNotFound("unrecognised version output from %s", sw.Hostname)
	}
	for _, l := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(l, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(strings.ToLower(k)) {
		case "os version", "version":
			rec.Firmware = strings.TrimSpace(v)
		case "system type", "product":
			rec.Platform = strings.TrimSpace(v)
		}
	}
	return rec, nil
}

// RunningConfig reads the running configuration of sw over its configured transport. The
// management port is probed before any session is opened.
func (c *Connector) RunningConfig(ctx context.Context, sw *inventory.Switch) (string, error) {
	if sw.Transport == inventory.TransportGNMI {
		address := c.gnmiAddress(sw)
		if err := c.reachable(ctx, sw, address); err != nil {
			return "", err
		}
		r := NewGNMIReader(address, sw.Hostname, c.gnmi)
		defer r.Close()
		return r.RunningConfig(ctx)
	}

	vendor, err := c.Vendor(ctx, sw)
	if err != nil {
		return "", err
	}
	if c.usesREST(sw, vendor) {
		if err := c.reachable(ctx, sw, c.restAddress(sw)); err != nil {
			return "", err
		}
		s, err := c.restSession(sw)
		if err != nil {
			return "", err
		}
		if err := s.Login(ctx); err != nil {
			return "", err
		}
		defer func() { _ = s.Logout(ctx) }()
		return s.RunningConfig(ctx)
	}

	d, err := c.dialect(sw, vendor)
	if err != nil {
		return "", err
	}
	if err := c.reachable(ctx, sw, c.sshAddress(sw)); err != nil {
		return "", err
	}
	s, err := c.sshDial(ctx, sw, d)
	if err != nil {
		return "", err
	}
	defer s.Close()
	return s.Send(ctx, d.ShowRunning)
}

// Dial returns an unopened rollout transport for sw.
func (c *Connector) Dial(ctx context.Context, sw *inventory.Switch) (SafeRolloutTransport, error) {
	vendor, err := c.Vendor(ctx, sw)
	if err != nil {
		return nil, err
	}
	if c.usesREST(sw, vendor) {
		s, err := c.restSession(sw)
		if err != nil {
			return nil, err
		}
		return NewArubaTransport(sw.Hostname, s), nil
	}
	d, err := c.dialect(sw, vendor)
	if err != nil {
		return nil, err
	}
	return NewCLITransport(sw.Hostname, d, func(ctx context.Context) (CommandSession, error) {
		return c.sshDial(ctx, sw, d)
	}), nil
}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// Reachability checks whether a switch answers on its management port.
type Reachability interface {
	Probe(ctx context.Context, address string) error
	WaitReachable(ctx context.Context, address string) error
}

// ProberOption configures a Prober
type ProberOption func(p *Prober)

// WithProbeTimeout sets the connection timeout of a single probe
func WithProbeTimeout(timeout time.Duration) ProberOption {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// WithProbeRetries sets how often WaitReachable probes and the delay between probes
func WithProbeRetries(retries uint64, delay time.Duration) ProberOption {
	return func(p *Prober) {
		p.retries = retries
		p.delay = delay
	}
}

// Prober probes switches with a TCP connect.
type Prober struct {
	timeout time.Duration
	retries uint64
	delay   time.Duration
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewProber creates a prober.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		timeout: 5 * time.Second,
		retries: 30,
		delay:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	d := &net.Dialer{Timeout: p.timeout}
	p.dial = d.DialContext
	return p
}

// Probe connects once to address (host:port).
func (p *Prober) Probe(ctx context.Context, address string) error {
	conn, err := p.dial(ctx, "tcp", address)
	if err != nil {
		return errors.NewUnavailable("%s unreachable: %v", address, err)
	}
	_ = conn.Close()
	return nil
}

// WaitReachable probes with a fixed delay until address answers or the retries run out.
func (p *Prober) WaitReachable(ctx context.Context, address string) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := p.Probe(ctx, address)
		if err != nil {
			log.Debugf("Probe %d of %s failed: %v", attempt, address, err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.delay), p.retries), ctx))
	if err != nil {
		return errors.NewTimeout("%s still unreachable after %d probes: %v", address, attempt, err)
	}
	return nil
}

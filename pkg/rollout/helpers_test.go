// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"context"
	"sync"
	"time"

	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/transport"
	"github.com/onosproject/onos-lib-go/pkg/errors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return ctx.Err()
}

// fakeSwitch is the state shared by every session opened to one emulated switch
type fakeSwitch struct {
	clock *fakeClock

	mu         sync.Mutex
	calls      []string
	uploaded   []string
	opens      int
	closes     int
	dryRun     *transport.DryRunReport
	dryRunErr  error
	uploadErr  error
	persistErr error
	// lockout makes the switch unreachable from arming until its revert timer fires
	lockout bool
	// neverBack keeps a locked out switch unreachable for good
	neverBack bool
	downUntil time.Time
}

func newFakeSwitch() *fakeSwitch {
	return &fakeSwitch{
		clock:  &fakeClock{t: time.Unix(1700000000, 0)},
		dryRun: &transport.DryRunReport{State: transport.DryRunSuccess},
	}
}

func (s *fakeSwitch) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeSwitch) called() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.calls...)
}

func (s *fakeSwitch) count(call string) int {
	n := 0
	for _, c := range s.called() {
		if c == call {
			n++
		}
	}
	return n
}

func (s *fakeSwitch) reachable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downUntil.IsZero() {
		return true
	}
	return !s.neverBack && !s.clock.now().Before(s.downUntil)
}

type fakeTransport struct {
	sw *fakeSwitch
}

func (t *fakeTransport) Open(ctx context.Context) error {
	t.sw.mu.Lock()
	t.sw.opens++
	t.sw.mu.Unlock()
	if !t.sw.reachable() {
		return errors.NewUnavailable("connection refused")
	}
	t.sw.record("open")
	return nil
}

func (t *fakeTransport) DryRun(ctx context.Context, candidate string) (*transport.DryRunReport, error) {
	t.sw.record("dryrun")
	if t.sw.dryRunErr != nil {
		return nil, t.sw.dryRunErr
	}
	return t.sw.dryRun, nil
}

func (t *fakeTransport) Checkpoint(ctx context.Context, name string) error {
	t.sw.record("checkpoint")
	return nil
}

func (t *fakeTransport) Restore(ctx context.Context, name string) error {
	t.sw.record("restore")
	return nil
}

func (t *fakeTransport) Upload(ctx context.Context, candidate string, target transport.Target) error {
	t.sw.record("upload " + string(target))
	t.sw.mu.Lock()
	t.sw.uploaded = append(t.sw.uploaded, candidate)
	t.sw.mu.Unlock()
	return t.sw.uploadErr
}

func (t *fakeTransport) ArmRevert(ctx context.Context, window time.Duration) error {
	t.sw.record("arm")
	if t.sw.lockout {
		t.sw.mu.Lock()
		t.sw.downUntil = t.sw.clock.now().Add(window)
		t.sw.mu.Unlock()
	}
	return nil
}

func (t *fakeTransport) Confirm(ctx context.Context) error {
	t.sw.record("confirm")
	return nil
}

func (t *fakeTransport) Persist(ctx context.Context) error {
	t.sw.record("persist")
	return t.sw.persistErr
}

func (t *fakeTransport) Acknowledge(ctx context.Context) error {
	t.sw.record("acknowledge")
	return nil
}

func (t *fakeTransport) Close() error {
	t.sw.mu.Lock()
	t.sw.closes++
	t.sw.mu.Unlock()
	t.sw.record("close")
	return nil
}

type fakeDialer struct {
	sw *fakeSwitch
}

func (d *fakeDialer) Dial(ctx context.Context, sw *inventory.Switch) (transport.SafeRolloutTransport, error) {
	return &fakeTransport{sw: d.sw}, nil
}

func (d *fakeDialer) Address(sw *inventory.Switch) string {
	return sw.IP + ":443"
}

// fakeProber answers from the reachability of the emulated switch
type fakeProber struct {
	sw     *fakeSwitch
	probes int
	waits  int
}

func (p *fakeProber) Probe(ctx context.Context, address string) error {
	p.probes++
	if !p.sw.reachable() {
		return errors.NewUnavailable("%s unreachable", address)
	}
	return nil
}

func (p *fakeProber) WaitReachable(ctx context.Context, address string) error {
	p.waits++
	if !p.sw.reachable() {
		return errors.NewTimeout("%s still unreachable", address)
	}
	return nil
}

var testSwitch = &inventory.Switch{Hostname: "sw-spine-001", IP: "10.252.0.2", Vendor: inventory.VendorAruba, Role: "spine"}

func newTestProtocol(sw *fakeSwitch) (*Protocol, *fakeProber) {
	prober := &fakeProber{sw: sw}
	p := NewProtocol(&fakeDialer{sw: sw},
		WithProber(prober),
		WithRevertWindow(2*time.Minute),
		WithConfirmRetryDelay(5*time.Second),
		WithConfirmMargin(15*time.Second))
	p.now = sw.clock.now
	p.sleep = sw.clock.sleep
	return p, prober
}

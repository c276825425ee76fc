// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

// Package rollout applies candidate configurations to switches under a self-reverting
// checkpoint, so that a change which cuts off management access undoes itself.
package rollout

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/transport"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
)

var log = logging.GetLogger("rollout")

// Defaults
const (
	DefaultRevertWindow      = 2 * time.Minute
	DefaultConfirmRetryDelay = 5 * time.Second
	DefaultConfirmMargin     = 15 * time.Second
)

// Outcome is how a rollout attempt ended.
type Outcome string

// Outcomes
const (
	OutcomeConfirmed        Outcome = "Confirmed"
	OutcomeValidated        Outcome = "Validated"
	OutcomeValidationFailed Outcome = "ValidationFailed"
	OutcomeRolledBack       Outcome = "RolledBack"
	OutcomeUnknown          Outcome = "Unknown"
	OutcomeUnreachable      Outcome = "Unreachable"
	OutcomeFailed           Outcome = "Failed"
)

// Dialer opens rollout transports to switches.
type Dialer interface {
	Dial(ctx context.Context, sw *inventory.Switch) (transport.SafeRolloutTransport, error)
	// Address is the host:port probed before any session is opened
	Address(sw *inventory.Switch) string
}

// ValidationError carries the messages of a switch that rejected a candidate configuration.
type ValidationError struct {
	Switch string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s rejected the candidate configuration: %s", e.Switch, strings.Join(e.Errors, "; "))
}

// Result reports one rollout attempt.
type Result struct {
	Switch    string
	AttemptID string
	Outcome   Outcome
	// State is the checkpoint state after the attempt concluded
	State CheckpointState
	// Reached is the last checkpoint state entered before the attempt concluded
	Reached          CheckpointState
	Trace            []CheckpointState
	ValidationErrors []string
	Err              error
}

// Succeeded reports whether the attempt ended in Confirmed or, for validation only, Validated.
func (r *Result) Succeeded() bool {
	return r != nil && (r.Outcome == OutcomeConfirmed || r.Outcome == OutcomeValidated)
}

func (r *Result) fail(outcome Outcome, err error) *Result {
	r.Outcome = outcome
	r.Err = err
	return r
}

// Option configures a Protocol
type Option func(p *Protocol)

// WithRevertWindow sets how long a switch waits for confirmation before reverting
func WithRevertWindow(window time.Duration) Option {
	return func(p *Protocol) {
		p.window = window
	}
}

// WithConfirmRetryDelay sets the delay between confirmation attempts
func WithConfirmRetryDelay(delay time.Duration) Option {
	return func(p *Protocol) {
		p.retryDelay = delay
	}
}

// WithConfirmMargin sets how long before the end of the revert window confirmation stops
func WithConfirmMargin(margin time.Duration) Option {
	return func(p *Protocol) {
		p.margin = margin
	}
}

// WithProber sets the reachability check used before sessions and while waiting for a revert
func WithProber(prober transport.Reachability) Option {
	return func(p *Protocol) {
		p.prober = prober
	}
}

// Protocol drives the safe-rollout state machine for single switches. It is safe to use
// for several switches at once; every attempt keeps its own state.
type Protocol struct {
	dialer     Dialer
	prober     transport.Reachability
	window     time.Duration
	retryDelay time.Duration
	margin     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewProtocol creates a protocol opening sessions through dialer.
func NewProtocol(dialer Dialer, opts ...Option) *Protocol {
	p := &Protocol{
		dialer:     dialer,
		window:     DefaultRevertWindow,
		retryDelay: DefaultConfirmRetryDelay,
		margin:     DefaultConfirmMargin,
		now:        time.Now,
		sleep:      sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.prober == nil {
		p.prober = transport.NewProber()
	}
	if p.margin >= p.window {
		p.margin = p.window / 4
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Validate submits candidate to the dry-run facility of sw without changing anything.
func (p *Protocol) Validate(ctx context.Context, sw *inventory.Switch, candidate string) *Result {
	res := &Result{Switch: sw.Hostname, AttemptID: uuid.New().String(), Trace: []CheckpointState{StateNone}}
	if err := p.prober.Probe(ctx, p.dialer.Address(sw)); err != nil {
		return res.fail(OutcomeUnreachable, err)
	}
	tr, err := p.open(ctx, sw)
	if err != nil {
		return res.fail(classify(err), err)
	}
	defer p.close(sw, tr)

	report, err := tr.DryRun(ctx, candidate)
	if err != nil {
		return res.fail(classify(err), err)
	}
	if report.Failed() {
		res.ValidationErrors = report.Errors
		return res.fail(OutcomeValidationFailed, &ValidationError{Switch: sw.Hostname, Errors: report.Errors})
	}
	res.Outcome = OutcomeValidated
	return res
}

// Rollout applies candidate to sw. Without force the candidate is validated by the switch and
// staged in the startup configuration; with force it is written to the running configuration
// after a named checkpoint, which requires the switch to allow it. The change becomes active
// under a revert timer and is confirmed from a fresh session. The same candidate is never
// retried by the protocol.
func (p *Protocol) Rollout(ctx context.Context, sw *inventory.Switch, candidate string, force bool) *Result {
	id := uuid.New().String()
	a := newAttempt(sw.Hostname, id)
	res := &Result{Switch: sw.Hostname, AttemptID: id}
	defer func() {
		a.reset()
		res.State = a.state
		res.Reached = a.reached()
		res.Trace = a.trace
	}()

	if force && !sw.AllowForce {
		return res.fail(OutcomeFailed, errors.NewInvalid("%s does not allow forced rollouts", sw.Hostname))
	}
	if strings.TrimSpace(candidate) == "" {
		return res.fail(OutcomeFailed, errors.NewInvalid("empty candidate configuration for %s", sw.Hostname))
	}

	address := p.dialer.Address(sw)
	if err := p.prober.Probe(ctx, address); err != nil {
		return res.fail(OutcomeUnreachable, err)
	}
	tr, err := p.open(ctx, sw)
	if err != nil {
		return res.fail(classify(err), err)
	}
	closed := false
	closeSession := func() {
		if !closed {
			closed = true
			p.close(sw, tr)
		}
	}
	defer closeSession()

	checkpoint := checkpointName(id)
	target := transport.TargetStartup
	if force {
		log.Warnf("Forced rollout to %s skips validation", sw.Hostname)
		target = transport.TargetRunning
		if err := tr.Checkpoint(ctx, checkpoint); err != nil {
			return res.fail(classify(err), err)
		}
		_ = a.moveTo(StateCreated)
	} else {
		report, err := tr.DryRun(ctx, candidate)
		if errors.IsNotSupported(err) {
			log.Infof("%s has no dry-run, saving checkpoint %s", sw.Hostname, checkpoint)
			err = tr.Checkpoint(ctx, checkpoint)
		}
		if err != nil {
			return res.fail(classify(err), err)
		}
		_ = a.moveTo(StateCreated)
		if report.Failed() {
			log.Warnf("%s rejected the candidate: %s", sw.Hostname, report)
			res.ValidationErrors = report.Errors
			return res.fail(OutcomeValidationFailed, &ValidationError{Switch: sw.Hostname, Errors: report.Errors})
		}
	}

	if err := tr.Upload(ctx, candidate, target); err != nil {
		if target == transport.TargetRunning {
			p.restore(ctx, sw, tr, checkpoint)
		}
		if errors.IsInvalid(err) {
			res.ValidationErrors = []string{err.Error()}
			return res.fail(OutcomeValidationFailed, err)
		}
		return res.fail(classify(err), err)
	}
	_ = a.moveTo(StateUploaded)

	armedAt := p.now()
	if err := tr.ArmRevert(ctx, p.window); err != nil {
		if target == transport.TargetRunning {
			p.restore(ctx, sw, tr, checkpoint)
		}
		return res.fail(classify(err), err)
	}
	_ = a.moveTo(StatePendingConfirmation)
	closeSession()

	confirmed, err := p.confirm(ctx, sw, armedAt.Add(p.window-p.margin))
	if confirmed {
		_ = a.moveTo(StateConfirmed)
	}
	switch {
	case err == nil:
		if err := p.prober.WaitReachable(ctx, address); err != nil {
			log.Errorf("%s unreachable after confirmation: %v", sw.Hostname, err)
			return res.fail(OutcomeUnknown, err)
		}
		log.Infof("Rollout %s to %s confirmed", id, sw.Hostname)
		res.Outcome = OutcomeConfirmed
		return res
	case confirmed:
		return res.fail(OutcomeFailed, errors.NewUnavailable("%s confirmed but not persisted: %v", sw.Hostname, err))
	}
	return p.awaitRevert(ctx, sw, a, res, armedAt, err)
}

// awaitRevert lets the revert timer of the switch run out and then checks it came back.
func (p *Protocol) awaitRevert(ctx context.Context, sw *inventory.Switch, a *attempt, res *Result, armedAt time.Time, cause error) *Result {
	log.Warnf("%s not confirmed, waiting for its revert timer: %v", sw.Hostname, cause)
	if wait := armedAt.Add(p.window).Sub(p.now()); wait > 0 {
		if err := p.sleep(ctx, wait); err != nil {
			return res.fail(OutcomeUnknown, errors.NewTimeout("%s: state unknown, verify manually: %v", sw.Hostname, err))
		}
	}
	if err := p.prober.WaitReachable(ctx, p.dialer.Address(sw)); err != nil {
		log.Errorf("%s still unreachable after its revert window, verify manually: %v", sw.Hostname, err)
		return res.fail(OutcomeUnknown, errors.NewTimeout("%s: state unknown after the revert window, verify manually: %v", sw.Hostname, err))
	}
	_ = a.moveTo(StateRolledBack)
	p.acknowledge(ctx, sw)
	return res.fail(OutcomeRolledBack, errors.NewUnavailable("%s reverted to its previous configuration: %v", sw.Hostname, cause))
}

// confirm repeatedly opens a session to confirm and persist until deadline.
func (p *Protocol) confirm(ctx context.Context, sw *inventory.Switch, deadline time.Time) (bool, error) {
	confirmed := false
	var lastErr error
	for i := 1; p.now().Before(deadline); i++ {
		lastErr = p.confirmOnce(ctx, sw, deadline, &confirmed)
		if lastErr == nil {
			return true, nil
		}
		log.Warnf("Confirmation %d of %s failed: %v", i, sw.Hostname, lastErr)
		if err := p.sleep(ctx, p.retryDelay); err != nil {
			return confirmed, err
		}
	}
	if lastErr == nil {
		lastErr = errors.NewTimeout("confirmation window of %s closed", sw.Hostname)
	}
	return confirmed, lastErr
}

func (p *Protocol) confirmOnce(ctx context.Context, sw *inventory.Switch, deadline time.Time, confirmed *bool) error {
	ctx, cancel := context.WithTimeout(ctx, deadline.Sub(p.now()))
	defer cancel()
	if err := p.prober.Probe(ctx, p.dialer.Address(sw)); err != nil {
		return err
	}
	tr, err := p.open(ctx, sw)
	if err != nil {
		return err
	}
	defer p.close(sw, tr)
	if !*confirmed {
		if err := tr.Confirm(ctx); err != nil {
			return err
		}
		*confirmed = true
	}
	return tr.Persist(ctx)
}

func (p *Protocol) open(ctx context.Context, sw *inventory.Switch) (transport.SafeRolloutTransport, error) {
	tr, err := p.dialer.Dial(ctx, sw)
	if err != nil {
		return nil, err
	}
	if err := tr.Open(ctx); err != nil {
		p.close(sw, tr)
		return nil, err
	}
	return tr, nil
}

func (p *Protocol) close(sw *inventory.Switch, tr transport.SafeRolloutTransport) {
	if err := tr.Close(); err != nil {
		log.Warnf("Closing session to %s failed: %v", sw.Hostname, err)
	}
}

func (p *Protocol) restore(ctx context.Context, sw *inventory.Switch, tr transport.SafeRolloutTransport, checkpoint string) {
	log.Warnf("Restoring %s from checkpoint %s", sw.Hostname, checkpoint)
	if err := tr.Restore(ctx, checkpoint); err != nil {
		log.Errorf("Restoring %s from checkpoint %s failed, verify manually: %v", sw.Hostname, checkpoint, err)
	}
}

// acknowledge tells switches that need it that the automatic revert was noticed
func (p *Protocol) acknowledge(ctx context.Context, sw *inventory.Switch) {
	tr, err := p.open(ctx, sw)
	if err != nil {
		log.Warnf("Cannot acknowledge revert of %s: %v", sw.Hostname, err)
		return
	}
	defer p.close(sw, tr)
	if ack, ok := tr.(transport.Acknowledger); ok {
		if err := ack.Acknowledge(ctx); err != nil {
			log.Warnf("Acknowledging revert of %s failed: %v", sw.Hostname, err)
		}
	}
}

func checkpointName(id string) string {
	return "fr-" + strings.ReplaceAll(id, "-", "")[:12]
}

// classify maps session errors to outcomes
func classify(err error) Outcome {
	if errors.IsUnavailable(err) || errors.IsTimeout(err) {
		return OutcomeUnreachable
	}
	if pe, ok := err.(*transport.PushError); ok {
		if pe.StatusCode == http.StatusUnauthorized || pe.StatusCode == http.StatusForbidden {
			return OutcomeUnreachable
		}
	}
	return OutcomeFailed
}

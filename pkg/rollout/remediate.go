// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"context"
	"fmt"
	"strings"

	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
)

// RemediationError reports a domain that is still drifted after one corrective rollout.
type RemediationError struct {
	Switch string
	Domain drift.Domain
	Diff   drift.Diff
}

func (e *RemediationError) Error() string {
	return fmt.Sprintf("remediation of %s on %s failed, %d records still differ: %s",
		e.Domain, e.Switch, e.Diff.Count(), strings.Join(e.Diff.Lines(), ", "))
}

// Remediation is the record of one corrective cycle for one domain.
type Remediation struct {
	Switch string
	Domain drift.Domain
	Before *drift.ConfigDomain
	// Rollout is nil when the domain was already converged
	Rollout *Result
	After   *drift.ConfigDomain
}

// Converged reports whether the domain ended without drift.
func (r *Remediation) Converged() bool {
	if r.After != nil {
		return r.After.Converged()
	}
	return r.Before.Converged() && r.Rollout == nil
}

// Remediator corrects drifted domains with one rollout each.
type Remediator struct {
	detector *drift.Detector
	protocol *Protocol
}

// NewRemediator creates a remediator.
func NewRemediator(detector *drift.Detector, protocol *Protocol) *Remediator {
	return &Remediator{detector: detector, protocol: protocol}
}

// Remediate diffs domain on sw, rolls out a corrective candidate when it drifted and diffs
// once more. A domain still drifted afterwards yields a RemediationError; it is not retried.
func (r *Remediator) Remediate(ctx context.Context, sw *inventory.Switch, domain drift.Domain, vars map[string]interface{}, force bool) (*Remediation, error) {
	rem := &Remediation{Switch: sw.Hostname, Domain: domain}
	before, err := r.detector.Diff(ctx, sw, domain, vars)
	rem.Before = before
	if err != nil {
		return rem, err
	}
	return rem, r.apply(ctx, sw, rem, vars, force)
}

// RemediateDrifted corrects a domain already diffed by the caller.
func (r *Remediator) RemediateDrifted(ctx context.Context, sw *inventory.Switch, before *drift.ConfigDomain, vars map[string]interface{}, force bool) (*Remediation, error) {
	rem := &Remediation{Switch: sw.Hostname, Domain: before.Domain, Before: before}
	return rem, r.apply(ctx, sw, rem, vars, force)
}

func (r *Remediator) apply(ctx context.Context, sw *inventory.Switch, rem *Remediation, vars map[string]interface{}, force bool) error {
	if !rem.Before.Drifted() {
		return nil
	}
	candidate, err := Candidate(rem.Before)
	if err != nil {
		return err
	}
	log.Infof("Remediating %s on %s: %d records differ", rem.Domain, sw.Hostname, rem.Before.Diff.Count())
	rem.Rollout = r.protocol.Rollout(ctx, sw, candidate, force)
	if rem.Rollout.Outcome != OutcomeConfirmed {
		return rem.Rollout.Err
	}

	after, err := r.detector.Diff(ctx, sw, rem.Domain, vars)
	rem.After = after
	if err != nil {
		return err
	}
	if after.Drifted() {
		log.Warnf("%s on %s still drifted after remediation", rem.Domain, sw.Hostname)
		return &RemediationError{Switch: sw.Hostname, Domain: rem.Domain, Diff: after.Diff}
	}
	return nil
}

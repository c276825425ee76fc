// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package synchronizer

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/rollout"
	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// AuditSwitch diffs the configured domains of one switch.
func (s *Synchronizer) AuditSwitch(ctx context.Context, sw *inventory.Switch, vars map[string]interface{}) *SwitchResult {
	res, _ := s.audit(ctx, sw, vars)
	return res
}

func (s *Synchronizer) audit(ctx context.Context, sw *inventory.Switch, vars map[string]interface{}) (*SwitchResult, []*drift.ConfigDomain) {
	res := &SwitchResult{Switch: sw.Hostname}
	before, err := s.auditor.DiffAll(ctx, sw, s.domains, vars)
	for _, cd := range before {
		res.Domains = append(res.Domains, s.auditResult(sw, cd))
	}
	if err != nil {
		res.Err = err
		log.Warnf("Audit of %s incomplete: %v", sw.Hostname, err)
	}
	return res, before
}

func (s *Synchronizer) auditResult(sw *inventory.Switch, cd *drift.ConfigDomain) *DomainResult {
	dr := &DomainResult{Domain: cd.Domain, Status: string(cd.Status), Drift: cd.Diff.Lines()}
	if s.metrics && cd.Status != drift.StatusIndeterminate {
		KpiDriftRecords.WithLabelValues(sw.Hostname, string(cd.Domain)).Set(float64(cd.Diff.Count()))
	}
	return dr
}

// SynchronizeSwitch audits one switch and corrects, or in dry-run mode validates, each
// drifted domain in turn. Once a rollout leaves the switch reverted, unreachable or in an
// unknown state the remaining domains are skipped.
func (s *Synchronizer) SynchronizeSwitch(ctx context.Context, sw *inventory.Switch, vars map[string]interface{}) *SwitchResult {
	res, before := s.audit(ctx, sw, vars)
	if res.Err != nil && len(res.Domains) == 0 {
		return res
	}

	var errs *multierror.Error
	if res.Err != nil {
		errs = multierror.Append(errs, res.Err)
	}

	halted := false
	for i, dr := range res.Domains {
		if dr.Status != string(drift.StatusDrifted) {
			continue
		}
		if halted {
			dr.Status = StatusFailed
			dr.Err = errors.NewUnavailable("%s skipped after an earlier rollout on %s did not complete", dr.Domain, sw.Hostname)
			errs = multierror.Append(errs, dr.Err)
			continue
		}
		if err := ctx.Err(); err != nil {
			dr.Status = StatusFailed
			dr.Err = err
			errs = multierror.Append(errs, err)
			continue
		}

		if s.dryRun {
			s.validateDomain(ctx, sw, before[i], dr)
		} else {
			s.remediateDomain(ctx, sw, before[i], vars, dr)
		}
		if dr.Err != nil {
			errs = multierror.Append(errs, dr.Err)
		}
		if dr.Rollout != nil {
			if s.metrics {
				KpiRolloutOutcome.WithLabelValues(string(dr.Rollout.Outcome)).Inc()
			}
			switch dr.Rollout.Outcome {
			case rollout.OutcomeRolledBack, rollout.OutcomeUnknown, rollout.OutcomeUnreachable:
				halted = true
			}
		}
	}
	res.Err = errs.ErrorOrNil()
	return res
}

func (s *Synchronizer) validateDomain(ctx context.Context, sw *inventory.Switch, before *drift.ConfigDomain, dr *DomainResult) {
	candidate, err := rollout.Candidate(before)
	if err != nil {
		dr.Status, dr.Err = StatusFailed, err
		return
	}
	dr.Rollout = s.validator.Validate(ctx, sw, candidate)
	dr.Err = dr.Rollout.Err
	switch dr.Rollout.Outcome {
	case rollout.OutcomeValidated:
		dr.Status = StatusValidated
		log.Infof("Candidate for %s on %s validated", dr.Domain, sw.Hostname)
	case rollout.OutcomeValidationFailed:
		dr.Status = StatusValidationFailed
	default:
		dr.Status = outcomeStatus(dr.Rollout.Outcome)
	}
}

func (s *Synchronizer) remediateDomain(ctx context.Context, sw *inventory.Switch, before *drift.ConfigDomain, vars map[string]interface{}, dr *DomainResult) {
	rem, err := s.remediator.RemediateDrifted(ctx, sw, before, vars, s.force)
	if rem != nil {
		dr.Rollout = rem.Rollout
		if rem.After != nil {
			dr.Remaining = rem.After.Diff.Lines()
		}
	}
	dr.Err = err
	switch {
	case err == nil && rem != nil && rem.Converged():
		dr.Status = StatusRemediated
		log.Infof("%s on %s remediated", dr.Domain, sw.Hostname)
	case isRemediationError(err):
		dr.Status = StatusRemediationFailed
	case dr.Rollout != nil && dr.Rollout.Outcome != rollout.OutcomeConfirmed:
		dr.Status = outcomeStatus(dr.Rollout.Outcome)
	default:
		dr.Status = StatusFailed
		if dr.Err == nil {
			dr.Err = errors.NewUnknown("%s on %s did not converge", dr.Domain, sw.Hostname)
		}
	}
}

func isRemediationError(err error) bool {
	_, ok := err.(*rollout.RemediationError)
	return ok
}

func outcomeStatus(outcome rollout.Outcome) string {
	switch outcome {
	case rollout.OutcomeConfirmed:
		return StatusRemediated
	case rollout.OutcomeValidated:
		return StatusValidated
	case rollout.OutcomeValidationFailed:
		return StatusValidationFailed
	case rollout.OutcomeRolledBack:
		return StatusRolledBack
	case rollout.OutcomeUnknown:
		return StatusUnknown
	case rollout.OutcomeUnreachable:
		return StatusUnreachable
	}
	return StatusFailed
}

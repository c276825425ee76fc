// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

// Package synchronizer reconciles a fleet of switches with their desired configuration.
package synchronizer

import (
	"context"
	"time"

	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/rollout"
)

const (
	// DefaultWorkers is the number of switches reconciled at the same time
	DefaultWorkers = 5

	// ManifestFile lists the files of a backup folder
	ManifestFile = "manifest.yaml"
)

// Domain statuses after reconciliation, beyond those of the drift detector
const (
	StatusRemediated        = "remediated"
	StatusValidated         = "validated"
	StatusValidationFailed  = "validation-failed"
	StatusRemediationFailed = "remediation-failed"
	StatusRolledBack        = "rolled-back"
	StatusUnknown           = "unknown"
	StatusUnreachable       = "unreachable"
	StatusFailed            = "failed"
)

// Synchronizer audits and reconciles switches.
type Synchronizer struct {
	workers    int
	domains    []drift.Domain
	auditor    Auditor
	remediator Remediator
	validator  Validator
	reader     drift.ConfigReader
	dryRun     bool
	force      bool
	backupDir  string
	metrics    bool

	// used for ease of mocking
	synchronizeSwitchFunc func(ctx context.Context, sw *inventory.Switch, vars map[string]interface{}) *SwitchResult
}

// SynchronizerOption is for options passed when creating a new synchronizer
type SynchronizerOption func(s *Synchronizer) // nolint

// DomainResult is the outcome of one domain of one switch.
type DomainResult struct {
	Domain drift.Domain
	Status string
	// Drift lists the differing records found by the audit
	Drift []string
	// Remaining lists the records still differing after remediation
	Remaining []string
	Rollout   *rollout.Result
	Err       error
}

// Succeeded reports whether the domain is converged, or was remediated or validated.
func (d *DomainResult) Succeeded() bool {
	switch d.Status {
	case string(drift.StatusConverged), StatusRemediated, StatusValidated:
		return true
	}
	return false
}

// SwitchResult is the outcome of one switch.
type SwitchResult struct {
	Switch   string
	Domains  []*DomainResult
	Err      error
	Duration time.Duration
}

// Succeeded reports whether every domain of the switch succeeded.
func (r *SwitchResult) Succeeded() bool {
	if r == nil || r.Err != nil || len(r.Domains) == 0 {
		return false
	}
	for _, d := range r.Domains {
		if !d.Succeeded() {
			return false
		}
	}
	return true
}

// Domain returns the result of one domain, or nil.
func (r *SwitchResult) Domain(domain drift.Domain) *DomainResult {
	for _, d := range r.Domains {
		if d.Domain == domain {
			return d
		}
	}
	return nil
}

// Report holds the results of a run in inventory order.
type Report struct {
	Results []*SwitchResult
}

// Success is true only if every switch is converged, remediated or validated.
func (r *Report) Success() bool {
	if r == nil || len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if !res.Succeeded() {
			return false
		}
	}
	return true
}

// Failed lists the switches that did not succeed.
func (r *Report) Failed() []string {
	var out []string
	for _, res := range r.Results {
		if !res.Succeeded() {
			out = append(out, res.Switch)
		}
	}
	return out
}

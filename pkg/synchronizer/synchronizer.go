// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package synchronizer

import (
	"context"
	"time"

	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"golang.org/x/sync/errgroup"
)

var log = logging.GetLogger("synchronizer")

// WithWorkers sets how many switches are reconciled at the same time
func WithWorkers(workers int) SynchronizerOption {
	return func(s *Synchronizer) {
		s.workers = workers
	}
}

// WithDomains selects the configuration domains to reconcile
func WithDomains(domains ...drift.Domain) SynchronizerOption {
	return func(s *Synchronizer) {
		s.domains = domains
	}
}

// WithAuditor sets how switches are compared with their desired configuration
func WithAuditor(auditor Auditor) SynchronizerOption {
	return func(s *Synchronizer) {
		s.auditor = auditor
	}
}

// WithRemediator sets how drifted domains are corrected
func WithRemediator(remediator Remediator) SynchronizerOption {
	return func(s *Synchronizer) {
		s.remediator = remediator
	}
}

// WithValidator sets how candidates are checked in dry-run mode
func WithValidator(validator Validator) SynchronizerOption {
	return func(s *Synchronizer) {
		s.validator = validator
	}
}

// WithConfigReader sets how running configurations are read for backups
func WithConfigReader(reader drift.ConfigReader) SynchronizerOption {
	return func(s *Synchronizer) {
		s.reader = reader
	}
}

// WithDryRun validates corrections with the switches instead of applying them
func WithDryRun(dryRun bool) SynchronizerOption {
	return func(s *Synchronizer) {
		s.dryRun = dryRun
	}
}

// WithForce applies corrections to the running configuration of switches that allow it
func WithForce(force bool) SynchronizerOption {
	return func(s *Synchronizer) {
		s.force = force
	}
}

// WithBackupFolder names the folder whose verified backup must exist before changes are applied
func WithBackupFolder(dir string) SynchronizerOption {
	return func(s *Synchronizer) {
		s.backupDir = dir
	}
}

// WithMetrics enables the prometheus KPIs
func WithMetrics(enable bool) SynchronizerOption {
	return func(s *Synchronizer) {
		s.metrics = enable
	}
}

// NewSynchronizer creates a new Synchronizer
func NewSynchronizer(opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		workers: DefaultWorkers,
		domains: drift.Domains,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	s.synchronizeSwitchFunc = s.SynchronizeSwitch
	return s
}

// Audit compares every switch of inv with its desired configuration without changing anything.
func (s *Synchronizer) Audit(ctx context.Context, inv *inventory.Inventory, vars *inventory.Variables) (*Report, error) {
	if s.auditor == nil {
		return nil, errors.NewInvalid("no auditor configured")
	}
	log.Infof("Auditing %d switches (domains=%v, workers=%d)", len(inv.Switches), s.domains, s.workers)
	return s.run(ctx, inv, vars, s.AuditSwitch), nil
}

// Synchronize audits every switch of inv and corrects drifted domains. Outside dry-run mode a
// verified backup of every targeted switch is required first.
func (s *Synchronizer) Synchronize(ctx context.Context, inv *inventory.Inventory, vars *inventory.Variables) (*Report, error) {
	if s.auditor == nil {
		return nil, errors.NewInvalid("no auditor configured")
	}
	if s.dryRun {
		if s.validator == nil {
			return nil, errors.NewInvalid("no validator configured")
		}
	} else {
		if s.remediator == nil {
			return nil, errors.NewInvalid("no remediator configured")
		}
		if s.backupDir == "" {
			return nil, errors.NewInvalid("a backup folder is required before applying changes")
		}
		if err := VerifyBackup(s.backupDir, inv); err != nil {
			return nil, err
		}
	}
	log.Infof("Synchronizing %d switches (dryRun=%v, force=%v, domains=%v, workers=%d)",
		len(inv.Switches), s.dryRun, s.force, s.domains, s.workers)
	return s.run(ctx, inv, vars, s.synchronizeSwitchFunc), nil
}

// run gives every switch its own worker, bounded by the worker count. A failing switch never
// stops the others.
func (s *Synchronizer) run(ctx context.Context, inv *inventory.Inventory, vars *inventory.Variables,
	fn func(ctx context.Context, sw *inventory.Switch, vars map[string]interface{}) *SwitchResult) *Report {
	results := make([]*SwitchResult, len(inv.Switches))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, sw := range inv.Switches {
		i, sw := i, sw
		g.Go(func() error {
			tStart := time.Now()
			if s.metrics {
				KpiSynchronizationTotal.WithLabelValues(sw.Hostname).Inc()
			}
			res := fn(ctx, sw, vars.ForSwitch(sw.Hostname))
			if res == nil {
				res = &SwitchResult{Switch: sw.Hostname, Err: errors.NewUnknown("no result")}
			}
			res.Duration = time.Since(tStart)
			if s.metrics {
				KpiSynchronizationDuration.WithLabelValues(sw.Hostname).Observe(res.Duration.Seconds())
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return &Report{Results: results}
}

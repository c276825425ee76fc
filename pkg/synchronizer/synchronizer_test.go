// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package synchronizer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/rollout"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backedUp(t *testing.T, inv *inventory.Inventory) string {
	t.Helper()
	reader := &fakeReader{configs: map[string]string{}}
	for _, sw := range inv.Switches {
		reader.configs[sw.Hostname] = "hostname " + sw.Hostname + "\n"
	}
	dir := t.TempDir()
	_, err := NewSynchronizer(WithConfigReader(reader)).Backup(context.Background(), inv, dir)
	require.NoError(t, err)
	return dir
}

func TestWorkerPool(t *testing.T) {
	inv := testInventory(t, 7)
	s := NewSynchronizer(
		WithWorkers(2),
		WithAuditor(&fakeAuditor{}),
		WithValidator(&fakeValidator{}),
		WithDryRun(true),
	)

	var running, peak int32
	s.synchronizeSwitchFunc = func(ctx context.Context, sw *inventory.Switch, vars map[string]interface{}) *SwitchResult {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		// later switches finish first
		time.Sleep(time.Duration(20-int(sw.Hostname[len(sw.Hostname)-1]-'0')) * time.Millisecond)
		atomic.AddInt32(&running, -1)
		assert.Equal(t, sw.Hostname, vars["hostname"])
		return &SwitchResult{Switch: sw.Hostname, Domains: []*DomainResult{{Domain: drift.DomainACL, Status: string(drift.StatusConverged)}}}
	}

	report, err := s.Synchronize(context.Background(), inv, testVariables())
	require.NoError(t, err)
	require.Len(t, report.Results, 7)
	for i, res := range report.Results {
		assert.Equal(t, inv.Switches[i].Hostname, res.Switch)
		assert.True(t, res.Duration > 0)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.True(t, report.Success())
}

func TestNilResultIsFailure(t *testing.T) {
	inv := testInventory(t, 2)
	s := NewSynchronizer(WithAuditor(&fakeAuditor{}), WithValidator(&fakeValidator{}), WithDryRun(true))
	s.synchronizeSwitchFunc = func(ctx context.Context, sw *inventory.Switch, vars map[string]interface{}) *SwitchResult {
		if sw.Hostname == "sw-leaf-002" {
			return nil
		}
		return &SwitchResult{Switch: sw.Hostname, Domains: []*DomainResult{{Domain: drift.DomainBGP, Status: StatusValidated}}}
	}
	report, err := s.Synchronize(context.Background(), inv, nil)
	require.NoError(t, err)
	assert.False(t, report.Success())
	assert.Equal(t, []string{"sw-leaf-002"}, report.Failed())
}

func TestAudit(t *testing.T) {
	inv := testInventory(t, 3)
	auditor := &fakeAuditor{
		statuses: map[string]map[drift.Domain]drift.Status{
			"sw-leaf-002": {drift.DomainVLAN: drift.StatusDrifted},
		},
		errs: map[string]error{"sw-leaf-003": errors.NewUnavailable("sw-leaf-003 unreachable")},
	}
	remediator := &fakeRemediator{}
	s := NewSynchronizer(WithAuditor(auditor), WithRemediator(remediator), WithMetrics(true))

	report, err := s.Audit(context.Background(), inv, testVariables())
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Empty(t, remediator.calls)

	assert.True(t, report.Results[0].Succeeded())
	vlan := report.Results[1].Domain(drift.DomainVLAN)
	require.NotNil(t, vlan)
	assert.Equal(t, string(drift.StatusDrifted), vlan.Status)
	assert.Equal(t, []string{"+ vlan 7 name=RVR_NMN"}, vlan.Drift)
	assert.Equal(t, string(drift.StatusConverged), report.Results[1].Domain(drift.DomainACL).Status)

	assert.True(t, errors.IsUnavailable(report.Results[2].Err))
	assert.Len(t, report.Results[2].Domains, 3)
	assert.Equal(t, string(drift.StatusIndeterminate), report.Results[2].Domain(drift.DomainBGP).Status)

	assert.False(t, report.Success())
	assert.Equal(t, []string{"sw-leaf-002", "sw-leaf-003"}, report.Failed())
}

func TestAuditRequiresAuditor(t *testing.T) {
	_, err := NewSynchronizer().Audit(context.Background(), testInventory(t, 1), nil)
	assert.True(t, errors.IsInvalid(err))
}

func TestSynchronizeRequiresBackup(t *testing.T) {
	inv := testInventory(t, 2)
	auditor := &fakeAuditor{}
	remediator := &fakeRemediator{}

	s := NewSynchronizer(WithAuditor(auditor), WithRemediator(remediator))
	_, err := s.Synchronize(context.Background(), inv, nil)
	assert.True(t, errors.IsInvalid(err))

	s = NewSynchronizer(WithAuditor(auditor), WithRemediator(remediator), WithBackupFolder(t.TempDir()))
	_, err = s.Synchronize(context.Background(), inv, nil)
	assert.True(t, errors.IsNotFound(err))

	// a backup of a different fleet does not cover these switches
	other := backedUp(t, testInventory(t, 1))
	s = NewSynchronizer(WithAuditor(auditor), WithRemediator(remediator), WithBackupFolder(other))
	_, err = s.Synchronize(context.Background(), inv, nil)
	assert.Error(t, err)

	assert.Empty(t, auditor.calls)
	assert.Empty(t, remediator.calls)
}

func TestSynchronize(t *testing.T) {
	inv := testInventory(t, 3)
	auditor := &fakeAuditor{
		statuses: map[string]map[drift.Domain]drift.Status{
			"sw-leaf-001": {drift.DomainACL: drift.StatusDrifted, drift.DomainBGP: drift.StatusDrifted},
			"sw-leaf-003": {drift.DomainVLAN: drift.StatusDrifted},
		},
	}
	remediator := &fakeRemediator{}
	s := NewSynchronizer(
		WithAuditor(auditor),
		WithRemediator(remediator),
		WithBackupFolder(backedUp(t, inv)),
		WithForce(true),
		WithMetrics(true),
	)

	report, err := s.Synchronize(context.Background(), inv, testVariables())
	require.NoError(t, err)
	assert.True(t, report.Success(), "%v", report.Failed())
	assert.ElementsMatch(t, []string{"sw-leaf-001/acl", "sw-leaf-001/bgp", "sw-leaf-003/vlan"}, remediator.calls)
	assert.Equal(t, []bool{true, true, true}, remediator.forced)

	first := report.Results[0]
	assert.Equal(t, StatusRemediated, first.Domain(drift.DomainACL).Status)
	assert.Equal(t, string(drift.StatusConverged), first.Domain(drift.DomainVLAN).Status)
	assert.Equal(t, StatusRemediated, first.Domain(drift.DomainBGP).Status)
	assert.Equal(t, rollout.OutcomeConfirmed, first.Domain(drift.DomainBGP).Rollout.Outcome)
	assert.Empty(t, first.Domain(drift.DomainBGP).Remaining)
}

func TestSynchronizeHaltsAfterRevert(t *testing.T) {
	inv := testInventory(t, 2)
	auditor := &fakeAuditor{
		statuses: map[string]map[drift.Domain]drift.Status{
			"sw-leaf-001": {drift.DomainACL: drift.StatusDrifted, drift.DomainVLAN: drift.StatusDrifted},
			"sw-leaf-002": {drift.DomainVLAN: drift.StatusDrifted},
		},
	}
	remediator := &fakeRemediator{outcomes: map[string]rollout.Outcome{
		"sw-leaf-001/acl": rollout.OutcomeRolledBack,
	}}
	s := NewSynchronizer(WithAuditor(auditor), WithRemediator(remediator), WithBackupFolder(backedUp(t, inv)))

	report, err := s.Synchronize(context.Background(), inv, testVariables())
	require.NoError(t, err)
	assert.False(t, report.Success())
	assert.Equal(t, []string{"sw-leaf-001"}, report.Failed())

	first := report.Results[0]
	assert.Equal(t, StatusRolledBack, first.Domain(drift.DomainACL).Status)
	assert.Equal(t, StatusFailed, first.Domain(drift.DomainVLAN).Status)
	assert.Equal(t, string(drift.StatusConverged), first.Domain(drift.DomainBGP).Status)
	assert.Error(t, first.Err)
	assert.NotContains(t, remediator.calls, "sw-leaf-001/vlan")

	// the other switch is unaffected
	assert.Equal(t, StatusRemediated, report.Results[1].Domain(drift.DomainVLAN).Status)
}

func TestSynchronizeStatuses(t *testing.T) {
	inv := testInventory(t, 4)
	statuses := map[string]map[drift.Domain]drift.Status{}
	for _, sw := range inv.Switches {
		statuses[sw.Hostname] = map[drift.Domain]drift.Status{drift.DomainBGP: drift.StatusDrifted}
	}
	remediator := &fakeRemediator{
		outcomes: map[string]rollout.Outcome{
			"sw-leaf-001/bgp": rollout.OutcomeUnknown,
			"sw-leaf-002/bgp": rollout.OutcomeUnreachable,
			"sw-leaf-003/bgp": rollout.OutcomeValidationFailed,
		},
		stuck: map[string]bool{"sw-leaf-004/bgp": true},
	}
	s := NewSynchronizer(WithAuditor(&fakeAuditor{statuses: statuses}), WithRemediator(remediator),
		WithBackupFolder(backedUp(t, inv)), WithDomains(drift.DomainBGP))

	report, err := s.Synchronize(context.Background(), inv, nil)
	require.NoError(t, err)
	want := []string{StatusUnknown, StatusUnreachable, StatusValidationFailed, StatusRemediationFailed}
	for i, res := range report.Results {
		require.Len(t, res.Domains, 1)
		assert.Equal(t, want[i], res.Domains[0].Status, res.Switch)
		assert.Error(t, res.Err)
	}
	assert.Equal(t, []string{"+ vlan 7 name=RVR_NMN"}, report.Results[3].Domains[0].Remaining)
	assert.Len(t, report.Failed(), 4)
}

func TestSynchronizeDryRun(t *testing.T) {
	inv := testInventory(t, 2)
	auditor := &fakeAuditor{
		statuses: map[string]map[drift.Domain]drift.Status{
			"sw-leaf-001": {drift.DomainVLAN: drift.StatusDrifted},
			"sw-leaf-002": {drift.DomainVLAN: drift.StatusDrifted},
		},
	}
	validator := &fakeValidator{reject: map[string]bool{"sw-leaf-002": true}}
	remediator := &fakeRemediator{}
	s := NewSynchronizer(WithAuditor(auditor), WithValidator(validator), WithRemediator(remediator), WithDryRun(true))

	// no backup is needed to validate
	report, err := s.Synchronize(context.Background(), inv, nil)
	require.NoError(t, err)
	assert.Empty(t, remediator.calls)
	assert.ElementsMatch(t, []string{"! vlan for sw-leaf-001\n", "! vlan for sw-leaf-002\n"}, validator.candidates)

	assert.Equal(t, StatusValidated, report.Results[0].Domain(drift.DomainVLAN).Status)
	rejected := report.Results[1].Domain(drift.DomainVLAN)
	assert.Equal(t, StatusValidationFailed, rejected.Status)
	var verr *rollout.ValidationError
	assert.ErrorAs(t, rejected.Err, &verr)
	assert.Equal(t, []string{"sw-leaf-002"}, report.Failed())
}

func TestSynchronizeCancelled(t *testing.T) {
	inv := testInventory(t, 1)
	auditor := &fakeAuditor{
		statuses: map[string]map[drift.Domain]drift.Status{"sw-leaf-001": {drift.DomainACL: drift.StatusDrifted}},
	}
	remediator := &fakeRemediator{}
	s := NewSynchronizer(WithAuditor(auditor), WithRemediator(remediator), WithBackupFolder(backedUp(t, inv)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := s.Synchronize(ctx, inv, nil)
	require.NoError(t, err)
	assert.Empty(t, remediator.calls)
	assert.Equal(t, StatusFailed, report.Results[0].Domain(drift.DomainACL).Status)
	assert.False(t, report.Success())
}

func TestOutcomeStatus(t *testing.T) {
	assert.Equal(t, StatusRemediated, outcomeStatus(rollout.OutcomeConfirmed))
	assert.Equal(t, StatusRolledBack, outcomeStatus(rollout.OutcomeRolledBack))
	assert.Equal(t, StatusFailed, outcomeStatus(rollout.OutcomeFailed))
	assert.Equal(t, StatusFailed, outcomeStatus("bogus"))
}

func TestEmptyReport(t *testing.T) {
	var r *Report
	assert.False(t, r.Success())
	assert.False(t, (&Report{}).Success())
	assert.False(t, (&SwitchResult{Switch: "sw"}).Succeeded())
}

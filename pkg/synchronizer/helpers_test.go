// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package synchronizer

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/rollout"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeAuditor answers DiffAll from a table of statuses per switch and domain.
type fakeAuditor struct {
	mu       sync.Mutex
	statuses map[string]map[drift.Domain]drift.Status
	errs     map[string]error
	calls    []string
}

func (a *fakeAuditor) DiffAll(ctx context.Context, sw *inventory.Switch, domains []drift.Domain, vars map[string]interface{}) ([]*drift.ConfigDomain, error) {
	a.mu.Lock()
	a.calls = append(a.calls, sw.Hostname)
	err := a.errs[sw.Hostname]
	a.mu.Unlock()
	if err != nil {
		var out []*drift.ConfigDomain
		for _, d := range domains {
			out = append(out, &drift.ConfigDomain{Switch: sw.Hostname, Domain: d, Status: drift.StatusIndeterminate})
		}
		return out, err
	}

	var out []*drift.ConfigDomain
	for _, d := range domains {
		status := drift.StatusConverged
		if st, ok := a.statuses[sw.Hostname][d]; ok {
			status = st
		}
		out = append(out, drifted(sw.Hostname, d, status))
	}
	return out, nil
}

// drifted builds a VLAN-style comparison with one missing record when status is drifted.
func drifted(hostname string, d drift.Domain, status drift.Status) *drift.ConfigDomain {
	cd := &drift.ConfigDomain{
		Switch:   hostname,
		Domain:   d,
		Vendor:   inventory.VendorAruba,
		Status:   status,
		Rendered: fmt.Sprintf("! %s for %s\n", d, hostname),
	}
	if status == drift.StatusDrifted {
		cd.Diff = drift.Diff{Added: []drift.Record{drift.VLAN{ID: 7, Name: "RVR_NMN"}}}
	}
	return cd
}

// fakeRemediator returns a scripted outcome per switch and domain; Confirmed by default.
type fakeRemediator struct {
	mu       sync.Mutex
	outcomes map[string]rollout.Outcome
	stuck    map[string]bool
	calls    []string
	forced   []bool
}

func key(hostname string, d drift.Domain) string {
	return hostname + "/" + string(d)
}

func (r *fakeRemediator) RemediateDrifted(ctx context.Context, sw *inventory.Switch, before *drift.ConfigDomain, vars map[string]interface{}, force bool) (*rollout.Remediation, error) {
	k := key(sw.Hostname, before.Domain)
	r.mu.Lock()
	r.calls = append(r.calls, k)
	r.forced = append(r.forced, force)
	outcome, ok := r.outcomes[k]
	stuck := r.stuck[k]
	r.mu.Unlock()
	if !ok {
		outcome = rollout.OutcomeConfirmed
	}

	rem := &rollout.Remediation{Switch: sw.Hostname, Domain: before.Domain, Before: before}
	rem.Rollout = &rollout.Result{Switch: sw.Hostname, Outcome: outcome}
	if outcome != rollout.OutcomeConfirmed {
		rem.Rollout.Err = errors.NewUnavailable("%s: %s", k, outcome)
		return rem, rem.Rollout.Err
	}
	if stuck {
		rem.After = before
		return rem, &rollout.RemediationError{Switch: sw.Hostname, Domain: before.Domain, Diff: before.Diff}
	}
	rem.After = drifted(sw.Hostname, before.Domain, drift.StatusConverged)
	return rem, nil
}

// fakeValidator accepts every candidate unless the switch is listed in reject.
type fakeValidator struct {
	mu         sync.Mutex
	reject     map[string]bool
	candidates []string
}

func (v *fakeValidator) Validate(ctx context.Context, sw *inventory.Switch, candidate string) *rollout.Result {
	v.mu.Lock()
	v.candidates = append(v.candidates, candidate)
	reject := v.reject[sw.Hostname]
	v.mu.Unlock()
	if reject {
		return &rollout.Result{Switch: sw.Hostname, Outcome: rollout.OutcomeValidationFailed,
			ValidationErrors: []string{"% Invalid input"},
			Err:              &rollout.ValidationError{Switch: sw.Hostname, Errors: []string{"% Invalid input"}}}
	}
	return &rollout.Result{Switch: sw.Hostname, Outcome: rollout.OutcomeValidated}
}

// fakeReader serves canned running configurations.
type fakeReader struct {
	configs map[string]string
}

func (f *fakeReader) Vendor(ctx context.Context, sw *inventory.Switch) (string, error) {
	return inventory.VendorAruba, nil
}

func (f *fakeReader) RunningConfig(ctx context.Context, sw *inventory.Switch) (string, error) {
	c, ok := f.configs[sw.Hostname]
	if !ok {
		return "", errors.NewUnavailable("%s unreachable", sw.Hostname)
	}
	return c, nil
}

func testInventory(t *testing.T, n int) *inventory.Inventory {
	t.Helper()
	var switches []*inventory.Switch
	for i := 1; i <= n; i++ {
		switches = append(switches, &inventory.Switch{
			Hostname: fmt.Sprintf("sw-leaf-%03d", i),
			IP:       fmt.Sprintf("10.252.0.%d", i+1),
			Vendor:   inventory.VendorAruba,
			Role:     "leaf",
		})
	}
	inv, err := inventory.New(switches...)
	require.NoError(t, err)
	return inv
}

func testVariables() *inventory.Variables {
	return &inventory.Variables{Global: map[string]interface{}{"nmn_vlan": 2}}
}

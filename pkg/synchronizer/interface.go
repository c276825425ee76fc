// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package synchronizer

import (
	"context"

	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/rollout"
)

// Auditor compares several domains of a switch against one read of its running configuration.
type Auditor interface {
	DiffAll(ctx context.Context, sw *inventory.Switch, domains []drift.Domain, vars map[string]interface{}) ([]*drift.ConfigDomain, error)
}

// Remediator corrects a drifted domain.
type Remediator interface {
	RemediateDrifted(ctx context.Context, sw *inventory.Switch, before *drift.ConfigDomain, vars map[string]interface{}, force bool) (*rollout.Remediation, error)
}

// Validator checks a candidate with the switch without applying it.
type Validator interface {
	Validate(ctx context.Context, sw *inventory.Switch, candidate string) *rollout.Result
}

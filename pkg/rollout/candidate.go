// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"fmt"
	"strings"

	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// removal writes the commands deleting observed records that are not desired
type removal struct {
	aclEntry func(e drift.ACLEntry) []string
	vlan     func(v drift.VLAN) []string
}

var removals = map[string]removal{
	inventory.VendorAruba: {
		aclEntry: func(e drift.ACLEntry) []string {
			return []string{"access-list ip " + e.List, fmt.Sprintf("    no %d", e.Seq)}
		},
		vlan: func(v drift.VLAN) []string {
			lines := []string{fmt.Sprintf("no vlan %d", v.ID)}
			if v.CIDR != "" {
				lines = append([]string{fmt.Sprintf("no interface vlan %d", v.ID)}, lines...)
			}
			return lines
		},
	},
	inventory.VendorDell: {
		aclEntry: func(e drift.ACLEntry) []string {
			return []string{"ip access-list " + e.List, fmt.Sprintf(" no seq %d", e.Seq)}
		},
		vlan: func(v drift.VLAN) []string {
			return []string{fmt.Sprintf("no interface vlan%d", v.ID)}
		},
	},
}

// Candidate builds the configuration that moves a drifted domain to its desired state: the
// commands removing unwanted records followed by the full desired text. A BGP instance that
// exists on the switch is removed and recreated rather than edited.
func Candidate(cd *drift.ConfigDomain) (string, error) {
	if cd == nil || cd.Status != drift.StatusDrifted {
		return "", errors.NewInvalid("only drifted domains can be remediated")
	}
	var lines []string
	switch cd.Domain {
	case drift.DomainBGP:
		if cd.Observed != nil && cd.Observed.BGP != nil {
			lines = append(lines, fmt.Sprintf("no router bgp %d", cd.Observed.BGP.ASN))
		}
	case drift.DomainACL, drift.DomainVLAN:
		rm, ok := removals[cd.Vendor]
		if !ok {
			return "", errors.NewNotSupported("no removal commands for vendor %s", cd.Vendor)
		}
		for _, r := range cd.Diff.Removed {
			switch rec := r.(type) {
			case drift.ACLEntry:
				lines = append(lines, rm.aclEntry(rec)...)
			case drift.VLAN:
				lines = append(lines, rm.vlan(rec)...)
			}
		}
	default:
		return "", errors.NewNotSupported("unknown domain %s", cd.Domain)
	}

	if len(lines) > 0 {
		lines = append(lines, "!")
	}
	text := strings.Join(lines, "\n")
	if text != "" {
		text += "\n"
	}
	text += cd.Rendered
	if strings.TrimSpace(text) == "" {
		return "", errors.NewInvalid("nothing to apply to %s for %s", cd.Switch, cd.Domain)
	}
	return text, nil
}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

// Package drift compares the intended configuration of a switch with its running configuration.
package drift

import (
	"fmt"
	"sort"
	"strings"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// Domain is a configuration area compared independently of the others.
type Domain string

// Configuration domains
const (
	DomainACL  Domain = "acl"
	DomainVLAN Domain = "vlan"
	DomainBGP  Domain = "bgp"
)

// Domains lists every supported domain in reconciliation order.
var Domains = []Domain{DomainACL, DomainVLAN, DomainBGP}

// ParseDomain converts a name into a Domain.
func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains {
		if string(d) == strings.ToLower(s) {
			return d, nil
		}
	}
	return "", errors.NewInvalid("unknown configuration domain %q", s)
}

// Record is a single structural configuration entry.
type Record interface {
	Key() string
	String() string
}

// ACLEntry is one rule of an access list. The sequence number is part of its identity.
type ACLEntry struct {
	List      string
	Seq       int
	Action    string
	Predicate string
}

// Key identifies the entry by list, position and content.
func (e ACLEntry) Key() string {
	return fmt.Sprintf("%s/%05d %s %s", e.List, e.Seq, e.Action, e.Predicate)
}

func (e ACLEntry) String() string {
	return fmt.Sprintf("access-list %s %d %s %s", e.List, e.Seq, e.Action, e.Predicate)
}

// VLAN is a VLAN and its routed interface settings.
type VLAN struct {
	ID       int
	Name     string
	CIDR     string
	MTU      int
	OSPFArea string
}

// Key identifies the VLAN by id.
func (v VLAN) Key() string {
	return fmt.Sprintf("vlan %04d", v.ID)
}

func (v VLAN) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vlan %d", v.ID)
	if v.Name != "" {
		fmt.Fprintf(&b, " name=%s", v.Name)
	}
	if v.CIDR != "" {
		fmt.Fprintf(&b, " ip=%s", v.CIDR)
	}
	if v.MTU != 0 {
		fmt.Fprintf(&b, " mtu=%d", v.MTU)
	}
	if v.OSPFArea != "" {
		fmt.Fprintf(&b, " ospf-area=%s", v.OSPFArea)
	}
	return b.String()
}

// BGPPeer is a BGP neighbor.
type BGPPeer struct {
	Address    string
	RemoteAS   uint32
	AdminState string
	RouteMaps  []string
}

// Key identifies the peer by address.
func (p BGPPeer) Key() string {
	return "neighbor " + p.Address
}

func (p BGPPeer) String() string {
	s := fmt.Sprintf("neighbor %s remote-as %d %s", p.Address, p.RemoteAS, p.AdminState)
	if len(p.RouteMaps) > 0 {
		s += " route-maps=" + strings.Join(p.RouteMaps, ",")
	}
	return s
}

func (p BGPPeer) equal(o BGPPeer) bool {
	if p.RemoteAS != o.RemoteAS || p.AdminState != o.AdminState || len(p.RouteMaps) != len(o.RouteMaps) {
		return false
	}
	for i := range p.RouteMaps {
		if p.RouteMaps[i] != o.RouteMaps[i] {
			return false
		}
	}
	return true
}

// BGPInstance is the local BGP process.
type BGPInstance struct {
	ASN      uint32
	RouterID string
	Peers    map[string]*BGPPeer
}

// Key identifies the process; a switch runs at most one.
func (b BGPInstance) Key() string {
	return "router bgp"
}

func (b BGPInstance) String() string {
	if b.RouterID == "" {
		return fmt.Sprintf("router bgp %d", b.ASN)
	}
	return fmt.Sprintf("router bgp %d router-id %s", b.ASN, b.RouterID)
}

// Records is the structural form of one domain of a configuration.
type Records struct {
	Domain Domain
	ACL    []ACLEntry
	VLANs  map[int]*VLAN
	BGP    *BGPInstance
}

// Len counts the records.
func (r *Records) Len() int {
	if r == nil {
		return 0
	}
	n := len(r.ACL) + len(r.VLANs)
	if r.BGP != nil {
		n += 1 + len(r.BGP.Peers)
	}
	return n
}

// Change is a record present on both sides with different content.
type Change struct {
	Key      string
	Desired  Record
	Observed Record
}

func (c Change) String() string {
	return fmt.Sprintf("%s: want %q, have %q", c.Key, c.Desired, c.Observed)
}

// Diff is the structural difference between desired and observed records.
type Diff struct {
	Added   []Record
	Removed []Record
	Changed []Change
}

// Empty reports whether there is no difference.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Count returns the number of differing records.
func (d Diff) Count() int {
	return len(d.Added) + len(d.Removed) + len(d.Changed)
}

// Lines renders the diff one record per line, prefixed with +, - or ~.
func (d Diff) Lines() []string {
	var out []string
	for _, r := range d.Added {
		out = append(out, "+ "+r.String())
	}
	for _, r := range d.Removed {
		out = append(out, "- "+r.String())
	}
	for _, c := range d.Changed {
		out = append(out, "~ "+c.String())
	}
	return out
}

func (d *Diff) sort() {
	sort.SliceStable(d.Added, func(i, j int) bool { return d.Added[i].Key() < d.Added[j].Key() })
	sort.SliceStable(d.Removed, func(i, j int) bool { return d.Removed[i].Key() < d.Removed[j].Key() })
	sort.SliceStable(d.Changed, func(i, j int) bool { return d.Changed[i].Key < d.Changed[j].Key })
}

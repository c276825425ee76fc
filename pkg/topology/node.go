// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

// Package topology builds the intended switch fabric from port-capacity-aware device models.
package topology

import (
	"fmt"
)

// Architecture is the role of a device in the fabric.
type Architecture string

// Architecture tags known to the builder.
const (
	ArchSpine   Architecture = "spine"
	ArchLeaf    Architecture = "leaf"
	ArchLeafBMC Architecture = "leaf-bmc"
	ArchCDU     Architecture = "cdu"
	ArchEdge    Architecture = "edge"
	ArchServer  Architecture = "server"
)

// Port is a physical port owned by exactly one Node. A Port holds at most one Link.
type Port struct {
	Index int
	// Speed is the nominal speed in Gb/s.
	Speed int
	// Speeds lists additional speeds the port can negotiate down (or break out) to.
	Speeds []int

	owner *Node
	link  *Link
}

// Link returns the link occupying the port, or nil.
func (p *Port) Link() *Link {
	return p.link
}

// Free reports whether no link occupies the port.
func (p *Port) Free() bool {
	return p.link == nil
}

// Node returns the node owning the port.
func (p *Port) Node() *Node {
	return p.owner
}

// Supports reports whether the port can carry a link at the given speed.
func (p *Port) Supports(speed int) bool {
	if p.Speed == speed {
		return true
	}
	for _, s := range p.Speeds {
		if s == speed {
			return true
		}
	}
	return false
}

// UplinkPolicy is a node's declared need for northbound connections.
type UplinkPolicy struct {
	Target Architecture `yaml:"target"`
	Speed  int          `yaml:"speed"`
	Count  int          `yaml:"count"`
}

// ConnectionRequirement is an outstanding uplink need of a Node.
type ConnectionRequirement struct {
	Source *Node
	Target Architecture
	Speed  int
	Count  int
}

func (r ConnectionRequirement) String() string {
	return fmt.Sprintf("%s needs %d x %dG to %s", r.Source.ID, r.Count, r.Speed, r.Target)
}

// Node is a switch, server or placeholder device in the fabric.
type Node struct {
	ID      string
	Arch    Architecture
	Model   string
	Uplinks []UplinkPolicy

	ports []*Port
	links []*Link
}

// NewNode creates a node. Ports are created from the given speeds, indexed from 1.
func NewNode(id string, arch Architecture, portSpeeds ...int) *Node {
	n := &Node{ID: id, Arch: arch}
	for _, speed := range portSpeeds {
		n.AddPort(speed)
	}
	return n
}

// AddPort appends a port to the node and returns it.
func (n *Node) AddPort(speed int, alternates ...int) *Port {
	p := &Port{
		Index:  len(n.ports) + 1,
		Speed:  speed,
		Speeds: alternates,
		owner:  n,
	}
	n.ports = append(n.ports, p)
	return p
}

// Ports returns the node's ports in index order.
func (n *Node) Ports() []*Port {
	return n.ports
}

// Port returns the port with the given index, or nil.
func (n *Node) Port(index int) *Port {
	if index < 1 || index > len(n.ports) {
		return nil
	}
	return n.ports[index-1]
}

// Links returns the links the node participates in.
func (n *Node) Links() []*Link {
	return n.links
}

// FreePorts counts the free ports able to carry the given speed.
func (n *Node) FreePorts(speed int) int {
	count := 0
	for _, p := range n.ports {
		if p.Free() && p.Supports(speed) {
			count++
		}
	}
	return count
}

// OccupiedPorts counts ports holding a link.
func (n *Node) OccupiedPorts() int {
	count := 0
	for _, p := range n.ports {
		if !p.Free() {
			count++
		}
	}
	return count
}

func (n *Node) firstFreePort(speed int) *Port {
	for _, p := range n.ports {
		if p.Free() && p.Supports(speed) {
			return p
		}
	}
	return nil
}

// Neighbors returns the nodes linked to this node, in link order.
func (n *Node) Neighbors() []*Node {
	var out []*Node
	for _, l := range n.links {
		out = append(out, l.Peer(n).Node)
	}
	return out
}

// Requirements returns the node's outstanding uplink needs: the uplink policy count minus
// the links already established to that architecture at that speed.
func (n *Node) Requirements() []ConnectionRequirement {
	used := map[UplinkPolicy]int{}
	for _, l := range n.links {
		peer := l.Peer(n).Node
		used[UplinkPolicy{Target: peer.Arch, Speed: l.Speed}]++
	}

	var reqs []ConnectionRequirement
	for _, u := range n.Uplinks {
		key := UplinkPolicy{Target: u.Target, Speed: u.Speed}
		remaining := u.Count - used[key]
		if remaining <= 0 {
			used[key] -= u.Count
			continue
		}
		used[key] = 0
		reqs = append(reqs, ConnectionRequirement{
			Source: n,
			Target: u.Target,
			Speed:  u.Speed,
			Count:  remaining,
		})
	}
	return reqs
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.ID, n.Arch)
}

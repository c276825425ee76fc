// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

var (
	// ErrPortExhausted is returned when a node has no free port at the requested speed
	ErrPortExhausted = errors.NewInvalid("no free port at requested speed")

	// ErrPortInUse is returned when an explicitly chosen port already holds a link
	ErrPortInUse = errors.NewInvalid("port already holds a link")

	// ErrSpeedMismatch is returned when a port cannot carry the link speed
	ErrSpeedMismatch = errors.NewInvalid("port does not support link speed")

	// ErrForeignPort is returned when a port does not belong to the given node
	ErrForeignPort = errors.NewInvalid("port does not belong to node")

	// ErrSelfLink is returned when both endpoints are the same node
	ErrSelfLink = errors.NewInvalid("cannot link a node to itself")
)

// Endpoint is one side of a Link.
type Endpoint struct {
	Node *Node
	Port *Port
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Node.ID, e.Port.Index)
}

// Link is an unordered pair of endpoints and a rated speed. Neither node owns the link.
type Link struct {
	A     Endpoint
	B     Endpoint
	Speed int
}

// Peer returns the endpoint opposite to n.
func (l *Link) Peer(n *Node) Endpoint {
	if l.A.Node == n {
		return l.B
	}
	return l.A
}

// Local returns the endpoint belonging to n.
func (l *Link) Local(n *Node) Endpoint {
	if l.A.Node == n {
		return l.A
	}
	return l.B
}

func (l *Link) String() string {
	return fmt.Sprintf("%s <-%dG-> %s", l.A, l.Speed, l.B)
}

func checkEndpoint(n *Node, p *Port, speed int) error {
	if p == nil {
		return fmt.Errorf("%s: %w", n.ID, ErrPortExhausted)
	}
	if p.owner != n {
		return fmt.Errorf("%s port %d: %w", n.ID, p.Index, ErrForeignPort)
	}
	if !p.Free() {
		return fmt.Errorf("%s port %d: %w", n.ID, p.Index, ErrPortInUse)
	}
	if !p.Supports(speed) {
		return fmt.Errorf("%s port %d (%dG) at %dG: %w", n.ID, p.Index, p.Speed, speed, ErrSpeedMismatch)
	}
	return nil
}

// AllocateLink links port pa of node a to port pb of node b at the given speed. Both sides are
// checked before either is mutated, so the link is recorded on both nodes or on neither.
func AllocateLink(a *Node, pa *Port, b *Node, pb *Port, speed int) (*Link, error) {
	if a == b {
		return nil, ErrSelfLink
	}
	if err := checkEndpoint(a, pa, speed); err != nil {
		return nil, err
	}
	if err := checkEndpoint(b, pb, speed); err != nil {
		return nil, err
	}

	l := &Link{
		A:     Endpoint{Node: a, Port: pa},
		B:     Endpoint{Node: b, Port: pb},
		Speed: speed,
	}
	pa.link = l
	pb.link = l
	a.links = append(a.links, l)
	b.links = append(b.links, l)
	return l, nil
}

// Connect links a and b using the first free port able to carry the speed on each side.
func Connect(a, b *Node, speed int) (*Link, error) {
	return AllocateLink(a, a.firstFreePort(speed), b, b.firstFreePort(speed), speed)
}

// ReleaseLink removes l from both endpoints. A link not recorded on both sides is left alone.
func ReleaseLink(l *Link) error {
	if l == nil {
		return nil
	}
	if l.A.Port.link != l || l.B.Port.link != l {
		return errors.NewInvalid("link %s is not recorded on both endpoints", l)
	}
	l.A.Port.link = nil
	l.B.Port.link = nil
	l.A.Node.links = removeLink(l.A.Node.links, l)
	l.B.Node.links = removeLink(l.B.Node.links, l)
	return nil
}

func removeLink(links []*Link, l *Link) []*Link {
	out := links[:0]
	for _, x := range links {
		if x != l {
			out = append(out, x)
		}
	}
	return out
}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package drift

import (
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// DefaultVLAN is present on every switch and never compared.
const DefaultVLAN = 1

// line is one non-blank line of configuration text
type line struct {
	num    int
	indent int
	fields []string
}

func (l line) text() string {
	return strings.Join(l.fields, " ")
}

// block is a top level statement followed by its indented body
type block struct {
	head line
	body []line
}

// splitBlocks groups configuration text into top level blocks. A "!" in the first column or
// a new unindented line closes the current block. Indented "!" separators are skipped.
func splitBlocks(text string) []*block {
	var blocks []*block
	var cur *block
	for i, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r \t")
		trimmed := strings.TrimLeft(raw, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(raw) - len(trimmed)
		if strings.HasPrefix(trimmed, "!") {
			if indent == 0 {
				cur = nil
			}
			continue
		}
		l := line{num: i + 1, indent: indent, fields: strings.Fields(trimmed)}
		if l.indent == 0 {
			cur = &block{head: l}
			blocks = append(blocks, cur)
			continue
		}
		if cur != nil {
			cur.body = append(cur.body, l)
		}
	}
	return blocks
}

func malformed(l line, format string, args ...interface{}) error {
	args = append([]interface{}{l.num, l.text()}, args...)
	return errors.NewInvalid("line %d %q: "+format, args...)
}

// Parse extracts the records of one domain from configuration text in either the AOS-CX or
// the OS10 dialect. Text outside the domain is ignored.
func Parse(domain Domain, text string) (*Records, error) {
	blocks := splitBlocks(text)
	switch domain {
	case DomainACL:
		return parseACL(blocks)
	case DomainVLAN:
		return parseVLAN(blocks)
	case DomainBGP:
		return parseBGP(blocks)
	default:
		return nil, errors.NewNotSupported("unknown configuration domain %s", domain)
	}
}

// aclName recognises "access-list ip NAME" and "ip access-list NAME"
func aclName(f []string) (string, bool) {
	switch {
	case len(f) == 3 && f[0] == "access-list" && f[1] == "ip":
		return f[2], true
	case len(f) == 3 && f[0] == "ip" && f[1] == "access-list":
		return f[2], true
	}
	return "", false
}

func parseACL(blocks []*block) (*Records, error) {
	rec := &Records{Domain: DomainACL}
	for _, b := range blocks {
		name, ok := aclName(b.head.fields)
		if !ok {
			continue
		}
		var entries []ACLEntry
		for i, l := range b.body {
			f := l.fields
			switch f[0] {
			case "comment", "remark", "description":
				continue
			case "seq":
				if len(f) < 2 {
					return nil, malformed(l, "missing sequence number")
				}
				f = f[1:]
			}
			if len(f) > 1 && (f[1] == "comment" || f[1] == "remark") {
				continue
			}
			seq := (i + 1) * 10
			if n, err := strconv.Atoi(f[0]); err == nil {
				seq = n
				f = f[1:]
			} else if l.fields[0] == "seq" {
				return nil, malformed(l, "invalid sequence number")
			}
			if len(f) < 2 {
				return nil, malformed(l, "incomplete access list entry")
			}
			if f[0] != "permit" && f[0] != "deny" {
				return nil, malformed(l, "unknown action %s", f[0])
			}
			pred := append([]string{}, f[1:]...)
			if pred[0] == "ip" {
				pred[0] = "any"
			}
			entries = append(entries, ACLEntry{List: name, Seq: seq, Action: f[0], Predicate: strings.Join(pred, " ")})
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
		rec.ACL = append(rec.ACL, entries...)
	}
	return rec, nil
}

// vlanIDs expands "10", "10,20" and "10-12" forms
func vlanIDs(l line, s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		lo, hi := part, part
		if i := strings.Index(part, "-"); i > 0 {
			lo, hi = part[:i], part[i+1:]
		}
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, malformed(l, "invalid vlan id %s", lo)
		}
		b, err := strconv.Atoi(hi)
		if err != nil || b < a {
			return nil, malformed(l, "invalid vlan range %s", part)
		}
		for id := a; id <= b; id++ {
			if id < 1 || id > 4094 {
				return nil, malformed(l, "vlan id %d out of range", id)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// vlanInterface recognises "interface vlan N" and "interface vlanN"
func vlanInterface(l line) (string, bool) {
	f := l.fields
	if len(f) == 3 && f[0] == "interface" && f[1] == "vlan" {
		return f[2], true
	}
	if len(f) == 2 && f[0] == "interface" && strings.HasPrefix(f[1], "vlan") && len(f[1]) > 4 {
		return f[1][4:], true
	}
	return "", false
}

func parseVLAN(blocks []*block) (*Records, error) {
	rec := &Records{Domain: DomainVLAN, VLANs: map[int]*VLAN{}}
	get := func(id int) *VLAN {
		v, ok := rec.VLANs[id]
		if !ok {
			v = &VLAN{ID: id}
			rec.VLANs[id] = v
		}
		return v
	}

	for _, b := range blocks {
		f := b.head.fields
		if f[0] == "vlan" && len(f) == 2 {
			ids, err := vlanIDs(b.head, f[1])
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				v := get(id)
				for _, l := range b.body {
					if (l.fields[0] == "name" || l.fields[0] == "description") && len(l.fields) > 1 {
						v.Name = strings.Join(l.fields[1:], " ")
					}
				}
			}
			continue
		}

		s, ok := vlanInterface(b.head)
		if !ok {
			continue
		}
		id, err := strconv.Atoi(s)
		if err != nil || id < 1 || id > 4094 {
			return nil, malformed(b.head, "invalid vlan interface")
		}
		v := get(id)
		for _, l := range b.body {
			if err := parseVLANInterfaceLine(v, l); err != nil {
				return nil, err
			}
		}
	}
	delete(rec.VLANs, DefaultVLAN)
	return rec, nil
}

func parseVLANInterfaceLine(v *VLAN, l line) error {
	f := l.fields
	switch {
	case f[0] == "description" && len(f) > 1:
		if v.Name == "" {
			v.Name = strings.Join(f[1:], " ")
		}
	case f[0] == "ip" && len(f) >= 2 && f[1] == "address":
		// ip address <cidr> [secondary]; dhcp and other forms carry no subnet
		if len(f) < 3 || !strings.Contains(f[2], "/") {
			return nil
		}
		if _, _, err := net.ParseCIDR(f[2]); err != nil {
			return malformed(l, "invalid address %s", f[2])
		}
		if len(f) > 3 && f[3] == "secondary" {
			return nil
		}
		v.CIDR = f[2]
	case f[0] == "mtu" || (f[0] == "ip" && len(f) >= 2 && f[1] == "mtu"):
		s := f[len(f)-1]
		mtu, err := strconv.Atoi(s)
		if err != nil || len(f) > 3 {
			return malformed(l, "invalid mtu")
		}
		v.MTU = mtu
	case f[0] == "ip" && len(f) >= 2 && f[1] == "ospf":
		// only "ip ospf <process> area <area>" is compared
		if len(f) == 5 && f[3] == "area" {
			v.OSPFArea = f[4]
		}
	}
	return nil
}

// bgpParser tracks neighbor and vrf context across the lines of a router bgp block
type bgpParser struct {
	inst *BGPInstance

	peer       *BGPPeer
	peerIndent int

	vrfIndent int
	inVRF     bool
}

func parseBGP(blocks []*block) (*Records, error) {
	rec := &Records{Domain: DomainBGP}
	for _, b := range blocks {
		f := b.head.fields
		if len(f) < 2 || f[0] != "router" || f[1] != "bgp" {
			continue
		}
		if rec.BGP != nil {
			return nil, malformed(b.head, "more than one bgp instance")
		}
		if len(f) != 3 {
			return nil, malformed(b.head, "expected router bgp <asn>")
		}
		asn, err := parseASN(f[2])
		if err != nil {
			return nil, malformed(b.head, "invalid asn %s", f[2])
		}
		p := &bgpParser{inst: &BGPInstance{ASN: asn, Peers: map[string]*BGPPeer{}}}
		for _, l := range b.body {
			if err := p.parse(l); err != nil {
				return nil, err
			}
		}
		for _, peer := range p.inst.Peers {
			sort.Strings(peer.RouteMaps)
		}
		rec.BGP = p.inst
	}
	return rec, nil
}

func parseASN(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	return uint32(n), err
}

func (p *bgpParser) neighbor(l line, addr string) (*BGPPeer, error) {
	if net.ParseIP(addr) == nil {
		return nil, malformed(l, "invalid neighbor address %s", addr)
	}
	peer, ok := p.inst.Peers[addr]
	if !ok {
		peer = &BGPPeer{Address: addr, AdminState: "up"}
		p.inst.Peers[addr] = peer
	}
	return peer, nil
}

func (p *bgpParser) parse(l line) error {
	f := l.fields

	if p.inVRF {
		if l.indent > p.vrfIndent && f[0] != "exit-vrf" {
			return nil
		}
		p.inVRF = false
		if f[0] == "exit-vrf" {
			return nil
		}
	}
	if p.peer != nil && l.indent <= p.peerIndent {
		p.peer = nil
	}

	switch f[0] {
	case "vrf":
		p.inVRF, p.vrfIndent, p.peer = true, l.indent, nil
		return nil
	case "bgp", "router-id":
		if f[0] == "bgp" && (len(f) < 2 || f[1] != "router-id") {
			return nil
		}
		addr := f[len(f)-1]
		if net.ParseIP(addr) == nil || len(f) > 3 {
			return malformed(l, "invalid router-id")
		}
		p.inst.RouterID = addr
		return nil
	case "neighbor":
		if len(f) < 2 {
			return malformed(l, "neighbor without address")
		}
		peer, err := p.neighbor(l, f[1])
		if err != nil {
			return err
		}
		if len(f) == 2 {
			p.peer, p.peerIndent = peer, l.indent
			return nil
		}
		return applyPeer(peer, l, f[2:])
	case "address-family", "exit-address-family", "exit":
		return nil
	}

	if p.peer != nil {
		return applyPeer(p.peer, l, f)
	}
	return nil
}

// applyPeer handles neighbor attributes in both the flat and the nested form
func applyPeer(peer *BGPPeer, l line, f []string) error {
	switch f[0] {
	case "remote-as":
		if len(f) != 2 {
			return malformed(l, "expected remote-as <asn>")
		}
		asn, err := parseASN(f[1])
		if err != nil {
			return malformed(l, "invalid remote-as %s", f[1])
		}
		peer.RemoteAS = asn
	case "shutdown":
		peer.AdminState = "down"
	case "no":
		if len(f) > 1 && f[1] == "shutdown" {
			peer.AdminState = "up"
		}
	case "route-map":
		if len(f) != 3 || (f[2] != "in" && f[2] != "out") {
			return malformed(l, "expected route-map <name> in|out")
		}
		peer.RouteMaps = append(peer.RouteMaps, f[1]+" "+f[2])
	}
	return nil
}

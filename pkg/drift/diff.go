// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package drift

// Compare computes the difference between desired and observed records of a domain.
// Either side may be nil, meaning no records.
func Compare(domain Domain, desired, observed *Records) Diff {
	if desired == nil {
		desired = &Records{Domain: domain}
	}
	if observed == nil {
		observed = &Records{Domain: domain}
	}

	var d Diff
	switch domain {
	case DomainACL:
		d = compareACL(desired.ACL, observed.ACL)
	case DomainVLAN:
		d = compareVLAN(desired.VLANs, observed.VLANs)
	case DomainBGP:
		d = compareBGP(desired.BGP, observed.BGP)
	}
	d.sort()
	return d
}

// compareACL is an ordered set difference: an entry that moved to another sequence number is
// reported as removed at the old position and added at the new one.
func compareACL(desired, observed []ACLEntry) Diff {
	var d Diff
	have := make(map[string]bool, len(observed))
	for _, e := range observed {
		have[e.Key()] = true
	}
	want := make(map[string]bool, len(desired))
	for _, e := range desired {
		want[e.Key()] = true
		if !have[e.Key()] {
			d.Added = append(d.Added, e)
		}
	}
	for _, e := range observed {
		if !want[e.Key()] {
			d.Removed = append(d.Removed, e)
		}
	}
	return d
}

func compareVLAN(desired, observed map[int]*VLAN) Diff {
	var d Diff
	for id, w := range desired {
		h, ok := observed[id]
		switch {
		case !ok:
			d.Added = append(d.Added, *w)
		case *w != *h:
			d.Changed = append(d.Changed, Change{Key: w.Key(), Desired: *w, Observed: *h})
		}
	}
	for id, h := range observed {
		if _, ok := desired[id]; !ok {
			d.Removed = append(d.Removed, *h)
		}
	}
	return d
}

func compareBGP(desired, observed *BGPInstance) Diff {
	var d Diff
	switch {
	case desired == nil && observed == nil:
		return d
	case observed == nil:
		d.Added = append(d.Added, *desired)
		for _, p := range desired.Peers {
			d.Added = append(d.Added, *p)
		}
		return d
	case desired == nil:
		d.Removed = append(d.Removed, *observed)
		for _, p := range observed.Peers {
			d.Removed = append(d.Removed, *p)
		}
		return d
	}

	if desired.ASN != observed.ASN || desired.RouterID != observed.RouterID {
		d.Changed = append(d.Changed, Change{Key: desired.Key(), Desired: *desired, Observed: *observed})
	}
	for addr, w := range desired.Peers {
		h, ok := observed.Peers[addr]
		switch {
		case !ok:
			d.Added = append(d.Added, *w)
		case !w.equal(*h):
			d.Changed = append(d.Changed, Change{Key: w.Key(), Desired: *w, Observed: *h})
		}
	}
	for addr, h := range observed.Peers {
		if _, ok := desired.Peers[addr]; !ok {
			d.Removed = append(d.Removed, *h)
		}
	}
	return d
}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"
	"testing"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFactory builds nodes with a fixed number of 100G ports
type testFactory struct {
	ports   int
	created int
}

func (f *testFactory) NewNode(arch Architecture) (*Node, error) {
	if arch != ArchSpine && arch != ArchLeaf {
		return nil, errors.NewNotFound("no node model for architecture %s", arch)
	}
	f.created++
	n := &Node{ID: fmt.Sprintf("%s-%d", arch, f.created), Arch: arch}
	for i := 0; i < f.ports; i++ {
		n.AddPort(100)
	}
	return n, nil
}

func newLower(id string, uplinks ...UplinkPolicy) *Node {
	n := NewNode(id, ArchLeaf, 100, 100, 25, 25)
	n.Uplinks = uplinks
	return n
}

var spineUplink = UplinkPolicy{Target: ArchSpine, Speed: 100, Count: 1}

// checkInvariants verifies port conservation and bidirectionality across a set of nodes
func checkInvariants(t *testing.T, nodes ...*Node) {
	for _, n := range nodes {
		assert.LessOrEqual(t, n.OccupiedPorts(), len(n.Ports()))
		assert.Equal(t, len(n.Links()), n.OccupiedPorts(), "node %s", n.ID)
		for _, l := range n.Links() {
			local := l.Local(n)
			peer := l.Peer(n)
			assert.Same(t, l, local.Port.Link())
			assert.Same(t, l, peer.Port.Link())
			assert.Contains(t, peer.Node.Links(), l)
		}
	}
}

func TestBuildLayerFirstFitShares(t *testing.T) {
	factory := &testFactory{ports: 8}
	a := newLower("leaf-a", spineUplink)
	b := newLower("leaf-b", spineUplink)

	layer, err := NewBuilder(factory).BuildLayer([]*Node{a, b}, 0)
	require.NoError(t, err)
	require.Len(t, layer, 1)

	spine := layer[0]
	assert.Equal(t, ArchSpine, spine.Arch)
	assert.Equal(t, []*Node{a, b}, spine.Neighbors())
	assert.Equal(t, 1, factory.created)
	checkInvariants(t, spine, a, b)
}

func TestBuildLayerExhaustedForcesCreation(t *testing.T) {
	factory := &testFactory{ports: 8}
	existing := NewNode("spine-existing", ArchSpine, 100, 100)
	filler := NewNode("filler", ArchServer, 100)
	_, err := Connect(existing, filler, 100)
	require.NoError(t, err)
	require.Equal(t, 1, existing.FreePorts(100))

	a := newLower("leaf-a", spineUplink)
	b := newLower("leaf-b", spineUplink)

	layer, err := NewBuilder(factory, WithLayer(existing)).BuildLayer([]*Node{a, b}, 0)
	require.NoError(t, err)
	require.Len(t, layer, 2)

	assert.Same(t, existing, layer[0])
	assert.Equal(t, 0, existing.FreePorts(100))
	assert.Equal(t, []*Node{a}, layer[0].Neighbors()[1:])
	assert.Equal(t, []*Node{b}, layer[1].Neighbors())
	checkInvariants(t, existing, layer[1], a, b, filler)
}

func TestBuildLayerReserve(t *testing.T) {
	factory := &testFactory{ports: 2}
	a := newLower("leaf-a", spineUplink)
	b := newLower("leaf-b", spineUplink)

	// the first spine keeps one port in reserve, so the second leaf needs a new spine
	layer, err := NewBuilder(factory).BuildLayer([]*Node{a, b}, 1)
	require.NoError(t, err)
	assert.Len(t, layer, 2)
}

func TestBuildLayerStopsAfterFirstSuccess(t *testing.T) {
	factory := &testFactory{ports: 8}
	n := newLower("leaf-a", spineUplink, UplinkPolicy{Target: ArchSpine, Speed: 100, Count: 1})
	require.Len(t, n.Requirements(), 2)

	builder := NewBuilder(factory)
	layer, err := builder.BuildLayer([]*Node{n}, 0)
	require.NoError(t, err)
	assert.Len(t, layer, 1)
	assert.Len(t, n.Links(), 1)

	// a second call continues the same layer
	layer, err = builder.BuildLayer([]*Node{n}, 0)
	require.NoError(t, err)
	assert.Len(t, layer, 1)
	assert.Len(t, n.Links(), 2)
	assert.Empty(t, n.Requirements())
	checkInvariants(t, n, layer[0])
}

func TestBuildLayerUnknownArchitecture(t *testing.T) {
	factory := &testFactory{ports: 8}
	bad := newLower("leaf-bad", UplinkPolicy{Target: ArchEdge, Speed: 100, Count: 1}, spineUplink)
	good := newLower("leaf-good", spineUplink)

	layer, err := NewBuilder(factory).BuildLayer([]*Node{bad, good}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaf-bad")
	assert.Contains(t, err.Error(), "no node model for architecture edge")

	// the failed requirement does not block the next requirement or the next node
	require.Len(t, layer, 1)
	assert.Equal(t, []*Node{bad, good}, layer[0].Neighbors())
}

func TestBuildLayerLowerExhausted(t *testing.T) {
	factory := &testFactory{ports: 8}
	n := NewNode("leaf-full", ArchLeaf, 25)
	n.Uplinks = []UplinkPolicy{spineUplink}

	layer, err := NewBuilder(factory).BuildLayer([]*Node{n}, 0)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPortExhausted)
	assert.Empty(t, layer)
	assert.Empty(t, n.Links())
}

func TestSatisfy(t *testing.T) {
	factory := &testFactory{ports: 4}
	var lower []*Node
	for i := 0; i < 3; i++ {
		lower = append(lower, newLower(fmt.Sprintf("leaf-%d", i), UplinkPolicy{Target: ArchSpine, Speed: 100, Count: 2}))
	}

	layer, err := NewBuilder(factory).Satisfy(lower, 0, 10)
	require.NoError(t, err)
	assert.Len(t, layer, 2)
	for _, n := range lower {
		assert.Empty(t, n.Requirements())
		assert.Len(t, n.Links(), 2)
	}
	checkInvariants(t, append(layer, lower...)...)
}

func TestBuildLayerDeterministic(t *testing.T) {
	build := func() []string {
		factory := &testFactory{ports: 3}
		var lower []*Node
		for i := 0; i < 5; i++ {
			lower = append(lower, newLower(fmt.Sprintf("leaf-%d", i), spineUplink))
		}
		layer, err := NewBuilder(factory).BuildLayer(lower, 0)
		require.NoError(t, err)
		var out []string
		for _, n := range layer {
			for _, l := range n.Links() {
				out = append(out, l.String())
			}
		}
		return out
	}
	assert.Equal(t, build(), build())
}

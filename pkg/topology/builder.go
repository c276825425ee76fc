// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/onosproject/onos-lib-go/pkg/logging"
)

var log = logging.GetLogger("topology")

// Builder greedily constructs one layer of the fabric above a set of lower nodes. The working
// layer persists across calls, so BuildLayer may be invoked again to satisfy remaining needs.
type Builder struct {
	factory NodeFactory
	layer   []*Node
}

// BuilderOption is for options passed when creating a new builder
type BuilderOption func(b *Builder)

// WithLayer seeds the working layer with existing nodes, scanned before any created ones
func WithLayer(nodes ...*Node) BuilderOption {
	return func(b *Builder) {
		b.layer = append(b.layer, nodes...)
	}
}

// NewBuilder creates a builder with an empty working layer
func NewBuilder(factory NodeFactory, opts ...BuilderOption) *Builder {
	b := &Builder{factory: factory}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Layer returns the working layer in creation order.
func (b *Builder) Layer() []*Node {
	return b.layer
}

// match returns the first layer member, in creation order, of the target architecture with more
// than reserve free ports at the required speed. First fit, never best fit.
func (b *Builder) match(req ConnectionRequirement, reserve int) *Node {
	for _, n := range b.layer {
		if n.Arch == req.Target && n.FreePorts(req.Speed) > reserve {
			return n
		}
	}
	return nil
}

// BuildLayer links every lower node to the working layer. For each lower node the requirements
// are tried in order; the first one satisfied, by an existing member or by a freshly created
// node, ends processing of that lower node for this call. Remaining requirements are left for a
// later call. Factory failures are collected and returned alongside the layer.
func (b *Builder) BuildLayer(lower []*Node, reservePortsPerUplink int) ([]*Node, error) {
	var result *multierror.Error

nextLower:
	for _, ln := range lower {
		for _, req := range ln.Requirements() {
			if candidate := b.match(req, reservePortsPerUplink); candidate != nil {
				l, err := Connect(candidate, ln, req.Speed)
				if err == nil {
					log.Debugf("Linked %s to existing %s: %s", ln.ID, candidate.ID, l)
					continue nextLower
				}
				// only the first match is tried; fall through to creation
				log.Debugf("Link %s to %s failed, creating new %s: %v", ln.ID, candidate.ID, req.Target, err)
			}

			fresh, err := b.factory.NewNode(req.Target)
			if err != nil {
				log.Warnf("Node %s requirement %s cannot be satisfied: %v", ln.ID, req, err)
				result = multierror.Append(result, fmt.Errorf("%s: %w", ln.ID, err))
				continue
			}
			l, err := Connect(fresh, ln, req.Speed)
			if err != nil {
				log.Warnf("Node %s cannot link to new %s: %v", ln.ID, fresh.ID, err)
				result = multierror.Append(result, fmt.Errorf("%s to new %s: %w", ln.ID, req.Target, err))
				continue
			}
			log.Debugf("Created %s for %s: %s", fresh.ID, ln.ID, l)
			b.layer = append(b.layer, fresh)
			continue nextLower
		}
	}

	return b.layer, result.ErrorOrNil()
}

// Satisfy calls BuildLayer until no lower node has requirements toward the layer, no progress is
// made, or maxPasses is reached.
func (b *Builder) Satisfy(lower []*Node, reservePortsPerUplink int, maxPasses int) ([]*Node, error) {
	var result *multierror.Error
	for pass := 0; pass < maxPasses; pass++ {
		before := outstanding(lower)
		if before == 0 {
			break
		}
		_, err := b.BuildLayer(lower, reservePortsPerUplink)
		if err != nil {
			result = multierror.Append(result, err)
		}
		if outstanding(lower) >= before {
			break
		}
	}
	if n := outstanding(lower); n > 0 {
		log.Warnf("%d uplinks remain unsatisfied after building layer", n)
	}
	return b.layer, result.ErrorOrNil()
}

func outstanding(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		for _, r := range n.Requirements() {
			total += r.Count
		}
	}
	return total
}

// Fabric is the result of building every layer above a set of southbound nodes.
type Fabric struct {
	Layers [][]*Node
}

// Nodes returns every node of the fabric, bottom layer first.
func (f *Fabric) Nodes() []*Node {
	var out []*Node
	for _, layer := range f.Layers {
		out = append(out, layer...)
	}
	return out
}

// Switches returns the nodes above the southbound layer.
func (f *Fabric) Switches() []*Node {
	var out []*Node
	for i, layer := range f.Layers {
		if i == 0 {
			continue
		}
		out = append(out, layer...)
	}
	return out
}

// Lookup finds a node by id.
func (f *Fabric) Lookup(id string) *Node {
	for _, n := range f.Nodes() {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// BuildFabric builds successive layers until the newest one has no outstanding requirements.
func BuildFabric(factory NodeFactory, southbound []*Node, reservePortsPerUplink int, maxLayers int) (*Fabric, error) {
	var result *multierror.Error
	fabric := &Fabric{Layers: [][]*Node{southbound}}
	lower := southbound

	for depth := 0; depth < maxLayers && outstanding(lower) > 0; depth++ {
		b := NewBuilder(factory)
		maxPasses := 0
		for _, n := range lower {
			for _, r := range n.Requirements() {
				maxPasses += r.Count
			}
		}
		upper, err := b.Satisfy(lower, reservePortsPerUplink, maxPasses)
		if err != nil {
			result = multierror.Append(result, err)
		}
		if len(upper) == 0 {
			break
		}
		log.Infof("Built layer %d with %d nodes", depth+1, len(upper))
		fabric.Layers = append(fabric.Layers, upper)
		lower = upper
	}
	return fabric, result.ErrorOrNil()
}

// Package power rebuilds the power networks by flood-fill over
// substations and transfer stations and computes per-building
// powered/overloaded status. The result is a side table read by
// behaviors on later ticks; behaviors never set the powered flag
// themselves.
package power

import (
	"sort"

	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/store"
)

// draw is the per-kind power demand. Kinds absent here draw nothing.
var draw = map[store.BuildingKind]int{
	store.KindArm:              1,
	store.KindLamp:             1,
	store.KindExtractor:        2,
	store.KindContainmentTrap:  2,
	store.KindDefenseTurret:    3,
	store.KindSmelter:          4,
	store.KindDroneBay:         4,
	store.KindRefinery:         6,
	store.KindFabricator:       6,
	store.KindAdvancedSmelter:  8,
	store.KindReactorAssembler: 10,
}

// Draw returns a building kind's power demand.
func Draw(kind store.BuildingKind) int {
	return draw[kind]
}

// Network is one resolved connected component.
type Network struct {
	Nodes    []store.Key // substations and transfer stations
	Members  []store.Key // every attached producer and consumer
	Capacity int
	Load     int
}

// Powered reports whether the network carries its load.
func (n *Network) Powered() bool {
	return n.Load <= n.Capacity
}

// Table is the resolver's output: the powered flag per building key plus
// the networks themselves for diagnostics and change-sets.
type Table struct {
	Powered  map[store.Key]bool
	Networks []*Network
}

// IsPowered returns the most recent resolution's verdict for a key.
// Keys outside every network are unpowered.
func (t *Table) IsPowered(k store.Key) bool {
	if t == nil {
		return false
	}
	return t.Powered[k]
}

// Illuminator supplies per-tile light levels for shadow-panel output.
type Illuminator interface {
	Illumination(k geometry.Key) float64
}

// Resolve rebuilds all networks. prev is the previous resolution (used
// for lamp suppression of shadow panels); it may be nil on the first
// pass.
func Resolve(s *store.Store, substationRadius, transferRadius, lampRadius int, illum Illuminator, prev *Table) *Table {
	keys := s.AllBuildingKeysSorted()

	type node struct {
		key    store.Key
		kind   store.BuildingKind
		radius int
	}
	var nodes []node
	var producers, consumers []store.Key
	get := func(k store.Key) *store.Building {
		b, _ := s.GetBuilding(k)
		return b
	}

	for _, k := range keys {
		b := get(k)
		if b == nil || b.Construction != nil {
			continue
		}
		switch b.Kind {
		case store.KindSubstation:
			nodes = append(nodes, node{key: k, kind: b.Kind, radius: substationRadius})
		case store.KindTransferStation:
			nodes = append(nodes, node{key: k, kind: b.Kind, radius: transferRadius})
		case store.KindBioGenerator, store.KindShadowPanel:
			producers = append(producers, k)
		default:
			if draw[b.Kind] > 0 {
				consumers = append(consumers, k)
			}
		}
	}

	// Flood-fill the node graph. Two nodes connect iff one lies within
	// the other's radius on the same face; transfer-station range only
	// carries between transfer stations.
	parent := make([]int, len(nodes))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}
	connected := func(a, b node) bool {
		if a.key.Face != b.key.Face {
			return false
		}
		d := geometry.ManhattanInFace(a.key, b.key)
		ra, rb := a.radius, b.radius
		if a.kind == store.KindTransferStation && b.kind != store.KindTransferStation {
			ra = substationRadius
		}
		if b.kind == store.KindTransferStation && a.kind != store.KindTransferStation {
			rb = substationRadius
		}
		return d <= ra || d <= rb
	}
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if connected(nodes[i], nodes[j]) {
				union(i, j)
			}
		}
	}

	// attachRadius: producers and consumers hang off a node when within
	// its carry radius (transfer stations carry non-transfer attachments
	// at substation range only).
	attachRoot := func(k store.Key) (int, bool) {
		for i, nd := range nodes {
			if nd.key.Face != k.Face {
				continue
			}
			r := nd.radius
			if nd.kind == store.KindTransferStation {
				r = substationRadius
			}
			if geometry.ManhattanInFace(nd.key, k) <= r {
				return find(i), true
			}
		}
		return 0, false
	}

	byRoot := make(map[int]*Network)
	netOf := func(root int) *Network {
		n, ok := byRoot[root]
		if !ok {
			n = &Network{}
			byRoot[root] = n
		}
		return n
	}
	for i, nd := range nodes {
		n := netOf(find(i))
		n.Nodes = append(n.Nodes, nd.key)
		n.Members = append(n.Members, nd.key)
	}
	for _, k := range producers {
		root, ok := attachRoot(k)
		if !ok {
			continue
		}
		n := netOf(root)
		n.Members = append(n.Members, k)
		n.Capacity += producerOutput(s, k, lampRadius, illum, prev)
	}
	for _, k := range consumers {
		root, ok := attachRoot(k)
		if !ok {
			continue
		}
		b := get(k)
		if b.Disabled {
			continue
		}
		n := netOf(root)
		n.Members = append(n.Members, k)
		n.Load += draw[b.Kind]
	}

	out := &Table{Powered: make(map[store.Key]bool, len(keys))}
	roots := make([]int, 0, len(byRoot))
	for r := range byRoot {
		roots = append(roots, r)
	}
	sort.Ints(roots)
	for _, r := range roots {
		n := byRoot[r]
		ok := n.Powered()
		for _, k := range n.Members {
			out.Powered[k] = ok
		}
		out.Networks = append(out.Networks, n)
	}
	return out
}

// producerOutput computes a single producer's contribution: a bio
// generator contributes its full output while fuelled; a shadow panel
// ramps from full output at illumination <= 0.15 down to zero at >=
// 0.5, and is suppressed entirely by any powered lamp in range.
func producerOutput(s *store.Store, k store.Key, lampRadius int, illum Illuminator, prev *Table) int {
	b, err := s.GetBuilding(k)
	if err != nil || b.State.Power == nil {
		return 0
	}
	p := b.State.Power
	switch b.Kind {
	case store.KindBioGenerator:
		if p.FuelRemainingTicks <= 0 {
			return 0
		}
		return p.OutputCapacity
	case store.KindShadowPanel:
		if illum == nil {
			return p.OutputCapacity
		}
		for _, lk := range s.AllBuildingKeysSorted() {
			lb, _ := s.GetBuilding(lk)
			if lb == nil || lb.Kind != store.KindLamp || lb.Construction != nil || lb.Disabled {
				continue
			}
			if !prev.IsPowered(lk) {
				continue
			}
			if lk.Face == k.Face && geometry.ManhattanInFace(lk, k) <= lampRadius {
				return 0
			}
		}
		v := illum.Illumination(k)
		switch {
		case v <= 0.15:
			return p.OutputCapacity
		case v >= 0.5:
			return 0
		default:
			frac := 1 - (v-0.15)/0.35
			return int(float64(p.OutputCapacity) * frac)
		}
	}
	return 0
}

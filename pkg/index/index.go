// Package index derives lookup structures from a positioned layout: id and
// parent/child maps, generation depths, subtree sizes, subtree centroids and
// the hero set.
//
// Indices are built once per layout in a single O(n) pass and are immutable
// afterwards; they are rebuilt only when the node set changes, never on
// transform updates.
package index

import (
	"cmp"
	"slices"

	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/layout"
)

// DefaultHeroCount is the number of depth-1 branches promoted to heroes in
// addition to the root.
const DefaultHeroCount = 2

// Options configures Build.
type Options struct {
	// HeroCount is the number of depth-1 heroes. Zero means DefaultHeroCount.
	HeroCount int
}

// Indices holds the derived lookup structures of one layout.
type Indices struct {
	Root *layout.Node

	IDToNode         map[family.ID]*layout.Node
	ParentToChildren map[family.ID][]*layout.Node
	ChildToParent    map[family.ID]*layout.Node

	Depths       map[family.ID]int
	SubtreeSizes map[family.ID]int
	Centroids    map[family.ID]geom.Point

	// Heroes lists the root followed by the selected depth-1 nodes, largest
	// subtree first. HeroSet holds the same ids.
	Heroes  []family.ID
	HeroSet map[family.ID]bool
}

// IsHero reports whether id belongs to the hero set.
func (ix *Indices) IsHero(id family.ID) bool { return ix.HeroSet[id] }

// Node returns the node with the given id.
func (ix *Indices) Node(id family.ID) (*layout.Node, bool) {
	n, ok := ix.IDToNode[id]
	return n, ok
}

// Build derives Indices from res. Nodes are referenced, not copied, so res
// must outlive the returned Indices.
func Build(res *layout.Result, opts Options) *Indices {
	if opts.HeroCount <= 0 {
		opts.HeroCount = DefaultHeroCount
	}
	n := len(res.Nodes)
	ix := &Indices{
		IDToNode:         make(map[family.ID]*layout.Node, n),
		ParentToChildren: make(map[family.ID][]*layout.Node, len(res.Connections)),
		ChildToParent:    make(map[family.ID]*layout.Node, n),
		Depths:           make(map[family.ID]int, n),
		SubtreeSizes:     make(map[family.ID]int, n),
		Centroids:        make(map[family.ID]geom.Point, n),
		HeroSet:          map[family.ID]bool{},
	}
	if n == 0 {
		return ix
	}

	for i := range res.Nodes {
		node := &res.Nodes[i]
		ix.IDToNode[node.ID] = node
		if _, hasParent := node.ParentID(); !hasParent && ix.Root == nil {
			ix.Root = node
		}
	}
	for _, c := range res.Connections {
		parent := ix.IDToNode[c.ParentID]
		kids := make([]*layout.Node, 0, len(c.Children))
		for _, cp := range c.Children {
			if child, ok := ix.IDToNode[cp.ID]; ok {
				kids = append(kids, child)
				ix.ChildToParent[cp.ID] = parent
			}
		}
		ix.ParentToChildren[c.ParentID] = kids
	}
	if ix.Root == nil {
		return ix
	}

	order := ix.assignDepths()
	ix.accumulateSubtrees(order)
	ix.selectHeroes(opts.HeroCount)
	return ix
}

// assignDepths walks breadth-first from the root and returns the visit order.
func (ix *Indices) assignDepths() []*layout.Node {
	order := make([]*layout.Node, 0, len(ix.IDToNode))
	ix.Depths[ix.Root.ID] = 0
	order = append(order, ix.Root)
	for head := 0; head < len(order); head++ {
		v := order[head]
		for _, c := range ix.ParentToChildren[v.ID] {
			ix.Depths[c.ID] = ix.Depths[v.ID] + 1
			order = append(order, c)
		}
	}
	return order
}

// accumulateSubtrees sums subtree sizes and positions. Walking the BFS order
// backwards visits every child before its parent, so no recursion is needed.
func (ix *Indices) accumulateSubtrees(bfs []*layout.Node) {
	sums := make(map[family.ID]geom.Point, len(bfs))
	for i := len(bfs) - 1; i >= 0; i-- {
		v := bfs[i]
		size := 1
		sum := geom.Point{X: v.X, Y: v.Y}
		for _, c := range ix.ParentToChildren[v.ID] {
			size += ix.SubtreeSizes[c.ID]
			cs := sums[c.ID]
			sum.X += cs.X
			sum.Y += cs.Y
		}
		ix.SubtreeSizes[v.ID] = size
		sums[v.ID] = sum
		ix.Centroids[v.ID] = geom.Point{X: sum.X / float64(size), Y: sum.Y / float64(size)}
	}
}

func (ix *Indices) selectHeroes(count int) {
	var candidates []*layout.Node
	for _, c := range ix.ParentToChildren[ix.Root.ID] {
		if len(ix.ParentToChildren[c.ID]) > 0 {
			candidates = append(candidates, c)
		}
	}
	slices.SortStableFunc(candidates, func(a, b *layout.Node) int {
		if d := cmp.Compare(ix.SubtreeSizes[b.ID], ix.SubtreeSizes[a.ID]); d != 0 {
			return d
		}
		return cmp.Compare(a.Index, b.Index)
	})

	ix.Heroes = append(ix.Heroes, ix.Root.ID)
	for i := 0; i < len(candidates) && i < count; i++ {
		ix.Heroes = append(ix.Heroes, candidates[i].ID)
	}
	for _, id := range ix.Heroes {
		ix.HeroSet[id] = true
	}
}

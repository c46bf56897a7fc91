// Package spatial buckets positioned nodes into a fixed-size square grid and
// answers viewport queries against it.
//
// A [Grid] is read-only after [New] returns. When the node set changes the
// caller builds a new Grid and swaps it in; queries never observe a partially
// built index.
package spatial

import (
	"math"

	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/layout"
)

// Default values.
const (
	DefaultCellSize = 256.0
	DefaultPadding  = 100.0
	DefaultMaxNodes = 350
)

// Options configures a Grid.
type Options struct {
	// CellSize is the side length of a grid cell in world units.
	CellSize float64
	// Padding is a screen-space margin added around the viewport so nodes
	// just outside the visible area are staged before they scroll in.
	Padding float64
	// MaxNodes caps the number of nodes a single query returns.
	MaxNodes int
}

func (o Options) withDefaults() Options {
	if o.CellSize <= 0 {
		o.CellSize = DefaultCellSize
	}
	if o.Padding < 0 {
		o.Padding = 0
	} else if o.Padding == 0 {
		o.Padding = DefaultPadding
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	return o
}

type cellKey struct{ cx, cy int }

// Grid is a uniform spatial hash over layout nodes.
type Grid struct {
	opts   Options
	nodes  []layout.Node
	cells  map[cellKey][]int
	bounds geom.Rect
	reach  float64 // largest half-extent of any node box

	minCX, minCY int
	maxCX, maxCY int
}

// Result is the outcome of a viewport query.
type Result struct {
	Nodes []*layout.Node
	// Truncated reports that the MaxNodes cap stopped the collection early.
	Truncated bool
}

// New indexes nodes. The slice is referenced, not copied; it must not be
// modified while the Grid is in use. Every node lands in exactly one cell,
// chosen by its centre.
func New(nodes []layout.Node, opts Options) *Grid {
	g := &Grid{
		opts:  opts.withDefaults(),
		nodes: nodes,
		cells: make(map[cellKey][]int),
	}
	if len(nodes) == 0 {
		return g
	}

	g.minCX, g.minCY = math.MaxInt, math.MaxInt
	g.maxCX, g.maxCY = math.MinInt, math.MinInt
	for i := range nodes {
		n := &nodes[i]
		k := g.keyOf(n.X, n.Y)
		g.cells[k] = append(g.cells[k], i)
		g.minCX, g.maxCX = min(g.minCX, k.cx), max(g.maxCX, k.cx)
		g.minCY, g.maxCY = min(g.minCY, k.cy), max(g.maxCY, k.cy)
		g.bounds = g.bounds.Union(n.Bounds())
		g.reach = math.Max(g.reach, math.Max(n.Width, n.Height)/2)
	}
	return g
}

func (g *Grid) keyOf(x, y float64) cellKey {
	return cellKey{
		cx: int(math.Floor(x / g.opts.CellSize)),
		cy: int(math.Floor(y / g.opts.CellSize)),
	}
}

// Len returns the number of indexed nodes.
func (g *Grid) Len() int { return len(g.nodes) }

// CellCount returns the number of non-empty cells.
func (g *Grid) CellCount() int { return len(g.cells) }

// Bounds returns the union of all node boxes.
func (g *Grid) Bounds() geom.Rect { return g.bounds }

// Visible returns the nodes that intersect the padded viewport.
//
// viewport is a screen-space rectangle and t the current camera transform.
// The viewport is mapped to world space, grown by Padding/scale, and each
// candidate node's own box is tested against it. Collection stops at
// MaxNodes; under extreme zoom-out the result is deliberately incomplete.
// Cells are visited row by row, nodes within a cell in input order.
func (g *Grid) Visible(viewport geom.Rect, t geom.Transform) Result {
	if len(g.nodes) == 0 || !t.Valid() || viewport.Empty() {
		return Result{}
	}
	world := t.ScreenRectToWorld(viewport).Inset(g.opts.Padding / t.Scale)
	if !world.Intersects(g.bounds) {
		return Result{}
	}

	// Nodes are bucketed by centre, so a node whose box reaches into the
	// query can live one half-width outside it.
	reach := g.reach
	lo := g.keyOf(world.X-reach, world.Y-reach)
	hi := g.keyOf(world.MaxX()+reach, world.MaxY()+reach)
	lo.cx, lo.cy = max(lo.cx, g.minCX), max(lo.cy, g.minCY)
	hi.cx, hi.cy = min(hi.cx, g.maxCX), min(hi.cy, g.maxCY)

	var res Result
	for cy := lo.cy; cy <= hi.cy; cy++ {
		for cx := lo.cx; cx <= hi.cx; cx++ {
			for _, i := range g.cells[cellKey{cx, cy}] {
				n := &g.nodes[i]
				if !n.Bounds().Intersects(world) {
					continue
				}
				if len(res.Nodes) >= g.opts.MaxNodes {
					res.Truncated = true
					return res
				}
				res.Nodes = append(res.Nodes, n)
			}
		}
	}
	return res
}

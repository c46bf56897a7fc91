package layout

import (
	"fmt"
	"math"

	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
)

// Compute lays out records as a tidy tree.
//
// Malformed record sets (no root, several roots, dangling parents, cycles)
// are rejected with an error wrapping the matching family sentinel before
// any layout work happens. Compute never returns NaN or infinite positions:
// such nodes get a deterministic fallback position and a single warning is
// logged per call.
func Compute(records []family.PersonRecord, opts Options) (*Result, error) {
	tree, err := family.BuildTree(records)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}
	return ComputeTree(tree, opts), nil
}

// ComputeTree lays out an already validated tree.
func ComputeTree(tree *family.Tree, opts Options) *Result {
	opts = opts.withDefaults()
	n := tree.Len()

	widths := make([]float64, n)
	heights := make([]float64, n)
	maxH := 0.0
	for i := range n {
		widths[i], heights[i] = nodeSize(tree.Record(i), opts)
		maxH = math.Max(maxH, heights[i])
	}
	levelHeight := math.Max(opts.LevelHeight, maxH+opts.MinGap)

	depths := depthsOf(tree)
	xs := (&tidy{widths: widths, opts: opts}).run(tree)

	res := &Result{
		Nodes:       make([]Node, n),
		LevelHeight: levelHeight,
	}
	for i := range n {
		res.Nodes[i] = Node{
			PersonRecord: *tree.Record(i),
			X:            xs[i],
			Y:            float64(depths[i]) * levelHeight,
			Depth:        depths[i],
			Width:        widths[i],
			Height:       heights[i],
			Index:        i,
		}
	}

	bakeVerticalOffsets(res.Nodes, opts.RootOffsetY)
	sanitize(res.Nodes, levelHeight, opts)

	res.Connections = connections(tree, res.Nodes)
	for i := range res.Nodes {
		res.Bounds = res.Bounds.Union(res.Nodes[i].Bounds())
	}
	return res
}

// nodeSize returns the box reserved for a record: the photo box when the
// record has a photo, the compact box otherwise, with the width replaced by
// a positive width hint.
func nodeSize(r *family.PersonRecord, opts Options) (w, h float64) {
	size := opts.CompactNodeSize
	if r.HasPhoto() {
		size = opts.PhotoNodeSize
	}
	w, h = size.W, size.H
	if r.HasWidthHint() {
		w = r.NodeWidthHint
	}
	return w, h
}

func depthsOf(tree *family.Tree) []int {
	depths := make([]int, tree.Len())
	queue := []int{tree.Root()}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, c := range tree.Children(v) {
			depths[c] = depths[v] + 1
			queue = append(queue, c)
		}
	}
	return depths
}

// bakeVerticalOffsets applies the root offset and aligns every generation to
// a common top edge.
func bakeVerticalOffsets(nodes []Node, rootOffset float64) {
	minH := map[int]float64{}
	for i := range nodes {
		d, h := nodes[i].Depth, nodes[i].Height
		if cur, ok := minH[d]; !ok || h < cur {
			minH[d] = h
		}
	}
	for i := range nodes {
		n := &nodes[i]
		if n.Depth == 0 {
			n.Y += rootOffset
		}
		n.Y += (n.Height - minH[n.Depth]) / 2
	}
}

// sanitize replaces non-finite positions with a deterministic fallback.
func sanitize(nodes []Node, levelHeight float64, opts Options) {
	bad := 0
	var first family.ID
	for i := range nodes {
		n := &nodes[i]
		if geom.Finite(n.X) && geom.Finite(n.Y) {
			continue
		}
		if bad == 0 {
			first = n.ID
		}
		bad++
		n.X = float64(n.Index) * opts.FallbackSpacing
		n.Y = float64(n.Depth) * levelHeight
		if !geom.Finite(n.Width) {
			n.Width = opts.CompactNodeSize.W
		}
	}
	if bad > 0 {
		opts.Logger.Warn("layout produced non-finite positions, using fallback", "count", bad, "first", first)
	}
}

func connections(tree *family.Tree, nodes []Node) []Connection {
	var out []Connection
	for i := range nodes {
		kids := tree.Children(i)
		if len(kids) == 0 {
			continue
		}
		c := Connection{ParentID: nodes[i].ID, Children: make([]ChildPoint, len(kids))}
		for k, ci := range kids {
			c.Children[k] = ChildPoint{ID: nodes[ci].ID, X: nodes[ci].X, Y: nodes[ci].Y}
		}
		out = append(out, c)
	}
	return out
}

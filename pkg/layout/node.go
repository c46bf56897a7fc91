package layout

import (
	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
)

// Node is a positioned person: the input record plus the centre position,
// generation depth and the box size the layout reserved for it.
type Node struct {
	family.PersonRecord

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Depth  int     `json:"depth"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Index is the record's position in the input slice.
	Index int `json:"index"`
}

// Left returns the left edge of the node box.
func (n *Node) Left() float64 { return n.X - n.Width/2 }

// Right returns the right edge of the node box.
func (n *Node) Right() float64 { return n.X + n.Width/2 }

// Top returns the top edge of the node box.
func (n *Node) Top() float64 { return n.Y - n.Height/2 }

// Bottom returns the bottom edge of the node box.
func (n *Node) Bottom() float64 { return n.Y + n.Height/2 }

// Bounds returns the node box in world space.
func (n *Node) Bounds() geom.Rect { return geom.RectFromCenter(n.X, n.Y, n.Width, n.Height) }

// Center returns the node centre.
func (n *Node) Center() geom.Point { return geom.Point{X: n.X, Y: n.Y} }

// ChildPoint is one child end of a [Connection].
type ChildPoint struct {
	ID family.ID `json:"id"`
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
}

// Connection links a parent to its children, in ascending sibling order, for
// drawing parent→bus→children elbow edges.
type Connection struct {
	ParentID family.ID    `json:"parent_id"`
	Children []ChildPoint `json:"children"`
}

// Result is the output of a layout pass.
type Result struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	Bounds      geom.Rect    `json:"bounds"`

	// LevelHeight is the effective generation spacing that was used.
	LevelHeight float64 `json:"level_height"`
}

// Root returns the depth-0 node. It returns nil for an empty result.
func (r *Result) Root() *Node {
	for i := range r.Nodes {
		if r.Nodes[i].Depth == 0 {
			return &r.Nodes[i]
		}
	}
	return nil
}

// Reattach points every node back at the caller's records, restoring fields
// such as Payload that do not survive serialisation. It is a no-op when the
// record count does not match.
func (r *Result) Reattach(records []family.PersonRecord) {
	if len(records) != len(r.Nodes) {
		return
	}
	for i := range r.Nodes {
		r.Nodes[i].PersonRecord = records[r.Nodes[i].Index]
	}
}

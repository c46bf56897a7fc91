package spatial

import (
	"testing"

	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/layout"
)

func node(id family.ID, x, y float64) layout.Node {
	return layout.Node{PersonRecord: family.PersonRecord{ID: id}, X: x, Y: y, Width: 72, Height: 44, Index: int(id)}
}

func gridOf(n int, spacing float64) []layout.Node {
	nodes := make([]layout.Node, 0, n)
	side := 1
	for side*side < n {
		side++
	}
	for i := 0; i < n; i++ {
		nodes = append(nodes, node(family.ID(i), float64(i%side)*spacing, float64(i/side)*spacing))
	}
	return nodes
}

func TestVisibleFarNode(t *testing.T) {
	g := New([]layout.Node{node(1, 500, 500)}, Options{})
	res := g.Visible(geom.Rect{X: 0, Y: 0, W: 100, H: 100}, geom.Identity)
	if len(res.Nodes) != 0 {
		t.Errorf("Visible() = %d nodes, want 0", len(res.Nodes))
	}
}

func TestVisibleCompleteWithinBounds(t *testing.T) {
	records := []family.PersonRecord{{ID: 1}}
	for i := 2; i <= 200; i++ {
		records = append(records, family.PersonRecord{ID: family.ID(i), FatherID: family.Ref(family.ID(i / 2))})
	}
	res, err := layout.Compute(records, layout.Options{})
	if err != nil {
		t.Fatalf("layout.Compute: %v", err)
	}

	g := New(res.Nodes, Options{})
	got := g.Visible(res.Bounds, geom.Identity)
	if len(got.Nodes) != len(records) || got.Truncated {
		t.Errorf("Visible() = %d nodes (truncated=%v), want %d", len(got.Nodes), got.Truncated, len(records))
	}

	seen := map[family.ID]bool{}
	for _, n := range got.Nodes {
		if seen[n.ID] {
			t.Fatalf("node %d returned twice", n.ID)
		}
		seen[n.ID] = true
	}
}

func TestVisibleCap(t *testing.T) {
	nodes := gridOf(1000, 100)
	g := New(nodes, Options{MaxNodes: 350})
	res := g.Visible(g.Bounds(), geom.Identity)
	if len(res.Nodes) != 350 {
		t.Errorf("Visible() = %d nodes, want 350", len(res.Nodes))
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestVisiblePadding(t *testing.T) {
	// The box spans x in [194, 266], 94 px right of the viewport edge.
	nodes := []layout.Node{node(1, 230, 50)}
	viewport := geom.Rect{X: 0, Y: 0, W: 100, H: 100}

	tests := []struct {
		name    string
		padding float64
		scale   float64
		want    int
	}{
		{name: "default padding stages node", padding: 0, scale: 1, want: 1},
		{name: "padding disabled", padding: -1, scale: 1, want: 0},
		{name: "padding shrinks in world at high zoom", padding: 0, scale: 4, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(nodes, Options{Padding: tt.padding})
			res := g.Visible(viewport, geom.Transform{Scale: tt.scale})
			if len(res.Nodes) != tt.want {
				t.Errorf("Visible() = %d nodes, want %d", len(res.Nodes), tt.want)
			}
		})
	}
}

func TestVisibleTransformed(t *testing.T) {
	g := New([]layout.Node{node(1, 1000, 1000), node(2, 0, 0)}, Options{Padding: -1})
	tr := geom.Transform{TranslateX: -400, TranslateY: -400, Scale: 0.5}
	res := g.Visible(geom.Rect{X: 0, Y: 0, W: 200, H: 200}, tr)
	if len(res.Nodes) != 1 || res.Nodes[0].ID != 1 {
		t.Errorf("Visible() = %v, want only node 1", res.Nodes)
	}
}

func TestVisibleDegenerate(t *testing.T) {
	tests := []struct {
		name     string
		grid     *Grid
		viewport geom.Rect
		tr       geom.Transform
	}{
		{name: "empty index", grid: New(nil, Options{}), viewport: geom.Rect{W: 100, H: 100}, tr: geom.Identity},
		{name: "zero scale", grid: New(gridOf(4, 10), Options{}), viewport: geom.Rect{W: 100, H: 100}, tr: geom.Transform{}},
		{name: "empty viewport", grid: New(gridOf(4, 10), Options{}), viewport: geom.Rect{}, tr: geom.Identity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := tt.grid.Visible(tt.viewport, tt.tr); len(res.Nodes) != 0 {
				t.Errorf("Visible() = %d nodes, want 0", len(res.Nodes))
			}
		})
	}
}

func TestEveryNodeInOneCell(t *testing.T) {
	nodes := gridOf(500, 37)
	g := New(nodes, Options{})
	total := 0
	for _, members := range g.cells {
		total += len(members)
	}
	if total != len(nodes) {
		t.Errorf("cells hold %d entries, want %d", total, len(nodes))
	}
}

func BenchmarkVisible(b *testing.B) {
	g := New(gridOf(20000, 90), Options{})
	viewport := geom.Rect{W: 1280, H: 800}
	tr := geom.Transform{TranslateX: -3000, TranslateY: -2000, Scale: 0.8}
	for b.Loop() {
		g.Visible(viewport, tr)
	}
}

package index

import (
	"math"
	"testing"

	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/layout"
)

func mustLayout(t *testing.T, records []family.PersonRecord) *layout.Result {
	t.Helper()
	res, err := layout.Compute(records, layout.Options{})
	if err != nil {
		t.Fatalf("layout.Compute: %v", err)
	}
	return res
}

// fixture:
//
//	1
//	├── 2 (order 0) ── 5
//	├── 3 (order 1) ── 6 ── 8
//	│               └─ 7
//	└── 4 (order 2) ── 9
func fixture() []family.PersonRecord {
	return []family.PersonRecord{
		{ID: 1},
		{ID: 2, FatherID: family.Ref(1), SiblingOrder: 0},
		{ID: 3, FatherID: family.Ref(1), SiblingOrder: 1},
		{ID: 4, FatherID: family.Ref(1), SiblingOrder: 2},
		{ID: 5, MotherID: family.Ref(2)},
		{ID: 6, MotherID: family.Ref(3)},
		{ID: 7, MotherID: family.Ref(3)},
		{ID: 8, FatherID: family.Ref(6)},
		{ID: 9, FatherID: family.Ref(4)},
	}
}

func TestBuildDepthsAndSizes(t *testing.T) {
	ix := Build(mustLayout(t, fixture()), Options{})

	if ix.Root == nil || ix.Root.ID != 1 {
		t.Fatalf("root = %v, want 1", ix.Root)
	}
	depths := map[family.ID]int{1: 0, 2: 1, 3: 1, 4: 1, 5: 2, 6: 2, 7: 2, 8: 3, 9: 2}
	for id, want := range depths {
		if got := ix.Depths[id]; got != want {
			t.Errorf("depth[%d] = %d, want %d", id, got, want)
		}
	}
	sizes := map[family.ID]int{1: 9, 2: 2, 3: 4, 4: 2, 6: 2, 8: 1}
	for id, want := range sizes {
		if got := ix.SubtreeSizes[id]; got != want {
			t.Errorf("subtree[%d] = %d, want %d", id, got, want)
		}
	}
	if p := ix.ChildToParent[8]; p == nil || p.ID != 6 {
		t.Errorf("parent of 8 = %v, want 6", p)
	}
}

func TestBuildCentroids(t *testing.T) {
	ix := Build(mustLayout(t, fixture()), Options{})

	leaf := ix.IDToNode[8]
	if c := ix.Centroids[8]; c.X != leaf.X || c.Y != leaf.Y {
		t.Errorf("leaf centroid %+v != position (%v,%v)", c, leaf.X, leaf.Y)
	}

	var sx, sy float64
	for _, id := range []family.ID{3, 6, 7, 8} {
		sx += ix.IDToNode[id].X
		sy += ix.IDToNode[id].Y
	}
	c := ix.Centroids[3]
	if math.Abs(c.X-sx/4) > 1e-9 || math.Abs(c.Y-sy/4) > 1e-9 {
		t.Errorf("centroid[3] = %+v, want (%v,%v)", c, sx/4, sy/4)
	}
}

func TestBuildHeroes(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  []family.ID
	}{
		{name: "default", count: 0, want: []family.ID{1, 3, 2}},
		{name: "single", count: 1, want: []family.ID{1, 3}},
		{name: "all", count: 5, want: []family.ID{1, 3, 2, 4}},
	}

	res := mustLayout(t, fixture())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := Build(res, Options{HeroCount: tt.count})
			if len(ix.Heroes) != len(tt.want) {
				t.Fatalf("heroes = %v, want %v", ix.Heroes, tt.want)
			}
			for i := range tt.want {
				if ix.Heroes[i] != tt.want[i] {
					t.Fatalf("heroes = %v, want %v", ix.Heroes, tt.want)
				}
				if !ix.IsHero(tt.want[i]) {
					t.Errorf("IsHero(%d) = false", tt.want[i])
				}
			}
		})
	}
}

func TestBuildHeroesSkipLeaves(t *testing.T) {
	records := []family.PersonRecord{
		{ID: 1},
		{ID: 2, FatherID: family.Ref(1)},
		{ID: 3, FatherID: family.Ref(1)},
	}
	ix := Build(mustLayout(t, records), Options{})
	if len(ix.Heroes) != 1 || ix.Heroes[0] != 1 {
		t.Errorf("heroes = %v, want only the root", ix.Heroes)
	}
}

func TestBuildDeepChain(t *testing.T) {
	const n = 50000
	records := make([]family.PersonRecord, n)
	records[0] = family.PersonRecord{ID: 1}
	for i := 1; i < n; i++ {
		records[i] = family.PersonRecord{ID: family.ID(i + 1), FatherID: family.Ref(family.ID(i))}
	}
	ix := Build(mustLayout(t, records), Options{})
	if got := ix.SubtreeSizes[1]; got != n {
		t.Errorf("root subtree = %d, want %d", got, n)
	}
	if got := ix.Depths[n]; got != n-1 {
		t.Errorf("deepest depth = %d, want %d", got, n-1)
	}
}

func TestBuildEmpty(t *testing.T) {
	ix := Build(&layout.Result{}, Options{})
	if ix.Root != nil || len(ix.Heroes) != 0 {
		t.Errorf("empty layout produced %+v", ix)
	}
}

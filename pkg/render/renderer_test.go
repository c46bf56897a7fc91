package render

import (
	"fmt"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/index"
	"github.com/matzehuels/kinview/pkg/layout"
	"github.com/matzehuels/kinview/pkg/lod"
	"github.com/matzehuels/kinview/pkg/spatial"
	"github.com/matzehuels/kinview/pkg/viewport"
)

var bigViewport = geom.Size{W: 2000, H: 2000}

// star returns a root with n children. Photos are attached when photo is set.
func star(n int, photo bool) []family.PersonRecord {
	url := func(id int) string {
		if !photo {
			return ""
		}
		return fmt.Sprintf("https://img.example/%d.jpg", id)
	}
	records := []family.PersonRecord{{ID: 1, Name: "Root", PhotoURL: url(1)}}
	for i := range n {
		id := i + 2
		records = append(records, family.PersonRecord{
			ID: family.ID(id), FatherID: family.Ref(1), SiblingOrder: i, PhotoURL: url(id),
		})
	}
	return records
}

func scene(t *testing.T, records []family.PersonRecord, grid spatial.Options) *Scene {
	t.Helper()
	res, err := layout.Compute(records, layout.Options{})
	if err != nil {
		t.Fatalf("layout.Compute: %v", err)
	}
	return NewScene(res, index.Options{}, grid)
}

func fit(b geom.Rect, scale float64) geom.Transform {
	return geom.Transform{TranslateX: -b.X*scale + 10, TranslateY: -b.Y*scale + 10, Scale: scale}
}

func count(f Frame, k Kind) int {
	n := 0
	for _, p := range f.Primitives {
		if p.Kind == k {
			n++
		}
	}
	return n
}

func TestRenderSmallTree(t *testing.T) {
	sc := scene(t, star(2, false), spatial.Options{})
	r := New(Options{})
	r.OnTransform(fit(sc.Layout.Bounds, 1))

	f := r.Render(sc, bigViewport)
	if f.Tier != lod.TierFull {
		t.Errorf("tier = %v, want full", f.Tier)
	}
	if f.Stats.VisibleNodes != 3 || f.Stats.Edges != 2 || f.Stats.EdgeBatches != 1 {
		t.Errorf("stats = %+v", f.Stats)
	}
	if f.Primitives[0].Kind != KindPath {
		t.Errorf("first primitive = %v, want edges underneath nodes", f.Primitives[0].Kind)
	}
	if got := count(f, KindText); got != 3 {
		t.Errorf("text primitives = %d, want 3", got)
	}
	if f.Stats.Primitives != len(f.Primitives) {
		t.Errorf("Stats.Primitives = %d, len = %d", f.Stats.Primitives, len(f.Primitives))
	}
}

func TestRenderElbowGeometry(t *testing.T) {
	sc := scene(t, star(1, false), spatial.Options{})
	r := New(Options{})
	r.OnTransform(fit(sc.Layout.Bounds, 1))

	f := r.Render(sc, bigViewport)
	seg := f.Primitives[0].Subpaths[0]
	root, _ := sc.Index.Node(1)
	child, _ := sc.Index.Node(2)
	if seg[0] != (geom.Point{X: root.X, Y: root.Bottom()}) {
		t.Errorf("segment starts at %v, want parent bottom", seg[0])
	}
	if seg[3] != (geom.Point{X: child.X, Y: child.Top()}) {
		t.Errorf("segment ends at %v, want child top", seg[3])
	}
	if seg[1].Y != seg[2].Y {
		t.Errorf("bus is not horizontal: %v", seg)
	}
}

func TestRenderEdgeBatching(t *testing.T) {
	sc := scene(t, star(120, false), spatial.Options{})
	r := New(Options{})
	r.OnTransform(fit(sc.Layout.Bounds, 0.1))

	f := r.Render(sc, bigViewport)
	if f.Stats.Edges != 120 || f.Stats.EdgesTruncated {
		t.Fatalf("stats = %+v", f.Stats)
	}
	var sizes []int
	for _, p := range f.Primitives {
		if p.Kind == KindPath {
			sizes = append(sizes, len(p.Subpaths))
		}
	}
	if fmt.Sprint(sizes) != "[50 50 20]" {
		t.Errorf("batch sizes = %v, want [50 50 20]", sizes)
	}
}

func TestRenderCaps(t *testing.T) {
	sc := scene(t, star(400, false), spatial.Options{})
	r := New(Options{})
	r.OnTransform(fit(sc.Layout.Bounds, 0.05))

	f := r.Render(sc, bigViewport)
	if f.Stats.VisibleNodes != spatial.DefaultMaxNodes || !f.Stats.NodesTruncated {
		t.Errorf("visible = %d (truncated %v), want %d", f.Stats.VisibleNodes, f.Stats.NodesTruncated, spatial.DefaultMaxNodes)
	}
	if f.Stats.Edges != DefaultMaxEdges || !f.Stats.EdgesTruncated {
		t.Errorf("edges = %d (truncated %v), want %d", f.Stats.Edges, f.Stats.EdgesTruncated, DefaultMaxEdges)
	}
	if f.Stats.EdgeBatches != DefaultMaxEdges/DefaultEdgeBatch {
		t.Errorf("batches = %d, want %d", f.Stats.EdgeBatches, DefaultMaxEdges/DefaultEdgeBatch)
	}
}

func TestRenderTiers(t *testing.T) {
	sc := scene(t, star(4, true), spatial.Options{})

	t.Run("compact", func(t *testing.T) {
		r := New(Options{})
		r.OnTransform(fit(sc.Layout.Bounds, 0.2))
		f := r.Render(sc, bigViewport)
		if f.Tier != lod.TierCompact {
			t.Fatalf("tier = %v, want compact", f.Tier)
		}
		for _, p := range f.Primitives {
			if p.Kind != KindRect && p.Kind != KindText && p.Kind != KindPath {
				t.Errorf("compact frame contains %v", p.Kind)
			}
			if p.Image != nil {
				t.Error("compact frame requests an image")
			}
		}
	})

	t.Run("full", func(t *testing.T) {
		r := New(Options{})
		r.OnTransform(fit(sc.Layout.Bounds, 1))
		f := r.Render(sc, bigViewport)
		var images int
		for _, p := range f.Primitives {
			if p.Image != nil {
				images++
				if p.Image.Bucket != 128 {
					t.Errorf("bucket = %d, want 128 for an 84px photo", p.Image.Bucket)
				}
			}
		}
		if images != 5 {
			t.Errorf("images = %d, want 5", images)
		}
	})

	t.Run("kill switch", func(t *testing.T) {
		r := New(Options{Tier: lod.NewTierController(lod.TierOptions{ForceFullDetail: true})})
		r.OnTransform(fit(sc.Layout.Bounds, 0.1))
		if f := r.Render(sc, bigViewport); f.Tier != lod.TierFull {
			t.Errorf("tier = %v, want full", f.Tier)
		}
	})
}

func TestRenderUpgradesWhilePanning(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		sc := scene(t, star(2, true), spatial.Options{})
		r := New(Options{})
		defer r.Buckets().Close()

		tr := fit(sc.Layout.Bounds, 1)
		r.OnTransform(tr)
		r.Render(sc, bigViewport)

		// Zoom in, then keep panning one pixel per frame.
		tr = fit(sc.Layout.Bounds, 3)
		for range 40 {
			tr.TranslateX++
			r.OnTransform(tr)
			r.Render(sc, bigViewport)
			time.Sleep(16 * time.Millisecond)
			synctest.Wait()
		}

		if b, _ := r.Buckets().Bucket(1); b != 256 {
			t.Errorf("root bucket = %d while panning at scale 3, want 256", b)
		}
	})
}

func TestRenderHeroEmphasis(t *testing.T) {
	// Two branches with children, one leaf: heroes are the root and the two
	// branches.
	records := []family.PersonRecord{
		{ID: 1},
		{ID: 2, FatherID: family.Ref(1), SiblingOrder: 0},
		{ID: 3, FatherID: family.Ref(1), SiblingOrder: 1},
		{ID: 4, FatherID: family.Ref(1), SiblingOrder: 2},
		{ID: 5, FatherID: family.Ref(2)},
		{ID: 6, FatherID: family.Ref(4)},
	}
	sc := scene(t, records, spatial.Options{})
	r := New(Options{})
	r.OnTransform(fit(sc.Layout.Bounds, 0.2))

	f := r.Render(sc, bigViewport)
	emphasised := map[family.ID]bool{}
	for _, p := range f.Primitives {
		if p.Stroke == DefaultPalette.Hero {
			emphasised[p.NodeID] = true
		}
	}
	for _, id := range []family.ID{1, 2, 4} {
		if !emphasised[id] {
			t.Errorf("hero %d not emphasised", id)
		}
	}
	if emphasised[3] || emphasised[5] {
		t.Errorf("non-hero emphasised: %v", emphasised)
	}
}

type fakePrefetcher struct {
	mu   sync.Mutex
	urls []string
}

func (p *fakePrefetcher) Prefetch(url string, bucket int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, url)
}

func TestRenderPrefetchesOffscreenNeighbours(t *testing.T) {
	sc := scene(t, star(30, true), spatial.Options{Padding: -1})
	root, _ := sc.Index.Node(1)

	pf := &fakePrefetcher{}
	r := New(Options{Prefetcher: pf})
	vp := geom.Size{W: 100, H: 60}
	// Centre the root in a viewport that shows nothing else.
	r.OnTransform(geom.Transform{TranslateX: vp.W/2 - root.X, TranslateY: vp.H/2 - root.Y, Scale: 1})

	f := r.Render(sc, vp)
	if f.Stats.VisibleNodes != 1 {
		t.Fatalf("visible = %d, want 1", f.Stats.VisibleNodes)
	}
	if f.Stats.Prefetched != DefaultMaxPrefetch || len(pf.urls) != DefaultMaxPrefetch {
		t.Errorf("prefetched = %d (%d calls), want %d", f.Stats.Prefetched, len(pf.urls), DefaultMaxPrefetch)
	}
	seen := map[string]bool{}
	for _, u := range pf.urls {
		if seen[u] {
			t.Errorf("duplicate prefetch %s", u)
		}
		seen[u] = true
	}
}

func TestRenderFollowsController(t *testing.T) {
	c := viewport.New(viewport.Options{})
	r := New(Options{})
	detach := r.Attach(c)

	c.PanBy(40, -10)
	if got := r.Transform(); got.TranslateX != 40 || got.TranslateY != -10 {
		t.Errorf("renderer transform = %v", got)
	}
	detach()
	c.PanBy(40, 0)
	if got := r.Transform(); got.TranslateX != 40 {
		t.Errorf("renderer updated after detach: %v", got)
	}
}

func TestRenderEmpty(t *testing.T) {
	r := New(Options{})
	if f := r.Render(nil, bigViewport); len(f.Primitives) != 0 {
		t.Errorf("nil scene produced %d primitives", len(f.Primitives))
	}

	sc := scene(t, star(2, false), spatial.Options{})
	r.OnTransform(geom.Transform{TranslateX: 1e6, TranslateY: 1e6, Scale: 1})
	if f := r.Render(sc, bigViewport); len(f.Primitives) != 0 || f.Stats.VisibleNodes != 0 {
		t.Errorf("off-screen tree produced %+v", f.Stats)
	}
}

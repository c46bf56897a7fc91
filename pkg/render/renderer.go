package render

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/index"
	"github.com/matzehuels/kinview/pkg/layout"
	"github.com/matzehuels/kinview/pkg/lod"
	"github.com/matzehuels/kinview/pkg/spatial"
	"github.com/matzehuels/kinview/pkg/viewport"
)

// Default frame budgets.
const (
	DefaultEdgeBatch   = 50
	DefaultMaxEdges    = 300
	DefaultMaxPrefetch = 12
)

// Scene is the immutable output of one layout pass.
type Scene struct {
	Layout *layout.Result
	Index  *index.Indices
	Grid   *spatial.Grid
}

// NewScene builds the index and grid for res.
func NewScene(res *layout.Result, idx index.Options, grid spatial.Options) *Scene {
	return &Scene{
		Layout: res,
		Index:  index.Build(res, idx),
		Grid:   spatial.New(res.Nodes, grid),
	}
}

// Prefetcher warms an image cache. Prefetch must not block; failures are the
// prefetcher's to swallow.
type Prefetcher interface {
	Prefetch(url string, bucket int)
}

// Options configures a Renderer.
type Options struct {
	// EdgeBatch is the number of edge segments per path primitive.
	EdgeBatch int
	// MaxEdges caps edge segments per frame.
	MaxEdges int
	// MaxPrefetch caps neighbour prefetches per frame.
	MaxPrefetch int

	Palette Palette

	// Tier selects the detail level. Nil uses a controller with default
	// options.
	Tier *lod.TierController
	// Buckets selects photo resolutions. Nil uses a controller with default
	// options.
	Buckets *lod.BucketController
	// Prefetcher receives neighbour photos. Nil disables prefetching.
	Prefetcher Prefetcher

	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.EdgeBatch <= 0 {
		o.EdgeBatch = DefaultEdgeBatch
	}
	if o.MaxEdges <= 0 {
		o.MaxEdges = DefaultMaxEdges
	}
	if o.MaxPrefetch < 0 {
		o.MaxPrefetch = 0
	} else if o.MaxPrefetch == 0 {
		o.MaxPrefetch = DefaultMaxPrefetch
	}
	if o.Palette == (Palette{}) {
		o.Palette = DefaultPalette
	}
	if o.Tier == nil {
		o.Tier = lod.NewTierController(lod.TierOptions{})
	}
	if o.Buckets == nil {
		o.Buckets = lod.NewBucketController(lod.BucketOptions{})
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Renderer produces frames. It holds the latest transform pushed by the
// viewport controller; Render may run on a different goroutine than the
// gesture callbacks.
type Renderer struct {
	opts Options

	mu sync.Mutex
	t  geom.Transform
}

// New returns a Renderer at the identity transform.
func New(opts Options) *Renderer {
	return &Renderer{opts: opts.withDefaults(), t: geom.Identity}
}

// Tier returns the tier controller in use.
func (r *Renderer) Tier() *lod.TierController { return r.opts.Tier }

// Buckets returns the bucket controller in use.
func (r *Renderer) Buckets() *lod.BucketController { return r.opts.Buckets }

// OnTransform records t for the next frame.
func (r *Renderer) OnTransform(t geom.Transform) {
	if !t.Valid() {
		return
	}
	r.mu.Lock()
	r.t = t
	r.mu.Unlock()
}

// Attach subscribes the renderer to c and adopts its current transform.
func (r *Renderer) Attach(c *viewport.Controller) (detach func()) {
	r.OnTransform(c.Transform())
	return c.Subscribe(r.OnTransform)
}

// Transform returns the transform the next frame will use.
func (r *Renderer) Transform() geom.Transform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t
}

// Render builds the frame for a viewport of the given screen size.
func (r *Renderer) Render(scene *Scene, size geom.Size) Frame {
	t := r.Transform()
	f := Frame{Transform: t, Viewport: size, Tier: r.opts.Tier.Update(t.Scale)}
	if scene == nil || scene.Grid == nil || scene.Index == nil {
		return f
	}

	vis := scene.Grid.Visible(geom.Rect{W: size.W, H: size.H}, t)
	f.Stats.VisibleNodes = len(vis.Nodes)
	f.Stats.NodesTruncated = vis.Truncated
	if len(vis.Nodes) == 0 {
		return f
	}

	visible := make(map[family.ID]bool, len(vis.Nodes))
	for _, n := range vis.Nodes {
		visible[n.ID] = true
	}

	eb := edgeBatcher{batch: r.opts.EdgeBatch, max: r.opts.MaxEdges, palette: r.opts.Palette}
	r.collectEdges(&eb, scene.Index, vis.Nodes, visible)
	f.Primitives = eb.finish()
	f.Stats.Edges = eb.total
	f.Stats.EdgesTruncated = eb.truncated
	f.Stats.EdgeBatches = eb.batches

	for _, n := range vis.Nodes {
		hero := scene.Index.IsHero(n.ID)
		if f.Tier == lod.TierFull {
			f.Primitives = r.appendFull(f.Primitives, n, hero, t.Scale)
		} else {
			f.Primitives = r.appendCompact(f.Primitives, n, hero)
		}
	}

	if f.Tier == lod.TierFull {
		f.Stats.Prefetched = r.prefetchNeighbours(scene.Index, vis.Nodes, visible, t.Scale)
	}
	f.Stats.Primitives = len(f.Primitives)

	if f.Stats.NodesTruncated || f.Stats.EdgesTruncated {
		r.opts.Logger.Debug("frame truncated",
			"nodes", f.Stats.VisibleNodes, "edges", f.Stats.Edges)
	}
	return f
}

// collectEdges adds an elbow for every parent-child pair with at least one
// visible end. Pairs are visited from the visible parent when possible so
// each is added once.
func (r *Renderer) collectEdges(eb *edgeBatcher, ix *index.Indices, nodes []*layout.Node, visible map[family.ID]bool) {
	for _, n := range nodes {
		if p := ix.ChildToParent[n.ID]; p != nil && !visible[p.ID] {
			if !eb.add(elbow(p, n)) {
				return
			}
		}
		for _, c := range ix.ParentToChildren[n.ID] {
			if !eb.add(elbow(n, c)) {
				return
			}
		}
	}
}

// elbow runs from the bottom of p down to the generation bus, across, and
// down to the top of c.
func elbow(p, c *layout.Node) []geom.Point {
	bus := (p.Bottom() + c.Top()) / 2
	return []geom.Point{
		{X: p.X, Y: p.Bottom()},
		{X: p.X, Y: bus},
		{X: c.X, Y: bus},
		{X: c.X, Y: c.Top()},
	}
}

type edgeBatcher struct {
	batch   int
	max     int
	palette Palette

	pending   [][]geom.Point
	out       []Primitive
	total     int
	truncated bool
	batches   int
}

// add appends a segment and reports whether more will be accepted.
func (b *edgeBatcher) add(seg []geom.Point) bool {
	if b.total >= b.max {
		b.truncated = true
		return false
	}
	b.pending = append(b.pending, seg)
	b.total++
	if len(b.pending) >= b.batch {
		b.flush()
	}
	return true
}

func (b *edgeBatcher) flush() {
	if len(b.pending) == 0 {
		return
	}
	b.out = append(b.out, Primitive{
		Kind:        KindPath,
		Subpaths:    b.pending,
		Stroke:      b.palette.Edge,
		StrokeWidth: 1.5,
	})
	b.pending = nil
	b.batches++
}

func (b *edgeBatcher) finish() []Primitive {
	b.flush()
	return b.out
}

const (
	cardRadius    = 8.0
	cardPadding   = 6.0
	heroHalo      = 4.0
	fullFontSize  = 13.0
	compactFont   = 10.0
	avatarFactor  = 0.22
	nameBaselineY = 10.0
)

func label(n *layout.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("#%d", n.ID)
}

func (r *Renderer) appendFull(out []Primitive, n *layout.Node, hero bool, scale float64) []Primitive {
	pal := r.opts.Palette
	b := n.Bounds()
	if hero {
		h := b.Inset(heroHalo)
		out = append(out, Primitive{
			Kind: KindRoundedRect, NodeID: n.ID,
			X: h.X, Y: h.Y, W: h.W, H: h.H, Radius: cardRadius + heroHalo,
			Stroke: pal.Hero, StrokeWidth: 3,
		})
	}
	out = append(out, Primitive{
		Kind: KindRoundedRect, NodeID: n.ID,
		X: b.X, Y: b.Y, W: b.W, H: b.H, Radius: cardRadius,
		Fill: pal.Card, Stroke: pal.CardStroke, StrokeWidth: 1,
	})

	if n.HasPhoto() {
		side := math.Max(0, b.W-2*cardPadding)
		bucket := r.opts.Buckets.Update(n.ID, side*scale)
		out = append(out,
			Primitive{
				Kind: KindRect, NodeID: n.ID,
				X: b.X + cardPadding, Y: b.Y + cardPadding, W: side, H: side,
				Fill:  pal.Avatar,
				Image: &ImageRef{URL: n.PhotoURL, Bucket: bucket},
			},
			Primitive{
				Kind: KindLine, NodeID: n.ID,
				X: b.X + cardPadding, Y: b.Y + 2*cardPadding + side,
				X2: b.MaxX() - cardPadding, Y2: b.Y + 2*cardPadding + side,
				Stroke: pal.CardStroke, StrokeWidth: 1,
			},
		)
	} else {
		out = append(out, Primitive{
			Kind: KindCircle, NodeID: n.ID,
			X: n.X, Y: b.Y + b.H*0.38, Radius: math.Min(b.W, b.H) * avatarFactor,
			Fill: pal.Avatar,
		})
	}

	return append(out, Primitive{
		Kind: KindText, NodeID: n.ID,
		X: n.X, Y: b.MaxY() - nameBaselineY,
		Text: label(n), FontSize: fullFontSize, Fill: pal.Text,
	})
}

func (r *Renderer) appendCompact(out []Primitive, n *layout.Node, hero bool) []Primitive {
	pal := r.opts.Palette
	b := n.Bounds()
	box := Primitive{
		Kind: KindRect, NodeID: n.ID,
		X: b.X, Y: b.Y, W: b.W, H: b.H,
		Fill: pal.Compact[n.Depth%2],
	}
	if hero {
		box.Stroke, box.StrokeWidth = pal.Hero, 3
	}
	return append(out, box, Primitive{
		Kind: KindText, NodeID: n.ID,
		X: n.X, Y: n.Y + compactFont/3,
		Text: label(n), FontSize: compactFont, Fill: pal.Text,
	})
}

// prefetchNeighbours hands the photos of off-screen parents and children of
// visible nodes to the prefetcher.
func (r *Renderer) prefetchNeighbours(ix *index.Indices, nodes []*layout.Node, visible map[family.ID]bool, scale float64) int {
	if r.opts.Prefetcher == nil || r.opts.MaxPrefetch == 0 {
		return 0
	}
	seen := make(map[family.ID]bool)
	count := 0
	try := func(m *layout.Node) bool {
		if m == nil || visible[m.ID] || seen[m.ID] || !m.HasPhoto() {
			return true
		}
		seen[m.ID] = true
		side := math.Max(0, m.Width-2*cardPadding)
		r.opts.Prefetcher.Prefetch(m.PhotoURL, r.opts.Buckets.Target(side*scale))
		count++
		return count < r.opts.MaxPrefetch
	}
	for _, n := range nodes {
		if !try(ix.ChildToParent[n.ID]) {
			return count
		}
		for _, c := range ix.ParentToChildren[n.ID] {
			if !try(c) {
				return count
			}
		}
	}
	return count
}

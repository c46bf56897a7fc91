package engine

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/kinview/pkg/cache"
	"github.com/matzehuels/kinview/pkg/config"
	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/fonts"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/index"
	kio "github.com/matzehuels/kinview/pkg/io"
	"github.com/matzehuels/kinview/pkg/layout"
	"github.com/matzehuels/kinview/pkg/lod"
	"github.com/matzehuels/kinview/pkg/observability"
	"github.com/matzehuels/kinview/pkg/render"
	"github.com/matzehuels/kinview/pkg/render/sink"
	"github.com/matzehuels/kinview/pkg/spatial"
	"github.com/matzehuels/kinview/pkg/viewport"
)

// Snapshot is one published rebuild. It is immutable.
type Snapshot struct {
	Scene *render.Scene

	// Generation increases with every SetRecords or Rebuild call.
	Generation uint64
	// LayoutHit reports whether the layout came from the cache.
	LayoutHit bool
	Duration  time.Duration

	records []family.PersonRecord
}

// Records returns the record slice the snapshot was built from.
func (s *Snapshot) Records() []family.PersonRecord { return s.records }

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithHooks sets the observability hooks.
func WithHooks(h observability.Hooks) Option { return func(e *Engine) { e.hooks = h } }

// WithPrefetcher sets the photo prefetcher used for neighbours and for
// committed bucket upgrades.
func WithPrefetcher(p render.Prefetcher) Option { return func(e *Engine) { e.prefetcher = p } }

// WithCache caches layouts in c under keys built by k. A nil k uses
// cache.DefaultKeyer.
func WithCache(c cache.Cache, k cache.Keyer) Option {
	return func(e *Engine) { e.cache, e.keyer = c, k }
}

// WithFonts sets the font registry used by SVG output.
func WithFonts(r *fonts.Registry) Option { return func(e *Engine) { e.fonts = r } }

// Engine is safe for concurrent use.
type Engine struct {
	cfg        config.Config
	logger     *log.Logger
	hooks      observability.Hooks
	prefetcher render.Prefetcher
	cache      cache.Cache
	keyer      cache.Keyer
	fonts      *fonts.Registry

	ctrl     *viewport.Controller
	renderer *render.Renderer
	detach   func()

	snap atomic.Pointer[Snapshot]
	size atomic.Pointer[geom.Size]

	mu       sync.Mutex
	gen      uint64
	current  []family.PersonRecord
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	err      error
	closed   bool

	pubMu   sync.Mutex
	pubs    map[int]func(*Snapshot)
	nextPub int
}

// New builds an engine with no records. Frames render empty until a rebuild
// has been published.
func New(cfg config.Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, pubs: make(map[int]func(*Snapshot))}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	e.hooks = e.hooks.OrNoop()
	if e.cache == nil {
		e.cache = cache.NewNullCache()
	}
	if e.keyer == nil {
		e.keyer = cache.NewDefaultKeyer()
	}
	if e.fonts == nil {
		e.fonts = fonts.NewRegistry(fonts.Face{})
	}

	tierOpts := cfg.LOD.TierOptions()
	tierOpts.OnChange = func(from, to lod.Tier) {
		e.logger.Debug("tier changed", "from", from, "to", to)
		e.hooks.Engine.OnTierChange(context.Background(), from.String(), to.String())
	}
	bucketOpts := cfg.LOD.BucketOptions()
	bucketOpts.OnCommit = e.PrefetchNode

	ropts := cfg.Render.Options(e.logger)
	ropts.Tier = lod.NewTierController(tierOpts)
	ropts.Buckets = lod.NewBucketController(bucketOpts)
	ropts.Prefetcher = e.prefetcher

	e.ctrl = viewport.New(cfg.Viewport.Options(e.logger))
	e.renderer = render.New(ropts)
	e.detach = e.renderer.Attach(e.ctrl)
	return e
}

// Controller returns the viewport controller that gesture input drives.
func (e *Engine) Controller() *viewport.Controller { return e.ctrl }

// Renderer returns the renderer.
func (e *Engine) Renderer() *render.Renderer { return e.renderer }

// Fonts returns the font registry.
func (e *Engine) Fonts() *fonts.Registry { return e.fonts }

// Snapshot returns the latest published snapshot, or nil before the first
// successful rebuild.
func (e *Engine) Snapshot() *Snapshot { return e.snap.Load() }

// Err returns the error of the most recent rebuild, or nil.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// =============================================================================
// Rebuilds
// =============================================================================

// SetRecords schedules an asynchronous rebuild for records and returns
// immediately. Passing the same slice again (same backing array and length)
// is a no-op and returns false. A rebuild still running for an older record
// set is cancelled.
func (e *Engine) SetRecords(records []family.PersonRecord) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || sameSlice(records, e.current) {
		return false
	}
	ctx, gen := e.beginLocked(records)

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		snap, err := e.build(ctx, gen, records)
		e.finish(gen, snap, err)
	}()
	return true
}

// Rebuild computes and publishes a snapshot for records synchronously. It
// supersedes any asynchronous rebuild in flight.
func (e *Engine) Rebuild(ctx context.Context, records []family.PersonRecord) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapBuildErr(err)
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errors.New(errors.ErrCodeNotReady, "engine closed")
	}
	bctx, gen := e.beginLocked(records)
	e.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { e.cancelGen(gen) })
	defer stop()

	snap, err := e.build(bctx, gen, records)
	e.finish(gen, snap, err)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Wait blocks until no asynchronous rebuild is running.
func (e *Engine) Wait() { e.inflight.Wait() }

func (e *Engine) beginLocked(records []family.PersonRecord) (context.Context, uint64) {
	if e.cancel != nil {
		e.cancel()
		e.hooks.Engine.OnRebuildSuperseded(context.Background())
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.gen++
	e.current = records
	return ctx, e.gen
}

func (e *Engine) cancelGen(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen == gen && e.cancel != nil {
		e.cancel()
	}
}

// finish publishes snap if gen is still the newest request.
func (e *Engine) finish(gen uint64, snap *Snapshot, err error) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.cancel = nil
	e.err = err
	if err != nil {
		e.mu.Unlock()
		if !errors.Is(err, errors.ErrCodeTimeout) {
			e.logger.Warn("rebuild failed", "generation", gen, "err", err)
		}
		return
	}
	e.snap.Store(snap)
	// Bucket state belongs to the old node set.
	e.renderer.Buckets().Reset()
	e.mu.Unlock()

	e.logger.Debug("snapshot published", "generation", gen,
		"nodes", len(snap.Scene.Layout.Nodes), "cached", snap.LayoutHit, "duration", snap.Duration)
	e.notify(snap)
}

// OnPublish registers fn to run after every published snapshot, in
// registration order. Renderers that live outside the engine use it to drop
// per-node state of the previous node set. The returned function removes the
// registration.
func (e *Engine) OnPublish(fn func(*Snapshot)) (unsubscribe func()) {
	e.pubMu.Lock()
	id := e.nextPub
	e.nextPub++
	e.pubs[id] = fn
	e.pubMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.pubMu.Lock()
			delete(e.pubs, id)
			e.pubMu.Unlock()
		})
	}
}

func (e *Engine) notify(snap *Snapshot) {
	e.pubMu.Lock()
	fns := make([]func(*Snapshot), 0, len(e.pubs))
	for id := 0; id < e.nextPub; id++ {
		if fn, ok := e.pubs[id]; ok {
			fns = append(fns, fn)
		}
	}
	e.pubMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// build runs layout, then index and grid concurrently.
func (e *Engine) build(ctx context.Context, gen uint64, records []family.PersonRecord) (*Snapshot, error) {
	start := time.Now()
	e.hooks.Engine.OnLayoutStart(ctx, len(records))

	res, hit, err := e.layout(ctx, records)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		e.hooks.Engine.OnLayoutComplete(ctx, 0, time.Since(start), err)
		return nil, wrapBuildErr(err)
	}

	var (
		ix   *index.Indices
		grid *spatial.Grid
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ix = index.Build(res, e.cfg.Index.Options())
		return gctx.Err()
	})
	g.Go(func() error {
		grid = spatial.New(res.Nodes, e.cfg.Spatial.Options())
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		e.hooks.Engine.OnLayoutComplete(ctx, 0, time.Since(start), err)
		return nil, wrapBuildErr(err)
	}

	d := time.Since(start)
	e.hooks.Engine.OnLayoutComplete(ctx, len(res.Nodes), d, nil)
	return &Snapshot{
		Scene:      &render.Scene{Layout: res, Index: ix, Grid: grid},
		Generation: gen,
		LayoutHit:  hit,
		Duration:   d,
		records:    records,
	}, nil
}

func wrapBuildErr(err error) error {
	switch {
	case errors.Is(err, errors.ErrCodeInvalidRecords):
		return err
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "rebuild cancelled")
	default:
		return errors.Wrap(errors.ErrCodeInternal, err, "rebuild")
	}
}

// layout returns a cached layout when one exists for the same records and
// layout options.
func (e *Engine) layout(ctx context.Context, records []family.PersonRecord) (*layout.Result, bool, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidRecords, err, "encode records")
	}
	key := e.keyer.LayoutKey(cache.Hash(data), e.cfg.Layout.KeyOpts())

	if raw, hit, err := e.cache.Get(ctx, key); err == nil && hit {
		if res, err := kio.ReadLayout(bytes.NewReader(raw)); err == nil && len(res.Nodes) == len(records) {
			res.Reattach(records)
			return res, true, nil
		}
	}

	res, err := layout.Compute(records, e.cfg.Layout.Options(e.logger))
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidRecords, err, "layout")
	}

	var buf bytes.Buffer
	if err := kio.WriteLayout(res, &buf); err == nil {
		if err := e.cache.Set(ctx, key, buf.Bytes(), e.cfg.Cache.TTL.Std()); err != nil {
			e.logger.Debug("layout cache write failed", "err", err)
		}
	}
	return res, false, nil
}

// =============================================================================
// Frames and navigation
// =============================================================================

// SetViewportSize records the screen size used by NavigateToNode. Frame
// records it too.
func (e *Engine) SetViewportSize(size geom.Size) {
	if size.W > 0 && size.H > 0 {
		e.size.Store(&size)
	}
}

// Frame renders the latest snapshot at the controller's current transform.
// It returns a NOT_READY error before the first snapshot is published.
func (e *Engine) Frame(size geom.Size) (render.Frame, error) {
	e.SetViewportSize(size)
	snap := e.snap.Load()
	if snap == nil {
		return render.Frame{Transform: e.ctrl.Transform(), Viewport: size}, errors.New(errors.ErrCodeNotReady, "no layout published yet")
	}

	start := time.Now()
	f := e.renderer.Render(snap.Scene, size)
	e.hooks.Engine.OnFrame(context.Background(), f.Stats.VisibleNodes, f.Stats.Edges, f.Stats.Primitives,
		f.Stats.NodesTruncated || f.Stats.EdgesTruncated, time.Since(start))
	return f, nil
}

// SVG renders f with the engine's fonts.
func (e *Engine) SVG(f render.Frame, opts ...sink.SVGOption) []byte {
	return sink.SVG(f, append([]sink.SVGOption{sink.WithFonts(e.fonts)}, opts...)...)
}

// NavigateToNode starts an animated move that centres node id at the
// configured navigation scale. It cancels any animation in flight.
func (e *Engine) NavigateToNode(id family.ID) error {
	snap := e.snap.Load()
	if snap == nil {
		return errors.New(errors.ErrCodeNotReady, "no layout published yet")
	}
	n, ok := snap.Scene.Index.Node(id)
	if !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %d not found", id)
	}
	size := e.size.Load()
	if size == nil {
		return errors.New(errors.ErrCodeNotReady, "viewport size unknown")
	}
	e.ctrl.CenterOn(n.Center(), e.cfg.Viewport.NavigateScale, *size)
	e.logger.Debug("navigating", "node", id, "scale", e.cfg.Viewport.NavigateScale)
	return nil
}

// Step advances viewport animations by dt and reports whether any is still
// running.
func (e *Engine) Step(dt time.Duration) bool { return e.ctrl.Step(dt) }

// Prefetcher returns the photo prefetcher, or nil.
func (e *Engine) Prefetcher() render.Prefetcher { return e.prefetcher }

// PrefetchNode warms the cache with the photo of node id at bucket. It is the
// commit callback of every bucket controller built from this engine.
func (e *Engine) PrefetchNode(id family.ID, bucket int) {
	if e.prefetcher == nil {
		return
	}
	snap := e.snap.Load()
	if snap == nil {
		return
	}
	if n, ok := snap.Scene.Index.Node(id); ok && n.HasPhoto() {
		e.prefetcher.Prefetch(n.PhotoURL, bucket)
	}
}

// Close cancels any rebuild, waits for it to exit and stops bucket timers.
// The cache, prefetcher and font registry are owned by the caller.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	e.inflight.Wait()
	e.detach()
	e.renderer.Buckets().Close()
	return nil
}

func sameSlice(a, b []family.PersonRecord) bool {
	if len(a) != len(b) || (a == nil) != (b == nil) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

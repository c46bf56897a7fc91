// Package prefetch warms the image cache with photos that are about to
// scroll into view.
//
// [Prefetcher.Prefetch] never blocks: requests go into a bounded queue and
// are dropped when it is full or the same photo is queued, in flight, or was
// stored less than the cache TTL ago. A
// fixed pool of workers fetches queued photos under a per-host rate limit,
// retries transient failures and stores the bytes in a [cache.Cache].
// Failures are logged at debug level and otherwise swallowed.
package prefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/matzehuels/kinview/pkg/cache"
	"github.com/matzehuels/kinview/pkg/httputil"
	"github.com/matzehuels/kinview/pkg/observability"
)

// Defaults.
const (
	DefaultWorkers       = 4
	DefaultQueueSize     = 256
	DefaultRatePerSecond = 20
	DefaultAttempts      = 3
	DefaultRetryDelay    = 200 * time.Millisecond
	DefaultTimeout       = 10 * time.Second
	DefaultMaxBytes      = 5 << 20
)

// Drop reasons reported to PrefetchHooks.OnDrop.
const (
	DropQueueFull = "queue_full"
	DropDuplicate = "duplicate"
	DropClosed    = "closed"
	DropInvalid   = "invalid_url"
)

// Options configures a Prefetcher.
type Options struct {
	Workers   int
	QueueSize int

	// RatePerSecond limits requests per host. Burst defaults to 1.
	RatePerSecond float64
	Burst         int

	Attempts   int
	RetryDelay time.Duration
	Timeout    time.Duration
	// MaxBytes caps the stored body size.
	MaxBytes int64

	// URLFor maps a photo URL and bucket to the URL actually fetched, e.g.
	// to request a thumbnail. Nil fetches the photo URL unchanged.
	URLFor func(photoURL string, bucket int) string

	Client *http.Client
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Hooks  observability.PrefetchHooks
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = DefaultRatePerSecond
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.URLFor == nil {
		o.URLFor = func(u string, _ int) string { return u }
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Keyer == nil {
		o.Keyer = cache.NewDefaultKeyer()
	}
	if o.TTL <= 0 {
		o.TTL = cache.ImageTTL
	}
	if o.Hooks == nil {
		o.Hooks = observability.NoopPrefetchHooks{}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

type request struct {
	url    string
	bucket int
	key    string
}

// Stats counts requests since New.
type Stats struct {
	Enqueued int
	Dropped  int
	Fetched  int
	Cached   int
	Failed   int
}

// Prefetcher is a fire-and-forget photo fetcher. It is safe for concurrent
// use and must be closed.
type Prefetcher struct {
	opts   Options
	queue  chan request
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// pending counts enqueued requests not yet handled.
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
	// seen maps a cache key to the time it may be requested again. The zero
	// time marks a queued or in-flight request.
	seen     map[string]time.Time
	limiters map[string]*rate.Limiter
	stats    Stats
	now      func() time.Time
}

// New starts the worker pool.
func New(opts Options) *Prefetcher {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	p := &Prefetcher{
		opts:     opts,
		queue:    make(chan request, opts.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		seen:     make(map[string]time.Time),
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
	for range opts.Workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Prefetch enqueues photoURL at bucket. It returns immediately.
func (p *Prefetcher) Prefetch(photoURL string, bucket int) {
	if photoURL == "" {
		p.drop(DropInvalid)
		return
	}
	key := p.opts.Keyer.ImageKey(photoURL, bucket)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.drop(DropClosed)
		return
	}
	if until, ok := p.seen[key]; ok && (until.IsZero() || p.now().Before(until)) {
		p.mu.Unlock()
		p.drop(DropDuplicate)
		return
	}
	p.pending.Add(1)
	select {
	case p.queue <- request{url: photoURL, bucket: bucket, key: key}:
		p.seen[key] = time.Time{}
		p.stats.Enqueued++
		p.mu.Unlock()
		p.opts.Hooks.OnEnqueue(p.ctx, bucket)
	default:
		p.pending.Done()
		p.mu.Unlock()
		p.drop(DropQueueFull)
	}
}

func (p *Prefetcher) drop(reason string) {
	p.mu.Lock()
	p.stats.Dropped++
	p.mu.Unlock()
	p.opts.Hooks.OnDrop(p.ctx, reason)
}

// Stats returns a copy of the counters.
func (p *Prefetcher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Wait blocks until every request enqueued so far has been handled.
func (p *Prefetcher) Wait() { p.pending.Wait() }

// Close stops accepting requests, cancels in-flight fetches and waits for the
// workers to exit. Queued requests are discarded.
func (p *Prefetcher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	return nil
}

func (p *Prefetcher) worker() {
	defer p.wg.Done()
	for req := range p.queue {
		if p.ctx.Err() == nil {
			p.handle(req)
		}
		p.pending.Done()
	}
}

func (p *Prefetcher) handle(req request) {
	ctx := p.ctx
	if _, ok, err := p.opts.Cache.Get(ctx, req.key); err == nil && ok {
		p.count(func(s *Stats) { s.Cached++ })
		// The entry's expiry is unknown, so the next request checks again.
		p.forget(req.key)
		return
	}

	target := p.opts.URLFor(req.url, req.bucket)
	host := hostOf(target)
	if err := p.limiter(host).Wait(ctx); err != nil {
		return
	}

	start := time.Now()
	var (
		body   []byte
		status int
	)
	err := httputil.Retry(ctx, p.opts.Attempts, p.opts.RetryDelay, func() error {
		var err error
		body, status, err = httputil.Fetch(ctx, p.opts.Client, target, p.opts.MaxBytes)
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.count(func(s *Stats) { s.Failed++ })
		p.forget(req.key)
		p.opts.Hooks.OnError(ctx, host, err)
		p.opts.Logger.Debug("prefetch failed", "url", target, "bucket", req.bucket, "err", err)
		return
	}
	p.opts.Hooks.OnFetch(ctx, host, status, len(body), time.Since(start))

	if err := p.opts.Cache.Set(ctx, req.key, body, p.opts.TTL); err != nil {
		p.opts.Logger.Debug("prefetch store failed", "key", req.key, "err", err)
	}
	p.mu.Lock()
	p.seen[req.key] = p.now().Add(p.opts.TTL)
	p.stats.Fetched++
	p.mu.Unlock()
}

// forget lets key be requested again on a later frame.
func (p *Prefetcher) forget(key string) {
	p.mu.Lock()
	delete(p.seen, key)
	p.mu.Unlock()
}

func (p *Prefetcher) count(f func(*Stats)) {
	p.mu.Lock()
	f(&p.stats)
	p.mu.Unlock()
}

func (p *Prefetcher) limiter(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(p.opts.RatePerSecond), p.opts.Burst)
		p.limiters[host] = l
	}
	return l
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// String describes the pool for log lines.
func (p *Prefetcher) String() string {
	return fmt.Sprintf("prefetch(workers=%d, queue=%d, rate=%.0f/s)",
		p.opts.Workers, p.opts.QueueSize, p.opts.RatePerSecond)
}

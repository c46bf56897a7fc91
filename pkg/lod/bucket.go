package lod

import (
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
)

// DefaultBuckets are the image resolutions, in device pixels, a node photo
// can be requested at.
var DefaultBuckets = []int{64, 128, 256, 512}

// Defaults for image bucket selection.
const (
	DefaultBucketHysteresis = 0.15
	DefaultDebounce         = 150 * time.Millisecond
)

// BucketOptions configures a BucketController.
type BucketOptions struct {
	// Buckets must be ascending. Nil selects DefaultBuckets.
	Buckets []int
	// DevicePixelRatio scales logical on-screen sizes to device pixels.
	DevicePixelRatio float64
	// Hysteresis is the fraction of the current bucket the device size must
	// exceed it by before an upgrade is scheduled.
	Hysteresis float64
	// Debounce is how long an upgrade target must stay unchanged before it
	// commits.
	Debounce time.Duration
	// OnCommit, if set, is called whenever a node's bucket changes. Upgrades
	// call it from a timer goroutine. It is never called with the
	// controller's lock held.
	OnCommit func(id family.ID, bucket int)
}

func (o BucketOptions) withDefaults() BucketOptions {
	if len(o.Buckets) == 0 {
		o.Buckets = DefaultBuckets
	}
	o.Buckets = slices.Clone(o.Buckets)
	slices.Sort(o.Buckets)
	if !(o.DevicePixelRatio > 0) {
		o.DevicePixelRatio = 1
	}
	if !(o.Hysteresis > 0) {
		o.Hysteresis = DefaultBucketHysteresis
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	return o
}

type bucketState struct {
	current int
	pending int // 0 when no upgrade is scheduled
	timer   *time.Timer
	gen     uint64
}

func (s *bucketState) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = 0
	s.gen++
}

// BucketController tracks the committed image bucket of each node.
//
// Each node has at most one pending upgrade. A trigger with a different
// target replaces it and restarts the debounce window, so a burst of triggers
// commits only the last one. Repeated reports of the pending target leave the
// window running. Timers that fire after being replaced are recognised by a generation
// counter and do nothing.
type BucketController struct {
	opts BucketOptions

	mu     sync.Mutex
	nodes  map[family.ID]*bucketState
	closed bool
}

// NewBucketController returns an empty controller.
func NewBucketController(opts BucketOptions) *BucketController {
	return &BucketController{
		opts:  opts.withDefaults(),
		nodes: make(map[family.ID]*bucketState),
	}
}

// Target returns the smallest bucket not below the device-pixel size of a
// node drawn sizePx logical pixels wide. Sizes beyond the largest bucket map
// to the largest bucket.
func (c *BucketController) Target(sizePx float64) int {
	px := sizePx * c.opts.DevicePixelRatio
	for _, b := range c.opts.Buckets {
		if float64(b) >= px {
			return b
		}
	}
	return c.opts.Buckets[len(c.opts.Buckets)-1]
}

// Update reports that node id is drawn sizePx logical pixels wide and returns
// its committed bucket.
//
// The first report for a node commits immediately. After that a smaller
// target commits immediately, and a larger target is scheduled if the device
// size exceeds the current bucket by more than the hysteresis margin. A
// target equal to the current bucket cancels any pending upgrade, and a
// target equal to the pending one keeps its timer.
func (c *BucketController) Update(id family.ID, sizePx float64) int {
	if !geom.Finite(sizePx) || sizePx < 0 {
		sizePx = 0
	}
	target := c.Target(sizePx)
	px := sizePx * c.opts.DevicePixelRatio

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	s, ok := c.nodes[id]
	if !ok {
		c.nodes[id] = &bucketState{current: target}
		c.mu.Unlock()
		c.commit(id, target)
		return target
	}

	current := s.current
	switch {
	case target == current:
		s.cancel()
	case target < current:
		s.cancel()
		s.current = target
		c.mu.Unlock()
		c.commit(id, target)
		return target
	case px <= float64(current)*(1+c.opts.Hysteresis):
		s.cancel()
	case target == s.pending:
		// unchanged target keeps its running timer
	default:
		c.schedule(id, s, target)
	}
	c.mu.Unlock()
	return current
}

// schedule replaces any pending upgrade of s with target. c.mu must be held.
func (c *BucketController) schedule(id family.ID, s *bucketState, target int) {
	s.cancel()
	s.pending = target
	gen := s.gen
	s.timer = time.AfterFunc(c.opts.Debounce, func() {
		c.fire(id, gen)
	})
}

func (c *BucketController) fire(id family.ID, gen uint64) {
	c.mu.Lock()
	s, ok := c.nodes[id]
	if c.closed || !ok || s.gen != gen || s.pending == 0 {
		c.mu.Unlock()
		return
	}
	bucket := s.pending
	s.current = bucket
	s.pending = 0
	s.timer = nil
	c.mu.Unlock()
	c.commit(id, bucket)
}

func (c *BucketController) commit(id family.ID, bucket int) {
	if c.opts.OnCommit != nil {
		c.opts.OnCommit(id, bucket)
	}
}

// Bucket returns the committed bucket of id.
func (c *BucketController) Bucket(id family.ID) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.nodes[id]
	if !ok {
		return 0, false
	}
	return s.current, true
}

// Pending returns the scheduled upgrade of id, if any.
func (c *BucketController) Pending(id family.ID) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.nodes[id]
	if !ok || s.pending == 0 {
		return 0, false
	}
	return s.pending, true
}

// Len returns the number of tracked nodes.
func (c *BucketController) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

// Remove forgets id and cancels its pending upgrade.
func (c *BucketController) Remove(id family.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.nodes[id]; ok {
		s.cancel()
		delete(c.nodes, id)
	}
}

// Reset forgets every node. Pending upgrades are cancelled.
func (c *BucketController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.nodes {
		s.cancel()
		delete(c.nodes, id)
	}
}

// Close cancels all pending upgrades. Later calls to Update are ignored.
func (c *BucketController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.nodes {
		s.cancel()
	}
	c.closed = true
}

// Package viewport turns gesture events into camera transforms.
//
// A [Controller] owns the current [geom.Transform] and a small state machine
// over gesture phases (idle, panning, pinching). Drift after a pan and
// navigation to a point are animations advanced explicitly by
// [Controller.Step], so the host decides the clock. Every change is pushed to
// subscribers registered with [Controller.Subscribe].
package viewport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kinview/pkg/geom"
)

// Phase is the gesture state of a Controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePanning
	PhasePinching
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePanning:
		return "panning"
	case PhasePinching:
		return "pinching"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Tuned defaults.
const (
	DefaultMinZoom      = 0.05
	DefaultMaxZoom      = 4.0
	DefaultDeceleration = 0.998
	DefaultMinVelocity  = 5.0
	DefaultZoomDuration = 350 * time.Millisecond
	DefaultMaxStep      = 4 * time.Millisecond
)

// DefaultSpring is a critically-damped-ish spring that settles without a
// visible overshoot at typical navigation distances.
var DefaultSpring = Spring{Stiffness: 170, Damping: 26, Mass: 1}

// Spring holds the constants of a damped spring.
type Spring struct {
	Stiffness float64
	Damping   float64
	Mass      float64
}

// Options configures a Controller.
type Options struct {
	// MinZoom and MaxZoom bound the scale.
	MinZoom float64
	MaxZoom float64

	// Deceleration is the velocity multiplier applied per millisecond of
	// drift after a pan ends. Values closer to 1 drift further.
	Deceleration float64
	// MinVelocity is the speed, in screen pixels per second, below which
	// drift stops.
	MinVelocity float64

	// Spring drives translation during navigation.
	Spring Spring
	// ZoomDuration is the length of the eased scale change during navigation.
	ZoomDuration time.Duration
	// MaxStep bounds the integration step of animations.
	MaxStep time.Duration

	// Initial is the starting transform. The zero value selects identity.
	Initial geom.Transform

	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if !(o.MinZoom > 0) {
		o.MinZoom = DefaultMinZoom
	}
	if !(o.MaxZoom > 0) {
		o.MaxZoom = DefaultMaxZoom
	}
	if o.MaxZoom < o.MinZoom {
		o.MinZoom, o.MaxZoom = o.MaxZoom, o.MinZoom
	}
	if !(o.Deceleration > 0 && o.Deceleration < 1) {
		o.Deceleration = DefaultDeceleration
	}
	if !(o.MinVelocity > 0) {
		o.MinVelocity = DefaultMinVelocity
	}
	if o.Spring.Stiffness <= 0 || o.Spring.Damping <= 0 || o.Spring.Mass <= 0 {
		o.Spring = DefaultSpring
	}
	if o.ZoomDuration <= 0 {
		o.ZoomDuration = DefaultZoomDuration
	}
	if o.MaxStep <= 0 {
		o.MaxStep = DefaultMaxStep
	}
	if !o.Initial.Valid() {
		o.Initial = geom.Identity
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Controller is the camera state machine. It is safe for concurrent use;
// gesture callbacks and Step serialise on an internal lock, and subscribers
// are called after the lock is released.
type Controller struct {
	opts Options

	mu    sync.Mutex
	t     geom.Transform
	phase Phase
	pan   geom.Transform // snapshot at PanStart
	pinch pinchState
	anim  animation

	subMu   sync.Mutex
	subs    map[int]func(geom.Transform)
	nextSub int
}

type pinchState struct {
	start geom.Transform
	focal geom.Point // screen focal point at PinchStart
	world geom.Point // world point under focal at PinchStart
}

// New returns a Controller at opts.Initial, clamped to the zoom range.
func New(opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{opts: opts, subs: make(map[int]func(geom.Transform))}
	c.t = c.clampScale(opts.Initial)
	return c
}

// Options returns the effective options.
func (c *Controller) Options() Options { return c.opts }

// Transform returns the current transform.
func (c *Controller) Transform() geom.Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Phase returns the current gesture phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Animating reports whether a drift or navigation animation is in flight.
func (c *Controller) Animating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anim != nil
}

// Subscribe registers fn to receive every transform change. The returned
// function removes the subscription.
func (c *Controller) Subscribe(fn func(geom.Transform)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Controller) publish(t geom.Transform) {
	c.subMu.Lock()
	fns := make([]func(geom.Transform), 0, len(c.subs))
	for id := 0; id < c.nextSub; id++ {
		if fn, ok := c.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
}

// update runs fn under the lock and publishes the transform if fn reports a
// change.
func (c *Controller) update(fn func() bool) bool {
	c.mu.Lock()
	changed := fn()
	t := c.t
	c.mu.Unlock()
	if changed {
		c.publish(t)
	}
	return changed
}

// SetTransform replaces the transform, cancelling any animation. Invalid
// transforms are ignored.
func (c *Controller) SetTransform(t geom.Transform) bool {
	if !t.Valid() {
		return false
	}
	return c.update(func() bool {
		c.anim = nil
		c.t = c.clampScale(t)
		return true
	})
}

// Cancel stops any in-flight animation where it is.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.anim = nil
	c.mu.Unlock()
}

func (c *Controller) clampScale(t geom.Transform) geom.Transform {
	t.Scale = geom.Clamp(t.Scale, c.opts.MinZoom, c.opts.MaxZoom)
	return t
}

// Step advances the running animation by dt and reports whether one is still
// in flight afterwards.
func (c *Controller) Step(dt time.Duration) bool {
	if dt <= 0 {
		return c.Animating()
	}
	var running bool
	c.update(func() bool {
		if c.anim == nil {
			return false
		}
		for remaining := dt; remaining > 0 && c.anim != nil; {
			h := min(remaining, c.opts.MaxStep)
			remaining -= h
			var done bool
			c.t, done = c.anim.step(c.t, h)
			if done {
				c.anim = nil
			}
		}
		running = c.anim != nil
		return true
	})
	return running
}

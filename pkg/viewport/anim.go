package viewport

import (
	"math"
	"time"

	"github.com/matzehuels/kinview/pkg/geom"
)

// animation advances a transform by h, returning the new transform and
// whether the animation has finished.
type animation interface {
	step(t geom.Transform, h time.Duration) (geom.Transform, bool)
}

// decay is post-pan drift. Velocity is in screen pixels per second and is
// multiplied by k every millisecond.
type decay struct {
	vx, vy float64
	k      float64
	stop   float64
}

func (d *decay) step(t geom.Transform, h time.Duration) (geom.Transform, bool) {
	ms := float64(h) / float64(time.Millisecond)
	f := math.Pow(d.k, ms)
	// Integrate v0*k^s over the step exactly so the path does not depend on
	// the step size.
	var dist float64
	if lnk := math.Log(d.k); lnk != 0 {
		dist = (f - 1) / lnk / 1000
	} else {
		dist = ms / 1000
	}
	t.TranslateX += d.vx * dist
	t.TranslateY += d.vy * dist
	d.vx *= f
	d.vy *= f
	return t, math.Hypot(d.vx, d.vy) < d.stop
}

// springAxis is one dimension of a damped spring.
type springAxis struct {
	x, v, target float64
}

func (a *springAxis) step(s Spring, h float64) {
	acc := (-s.Stiffness*(a.x-a.target) - s.Damping*a.v) / s.Mass
	a.v += acc * h
	a.x += a.v * h
}

func (a *springAxis) settled() bool {
	return math.Abs(a.x-a.target) < 0.5 && math.Abs(a.v) < 5
}

// navigation moves translation with a spring and scale with an eased timing
// curve. It finishes when both have arrived and then lands exactly on the
// target.
type navigation struct {
	spring   Spring
	tx, ty   springAxis
	from, to float64 // scale
	elapsed  time.Duration
	duration time.Duration
	target   geom.Transform
}

func newNavigation(from, to geom.Transform, s Spring, d time.Duration) *navigation {
	return &navigation{
		spring:   s,
		tx:       springAxis{x: from.TranslateX, target: to.TranslateX},
		ty:       springAxis{x: from.TranslateY, target: to.TranslateY},
		from:     from.Scale,
		to:       to.Scale,
		duration: d,
		target:   to,
	}
}

func (n *navigation) step(_ geom.Transform, h time.Duration) (geom.Transform, bool) {
	sec := h.Seconds()
	n.tx.step(n.spring, sec)
	n.ty.step(n.spring, sec)
	n.elapsed += h

	p := math.Min(1, float64(n.elapsed)/float64(n.duration))
	scale := n.from + (n.to-n.from)*EaseInOutCubic(p)

	if p >= 1 && n.tx.settled() && n.ty.settled() {
		return n.target, true
	}
	return geom.Transform{TranslateX: n.tx.x, TranslateY: n.ty.x, Scale: scale}, false
}

// EaseInOutCubic maps linear progress p in [0, 1] to eased progress.
func EaseInOutCubic(p float64) float64 {
	if p < 0.5 {
		return 4 * p * p * p
	}
	q := -2*p + 2
	return 1 - q*q*q/2
}

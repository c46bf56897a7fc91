package viewport

import (
	"math"

	"github.com/matzehuels/kinview/pkg/geom"
)

// PanStart begins a pan. It is ignored while a pinch is active. Any running
// animation stops where it is.
func (c *Controller) PanStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhasePinching {
		c.opts.Logger.Debug("ignoring pan start during pinch")
		return false
	}
	c.anim = nil
	c.phase = PhasePanning
	c.pan = c.t
	return true
}

// PanUpdate moves the view by the cumulative pointer delta since PanStart.
func (c *Controller) PanUpdate(dx, dy float64) bool {
	if !geom.Finite(dx) || !geom.Finite(dy) {
		return false
	}
	return c.update(func() bool {
		if c.phase != PhasePanning {
			return false
		}
		c.t.TranslateX = c.pan.TranslateX + dx
		c.t.TranslateY = c.pan.TranslateY + dy
		return true
	})
}

// PanEnd finishes a pan. A release velocity (screen pixels per second) above
// MinVelocity starts a decaying drift.
func (c *Controller) PanEnd(vx, vy float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhasePanning {
		return false
	}
	c.phase = PhaseIdle
	if !geom.Finite(vx) || !geom.Finite(vy) {
		return true
	}
	if math.Hypot(vx, vy) > c.opts.MinVelocity {
		c.anim = &decay{vx: vx, vy: vy, k: c.opts.Deceleration, stop: c.opts.MinVelocity}
	}
	return true
}

// PinchStart begins a pinch around the screen focal point (fx, fy). A pinch
// takes over from an active pan.
func (c *Controller) PinchStart(fx, fy float64) bool {
	if !geom.Finite(fx) || !geom.Finite(fy) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	focal := geom.Point{X: fx, Y: fy}
	c.anim = nil
	c.phase = PhasePinching
	c.pinch = pinchState{start: c.t, focal: focal, world: c.t.ScreenToWorld(focal)}
	return true
}

// PinchUpdate applies a cumulative scale factor relative to PinchStart. The
// world point that was under the initial focal point stays under it, and any
// movement of the focal point since PinchStart pans the view by the same
// amount. Events with a pointer count other than two are ignored.
func (c *Controller) PinchUpdate(factor, fx, fy float64, pointers int) bool {
	if pointers != 2 {
		c.opts.Logger.Debug("ignoring pinch update", "pointers", pointers)
		return false
	}
	if !(factor > 0) || math.IsInf(factor, 0) || !geom.Finite(fx) || !geom.Finite(fy) {
		return false
	}
	return c.update(func() bool {
		if c.phase != PhasePinching {
			return false
		}
		p := c.pinch
		scale := geom.Clamp(p.start.Scale*factor, c.opts.MinZoom, c.opts.MaxZoom)

		// Anchor: keep p.world under the initial focal point.
		tx := p.focal.X - p.world.X*scale
		ty := p.focal.Y - p.world.Y*scale
		// Drift: follow the focal point.
		tx += fx - p.focal.X
		ty += fy - p.focal.Y

		c.t = geom.Transform{TranslateX: tx, TranslateY: ty, Scale: scale}
		return true
	})
}

// PinchEnd finishes a pinch.
func (c *Controller) PinchEnd() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhasePinching {
		return false
	}
	c.phase = PhaseIdle
	return true
}

// PanBy moves the view by (dx, dy) screen pixels outside of any gesture.
func (c *Controller) PanBy(dx, dy float64) bool {
	if !geom.Finite(dx) || !geom.Finite(dy) {
		return false
	}
	return c.update(func() bool {
		if c.phase != PhaseIdle {
			return false
		}
		c.anim = nil
		c.t.TranslateX += dx
		c.t.TranslateY += dy
		return true
	})
}

// ZoomBy multiplies the scale by factor around the screen point focal,
// outside of any gesture.
func (c *Controller) ZoomBy(factor float64, focal geom.Point) bool {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return false
	}
	return c.update(func() bool {
		if c.phase != PhaseIdle {
			return false
		}
		c.anim = nil
		w := c.t.ScreenToWorld(focal)
		scale := geom.Clamp(c.t.Scale*factor, c.opts.MinZoom, c.opts.MaxZoom)
		c.t = geom.Transform{
			TranslateX: focal.X - w.X*scale,
			TranslateY: focal.Y - w.Y*scale,
			Scale:      scale,
		}
		return true
	})
}

// CenterOn animates the view so that world point p sits at the centre of a
// viewport of the given size at the given scale. Translation follows the
// spring; scale follows an eased curve over ZoomDuration. Any running
// animation or gesture is cancelled first.
func (c *Controller) CenterOn(p geom.Point, scale float64, viewport geom.Size) bool {
	if !geom.Finite(p.X) || !geom.Finite(p.Y) || !(scale > 0) || math.IsInf(scale, 0) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.anim = nil
	c.phase = PhaseIdle

	scale = geom.Clamp(scale, c.opts.MinZoom, c.opts.MaxZoom)
	target := geom.Transform{
		TranslateX: viewport.W/2 - p.X*scale,
		TranslateY: viewport.H/2 - p.Y*scale,
		Scale:      scale,
	}
	c.anim = newNavigation(c.t, target, c.opts.Spring, c.opts.ZoomDuration)
	c.opts.Logger.Debug("navigate", "x", p.X, "y", p.Y, "scale", scale)
	return true
}

// Package geom holds the small set of 2D value types shared by the layout,
// spatial, viewport and render packages.
//
// World space is the layout's canvas (float units produced by the layout
// engine). Screen space is the viewport, in device-independent pixels. A
// [Transform] maps world to screen as
//
//	screen = world*Scale + Translate
package geom

import "math"

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// RectFromCenter returns the rectangle of size w×h centred on (cx, cy).
func RectFromCenter(cx, cy, w, h float64) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Empty reports whether the rectangle has no area or is not finite.
func (r Rect) Empty() bool {
	return !(r.W > 0 && r.H > 0) || math.IsInf(r.W, 0) || math.IsInf(r.H, 0)
}

// Intersects reports whether r and o overlap. Touching edges count.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.MaxX() && o.X <= r.MaxX() && r.Y <= o.MaxY() && o.Y <= r.MaxY()
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.MaxX() <= r.MaxX() && o.MaxY() <= r.MaxY()
}

// Inset grows (d > 0) or shrinks (d < 0) the rectangle on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// Union returns the smallest rectangle containing r and o. The zero Rect is
// treated as "no rectangle yet".
func (r Rect) Union(o Rect) Rect {
	if r == (Rect{}) {
		return o
	}
	minX, minY := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	maxX, maxY := math.Max(r.MaxX(), o.MaxX()), math.Max(r.MaxY(), o.MaxY())
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Transform is the camera: a uniform scale followed by a translation.
// Scale is always positive for a valid transform.
type Transform struct {
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
	Scale      float64 `json:"scale"`
}

// Identity is the transform that maps world space onto screen space 1:1.
var Identity = Transform{Scale: 1}

// Valid reports whether the transform has a finite, positive scale and a
// finite translation.
func (t Transform) Valid() bool {
	return t.Scale > 0 && !math.IsInf(t.Scale, 0) &&
		!math.IsNaN(t.TranslateX) && !math.IsInf(t.TranslateX, 0) &&
		!math.IsNaN(t.TranslateY) && !math.IsInf(t.TranslateY, 0)
}

// WorldToScreen maps a world point to screen space.
func (t Transform) WorldToScreen(p Point) Point {
	return Point{X: p.X*t.Scale + t.TranslateX, Y: p.Y*t.Scale + t.TranslateY}
}

// ScreenToWorld maps a screen point back to world space.
func (t Transform) ScreenToWorld(p Point) Point {
	return Point{X: (p.X - t.TranslateX) / t.Scale, Y: (p.Y - t.TranslateY) / t.Scale}
}

// ScreenRectToWorld maps a screen-space rectangle to world space.
func (t Transform) ScreenRectToWorld(r Rect) Rect {
	p := t.ScreenToWorld(Point{X: r.X, Y: r.Y})
	return Rect{X: p.X, Y: p.Y, W: r.W / t.Scale, H: r.H / t.Scale}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

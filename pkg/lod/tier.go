package lod

import (
	"fmt"
	"math"
	"sync"

	"github.com/matzehuels/kinview/pkg/geom"
)

// Tier is a node detail level.
type Tier int

const (
	// TierFull draws photos, names and decorations.
	TierFull Tier = 1
	// TierCompact draws a label-only box.
	TierCompact Tier = 2
)

func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierCompact:
		return "compact"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Tuned defaults. They come from hand tuning on real trees and are not
// derived from anything; treat them as starting points.
const (
	DefaultQuantizeStep  = 0.05
	DefaultReferenceSize = 96.0
	DefaultThresholdPx   = 48.0
	DefaultHysteresis    = 0.15
)

// TierOptions configures a TierController.
type TierOptions struct {
	// QuantizeStep is the scale granularity. Scale changes smaller than one
	// step are not evaluated.
	QuantizeStep float64
	// ReferenceSize is the world-space node size whose on-screen size is
	// compared against the threshold.
	ReferenceSize float64
	// ThresholdPx is the on-screen size, in pixels, at the tier boundary.
	ThresholdPx float64
	// Hysteresis is the fractional half-width of the band around ThresholdPx.
	Hysteresis float64
	// ForceFullDetail pins the controller to TierFull.
	ForceFullDetail bool
	// OnChange, if set, is called after every tier transition. It runs on the
	// goroutine calling Update, outside the controller's lock.
	OnChange func(from, to Tier)
}

func (o TierOptions) withDefaults() TierOptions {
	if !(o.QuantizeStep > 0) {
		o.QuantizeStep = DefaultQuantizeStep
	}
	if !(o.ReferenceSize > 0) {
		o.ReferenceSize = DefaultReferenceSize
	}
	if !(o.ThresholdPx > 0) {
		o.ThresholdPx = DefaultThresholdPx
	}
	if !(o.Hysteresis > 0) {
		o.Hysteresis = DefaultHysteresis
	}
	return o
}

// TierState is a snapshot of a TierController.
type TierState struct {
	Tier               Tier
	LastQuantizedScale float64
}

// TierController maps a camera scale to a Tier.
//
// A full-detail controller drops to compact once the quantized on-screen node
// size falls below ThresholdPx*(1-Hysteresis); a compact controller returns to
// full once it exceeds ThresholdPx*(1+Hysteresis). Inside the band the
// current tier is kept.
type TierController struct {
	opts TierOptions

	mu       sync.Mutex
	tier     Tier
	step     int64 // last quantized scale, in steps
	hasScale bool
	force    bool
}

// NewTierController returns a controller starting at TierFull.
func NewTierController(opts TierOptions) *TierController {
	opts = opts.withDefaults()
	return &TierController{opts: opts, tier: TierFull, force: opts.ForceFullDetail}
}

// Quantize rounds scale to the nearest multiple of step.
func Quantize(scale, step float64) float64 {
	return math.Round(scale/step) * step
}

// Update feeds a new camera scale and returns the resulting tier. Invalid
// scales (non-finite or not positive) leave the state untouched.
func (c *TierController) Update(scale float64) Tier {
	if !geom.Finite(scale) || scale <= 0 {
		return c.Tier()
	}
	k := int64(math.Round(scale / c.opts.QuantizeStep))

	c.mu.Lock()
	if c.hasScale && k == c.step {
		t := c.tier
		c.mu.Unlock()
		return t
	}
	c.step, c.hasScale = k, true

	from := c.tier
	to := from
	if c.force {
		to = TierFull
	} else {
		px := float64(k) * c.opts.QuantizeStep * c.opts.ReferenceSize
		switch from {
		case TierFull:
			if px < c.opts.ThresholdPx*(1-c.opts.Hysteresis) {
				to = TierCompact
			}
		case TierCompact:
			if px > c.opts.ThresholdPx*(1+c.opts.Hysteresis) {
				to = TierFull
			}
		}
	}
	c.tier = to
	c.mu.Unlock()

	if to != from && c.opts.OnChange != nil {
		c.opts.OnChange(from, to)
	}
	return to
}

// Tier returns the current tier.
func (c *TierController) Tier() Tier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tier
}

// State returns the current tier and the last quantized scale.
func (c *TierController) State() TierState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return TierState{Tier: c.tier, LastQuantizedScale: float64(c.step) * c.opts.QuantizeStep}
}

// SetForceFullDetail toggles the kill switch. Enabling it switches to
// TierFull at once; disabling it re-evaluates on the next scale change.
func (c *TierController) SetForceFullDetail(on bool) {
	c.mu.Lock()
	c.force = on
	from := c.tier
	if on {
		c.tier = TierFull
	}
	// Forget the last step so the next Update re-evaluates even at the same
	// scale.
	c.hasScale = false
	c.mu.Unlock()

	if on && from != TierFull && c.opts.OnChange != nil {
		c.opts.OnChange(from, TierFull)
	}
}

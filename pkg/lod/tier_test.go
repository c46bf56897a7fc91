package lod

import (
	"math"
	"testing"
)

func TestTierUpdate(t *testing.T) {
	tests := []struct {
		name   string
		scales []float64
		want   Tier
	}{
		{name: "starts full", scales: nil, want: TierFull},
		{name: "full at scale 1", scales: []float64{1}, want: TierFull},
		{name: "compact below band", scales: []float64{0.4}, want: TierCompact},
		{name: "stays full inside band", scales: []float64{1, 0.45}, want: TierFull},
		{name: "stays compact inside band", scales: []float64{0.3, 0.55}, want: TierCompact},
		{name: "back to full above band", scales: []float64{0.3, 0.6}, want: TierFull},
		{name: "invalid scale ignored", scales: []float64{0.3, math.NaN(), -1, 0, math.Inf(1)}, want: TierCompact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewTierController(TierOptions{})
			got := c.Tier()
			for _, s := range tt.scales {
				got = c.Update(s)
			}
			if got != tt.want {
				t.Errorf("tier = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTierNoFlapping(t *testing.T) {
	var changes int
	c := NewTierController(TierOptions{OnChange: func(from, to Tier) { changes++ }})

	// Threshold 48px at reference 96 puts the boundary at scale 0.5.
	c.Update(1)
	for i := range 200 {
		// Oscillate within ±5% of the boundary, like a settling spring.
		c.Update(0.5 + 0.025*math.Sin(float64(i)/3))
	}
	if changes != 0 {
		t.Fatalf("tier changed %d times while oscillating inside the band", changes)
	}

	c.Update(0.35)
	for i := range 200 {
		c.Update(0.5 + 0.025*math.Sin(float64(i)/3))
	}
	c.Update(0.7)
	if changes != 2 {
		t.Errorf("tier changed %d times across two band crossings, want 2", changes)
	}
}

func TestTierQuantization(t *testing.T) {
	c := NewTierController(TierOptions{})
	c.Update(0.71)
	c.Update(0.712)
	c.Update(0.689)
	if got := c.State().LastQuantizedScale; math.Abs(got-0.7) > 1e-9 {
		t.Errorf("LastQuantizedScale = %v, want 0.7", got)
	}
	if got := Quantize(0.374, 0.05); math.Abs(got-0.35) > 1e-9 {
		t.Errorf("Quantize(0.374, 0.05) = %v, want 0.35", got)
	}
}

func TestTierForceFullDetail(t *testing.T) {
	t.Run("option", func(t *testing.T) {
		c := NewTierController(TierOptions{ForceFullDetail: true})
		if got := c.Update(0.05); got != TierFull {
			t.Errorf("Update(0.05) = %v, want full", got)
		}
	})

	t.Run("toggle", func(t *testing.T) {
		var last Tier
		c := NewTierController(TierOptions{OnChange: func(_, to Tier) { last = to }})
		c.Update(0.2)
		c.SetForceFullDetail(true)
		if c.Tier() != TierFull || last != TierFull {
			t.Fatalf("after enabling kill switch tier = %v (callback %v), want full", c.Tier(), last)
		}
		c.SetForceFullDetail(false)
		if got := c.Update(0.2); got != TierCompact {
			t.Errorf("Update(0.2) after disabling = %v, want compact", got)
		}
	})
}

func TestTierString(t *testing.T) {
	if TierFull.String() != "full" || TierCompact.String() != "compact" || Tier(7).String() != "tier(7)" {
		t.Error("unexpected Tier.String output")
	}
}

package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	ctx := context.Background()
	h := m.Hooks()

	h.Engine.OnLayoutComplete(ctx, 120, 10*time.Millisecond, nil)
	h.Engine.OnLayoutComplete(ctx, 0, time.Millisecond, errors.New("multiple roots"))
	h.Engine.OnFrame(ctx, 350, 300, 1200, true, 2*time.Millisecond)
	h.Engine.OnTierChange(ctx, "full", "compact")
	h.Cache.OnCacheHit(ctx, "layout")
	h.Cache.OnCacheMiss(ctx, "layout")
	h.Cache.OnCacheSet(ctx, "image", 2048)
	h.Prefetch.OnEnqueue(ctx, 256)
	h.Prefetch.OnDrop(ctx, "queue_full")
	h.Prefetch.OnFetch(ctx, "img.example", 503, 0, time.Millisecond)
	h.Prefetch.OnError(ctx, "img.example", errors.New("timeout"))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"layouts ok", testutil.ToFloat64(m.LayoutsTotal.WithLabelValues("ok")), 1},
		{"layouts error", testutil.ToFloat64(m.LayoutsTotal.WithLabelValues("error")), 1},
		{"layout nodes", testutil.ToFloat64(m.LayoutNodes), 120},
		{"frames", testutil.ToFloat64(m.FramesTotal), 1},
		{"truncated", testutil.ToFloat64(m.FramesTruncated), 1},
		{"tier", testutil.ToFloat64(m.TierChanges.WithLabelValues("compact")), 1},
		{"cache hit", testutil.ToFloat64(m.CacheRequests.WithLabelValues("layout", "hit")), 1},
		{"cache bytes", testutil.ToFloat64(m.CacheBytes.WithLabelValues("image")), 2048},
		{"enqueued", testutil.ToFloat64(m.PrefetchEnqueued.WithLabelValues("256")), 1},
		{"dropped", testutil.ToFloat64(m.PrefetchDropped.WithLabelValues("queue_full")), 1},
		{"5xx", testutil.ToFloat64(m.PrefetchFetches.WithLabelValues("5xx")), 1},
		{"errors", testutil.ToFloat64(m.PrefetchErrors), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("second New on the same registry should panic on duplicate registration")
		}
	}()
	New(reg)
}

// Package prom implements the observability hooks with Prometheus
// collectors.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/kinview/pkg/observability"
)

const namespace = "kinview"

// Metrics holds every collector. It implements EngineHooks, CacheHooks and
// PrefetchHooks.
type Metrics struct {
	// Layout
	LayoutsTotal       *prometheus.CounterVec
	LayoutDuration     prometheus.Histogram
	LayoutNodes        prometheus.Gauge
	RebuildsSuperseded prometheus.Counter

	// Frames
	FramesTotal     prometheus.Counter
	FrameDuration   prometheus.Histogram
	FrameNodes      prometheus.Histogram
	FramePrimitives prometheus.Histogram
	FramesTruncated prometheus.Counter
	TierChanges     *prometheus.CounterVec

	// Cache
	CacheRequests *prometheus.CounterVec
	CacheBytes    *prometheus.CounterVec

	// Prefetch
	PrefetchEnqueued *prometheus.CounterVec
	PrefetchDropped  *prometheus.CounterVec
	PrefetchFetches  *prometheus.CounterVec
	PrefetchErrors   prometheus.Counter
	PrefetchDuration prometheus.Histogram
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LayoutsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layouts_total",
			Help:      "Layout passes by result",
		}, []string{"status"}),
		LayoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Layout, index and grid build time",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		LayoutNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layout_nodes",
			Help:      "Nodes in the most recent layout",
		}),
		RebuildsSuperseded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_superseded_total",
			Help:      "Rebuilds cancelled by a newer record set",
		}),

		FramesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Rendered frames",
		}),
		FrameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Render pass duration",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.004, 0.008, 0.016, 0.033},
		}),
		FrameNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_visible_nodes",
			Help:      "Visible nodes per frame",
			Buckets:   []float64{1, 10, 50, 100, 200, 350},
		}),
		FramePrimitives: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_primitives",
			Help:      "Primitives per frame",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 10),
		}),
		FramesTruncated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_truncated_total",
			Help:      "Frames that hit a node or edge cap",
		}),
		TierChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_changes_total",
			Help:      "Level-of-detail transitions",
		}, []string{"to"}),

		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by key type and result",
		}, []string{"key_type", "result"}),
		CacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache",
		}, []string{"key_type"}),

		PrefetchEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_enqueued_total",
			Help:      "Prefetch requests accepted by bucket",
		}, []string{"bucket"}),
		PrefetchDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_dropped_total",
			Help:      "Prefetch requests dropped",
		}, []string{"reason"}),
		PrefetchFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_fetches_total",
			Help:      "Completed photo fetches by status class",
		}, []string{"status"}),
		PrefetchErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_errors_total",
			Help:      "Photo fetches that failed after retries",
		}),
		PrefetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prefetch_duration_seconds",
			Help:      "Photo fetch duration",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Hooks returns m as a hooks bundle.
func (m *Metrics) Hooks() observability.Hooks {
	return observability.Hooks{Engine: m, Cache: m, Prefetch: m}
}

// =============================================================================
// EngineHooks
// =============================================================================

func (m *Metrics) OnLayoutStart(context.Context, int) {}

func (m *Metrics) OnLayoutComplete(_ context.Context, nodes int, d time.Duration, err error) {
	if err != nil {
		m.LayoutsTotal.WithLabelValues("error").Inc()
		return
	}
	m.LayoutsTotal.WithLabelValues("ok").Inc()
	m.LayoutDuration.Observe(d.Seconds())
	m.LayoutNodes.Set(float64(nodes))
}

func (m *Metrics) OnRebuildSuperseded(context.Context) { m.RebuildsSuperseded.Inc() }

func (m *Metrics) OnFrame(_ context.Context, visible, _, primitives int, truncated bool, d time.Duration) {
	m.FramesTotal.Inc()
	m.FrameDuration.Observe(d.Seconds())
	m.FrameNodes.Observe(float64(visible))
	m.FramePrimitives.Observe(float64(primitives))
	if truncated {
		m.FramesTruncated.Inc()
	}
}

func (m *Metrics) OnTierChange(_ context.Context, _, to string) {
	m.TierChanges.WithLabelValues(to).Inc()
}

// =============================================================================
// CacheHooks
// =============================================================================

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// =============================================================================
// PrefetchHooks
// =============================================================================

func (m *Metrics) OnEnqueue(_ context.Context, bucket int) {
	m.PrefetchEnqueued.WithLabelValues(bucketLabel(bucket)).Inc()
}

func (m *Metrics) OnDrop(_ context.Context, reason string) {
	m.PrefetchDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnFetch(_ context.Context, _ string, status, _ int, d time.Duration) {
	m.PrefetchFetches.WithLabelValues(statusClass(status)).Inc()
	m.PrefetchDuration.Observe(d.Seconds())
}

func (m *Metrics) OnError(context.Context, string, error) { m.PrefetchErrors.Inc() }

func bucketLabel(b int) string {
	switch {
	case b <= 64:
		return "64"
	case b <= 128:
		return "128"
	case b <= 256:
		return "256"
	default:
		return "512"
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var (
	_ observability.EngineHooks   = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.PrefetchHooks = (*Metrics)(nil)
)

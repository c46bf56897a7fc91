// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Hosts build a [Hooks]
// value at startup and pass it to the engine, caches and prefetcher through
// their options.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Inject implementations explicitly; there is no process-wide registry
//
// The [prom] subpackage implements every interface with Prometheus
// collectors.
//
// # Usage
//
//	m := prom.New(prometheus.DefaultRegisterer)
//	eng := engine.New(cfg, engine.WithHooks(m.Hooks()))
//
// Libraries call hooks to emit events:
//
//	hooks.Engine.OnLayoutStart(ctx, len(records))
//	// ... layout ...
//	hooks.Engine.OnLayoutComplete(ctx, nodes, time.Since(start), err)
//
// [prom]: github.com/matzehuels/kinview/pkg/observability/prom
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Engine Hooks
// =============================================================================

// EngineHooks receives events from layout rebuilds and frame rendering.
type EngineHooks interface {
	// Layout events
	OnLayoutStart(ctx context.Context, records int)
	OnLayoutComplete(ctx context.Context, nodes int, duration time.Duration, err error)

	// OnRebuildSuperseded records a rebuild cancelled by a newer record set.
	OnRebuildSuperseded(ctx context.Context)

	// OnFrame records one render pass.
	OnFrame(ctx context.Context, visible, edges, primitives int, truncated bool, duration time.Duration)

	// OnTierChange records a level-of-detail transition.
	OnTierChange(ctx context.Context, from, to string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Prefetch Hooks
// =============================================================================

// PrefetchHooks receives events from the image prefetcher.
type PrefetchHooks interface {
	// OnEnqueue records a request accepted into the queue.
	OnEnqueue(ctx context.Context, bucket int)

	// OnDrop records a request dropped because the queue was full or the
	// URL was already handled.
	OnDrop(ctx context.Context, reason string)

	// OnFetch records a completed fetch.
	OnFetch(ctx context.Context, host string, statusCode int, size int, duration time.Duration)

	// OnError records a failed fetch after retries.
	OnError(ctx context.Context, host string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnLayoutStart(context.Context, int)                          {}
func (NoopEngineHooks) OnLayoutComplete(context.Context, int, time.Duration, error) {}
func (NoopEngineHooks) OnRebuildSuperseded(context.Context)                         {}
func (NoopEngineHooks) OnFrame(context.Context, int, int, int, bool, time.Duration) {}
func (NoopEngineHooks) OnTierChange(context.Context, string, string)                {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopPrefetchHooks is a no-op implementation of PrefetchHooks.
type NoopPrefetchHooks struct{}

func (NoopPrefetchHooks) OnEnqueue(context.Context, int)                           {}
func (NoopPrefetchHooks) OnDrop(context.Context, string)                           {}
func (NoopPrefetchHooks) OnFetch(context.Context, string, int, int, time.Duration) {}
func (NoopPrefetchHooks) OnError(context.Context, string, error)                   {}

// =============================================================================
// Bundle
// =============================================================================

// Hooks bundles one implementation per category. Nil fields are treated as
// no-ops.
type Hooks struct {
	Engine   EngineHooks
	Cache    CacheHooks
	Prefetch PrefetchHooks
}

// Noop returns a bundle of no-op hooks.
func Noop() Hooks {
	return Hooks{Engine: NoopEngineHooks{}, Cache: NoopCacheHooks{}, Prefetch: NoopPrefetchHooks{}}
}

// OrNoop fills nil fields with no-op implementations.
func (h Hooks) OrNoop() Hooks {
	if h.Engine == nil {
		h.Engine = NoopEngineHooks{}
	}
	if h.Cache == nil {
		h.Cache = NoopCacheHooks{}
	}
	if h.Prefetch == nil {
		h.Prefetch = NoopPrefetchHooks{}
	}
	return h
}

package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopEngineHooks{}
	e.OnLayoutStart(ctx, 100)
	e.OnLayoutComplete(ctx, 100, time.Second, nil)
	e.OnRebuildSuperseded(ctx)
	e.OnFrame(ctx, 10, 9, 40, false, time.Millisecond)
	e.OnTierChange(ctx, "full", "compact")

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "image")
	c.OnCacheSet(ctx, "layout", 1024)

	p := NoopPrefetchHooks{}
	p.OnEnqueue(ctx, 128)
	p.OnDrop(ctx, "full")
	p.OnFetch(ctx, "img.example", 200, 2048, time.Millisecond)
	p.OnError(ctx, "img.example", errors.New("boom"))
}

type testEngineHooks struct {
	NoopEngineHooks
	frames int
}

func (h *testEngineHooks) OnFrame(context.Context, int, int, int, bool, time.Duration) { h.frames++ }

func TestOrNoop(t *testing.T) {
	custom := &testEngineHooks{}
	h := Hooks{Engine: custom}.OrNoop()

	if h.Engine != custom {
		t.Error("OrNoop replaced a set field")
	}
	if _, ok := h.Cache.(NoopCacheHooks); !ok {
		t.Error("OrNoop should fill Cache with NoopCacheHooks")
	}
	if _, ok := h.Prefetch.(NoopPrefetchHooks); !ok {
		t.Error("OrNoop should fill Prefetch with NoopPrefetchHooks")
	}

	h.Engine.OnFrame(context.Background(), 1, 0, 2, false, 0)
	if custom.frames != 1 {
		t.Errorf("frames = %d, want 1", custom.frames)
	}

	n := Noop()
	if n.Engine == nil || n.Cache == nil || n.Prefetch == nil {
		t.Error("Noop() left a field nil")
	}
}

package cache

import (
	"context"
	"time"

	"github.com/matzehuels/kinview/pkg/observability"
)

type instrumented struct {
	Cache
	hooks observability.CacheHooks
}

// Instrument reports hits, misses and writes of c to hooks. A nil hooks
// returns c unchanged.
func Instrument(c Cache, hooks observability.CacheHooks) Cache {
	if hooks == nil {
		return c
	}
	return &instrumented{Cache: c, hooks: hooks}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		return data, ok, err
	}
	if ok {
		c.hooks.OnCacheHit(ctx, KeyType(key))
	} else {
		c.hooks.OnCacheMiss(ctx, KeyType(key))
	}
	return data, ok, nil
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	c.hooks.OnCacheSet(ctx, KeyType(key), len(data))
	return nil
}

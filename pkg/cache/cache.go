// Package cache stores computed layouts and prefetched photo bytes.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for the
// preview server and [NullCache] when caching is disabled. Keys are built by
// a [Keyer] so that every component derives them the same way; wrap a Keyer
// with [NewScopedKeyer] to isolate tenants or environments.
//
//	c, _ := cache.NewFileCache(cache.DefaultDir())
//	c = cache.Instrument(c, hooks.Cache)
//	key := cache.NewDefaultKeyer().LayoutKey(cache.Hash(recordsJSON), opts)
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("cache closed")

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored bytes and whether the key was present. A miss
	// is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Key type prefixes, also used as hook labels.
const (
	KeyTypeLayout = "layout"
	KeyTypeImage  = "image"
)

// Default TTLs.
const (
	LayoutTTL = 7 * 24 * time.Hour
	ImageTTL  = 24 * time.Hour
)

package config

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kinview/pkg/cache"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/index"
	"github.com/matzehuels/kinview/pkg/layout"
	"github.com/matzehuels/kinview/pkg/lod"
	"github.com/matzehuels/kinview/pkg/prefetch"
	"github.com/matzehuels/kinview/pkg/render"
	"github.com/matzehuels/kinview/pkg/source"
	"github.com/matzehuels/kinview/pkg/spatial"
	"github.com/matzehuels/kinview/pkg/viewport"
)

func (c Layout) Options(logger *log.Logger) layout.Options {
	dir, _ := layout.ParseDirection(c.Direction)
	return layout.Options{
		Direction:       dir,
		PhotoNodeSize:   geom.Size{W: c.PhotoWidth, H: c.PhotoHeight},
		CompactNodeSize: geom.Size{W: c.CompactWidth, H: c.CompactHeight},
		MinGap:          c.MinGap,
		GapRatio:        c.GapRatio,
		CousinGapFactor: c.CousinGapFactor,
		LevelHeight:     c.LevelHeight,
		RootOffsetY:     c.RootOffsetY,
		FallbackSpacing: c.FallbackSpacing,
		Logger:          logger,
	}
}

// KeyOpts returns the layout settings that take part in the cache key.
func (c Layout) KeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Direction:       c.Direction,
		LevelHeight:     c.LevelHeight,
		RootOffsetY:     c.RootOffsetY,
		MinGap:          c.MinGap,
		GapRatio:        c.GapRatio,
		CousinGapFactor: c.CousinGapFactor,
	}
}

func (c Index) Options() index.Options { return index.Options{HeroCount: c.HeroCount} }

func (c Spatial) Options() spatial.Options {
	return spatial.Options{CellSize: c.CellSize, Padding: c.Padding, MaxNodes: c.MaxNodes}
}

func (c LOD) TierOptions() lod.TierOptions {
	return lod.TierOptions{
		QuantizeStep:    c.QuantizeStep,
		ReferenceSize:   c.ReferenceSize,
		ThresholdPx:     c.ThresholdPx,
		Hysteresis:      c.Hysteresis,
		ForceFullDetail: c.ForceFullDetail,
	}
}

func (c LOD) BucketOptions() lod.BucketOptions {
	return lod.BucketOptions{
		Buckets:          c.Buckets,
		DevicePixelRatio: c.DevicePixelRatio,
		Hysteresis:       c.BucketHysteresis,
		Debounce:         c.Debounce.Std(),
	}
}

func (c Viewport) Options(logger *log.Logger) viewport.Options {
	return viewport.Options{
		MinZoom:      c.MinZoom,
		MaxZoom:      c.MaxZoom,
		Deceleration: c.Deceleration,
		MinVelocity:  c.MinVelocity,
		Spring:       viewport.Spring{Stiffness: c.Stiffness, Damping: c.Damping, Mass: c.Mass},
		ZoomDuration: c.ZoomDuration.Std(),
		MaxStep:      c.MaxStep.Std(),
		Logger:       logger,
	}
}

// Options returns renderer options without controllers or a prefetcher.
func (c Render) Options(logger *log.Logger) render.Options {
	return render.Options{
		EdgeBatch:   c.EdgeBatch,
		MaxEdges:    c.MaxEdges,
		MaxPrefetch: c.MaxPrefetch,
		Palette:     render.DefaultPalette,
		Logger:      logger,
	}
}

func (c Prefetch) Options(logger *log.Logger) prefetch.Options {
	return prefetch.Options{
		Workers:       c.Workers,
		QueueSize:     c.QueueSize,
		RatePerSecond: c.RatePerSecond,
		Attempts:      c.Attempts,
		RetryDelay:    c.RetryDelay.Std(),
		Timeout:       c.Timeout.Std(),
		MaxBytes:      c.MaxBytes,
		Logger:        logger,
	}
}

// Open returns the configured cache backend and a keyer carrying Prefix.
func (c Cache) Open(ctx context.Context) (cache.Cache, cache.Keyer, error) {
	keyer := cache.NewDefaultKeyer()
	if c.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, c.Prefix)
	}
	switch c.Backend {
	case "none":
		return cache.NewNullCache(), keyer, nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, c.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rc, keyer, nil
	default:
		dir := c.Dir
		if dir == "" {
			dir = cache.DefaultDir()
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, nil, err
		}
		return fc, keyer, nil
	}
}

func (c Source) Options() source.Options {
	return source.Options{
		Backend:    c.Backend,
		Path:       c.Path,
		MongoURI:   c.MongoURI,
		Database:   c.Database,
		Collection: c.Collection,
	}
}

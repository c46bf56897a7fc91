// Package config loads kinview settings from TOML.
//
// Every tunable number of the engine lives here with its tuned default.
// Sections convert into the Options struct of the package that owns them,
// so a zero-valued field in a file falls back to the package default.
//
//	cfg, err := config.Load("kinview.toml")
//	grid := spatial.New(res.Nodes, cfg.Spatial.Options())
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/kinview/pkg/cache"
	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/index"
	"github.com/matzehuels/kinview/pkg/layout"
	"github.com/matzehuels/kinview/pkg/lod"
	"github.com/matzehuels/kinview/pkg/prefetch"
	"github.com/matzehuels/kinview/pkg/render"
	"github.com/matzehuels/kinview/pkg/spatial"
	"github.com/matzehuels/kinview/pkg/viewport"
)

// Duration is a time.Duration written as a Go duration string ("150ms").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete configuration.
type Config struct {
	Layout   Layout   `toml:"layout"`
	Index    Index    `toml:"index"`
	Spatial  Spatial  `toml:"spatial"`
	LOD      LOD      `toml:"lod"`
	Viewport Viewport `toml:"viewport"`
	Render   Render   `toml:"render"`
	Prefetch Prefetch `toml:"prefetch"`
	Cache    Cache    `toml:"cache"`
	Source   Source   `toml:"source"`
	Server   Server   `toml:"server"`
}

// =============================================================================
// Sections
// =============================================================================

type Layout struct {
	Direction       string  `toml:"direction"`
	MinGap          float64 `toml:"min_gap"`
	GapRatio        float64 `toml:"gap_ratio"`
	CousinGapFactor float64 `toml:"cousin_gap_factor"`
	LevelHeight     float64 `toml:"level_height"`
	RootOffsetY     float64 `toml:"root_offset_y"`
	FallbackSpacing float64 `toml:"fallback_spacing"`
	PhotoWidth      float64 `toml:"photo_width"`
	PhotoHeight     float64 `toml:"photo_height"`
	CompactWidth    float64 `toml:"compact_width"`
	CompactHeight   float64 `toml:"compact_height"`
}

type Index struct {
	HeroCount int `toml:"hero_count"`
}

type Spatial struct {
	CellSize float64 `toml:"cell_size"`
	// Padding is in screen pixels. A negative value disables padding.
	Padding  float64 `toml:"padding"`
	MaxNodes int     `toml:"max_nodes"`
}

type LOD struct {
	QuantizeStep     float64  `toml:"quantize_step"`
	ReferenceSize    float64  `toml:"reference_size"`
	ThresholdPx      float64  `toml:"threshold_px"`
	Hysteresis       float64  `toml:"hysteresis"`
	ForceFullDetail  bool     `toml:"force_full_detail"`
	Buckets          []int    `toml:"buckets"`
	DevicePixelRatio float64  `toml:"device_pixel_ratio"`
	BucketHysteresis float64  `toml:"bucket_hysteresis"`
	Debounce         Duration `toml:"debounce"`
}

type Viewport struct {
	MinZoom       float64  `toml:"min_zoom"`
	MaxZoom       float64  `toml:"max_zoom"`
	Deceleration  float64  `toml:"deceleration"`
	MinVelocity   float64  `toml:"min_velocity"`
	Stiffness     float64  `toml:"stiffness"`
	Damping       float64  `toml:"damping"`
	Mass          float64  `toml:"mass"`
	ZoomDuration  Duration `toml:"zoom_duration"`
	MaxStep       Duration `toml:"max_step"`
	NavigateScale float64  `toml:"navigate_scale"`
}

type Render struct {
	EdgeBatch   int `toml:"edge_batch"`
	MaxEdges    int `toml:"max_edges"`
	MaxPrefetch int `toml:"max_prefetch"`
}

type Prefetch struct {
	Enabled       bool     `toml:"enabled"`
	Workers       int      `toml:"workers"`
	QueueSize     int      `toml:"queue_size"`
	RatePerSecond float64  `toml:"rate_per_second"`
	Attempts      int      `toml:"attempts"`
	RetryDelay    Duration `toml:"retry_delay"`
	Timeout       Duration `toml:"timeout"`
	MaxBytes      int64    `toml:"max_bytes"`
}

// Cache selects the backend for layouts and photos.
type Cache struct {
	// Backend is "file", "redis" or "none".
	Backend  string   `toml:"backend"`
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	Prefix   string   `toml:"prefix"`
	TTL      Duration `toml:"ttl"`
}

// Source selects where records come from.
type Source struct {
	// Backend is "file" or "mongo".
	Backend    string   `toml:"backend"`
	Path       string   `toml:"path"`
	MongoURI   string   `toml:"mongo_uri"`
	Database   string   `toml:"database"`
	Collection string   `toml:"collection"`
	Timeout    Duration `toml:"timeout"`
}

type Server struct {
	Addr       string   `toml:"addr"`
	SessionTTL Duration `toml:"session_ttl"`
	MaxWidth   int      `toml:"max_width"`
	MaxHeight  int      `toml:"max_height"`
}

// =============================================================================
// Defaults and loading
// =============================================================================

// DefaultNavigateScale is the scale navigation zooms to.
const DefaultNavigateScale = 1.5

// Default returns the tuned defaults.
func Default() Config {
	return Config{
		Layout: Layout{
			Direction:       layout.LeftToRight.String(),
			MinGap:          layout.DefaultMinGap,
			GapRatio:        layout.DefaultGapRatio,
			CousinGapFactor: layout.DefaultCousinGapFactor,
			LevelHeight:     layout.DefaultLevelHeight,
			RootOffsetY:     layout.DefaultRootOffsetY,
			FallbackSpacing: layout.DefaultFallbackSpacing,
			PhotoWidth:      layout.DefaultPhotoNodeSize.W,
			PhotoHeight:     layout.DefaultPhotoNodeSize.H,
			CompactWidth:    layout.DefaultCompactNodeSize.W,
			CompactHeight:   layout.DefaultCompactNodeSize.H,
		},
		Index: Index{HeroCount: index.DefaultHeroCount},
		Spatial: Spatial{
			CellSize: spatial.DefaultCellSize,
			Padding:  spatial.DefaultPadding,
			MaxNodes: spatial.DefaultMaxNodes,
		},
		LOD: LOD{
			QuantizeStep:     lod.DefaultQuantizeStep,
			ReferenceSize:    lod.DefaultReferenceSize,
			ThresholdPx:      lod.DefaultThresholdPx,
			Hysteresis:       lod.DefaultHysteresis,
			Buckets:          append([]int(nil), lod.DefaultBuckets...),
			DevicePixelRatio: 1,
			BucketHysteresis: lod.DefaultBucketHysteresis,
			Debounce:         Duration(lod.DefaultDebounce),
		},
		Viewport: Viewport{
			MinZoom:       viewport.DefaultMinZoom,
			MaxZoom:       viewport.DefaultMaxZoom,
			Deceleration:  viewport.DefaultDeceleration,
			MinVelocity:   viewport.DefaultMinVelocity,
			Stiffness:     viewport.DefaultSpring.Stiffness,
			Damping:       viewport.DefaultSpring.Damping,
			Mass:          viewport.DefaultSpring.Mass,
			ZoomDuration:  Duration(viewport.DefaultZoomDuration),
			MaxStep:       Duration(viewport.DefaultMaxStep),
			NavigateScale: DefaultNavigateScale,
		},
		Render: Render{
			EdgeBatch:   render.DefaultEdgeBatch,
			MaxEdges:    render.DefaultMaxEdges,
			MaxPrefetch: render.DefaultMaxPrefetch,
		},
		Prefetch: Prefetch{
			Enabled:       true,
			Workers:       prefetch.DefaultWorkers,
			QueueSize:     prefetch.DefaultQueueSize,
			RatePerSecond: prefetch.DefaultRatePerSecond,
			Attempts:      prefetch.DefaultAttempts,
			RetryDelay:    Duration(prefetch.DefaultRetryDelay),
			Timeout:       Duration(prefetch.DefaultTimeout),
			MaxBytes:      prefetch.DefaultMaxBytes,
		},
		Cache: Cache{
			Backend: "file",
			Dir:     cache.DefaultDir(),
			TTL:     Duration(cache.LayoutTTL),
		},
		Source: Source{
			Backend:    "file",
			Database:   "kinview",
			Collection: "people",
			Timeout:    Duration(10 * time.Second),
		},
		Server: Server{
			Addr:       ":8080",
			SessionTTL: Duration(30 * time.Minute),
			MaxWidth:   4096,
			MaxHeight:  4096,
		},
	}
}

// Load decodes the TOML file at path over Default and validates the result.
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if err := cfg.Decode(string(data)); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	return cfg, cfg.Validate()
}

// Decode overlays the TOML document in data onto cfg.
func (cfg *Config) Decode(data string) error {
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Encode writes cfg as TOML.
func (cfg Config) Encode() (string, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Validate reports the first out-of-range setting as an INVALID_CONFIG error.
func (cfg Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidConfig, format, args...)
	}
	if _, ok := layout.ParseDirection(cfg.Layout.Direction); !ok {
		return invalid("layout.direction must be ltr or rtl, got %q", cfg.Layout.Direction)
	}
	if cfg.Layout.MinGap < 0 || cfg.Layout.GapRatio < 0 || cfg.Layout.CousinGapFactor < 0 {
		return invalid("layout gaps must not be negative")
	}
	if cfg.Spatial.CellSize < 0 || cfg.Spatial.MaxNodes < 0 {
		return invalid("spatial.cell_size and spatial.max_nodes must not be negative")
	}
	if cfg.LOD.Hysteresis < 0 || cfg.LOD.Hysteresis >= 1 {
		return invalid("lod.hysteresis must be in [0, 1), got %v", cfg.LOD.Hysteresis)
	}
	for i := 1; i < len(cfg.LOD.Buckets); i++ {
		if cfg.LOD.Buckets[i] <= cfg.LOD.Buckets[i-1] {
			return invalid("lod.buckets must be strictly ascending")
		}
	}
	v := cfg.Viewport
	if v.MinZoom <= 0 || v.MaxZoom < v.MinZoom {
		return invalid("viewport zoom range [%v, %v] is invalid", v.MinZoom, v.MaxZoom)
	}
	if v.Deceleration <= 0 || v.Deceleration >= 1 {
		return invalid("viewport.deceleration must be in (0, 1), got %v", v.Deceleration)
	}
	if v.NavigateScale < v.MinZoom || v.NavigateScale > v.MaxZoom {
		return invalid("viewport.navigate_scale %v is outside the zoom range", v.NavigateScale)
	}
	switch cfg.Cache.Backend {
	case "file", "none":
	case "redis":
		if cfg.Cache.RedisURL == "" {
			return invalid("cache.redis_url is required for the redis backend")
		}
	default:
		return invalid("cache.backend must be file, redis or none, got %q", cfg.Cache.Backend)
	}
	switch cfg.Source.Backend {
	case "file":
	case "mongo":
		if cfg.Source.MongoURI == "" {
			return invalid("source.mongo_uri is required for the mongo backend")
		}
	default:
		return invalid("source.backend must be file or mongo, got %q", cfg.Source.Backend)
	}
	return nil
}

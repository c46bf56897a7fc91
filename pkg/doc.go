// Package pkg provides the libraries behind kinview, a viewer for large family
// trees.
//
// # Overview
//
// Records arrive from a data service as flat person rows with parent
// references. kinview lays them out as a tidy tree, indexes the result for
// fast lookups and viewport culling, and renders frames whose detail adapts to
// the camera scale.
//
//	[source] (JSON file or MongoDB)
//	         ↓
//	    [family] (validate records, build the tree)
//	         ↓
//	    [layout] (tidy-tree positions and connectors)
//	         ↓
//	    [index] + [spatial] (lookups, heroes, grid culling)
//	         ↓
//	    [render] (primitives per frame, driven by [viewport] and [lod])
//	         ↓
//	    [render/sink] (SVG, JSON, PNG) or [render/dot] (Graphviz)
//
// [engine] ties these together behind rebuild and frame calls, caching
// layouts in [cache] and warming photos through [prefetch]. [server] serves
// per-session viewports over HTTP.
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/kinview/pkg/config"
//	    "github.com/matzehuels/kinview/pkg/engine"
//	    "github.com/matzehuels/kinview/pkg/geom"
//	)
//
//	eng := engine.New(config.Default())
//	defer eng.Close()
//
//	if _, err := eng.Rebuild(ctx, records); err != nil {
//	    return err
//	}
//	eng.Controller().PanBy(-120, 0)
//	frame, _ := eng.Frame(geom.Size{W: 1280, H: 800})
//	svg := eng.SVG(frame)
//
// # Packages
//
// Core:
//   - [family]: person records and tree validation
//   - [layout]: tidy-tree layout
//   - [index]: id, parent and child lookups, depths, subtree sizes, heroes
//   - [spatial]: uniform grid for visible-node queries
//   - [geom]: points, rects, camera transforms
//   - [viewport]: gesture state machine and camera animations
//   - [lod]: detail tiers and photo resolution buckets
//   - [render]: batched frame primitives
//
// Infrastructure:
//   - [engine]: asynchronous rebuilds and frame rendering
//   - [cache]: file, Redis and null caches
//   - [prefetch]: rate-limited photo prefetching
//   - [source]: record loading from files or MongoDB
//   - [session], [server]: HTTP preview sessions
//   - [config]: TOML configuration
//   - [observability]: hooks, with Prometheus in [observability/prom]
//   - [errors]: coded errors
package pkg

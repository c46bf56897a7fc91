// Package render builds per-frame drawing primitives for a positioned
// family tree.
//
// # Overview
//
// A [Renderer] turns a [Scene] (layout, indices and spatial grid of one
// layout pass) plus the current camera transform into a [Frame]: an ordered
// list of declarative [Primitive] values in world coordinates. The drawing
// collaborator applies [Frame.Transform] and paints them; the renderer never
// draws anything itself.
//
// Each frame is bounded:
//
//   - nodes come from [spatial.Grid.Visible], which stops at its MaxNodes cap
//   - edges are accumulated into shared path primitives, flushed every
//     EdgeBatch segments and capped at MaxEdges segments
//   - at most MaxPrefetch off-screen neighbour photos are handed to the
//     [Prefetcher]
//
// Caps truncate silently; [Stats] reports what was dropped.
//
// # Detail levels
//
// The tier chosen by the [lod.TierController] selects between full-detail
// node groups (card, photo, name) and compact ones (box and label). Hero
// nodes from [index.Indices] get a halo in both tiers.
//
// # Output formats
//
// The [sink] subpackage serialises frames to SVG and JSON; the [dot]
// subpackage exports a whole layout through Graphviz.
//
// [sink]: github.com/matzehuels/kinview/pkg/render/sink
// [dot]: github.com/matzehuels/kinview/pkg/render/dot
package render

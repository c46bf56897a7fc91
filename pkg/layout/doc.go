// Package layout converts a flat parent-pointer record set into a positioned
// hierarchical layout.
//
// # Overview
//
// [Compute] is a pure function: records in, [Result] out. It validates the
// records with [family.BuildTree], sizes every node, runs a tidy-tree pass to
// assign horizontal positions, and then bakes two vertical adjustments into
// each node's Y:
//
//  1. The root generation is pushed down by [Options.RootOffsetY].
//  2. Every generation is top-aligned: a node taller than the shortest node of
//     its generation moves down by half the difference, so all nodes of a
//     generation share one top edge.
//
// # Tidy Tree
//
// Horizontal placement follows the Buchheim, Jünger and Leipert improvement of
// Walker's algorithm (linear time). Separation between two neighbouring nodes
// on a contour is measured in absolute canvas units:
//
//	w_a/2 + w_b/2 + gap,  gap = max(MinGap, GapRatio*(w_a+w_b)/2)
//
// Because the gap scales with the node widths, compact label-only nodes pack
// tighter than photo nodes. Nodes with different parents get the gap
// multiplied by [Options.CousinGapFactor].
//
// Both tree walks run on explicit stacks, so arbitrarily deep trees cannot
// exhaust the goroutine stack.
//
// # Coordinates
//
// X and Y are node centres. The root sits at X = 0. Y grows downward, one
// [Options.LevelHeight] per generation.
//
// # Determinism
//
// For a fixed record slice and fixed options, repeated calls produce
// bit-identical positions.
package layout

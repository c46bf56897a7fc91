// Package lod decides how much detail to draw for the current zoom level.
//
// Two independent state machines live here:
//
//   - [TierController] picks between full-detail and compact node rendering
//     from the camera scale. Scales are quantized before comparison and the
//     tier boundary is a band rather than a line, so a zoom that settles
//     around the threshold does not make the tier flap.
//   - [BucketController] picks an image resolution bucket per node. Higher
//     resolutions are debounced so a continuous pinch does not start a fetch
//     for every intermediate size; lower resolutions apply at once.
//
// Both controllers are safe for concurrent use.
package lod

// Package sink serialises rendered frames.
//
//   - [SVG]: a standalone SVG document, primitives wrapped in the frame's
//     camera transform
//   - [JSON]: the frame as indented JSON for external drawing clients
//   - [PNG]: SVG rasterised through rsvg-convert (requires librsvg)
//
// Basic usage:
//
//	frame := renderer.Render(scene, geom.Size{W: 1280, H: 800})
//	svg := sink.SVG(frame, sink.WithFonts(registry))
package sink

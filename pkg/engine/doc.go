// Package engine wires the layout, index, spatial grid, level-of-detail
// controllers, viewport controller and renderer into one host-facing object.
//
// # Threading
//
// Gesture methods on [Engine.Controller], [Engine.Step] and [Engine.Frame]
// never block on layout work. [Engine.SetRecords] starts a rebuild on a
// background goroutine; the finished [Snapshot] is published atomically and
// picked up by the next frame. A newer record set cancels the rebuild in
// flight, so at most one rebuild result is ever published per record set.
//
// # Usage
//
//	eng := engine.New(config.Default(), engine.WithLogger(logger))
//	defer eng.Close()
//	if _, err := eng.Rebuild(ctx, records); err != nil {
//	    return err
//	}
//	eng.Controller().PanStart()
//	eng.Controller().PanUpdate(40, 0)
//	frame, err := eng.Frame(geom.Size{W: 390, H: 844})
package engine

// Package capture defines the camera source contract and the sources that
// implement it.
//
// A [Source] delivers BGRA frames through a single handler on one goroutine.
// Delivery is best-effort: sources never buffer, and a consumer that is too
// slow simply sees the latest frame (see [camfx.Mailbox]).
//
// Lifecycle:
//
//	ok, err := src.RequestAccess(ctx)  // false maps to camfx.ErrPermissionDenied
//	res, err := src.Configure(ctx, cfg) // res.Degraded when no mode matched
//	src.SetHandler(mailbox.Store)
//	src.Start(ctx)
//	...
//	src.Stop() // no callback runs after Stop returns
//
// [Synthetic] is a deterministic test pattern used by tests and headless runs.
// The GStreamer camera source lives in capture/gst behind the gst build tag.
package capture

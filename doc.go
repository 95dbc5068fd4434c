// Package camfx is a real-time camera filter pipeline: captured frames are
// handed to a GPU compute program and the processed image is presented to a
// display surface at the display's own cadence.
//
// The root package holds the pieces shared by every stage: the [Frame] data
// model, the single-slot [Mailbox] that carries frames from the capture
// goroutine to the render loop, the error taxonomy and the package logger.
//
// # Architecture
//
//	  capture goroutine          render tick               UI action
//	+------------------+     +------------------+     +----------------+
//	| capture.Source   |     | render.Renderer  |     | app.SwitchKernel|
//	+--------+---------+     +--------+---------+     +-------+--------+
//	         | Store                  | Peek                  |
//	         v                        v                       v
//	     +---------+          +---------------+       +----------------+
//	     | Mailbox |--------->| bridge.Bridge |       | kernel.Registry|
//	     +---------+          +-------+-------+       +-------+--------+
//	                                  |                       | Advance
//	                                  v                       v
//	                          +---------------+       +-------------------+
//	                          |   gpucore     |<------| pipeline.Pipeline |
//	                          | command buffer|       | (atomic publish)  |
//	                          +-------+-------+       +-------------------+
//	                                  | present
//	                                  v
//	                          +---------------+
//	                          |display.Surface|
//	                          +---------------+
//
// The capture side and the render side share only the [Mailbox]. The render
// side and the UI share only the published pipeline state, which always
// pairs a compiled program with the descriptor it was built from.
//
// # Errors
//
// Per-frame failures ([ErrConversion], [ErrDrawableUnavailable]) skip the
// current frame or tick and never stop the pipeline. [ErrPipelineCompilation]
// is fatal only during startup. [ErrPermissionDenied] is reported to the
// user and [ErrCaptureConfiguration] degrades the capture mode with a warning.
//
// # Logging
//
// camfx produces no log output by default. Call [SetLogger] to enable it.
package camfx

// Package software implements a CPU reference device for the frame
// pipeline.
//
// Compute passes run the Go reference implementation of each filter over
// the same 8x8 workgroup grid the GPU programs use, spread across a worker
// pool. Submissions execute in commit order on a single queue goroutine and
// their presentables are presented after execution, which mirrors the
// completion semantics of a GPU queue.
//
// Textures created from external images alias the image pixels; nothing is
// copied on the input side.
//
// The backend registers itself as "software" on import:
//
//	import _ "github.com/gogpu/camfx/backend/software"
package software

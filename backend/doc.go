// Package backend selects the GPU device the frame pipeline runs on.
//
// Backends register a factory from an init function and are selected at
// runtime by name or by priority:
//
//	import (
//		_ "github.com/gogpu/camfx/backend/software"
//		_ "github.com/gogpu/camfx/backend/wgpu"
//	)
//
//	dev, name, err := backend.OpenDefault() // wgpu if a GPU opens, else software
//
// Opening a backend can fail at runtime (no adapter, no driver). OpenDefault
// moves on to the next backend in priority order when that happens.
package backend

// Package gpucore defines the GPU abstractions the camfx frame pipeline is
// written against.
//
// The renderer never talks to a graphics API directly. It uses the
// [Device] interface, which a backend implements on top of a concrete API:
//   - backend/wgpu: gogpu/wgpu HAL (Vulkan, or the noop HAL in tests)
//   - backend/software: CPU reference device running the filters in Go
//
// # Architecture
//
//	               +------------------+
//	               |     gpucore      |
//	               | Device, Texture, |
//	               | CommandBuffer    |
//	               +--------+---------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +---------v--------+
//	|  wgpu backend   |          | software backend |
//	|  (hal.Device)   |          |  (worker pool)   |
//	+--------+--------+          +---------+--------+
//	         |                             |
//	+--------v--------+          +---------v--------+
//	|   gogpu/wgpu    |          |  Go reference    |
//	|   (Pure Go)     |          |  kernels         |
//	+-----------------+          +------------------+
//
// # Frame flow
//
// A captured frame is registered with the device's [TextureCache] without
// copying its pixels, a [CommandBuffer] encodes one compute pass that binds
// the pipeline, the input texture at index 0 and the output texture at
// index 1, and dispatches [DispatchGrid] workgroups of [WorkgroupSize].
// The command buffer then schedules the output [Presentable] and is
// committed. Commit returns as soon as the work is queued; completion is
// reported through handlers added with AddCompletedHandler.
package gpucore

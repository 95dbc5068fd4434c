// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu implements gpucore.Device on the gogpu/wgpu HAL.
//
// Textures are storage buffers of packed BGRA words. A texture created from
// an external image is uploaded once with Queue.WriteBuffer when it is
// created; the bridge cache keeps it alive while the same frame is drawn
// again. Drawable textures carry a staging buffer and a host mirror that is
// refreshed after every submission that wrote to them.
//
// Committed command buffers run in order on a single queue goroutine:
//
//	encode passes ─► copy outputs to staging ─► submit + fence wait
//	  ─► ReadBuffer into mirrors ─► Present ─► completion handlers
//
// Importing the package registers the "wgpu" backend, which opens a Vulkan
// device. A device owned by the host application can be shared through
// NewFromProvider.
package wgpu

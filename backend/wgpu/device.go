// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/backend"
	"github.com/gogpu/camfx/gpucore"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	backend.Register(backend.BackendWGPU, func() (gpucore.Device, error) {
		return New()
	})
}

// DefaultFenceTimeout bounds the wait for one submission.
const DefaultFenceTimeout = 5 * time.Second

const queueDepth = 16

// Device is a gpucore.Device backed by a HAL device and queue.
type Device struct {
	// halMu serializes HAL calls.
	halMu    sync.Mutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool
	adapter  string

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout

	cache *textureCache

	mu      sync.RWMutex
	closed  bool
	pending chan *commandBuffer
	done    chan struct{}

	fenceTimeout time.Duration

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

var _ gpucore.Device = (*Device)(nil)

// New opens the first discrete or integrated Vulkan adapter.
func New() (*Device, error) {
	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available: %w", backend.ErrBackendNotAvailable)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	d, err := NewFromInstance(instance)
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	return d, nil
}

// NewFromInstance opens a device on the preferred adapter of instance. The
// device takes ownership of instance and destroys it on Close.
func NewFromInstance(instance hal.Instance) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("wgpu: no GPU adapters found: %w", backend.ErrBackendNotAvailable)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d := newDevice(openDev.Device, openDev.Queue, selected.Info.Name)
	d.instance = instance
	if err := d.createLayouts(); err != nil {
		openDev.Device.Destroy()
		return nil, err
	}
	d.start()
	return d, nil
}

// NewFromHAL wraps a device and queue owned by the caller. Close releases
// only the resources created by this package.
func NewFromHAL(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil HAL device or queue")
	}
	d := newDevice(device, queue, "shared")
	d.external = true
	if err := d.createLayouts(); err != nil {
		return nil, err
	}
	d.start()
	return d, nil
}

// NewFromProvider shares the device of a host application. The provider
// must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, fmt.Errorf("wgpu: nil device provider")
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}
	return NewFromHAL(device, queue)
}

func newDevice(device hal.Device, queue hal.Queue, adapter string) *Device {
	d := &Device{
		device:       device,
		queue:        queue,
		adapter:      adapter,
		pending:      make(chan *commandBuffer, queueDepth),
		done:         make(chan struct{}),
		fenceTimeout: DefaultFenceTimeout,
	}
	d.cache = &textureCache{dev: d}
	return d
}

func (d *Device) start() {
	go d.run()
	camfx.Logger().Info("wgpu device opened", "adapter", d.adapter, "shared", d.external)
}

// createLayouts builds the bind group and pipeline layouts shared by every
// program: params uniform, source pixels, destination pixels.
func (d *Device) createLayouts() error {
	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "camfx_filter_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "camfx_filter_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		d.device.DestroyBindGroupLayout(bindLayout)
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	d.bindLayout = bindLayout
	d.pipeLayout = pipeLayout
	return nil
}

// Name returns "wgpu".
func (d *Device) Name() string { return backend.BackendWGPU }

// Adapter returns the name of the adapter the device was opened on.
func (d *Device) Adapter() string { return d.adapter }

// TextureCache returns the cache that uploads external images.
func (d *Device) TextureCache() gpucore.TextureCache { return d.cache }

// NewCommandBuffer starts a command buffer.
func (d *Device) NewCommandBuffer(label string) (gpucore.CommandBuffer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, camfx.ErrClosed
	}
	return &commandBuffer{dev: d, label: label}, nil
}

// Completed returns the number of command buffers that finished, with or
// without error.
func (d *Device) Completed() uint64 { return d.completed.Load() }

// Failed returns the number of command buffers that finished with an error.
func (d *Device) Failed() uint64 { return d.failed.Load() }

// Close drains the queue and releases the device. A shared device is left
// open for its owner.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.pending)
	d.mu.Unlock()
	<-d.done

	d.halMu.Lock()
	defer d.halMu.Unlock()
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
			d.instance = nil
		}
	}
	camfx.Logger().Info("wgpu device closed",
		"submitted", d.submitted.Load(),
		"completed", d.completed.Load(),
		"failed", d.failed.Load(),
	)
	return nil
}

func (d *Device) submit(cb *commandBuffer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return camfx.ErrClosed
	}
	d.submitted.Add(1)
	d.pending <- cb
	return nil
}

func (d *Device) run() {
	defer close(d.done)
	for cb := range d.pending {
		err := d.execute(cb)
		if err == nil {
			err = cb.present()
		}
		if err != nil {
			d.failed.Add(1)
			camfx.Logger().Warn("wgpu: submission failed", "label", cb.label, "err", err)
		}
		cb.complete(err)
		d.completed.Add(1)
	}
}

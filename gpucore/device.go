package gpucore

// Device is a GPU device able to run the frame filters.
//
// Implementations must allow CreateComputePipeline to run concurrently
// with command buffers that are being encoded or executed.
type Device interface {
	// Name identifies the device in logs.
	Name() string

	// TextureCache returns the cache used to expose external pixel buffers.
	TextureCache() TextureCache

	// CreateTexture allocates a device-owned texture.
	CreateTexture(desc TextureDesc) (Texture, error)

	// CreateComputePipeline compiles the program described by desc.
	CreateComputePipeline(desc ComputePipelineDesc) (ComputePipeline, error)

	// NewCommandBuffer starts a new command buffer.
	NewCommandBuffer(label string) (CommandBuffer, error)

	// Close waits for outstanding work and releases the device.
	Close() error
}

// TextureCache creates textures that alias external pixel buffers.
type TextureCache interface {
	// CreateTextureFromImage exposes img to the GPU. Implementations avoid
	// copying when the platform allows it.
	CreateTextureFromImage(img ImageBuffer) (Texture, error)

	// Flush releases platform resources held for textures that are no
	// longer referenced.
	Flush()
}

// Texture is a 2D image accessible to compute programs.
type Texture interface {
	Width() int
	Height() int
	Format() TextureFormat

	// ReadPixels copies the contents as of the last completed submission
	// into dst as tightly packed rows.
	ReadPixels(dst []byte) error

	// Destroy releases the texture. Using it afterwards is an error.
	Destroy()
}

// ComputePipeline is a compiled compute program.
type ComputePipeline interface {
	// Label returns the name the pipeline was created with.
	Label() string

	// Destroy releases the pipeline. Pending command buffers that already
	// bound it must have completed.
	Destroy()
}

// ComputePassEncoder records the commands of one compute pass.
type ComputePassEncoder interface {
	SetPipeline(p ComputePipeline)
	SetTexture(t Texture, index int)
	Dispatch(x, y, z uint32)
	End()
}

// Presentable is a display target that is shown once the work writing to
// it has completed.
type Presentable interface {
	Texture() Texture
	Present() error
}

// CommandBuffer collects encoded work and submits it to the device queue.
// A command buffer is used from a single goroutine and committed once.
type CommandBuffer interface {
	// BeginComputePass starts a compute pass.
	BeginComputePass(label string) ComputePassEncoder

	// Present schedules p to be presented after the buffer completes.
	Present(p Presentable)

	// AddCompletedHandler registers fn to run once execution finished.
	// The error is non-nil if execution or presentation failed.
	AddCompletedHandler(fn func(err error))

	// Commit submits the buffer. It does not wait for completion.
	Commit() error
}

package gpucore

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatBGRA8Unorm is 8-bit BGRA, normalized unsigned integer.
	// This is the capture format and the default drawable format.
	TextureFormatBGRA8Unorm TextureFormat = iota + 1

	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm
)

// BytesPerPixel returns the size of one texel, or 0 for an unknown format.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatBGRA8Unorm, TextureFormatRGBA8Unorm:
		return 4
	default:
		return 0
	}
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	// TextureUsageShaderRead marks a texture read by compute programs.
	TextureUsageShaderRead TextureUsage = 1 << 0

	// TextureUsageShaderWrite marks a texture written by compute programs.
	TextureUsageShaderWrite TextureUsage = 1 << 1

	// TextureUsageReadback marks a texture whose contents are copied back
	// to host memory after each submission.
	TextureUsageReadback TextureUsage = 1 << 2
)

// Texture binding indices shared by every compute program.
const (
	InputTextureIndex  = 0
	OutputTextureIndex = 1
)

// TextureDesc describes a device-owned texture.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format TextureFormat
	Usage  TextureUsage
}

// ImageBuffer is an externally owned pixel buffer to be exposed to the GPU.
// The device may reference Pix directly; the owner must keep it unchanged
// for as long as the texture created from it is alive.
type ImageBuffer struct {
	Pix    []byte
	Stride int
	Width  int
	Height int
	Format TextureFormat
}

// ComputePipelineDesc describes a compute program to compile.
type ComputePipelineDesc struct {
	// Label is used in logs and debug names.
	Label string

	// Function is the program name looked up in the device's library.
	Function string

	// Source is the WGSL source of the program.
	Source string

	// EntryPoint is the WGSL entry point, usually "main".
	EntryPoint string

	// WorkgroupSize is the local size declared by the program.
	WorkgroupSize [3]uint32
}

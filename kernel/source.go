package kernel

import (
	"embed"
	"fmt"
	"strings"

	"github.com/gogpu/camfx/gpucore"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// bodies maps program names to their filter body files.
var bodies = map[string]string{
	Passthrough: "passthrough.wgsl",
	Brightness:  "brightness.wgsl",
	Inversion:   "inversion.wgsl",
	Contrast:    "contrast.wgsl",
	RGBA2BGRA:   "rgba2bgra.wgsl",
	Exposure:    "exposure.wgsl",
	Gamma:       "gamma.wgsl",
	Grayscale:   "grayscale.wgsl",
	Pixellate:   "pixellate.wgsl",
	BoxBlur:     "boxblur.wgsl",
}

// EntryPoint is the compute entry point of every program.
const EntryPoint = "main"

// Source returns the complete WGSL source of the named program.
func Source(name string) (string, error) {
	file, ok := bodies[name]
	if !ok {
		return "", fmt.Errorf("kernel: unknown program %q", name)
	}
	var b strings.Builder
	for _, part := range []string{"prelude.wgsl", file, "main.wgsl"} {
		data, err := shaderFS.ReadFile("shaders/" + part)
		if err != nil {
			return "", fmt.Errorf("kernel: read %s: %w", part, err)
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// PipelineDesc returns the pipeline description for d.
func PipelineDesc(d Descriptor) (gpucore.ComputePipelineDesc, error) {
	src, err := Source(d.Name)
	if err != nil {
		return gpucore.ComputePipelineDesc{}, err
	}
	return gpucore.ComputePipelineDesc{
		Label:         d.Name,
		Function:      d.Name,
		Source:        src,
		EntryPoint:    EntryPoint,
		WorkgroupSize: gpucore.WorkgroupSize,
	}, nil
}

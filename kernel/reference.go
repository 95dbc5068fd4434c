package kernel

import "math"

// Plane is a BGRA8 image used by the reference filters.
type Plane struct {
	Pix    []byte
	Stride int
	Width  int
	Height int
}

// Color is a normalized RGBA color.
type Color [4]float32

// Load returns pixel (x, y), clamping coordinates to the image edge.
func (p Plane) Load(x, y int) Color {
	x = min(max(x, 0), p.Width-1)
	y = min(max(y, 0), p.Height-1)
	i := y*p.Stride + x*4
	return Color{
		float32(p.Pix[i+2]) / 255,
		float32(p.Pix[i+1]) / 255,
		float32(p.Pix[i]) / 255,
		float32(p.Pix[i+3]) / 255,
	}
}

// Store writes c to pixel (x, y) with the same rounding as pack_pixel.
func (p Plane) Store(x, y int, c Color) {
	i := y*p.Stride + x*4
	p.Pix[i] = quantize(c[2])
	p.Pix[i+1] = quantize(c[1])
	p.Pix[i+2] = quantize(c[0])
	p.Pix[i+3] = quantize(c[3])
}

func quantize(v float32) uint8 {
	v = min(max(v, 0), 1)
	return uint8(v*255 + 0.5)
}

// Func computes one output pixel of a filter.
type Func func(src Plane, x, y int) Color

var references = map[string]Func{
	Passthrough: func(src Plane, x, y int) Color {
		return src.Load(x, y)
	},
	Brightness: func(src Plane, x, y int) Color {
		return mapRGB(src.Load(x, y), func(v float32) float32 { return v + 0.25 })
	},
	Inversion: func(src Plane, x, y int) Color {
		return mapRGB(src.Load(x, y), func(v float32) float32 { return 1 - v })
	},
	Contrast: func(src Plane, x, y int) Color {
		return mapRGB(src.Load(x, y), func(v float32) float32 { return (v-0.5)*1.5 + 0.5 })
	},
	RGBA2BGRA: func(src Plane, x, y int) Color {
		c := src.Load(x, y)
		return Color{c[2], c[1], c[0], c[3]}
	},
	Exposure: func(src Plane, x, y int) Color {
		return mapRGB(src.Load(x, y), func(v float32) float32 { return v * 2 })
	},
	Gamma: func(src Plane, x, y int) Color {
		return mapRGB(src.Load(x, y), func(v float32) float32 {
			return float32(math.Pow(float64(v), 1.5))
		})
	},
	Grayscale: func(src Plane, x, y int) Color {
		c := src.Load(x, y)
		l := c[0]*0.2125 + c[1]*0.7154 + c[2]*0.0721
		return Color{l, l, l, c[3]}
	},
	Pixellate: func(src Plane, x, y int) Color {
		const block = 16
		return src.Load(x/block*block, y/block*block)
	},
	BoxBlur: func(src Plane, x, y int) Color {
		var sum Color
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				c := src.Load(x+dx, y+dy)
				sum[0] += c[0]
				sum[1] += c[1]
				sum[2] += c[2]
			}
		}
		return Color{sum[0] / 9, sum[1] / 9, sum[2] / 9, src.Load(x, y)[3]}
	},
}

func mapRGB(c Color, f func(float32) float32) Color {
	return Color{f(c[0]), f(c[1]), f(c[2]), c[3]}
}

// Reference returns the Go implementation of the named program.
func Reference(name string) (Func, bool) {
	fn, ok := references[name]
	return fn, ok
}

// RunWorkgroup executes the 8x8 invocations of workgroup (gx, gy), skipping
// invocations outside either image like the WGSL entry point does.
func RunWorkgroup(fn Func, src, dst Plane, gx, gy int) {
	x0, y0 := gx*8, gy*8
	for y := y0; y < y0+8; y++ {
		if y >= src.Height || y >= dst.Height {
			return
		}
		for x := x0; x < x0+8; x++ {
			if x >= src.Width || x >= dst.Width {
				break
			}
			dst.Store(x, y, fn(src, x, y))
		}
	}
}

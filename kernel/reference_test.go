package kernel

import "testing"

func testPlane(w, h int) Plane {
	p := Plane{Pix: make([]byte, w*h*4), Stride: w * 4, Width: w, Height: h}
	for y := range h {
		for x := range w {
			i := y*p.Stride + x*4
			p.Pix[i] = uint8(x * 16)       // B
			p.Pix[i+1] = uint8(y * 16)     // G
			p.Pix[i+2] = uint8(x*8 + y*8)  // R
			p.Pix[i+3] = 255               // A
		}
	}
	return p
}

func runAll(fn Func, src Plane) Plane {
	dst := Plane{Pix: make([]byte, len(src.Pix)), Stride: src.Stride, Width: src.Width, Height: src.Height}
	for gy := 0; gy*8 < src.Height; gy++ {
		for gx := 0; gx*8 < src.Width; gx++ {
			RunWorkgroup(fn, src, dst, gx, gy)
		}
	}
	return dst
}

func TestReferenceForEveryProgram(t *testing.T) {
	for _, name := range Names {
		if _, ok := Reference(name); !ok {
			t.Errorf("Reference(%q) missing", name)
		}
	}
}

func TestPassthroughIsIdentity(t *testing.T) {
	src := testPlane(13, 9)
	fn, _ := Reference(Passthrough)
	dst := runAll(fn, src)
	for i := range src.Pix {
		if dst.Pix[i] != src.Pix[i] {
			t.Fatalf("byte %d = %d, want %d", i, dst.Pix[i], src.Pix[i])
		}
	}
}

func TestReferencePixels(t *testing.T) {
	// One pixel: B=0x20 G=0x80 R=0xC0 A=0x7F.
	src := Plane{Pix: []byte{0x20, 0x80, 0xC0, 0x7F}, Stride: 4, Width: 1, Height: 1}

	tests := []struct {
		name string
		want [4]byte // B, G, R, A
	}{
		{Passthrough, [4]byte{0x20, 0x80, 0xC0, 0x7F}},
		{Brightness, [4]byte{0x60, 0xC0, 0xFF, 0x7F}},
		{Inversion, [4]byte{0xDF, 0x7F, 0x3F, 0x7F}},
		{RGBA2BGRA, [4]byte{0xC0, 0x80, 0x20, 0x7F}},
		{Exposure, [4]byte{0x40, 0xFF, 0xFF, 0x7F}},
		{Pixellate, [4]byte{0x20, 0x80, 0xC0, 0x7F}},
		{BoxBlur, [4]byte{0x20, 0x80, 0xC0, 0x7F}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, _ := Reference(tt.name)
			dst := runAll(fn, src)
			var got [4]byte
			copy(got[:], dst.Pix)
			if got != tt.want {
				t.Errorf("pixel = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestGrayscaleEqualChannels(t *testing.T) {
	fn, _ := Reference(Grayscale)
	dst := runAll(fn, testPlane(8, 8))
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != dst.Pix[i+1] || dst.Pix[i+1] != dst.Pix[i+2] {
			t.Fatalf("pixel %d not gray: %v", i/4, dst.Pix[i:i+4])
		}
	}
}

func TestPixellateBlocks(t *testing.T) {
	src := testPlane(20, 20)
	fn, _ := Reference(Pixellate)
	dst := runAll(fn, src)
	origin := dst.Pix[0:4]
	inner := dst.Pix[15*dst.Stride+15*4 : 15*dst.Stride+15*4+4]
	if string(origin) != string(inner) {
		t.Errorf("pixel (15,15) = %v, want block origin %v", inner, origin)
	}
	next := dst.Pix[16*4 : 16*4+4]
	want := src.Pix[16*4 : 16*4+4]
	if string(next) != string(want) {
		t.Errorf("pixel (16,0) = %v, want %v", next, want)
	}
}

func TestRunWorkgroupBounds(t *testing.T) {
	// 9x9 needs a second workgroup column whose invocations mostly fall
	// outside the image.
	src := testPlane(9, 9)
	dst := Plane{Pix: make([]byte, 9*9*4), Stride: 36, Width: 9, Height: 9}
	fn, _ := Reference(Passthrough)
	RunWorkgroup(fn, src, dst, 1, 1)

	if got, want := dst.Pix[8*36+8*4], src.Pix[8*36+8*4]; got != want {
		t.Errorf("pixel (8,8) B = %d, want %d", got, want)
	}
	if dst.Pix[0] != 0 {
		t.Error("workgroup (1,1) wrote outside its tile")
	}
}

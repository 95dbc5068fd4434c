package gpucore

import "testing"

func TestDispatchGrid(t *testing.T) {
	tests := []struct {
		w, h int
		want [3]uint32
	}{
		{1280, 720, [3]uint32{160, 90, 1}},
		{721, 8, [3]uint32{91, 1, 1}},
		{720, 1280, [3]uint32{90, 160, 1}},
		{1, 1, [3]uint32{1, 1, 1}},
		{8, 8, [3]uint32{1, 1, 1}},
		{9, 9, [3]uint32{2, 2, 1}},
		{0, 10, [3]uint32{0, 0, 1}},
	}
	for _, tt := range tests {
		if got := DispatchGrid(tt.w, tt.h); got != tt.want {
			t.Errorf("DispatchGrid(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestDispatchGridCoversImage(t *testing.T) {
	for w := 1; w <= 40; w++ {
		for h := 1; h <= 40; h += 7 {
			g := DispatchGrid(w, h)
			if int(g[0]*WorkgroupSize[0]) < w || int(g[1]*WorkgroupSize[1]) < h {
				t.Fatalf("DispatchGrid(%d, %d) = %v does not cover the image", w, h, g)
			}
			if int((g[0]-1)*WorkgroupSize[0]) >= w || int((g[1]-1)*WorkgroupSize[1]) >= h {
				t.Fatalf("DispatchGrid(%d, %d) = %v has an idle workgroup column or row", w, h, g)
			}
		}
	}
}

func TestTextureFormatBytesPerPixel(t *testing.T) {
	if got := TextureFormatBGRA8Unorm.BytesPerPixel(); got != 4 {
		t.Errorf("BGRA8 BytesPerPixel() = %d, want 4", got)
	}
	if got := TextureFormat(0).BytesPerPixel(); got != 0 {
		t.Errorf("unknown BytesPerPixel() = %d, want 0", got)
	}
}

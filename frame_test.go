package camfx

import (
	"errors"
	"fmt"
	"testing"
)

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   *Frame
		wantErr bool
	}{
		{"tight", NewFrame(4, 3), false},
		{"padded stride", &Frame{Pix: make([]byte, 64*2), Stride: 64, Width: 4, Height: 2, Format: FormatBGRA8}, false},
		{"short last row", &Frame{Pix: make([]byte, 64+16), Stride: 64, Width: 4, Height: 2, Format: FormatBGRA8}, false},
		{"nil", nil, true},
		{"zero width", &Frame{Pix: make([]byte, 16), Stride: 16, Width: 0, Height: 1, Format: FormatBGRA8}, true},
		{"stride too small", &Frame{Pix: make([]byte, 64), Stride: 8, Width: 4, Height: 2, Format: FormatBGRA8}, true},
		{"buffer too small", &Frame{Pix: make([]byte, 10), Stride: 16, Width: 4, Height: 2, Format: FormatBGRA8}, true},
		{"unknown format", &Frame{Pix: make([]byte, 16), Stride: 16, Width: 4, Height: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPixelFormat(t *testing.T) {
	if got := FormatBGRA8.String(); got != "BGRA8" {
		t.Errorf("String() = %q, want BGRA8", got)
	}
	if got := FormatBGRA8.BytesPerPixel(); got != 4 {
		t.Errorf("BytesPerPixel() = %d, want 4", got)
	}
	if got := PixelFormat(9).BytesPerPixel(); got != 0 {
		t.Errorf("BytesPerPixel() for unknown format = %d, want 0", got)
	}
}

func TestRecoverable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("convert frame 3: %w", ErrConversion), true},
		{fmt.Errorf("next drawable: %w", ErrDrawableUnavailable), true},
		{ErrPermissionDenied, true},
		{ErrCaptureConfiguration, true},
		{fmt.Errorf("kernel gammaKernel: %w", ErrPipelineCompilation), false},
		{errors.New("other"), false},
	}
	for _, tt := range tests {
		if got := Recoverable(tt.err); got != tt.want {
			t.Errorf("Recoverable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

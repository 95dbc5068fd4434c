//go:build !headless

package window

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestOverlayLabel(t *testing.T) {
	if got := OverlayLabel("", 59.6); got != "60 fps" {
		t.Errorf("OverlayLabel(\"\") = %q", got)
	}
	if got := OverlayLabel("gammaKernel", 30); got != "gammaKernel  30 fps" {
		t.Errorf("OverlayLabel(gammaKernel) = %q", got)
	}
}

func TestAdvanceKeys(t *testing.T) {
	want := map[ebiten.Key]bool{ebiten.KeySpace: true, ebiten.KeyEnter: true}
	if len(AdvanceKeys) != len(want) {
		t.Fatalf("AdvanceKeys = %v", AdvanceKeys)
	}
	for _, k := range AdvanceKeys {
		if !want[k] {
			t.Errorf("unexpected advance key %v", k)
		}
	}
}

package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/display"
)

// snapshotter writes every n-th presented image as a PNG file.
type snapshotter struct {
	dir   string
	every uint64
	seen  atomic.Uint64
	saved atomic.Uint64
}

func newSnapshotter(dir string, every uint64) (*snapshotter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	if every == 0 {
		every = 1
	}
	return &snapshotter{dir: dir, every: every}, nil
}

// present implements display.PresentFunc.
func (s *snapshotter) present(img display.Image) error {
	n := s.seen.Add(1)
	if (n-1)%s.every != 0 {
		return nil
	}
	rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	display.BGRAToRGBA(rgba, img)

	path := filepath.Join(s.dir, fmt.Sprintf("frame_%06d.png", n))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := png.Encode(f, rgba); err != nil {
		_ = f.Close()
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	s.saved.Add(1)
	camfx.Logger().Debug("snapshot written", "path", path)
	return nil
}

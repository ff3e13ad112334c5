// Package output publishes rendered snapshots.
package output

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/menta2k/face-emotion/internal/utils"
	"github.com/menta2k/face-emotion/pkg/processing"
	"github.com/menta2k/face-emotion/pkg/types"
)

// Sink receives the result of every capture cycle
type Sink interface {
	Publish(ctx context.Context, snap *types.Snapshot) error
}

// FileConfig controls where and how the file sink writes
type FileConfig struct {
	Dir      string
	Format   string // overlay format: png, jpg or webp
	Quality  int
	Lossless bool
	Overlay  bool // also write the canvas composited onto the frame
}

// FileSink keeps the latest canvas (and overlay) on disk, replacing it on each publish
type FileSink struct {
	cfg  FileConfig
	proc *processing.Processor
	mu   sync.Mutex
}

// NewFileSink creates the output directory if needed
func NewFileSink(cfg FileConfig, proc *processing.Processor) (*FileSink, error) {
	if cfg.Format == "" {
		cfg.Format = "png"
	}
	if err := utils.EnsureDir(cfg.Dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileSink{cfg: cfg, proc: proc}, nil
}

// CanvasPath is where the bare canvas is written
func (s *FileSink) CanvasPath() string {
	return filepath.Join(s.cfg.Dir, "canvas.png")
}

// OverlayPath is where the composited frame is written
func (s *FileSink) OverlayPath() string {
	return filepath.Join(s.cfg.Dir, "overlay."+strings.ToLower(s.cfg.Format))
}

// Publish writes through a temp file and renames so readers never see a partial image
func (s *FileSink) Publish(ctx context.Context, snap *types.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Canvas != nil {
		if err := s.write(snap.Canvas, s.CanvasPath(), "png"); err != nil {
			return err
		}
	}
	if s.cfg.Overlay && snap.Overlay != nil {
		if err := s.write(snap.Overlay, s.OverlayPath(), s.cfg.Format); err != nil {
			return err
		}
	}
	return nil
}

// the temp name keeps the extension, imaging.Save picks the encoder from it
func (s *FileSink) write(img image.Image, path, format string) error {
	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err := s.proc.SaveImage(img, tmp, format, s.cfg.Quality, s.cfg.Lossless); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

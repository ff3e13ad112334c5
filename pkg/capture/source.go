// Package capture provides the frame sources polled by the capture loop.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/face-emotion/internal/utils"
	"github.com/menta2k/face-emotion/pkg/processing"
	"github.com/menta2k/face-emotion/pkg/types"
)

// SourceWebcam selects the OpenCV webcam source
const SourceWebcam = "webcam"

var (
	// ErrWebcamUnavailable is returned when the binary was built without webcam support
	ErrWebcamUnavailable = errors.New("webcam capture not available (build with -tags gocv)")

	// ErrNoImages is returned when a directory source contains no images
	ErrNoImages = errors.New("no images found")
)

// Source produces one still frame per call
type Source interface {
	Capture(ctx context.Context) (*types.Frame, error)
	Close() error
}

// Config selects and sizes a source
type Config struct {
	Source string // "webcam", a directory, an image file or an http(s) URL
	Device int    // webcam device index
	Width  int
	Height int
}

// DefaultConfig is the 640x480 webcam on device 0
func DefaultConfig() Config {
	return Config{Source: SourceWebcam, Device: 0, Width: 640, Height: 480}
}

// NewSource picks a source implementation from cfg.Source
func NewSource(ctx context.Context, cfg Config, proc *processing.Processor) (Source, error) {
	switch {
	case cfg.Source == "" || strings.EqualFold(cfg.Source, SourceWebcam):
		return NewWebcamSource(cfg)
	case utils.DirExists(cfg.Source):
		return NewDirectorySource(cfg, proc)
	default:
		return NewStillSource(ctx, cfg, proc)
	}
}

func newFrame(img image.Image) *types.Frame {
	return &types.Frame{
		ID:         uuid.NewString(),
		CapturedAt: time.Now(),
		Image:      img,
	}
}

// StillSource returns the same image on every capture
type StillSource struct {
	img image.Image
}

// NewStillSource loads an image file or URL once, fitted to the capture resolution
func NewStillSource(ctx context.Context, cfg Config, proc *processing.Processor) (*StillSource, error) {
	img, err := proc.LoadImageSmart(ctx, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cfg.Source, err)
	}
	return &StillSource{img: proc.FitToResolution(img, cfg.Width, cfg.Height)}, nil
}

// NewImageSource wraps an already decoded image
func NewImageSource(img image.Image) *StillSource {
	return &StillSource{img: img}
}

func (s *StillSource) Capture(ctx context.Context) (*types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newFrame(s.img), nil
}

func (s *StillSource) Close() error { return nil }

// DirectorySource cycles through the images of a directory, one per capture
type DirectorySource struct {
	cfg   Config
	proc  *processing.Processor
	files []string

	mu   sync.Mutex
	next int
}

// NewDirectorySource lists the images under cfg.Source
func NewDirectorySource(cfg Config, proc *processing.Processor) (*DirectorySource, error) {
	files, err := utils.ListImageFiles(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", cfg.Source, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, cfg.Source)
	}
	return &DirectorySource{cfg: cfg, proc: proc, files: files}, nil
}

func (s *DirectorySource) Capture(ctx context.Context) (*types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	img, err := s.proc.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return newFrame(s.proc.FitToResolution(img, s.cfg.Width, s.cfg.Height)), nil
}

func (s *DirectorySource) Close() error { return nil }

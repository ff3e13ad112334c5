//go:build gocv

package capture

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/menta2k/face-emotion/pkg/types"
)

// WebcamSource reads stills from an OpenCV video capture device
type WebcamSource struct {
	cfg    Config
	mu     sync.Mutex // VideoCapture and the Mat are not safe for concurrent reads
	stream *gocv.VideoCapture
	img    gocv.Mat
	closed bool
}

// NewWebcamSource opens the device and requests the configured resolution
func NewWebcamSource(cfg Config) (Source, error) {
	stream, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open webcam %d: %w", cfg.Device, err)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		stream.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		stream.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	return &WebcamSource{cfg: cfg, stream: stream, img: gocv.NewMat()}, nil
}

func (s *WebcamSource) Capture(ctx context.Context) (*types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("webcam %d is closed", s.cfg.Device)
	}
	if ok := s.stream.Read(&s.img); !ok || s.img.Empty() {
		return nil, fmt.Errorf("webcam %d returned no frame", s.cfg.Device)
	}

	img, err := s.img.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert webcam frame: %w", err)
	}
	return newFrame(img), nil
}

func (s *WebcamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.stream.Close(); err != nil {
		return err
	}
	return s.img.Close()
}

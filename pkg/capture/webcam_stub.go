//go:build !gocv

package capture

// NewWebcamSource returns ErrWebcamUnavailable when built without OpenCV.
func NewWebcamSource(cfg Config) (Source, error) {
	return nil, ErrWebcamUnavailable
}

package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/menta2k/face-emotion/pkg/client"
	"github.com/menta2k/face-emotion/pkg/emotion"
	"github.com/menta2k/face-emotion/pkg/types"
)

// Detector maps Face API responses into ranked face analyses
type Detector struct {
	client client.FaceClient
}

// NewDetector creates a new detector with a face client
func NewDetector(client client.FaceClient) *Detector {
	return &Detector{client: client}
}

// DetectFaces sends the encoded image and ranks the emotions of every face returned
func (d *Detector) DetectFaces(ctx context.Context, image []byte) ([]types.FaceAnalysis, error) {
	faces, err := d.client.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	return Analyze(faces), nil
}

// Analyze ranks the emotions of each face, keeping the response order
func Analyze(faces []types.FaceModel) []types.FaceAnalysis {
	out := make([]types.FaceAnalysis, 0, len(faces))
	for _, f := range faces {
		f.FaceAttributes.Gender = strings.TrimSpace(f.FaceAttributes.Gender)
		out = append(out, types.FaceAnalysis{
			Face:     f,
			Emotions: emotion.Rank(f.FaceAttributes.Emotion),
		})
	}
	return out
}

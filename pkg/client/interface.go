package client

import (
	"context"

	"github.com/menta2k/face-emotion/pkg/types"
)

// FaceClient submits an encoded image to a face analysis backend
type FaceClient interface {
	DetectFaces(ctx context.Context, image []byte) ([]types.FaceModel, error)
}

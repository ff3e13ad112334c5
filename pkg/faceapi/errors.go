package faceapi

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyImage is returned when DetectFaces is called without image bytes
	ErrEmptyImage = errors.New("faceapi: empty image")

	// ErrRateLimited is returned when the local request budget is spent; the frame is dropped
	ErrRateLimited = errors.New("faceapi: request budget exceeded")
)

// APIError is a non-2xx answer from the Face API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("faceapi: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("faceapi: HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// errorEnvelope is the body shape the service uses for failures
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

package types

import (
	"image"
	"time"
)

// FaceRectangle is a face bounding box in pixels, origin at the top-left of the frame
type FaceRectangle struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EmotionScores holds the eight emotion probabilities reported for a face.
// They sum to roughly 1.0 but nothing enforces it.
type EmotionScores struct {
	Anger     float64 `json:"anger"`
	Contempt  float64 `json:"contempt"`
	Disgust   float64 `json:"disgust"`
	Fear      float64 `json:"fear"`
	Happiness float64 `json:"happiness"`
	Neutral   float64 `json:"neutral"`
	Sadness   float64 `json:"sadness"`
	Surprise  float64 `json:"surprise"`
}

// FaceAttributes contains the demographic and emotion attributes of a face
type FaceAttributes struct {
	Age     float64       `json:"age"`
	Gender  string        `json:"gender"`
	Emotion EmotionScores `json:"emotion"`
}

// FaceModel is one detected face as returned by the Face API
type FaceModel struct {
	FaceID         string         `json:"faceId"`
	FaceRectangle  FaceRectangle  `json:"faceRectangle"`
	FaceAttributes FaceAttributes `json:"faceAttributes"`
}

// EmotionEntry is a (label, score) pair used for ranking
type EmotionEntry struct {
	Emotion string  `json:"emotion"`
	Value   float64 `json:"value"`
}

// FaceAnalysis is a detected face together with its emotion ranking
type FaceAnalysis struct {
	Face     FaceModel      `json:"face"`
	Emotions []EmotionEntry `json:"emotions"`
}

// TopEmotion returns the highest ranked emotion, or false if the ranking is empty
func (a FaceAnalysis) TopEmotion() (EmotionEntry, bool) {
	if len(a.Emotions) == 0 {
		return EmotionEntry{}, false
	}
	return a.Emotions[0], true
}

// Frame is a single captured still
type Frame struct {
	ID         string
	CapturedAt time.Time
	Image      image.Image
}

// Snapshot is the outcome of one capture cycle
type Snapshot struct {
	FrameID    string         `json:"frame_id"`
	CapturedAt time.Time      `json:"captured_at"`
	Faces      []FaceAnalysis `json:"faces"`
	Canvas     image.Image    `json:"-"`
	Overlay    image.Image    `json:"-"`
}

// Package emotion turns Face API emotion scores into a ranking.
package emotion

import (
	"math"
	"sort"

	"github.com/menta2k/face-emotion/pkg/types"
)

// Labels used in the ranking, in input order
const (
	Angry     = "angry"
	Contempt  = "contempt"
	Disgusted = "disgusted"
	Afraid    = "afraid"
	Happy     = "happy"
	Neutral   = "neutral"
	Sad       = "sad"
	Surprised = "surprised"
)

// Entries lists the scores in the fixed label order, before ranking
func Entries(s types.EmotionScores) []types.EmotionEntry {
	return []types.EmotionEntry{
		{Emotion: Angry, Value: s.Anger},
		{Emotion: Contempt, Value: s.Contempt},
		{Emotion: Disgusted, Value: s.Disgust},
		{Emotion: Afraid, Value: s.Fear},
		{Emotion: Happy, Value: s.Happiness},
		{Emotion: Neutral, Value: s.Neutral},
		{Emotion: Sad, Value: s.Sadness},
		{Emotion: Surprised, Value: s.Surprise},
	}
}

// Rank returns the eight emotions sorted by score, highest first.
// Equal scores keep the label order of Entries.
func Rank(s types.EmotionScores) []types.EmotionEntry {
	entries := Entries(s)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	return entries
}

// Top returns the dominant emotion
func Top(s types.EmotionScores) types.EmotionEntry {
	return Rank(s)[0]
}

// Percent converts a probability to a whole percentage, rounding halves up
func Percent(v float64) int {
	return int(math.Floor(v*100.0 + 0.5))
}

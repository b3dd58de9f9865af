package classifier

import (
	"context"
	"math"
)

// Backend labels used in results and comparison winners.
const (
	ModelA = "Model A"
	ModelB = "Model B"
)

// Prediction is one ranked breed guess returned by a backend.
type Prediction struct {
	BreedEN string  `json:"breed_en"`
	BreedKO string  `json:"breed_ko"`
	ClassID uint32  `json:"class_id"`
	Score   float64 `json:"score"`
}

// ModelResult is the normalized outcome of querying one backend. Error is set
// iff Success is false, in which case Predictions is empty.
type ModelResult struct {
	Success      bool         `json:"success"`
	Model        string       `json:"model"`
	Predictions  []Prediction `json:"predictions"`
	ResponseTime float64      `json:"response_time"`
	Error        string       `json:"error,omitempty"`
}

// Client classifies an image against a single backend URL. Implementations
// never return an error: every failure is encoded in the ModelResult.
type Client interface {
	Classify(ctx context.Context, backendURL string, image []byte, label string) ModelResult
}

// Round rounds v to the given number of decimal places. Values too large to
// scale have no fractional part and are returned unchanged.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	scaled := v * scale
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return v
	}
	return math.Round(scaled) / scale
}

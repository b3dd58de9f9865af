package comparison

import (
	"fmt"
	"math"

	"github.com/example/ab-compare/internal/classifier"
)

const topK = 5

// Top1 summarizes the best guess of one backend.
type Top1 struct {
	Breed   string  `json:"breed"`
	BreedEN string  `json:"breed_en"`
	Score   float64 `json:"score"`
}

// Comparison is the head-to-head summary of two ModelResults. The detail
// fields are all set when Available is true and all nil otherwise.
type Comparison struct {
	Available        bool     `json:"comparison_available"`
	Top1Agreement    *bool    `json:"top1_agreement,omitempty"`
	Top1ModelA       *Top1    `json:"top1_model_a,omitempty"`
	Top1ModelB       *Top1    `json:"top1_model_b,omitempty"`
	ScoreDifference  *float64 `json:"score_difference,omitempty"`
	Top5Overlap      *string  `json:"top5_overlap,omitempty"`
	Winner           *string  `json:"winner,omitempty"`
	ResponseTimeDiff *float64 `json:"response_time_diff,omitempty"`
}

// Compare derives the comparison of a and b. It is unavailable when either
// side failed or returned no predictions.
func Compare(a, b classifier.ModelResult) Comparison {
	if !a.Success || !b.Success || len(a.Predictions) == 0 || len(b.Predictions) == 0 {
		return Comparison{Available: false}
	}

	top1A := a.Predictions[0]
	top1B := b.Predictions[0]

	agreement := top1A.BreedEN == top1B.BreedEN
	diff := math.Abs(top1A.Score - top1B.Score)
	if math.IsInf(diff, 0) {
		diff = math.MaxFloat64
	}
	scoreDiff := classifier.Round(diff, 4)
	overlap := fmt.Sprintf("%d/%d", Top5Overlap(a.Predictions, b.Predictions), topK)

	// Ties go to Model B.
	winner := classifier.ModelB
	if top1A.Score > top1B.Score {
		winner = classifier.ModelA
	}
	timeDiff := classifier.Round(a.ResponseTime-b.ResponseTime, 3)

	return Comparison{
		Available:        true,
		Top1Agreement:    &agreement,
		Top1ModelA:       summarize(top1A),
		Top1ModelB:       summarize(top1B),
		ScoreDifference:  &scoreDiff,
		Top5Overlap:      &overlap,
		Winner:           &winner,
		ResponseTimeDiff: &timeDiff,
	}
}

// Top5Overlap counts distinct English breed names shared by the first five
// predictions of each list.
func Top5Overlap(a, b []classifier.Prediction) int {
	inA := breedSet(a)
	count := 0
	for breed := range breedSet(b) {
		if _, ok := inA[breed]; ok {
			count++
		}
	}
	return count
}

func breedSet(preds []classifier.Prediction) map[string]struct{} {
	if len(preds) > topK {
		preds = preds[:topK]
	}
	set := make(map[string]struct{}, len(preds))
	for _, p := range preds {
		set[p.BreedEN] = struct{}{}
	}
	return set
}

func summarize(p classifier.Prediction) *Top1 {
	return &Top1{
		Breed:   p.BreedKO,
		BreedEN: p.BreedEN,
		Score:   classifier.Round(p.Score, 4),
	}
}

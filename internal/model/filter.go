package model

import (
	"math"
	"slices"
)

// Filter keeps the highest scoring classes: sort by descending score (ties
// keep class order), take the first k, then stop at the first score below
// threshold. k below 1 is treated as 1 and threshold is clamped to [0, 1].
func Filter(vec PredictionVector, k int, threshold float32) FilteredResult {
	if k < 1 {
		k = 1
	}
	threshold = min(max(threshold, 0), 1)

	sorted := slices.Clone(vec)
	slices.SortStableFunc(sorted, func(a, b Prediction) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(sorted) > k {
		sorted = sorted[:k]
	}

	kept := make([]Prediction, 0, len(sorted))
	for _, p := range sorted {
		if p.Score < threshold {
			break
		}
		kept = append(kept, p)
	}

	return FilteredResult{
		Predictions: kept,
		TopK:        k,
		Threshold:   threshold,
	}
}

// Softmax converts logits into probabilities.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := slices.Max(logits)

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// NewPredictionVector pairs scores with labels by class index.
func NewPredictionVector(scores []float32, labels []string) PredictionVector {
	vec := make(PredictionVector, len(scores))
	for i, score := range scores {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		vec[i] = Prediction{Index: i, Label: label, Score: score}
	}
	return vec
}

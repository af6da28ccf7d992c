package model

import (
	"math"
	"sort"
)

// RobustZScore scores points by their distance from the median in units of
// the scaled median absolute deviation.
type RobustZScore struct{}

func (RobustZScore) Name() string {
	return "robust_zscore"
}

func (RobustZScore) Detect(values []float64, contamination float64) ([]bool, error) {
	if err := ValidateContamination(contamination); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	med := median(values)
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}

	scale := 1.4826 * median(deviations)
	if scale == 0 {
		scale = mean(deviations)
	}

	scores := make([]float64, len(values))
	if scale > 0 {
		for i, d := range deviations {
			scores[i] = d / scale
		}
	}

	return partitionByScore(scores, contamination), nil
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

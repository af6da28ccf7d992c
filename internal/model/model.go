// Package model holds the forecasting and outlier-detection capabilities the
// analytics stages are built on. Stages only see the interfaces below, so an
// algorithm can be swapped through configuration without touching the
// pipeline.
package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
)

// Observation is one point of a univariate daily series
type Observation struct {
	Date  time.Time
	Value float64
}

// TimeSeriesForecaster fits a series and extrapolates it.
//
// Forecast returns one point per observation (in-sample fitted values, in the
// same order) followed by horizon daily points after the last observation.
type TimeSeriesForecaster interface {
	Name() string
	Forecast(history []Observation, horizon int) ([]domain.ForecastPoint, error)
}

// OutlierDetector partitions a univariate sample into normal and anomalous
// points. contamination is the expected anomalous fraction. Implementations
// must be deterministic for a given input.
type OutlierDetector interface {
	Name() string
	Detect(values []float64, contamination float64) ([]bool, error)
}

// Signature identifies a model together with the settings that change its
// output. Artifacts computed under a different signature are stale.
func Signature(m interface{ Name() string }) string {
	if s, ok := m.(interface{ Signature() string }); ok {
		return s.Signature()
	}
	return m.Name()
}

// NewForecaster returns the forecaster registered under name.
func NewForecaster(name string) (TimeSeriesForecaster, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "holt_winters", "holtwinters":
		return NewHoltWinters(), nil
	case "holt", "holt_linear":
		hw := NewHoltWinters()
		hw.SeasonLength = 0
		return hw, nil
	default:
		return nil, fmt.Errorf("unknown forecast model %q", name)
	}
}

// NewDetector returns the outlier detector registered under name.
func NewDetector(name string, seed int64) (OutlierDetector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "isolation_forest", "iforest":
		return NewIsolationForest(seed), nil
	case "zscore", "robust_zscore":
		return RobustZScore{}, nil
	default:
		return nil, fmt.Errorf("unknown anomaly detector %q", name)
	}
}

// ValidateContamination checks that contamination is a usable fraction.
func ValidateContamination(contamination float64) error {
	if math.IsNaN(contamination) || contamination <= 0 || contamination > 0.5 {
		return fmt.Errorf("contamination must be in (0, 0.5], got %v", contamination)
	}
	return nil
}

// partitionByScore flags the points whose anomaly score lies strictly above
// the (1-contamination) percentile of all scores. Ties at the threshold stay
// normal, so a constant series never yields anomalies.
func partitionByScore(scores []float64, contamination float64) []bool {
	threshold := percentile(scores, 100*(1-contamination))
	flags := make([]bool, len(scores))
	for i, s := range scores {
		flags[i] = s > threshold
	}
	return flags
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Package forecast fits a usage series per item and extrapolates it over a
// short horizon.
package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/model"
)

const (
	DefaultHorizon         = 7
	DefaultRunoutThreshold = 1.0

	// minDistinctDates is the smallest history a forecaster is fitted on.
	minDistinctDates = 2
)

// Series builds the daily usage series of item: records are filtered by
// normalized name, same-day usage is summed, and points are ordered by date.
func Series(item string, records []domain.CleanedRecord) []model.Observation {
	item = domain.NormalizeName(item)

	byDate := make(map[time.Time]float64)
	for _, r := range records {
		if domain.NormalizeName(r.ItemName) != item {
			continue
		}
		byDate[r.Date] += float64(r.UsageToday)
	}

	series := make([]model.Observation, 0, len(byDate))
	for d, v := range byDate {
		series = append(series, model.Observation{Date: d, Value: v})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}

// Forecast produces fitted values for each observed date of item followed by
// horizon future daily points. Items with fewer than two distinct dates get
// an OutcomeInsufficientData result and no points.
func Forecast(item string, records []domain.CleanedRecord, horizon int, f model.TimeSeriesForecaster) (domain.ForecastResult, error) {
	if horizon < 1 {
		return domain.ForecastResult{}, fmt.Errorf("%w: horizon must be positive, got %d", domain.ErrInvalidInput, horizon)
	}

	series := Series(item, records)
	result := domain.ForecastResult{
		ItemName:     domain.NormalizeName(item),
		Horizon:      horizon,
		Observations: len(series),
	}
	if len(series) < minDistinctDates {
		result.Outcome = domain.OutcomeInsufficientData
		result.Horizon = 0
		return result, nil
	}

	points, err := f.Forecast(series, horizon)
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("forecast %s with %s: %w", result.ItemName, f.Name(), err)
	}
	if len(points) != len(series)+horizon {
		return domain.ForecastResult{}, fmt.Errorf("forecast %s with %s: got %d points, want %d",
			result.ItemName, f.Name(), len(points), len(series)+horizon)
	}

	result.Points = points
	result.LastObserved = series[len(series)-1].Date
	result.Outcome = domain.OutcomeOK
	return result, nil
}

// Items returns the distinct normalized item names present in records, sorted.
func Items(records []domain.CleanedRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[domain.NormalizeName(r.ItemName)] = struct{}{}
	}
	items := make([]string, 0, len(seen))
	for it := range seen {
		items = append(items, it)
	}
	sort.Strings(items)
	return items
}

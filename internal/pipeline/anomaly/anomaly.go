// Package anomaly labels each historical usage observation of an item as
// Normal or Anomaly.
package anomaly

import (
	"fmt"
	"sort"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/model"
)

const (
	DefaultContamination = 0.2

	// minRows is the smallest sample a detector is run on.
	minRows = 5
)

// Detect labels every record of item in ascending date order; records on the
// same date keep their input order. Items with fewer than five rows get an
// OutcomeInsufficientData result and no labels.
func Detect(item string, records []domain.CleanedRecord, contamination float64, d model.OutlierDetector) (domain.AnomalyResult, error) {
	if err := model.ValidateContamination(contamination); err != nil {
		return domain.AnomalyResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	item = domain.NormalizeName(item)
	result := domain.AnomalyResult{
		ItemName:      item,
		Contamination: contamination,
		Labels:        []domain.AnomalyLabel{},
	}

	rows := make([]domain.CleanedRecord, 0)
	for _, r := range records {
		if domain.NormalizeName(r.ItemName) == item {
			rows = append(rows, r)
		}
	}
	if len(rows) < minRows {
		result.Outcome = domain.OutcomeInsufficientData
		return result, nil
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = float64(r.UsageToday)
	}

	flags, err := d.Detect(values, contamination)
	if err != nil {
		return domain.AnomalyResult{}, fmt.Errorf("detect anomalies for %s with %s: %w", item, d.Name(), err)
	}
	if len(flags) != len(rows) {
		return domain.AnomalyResult{}, fmt.Errorf("detect anomalies for %s with %s: got %d labels, want %d",
			item, d.Name(), len(flags), len(rows))
	}

	result.Labels = make([]domain.AnomalyLabel, len(rows))
	for i, r := range rows {
		label := domain.LabelNormal
		if flags[i] {
			label = domain.LabelAnomaly
		}
		result.Labels[i] = domain.AnomalyLabel{
			Date:       r.Date,
			ItemName:   item,
			UsageToday: values[i],
			Label:      label,
		}
	}
	result.Outcome = domain.OutcomeOK
	return result, nil
}

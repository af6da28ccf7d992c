package artifact

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
)

var (
	cleanedHeader  = []string{"item_name", "date", "current_stock", "usage_today"}
	forecastHeader = []string{"ds", "yhat", "yhat_lower", "yhat_upper", "trend", "future"}
	anomalyHeader  = []string{"date", "item_name", "usage_today", "anomaly"}
)

// WriteCleaned replaces the cleaned dataset.
func (s *Store) WriteCleaned(ctx context.Context, records []domain.CleanedRecord) error {
	return s.writeAtomic(ctx, s.CleanedPath(), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(cleanedHeader); err != nil {
			return err
		}
		for _, r := range records {
			if err := cw.Write([]string{
				r.ItemName,
				r.Date.Format(domain.DateLayout),
				strconv.Itoa(r.CurrentStock),
				strconv.Itoa(r.UsageToday),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ReadCleaned loads the cleaned dataset.
func (s *Store) ReadCleaned() ([]domain.CleanedRecord, error) {
	f, err := openArtifact(s.CleanedPath())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, cols, err := readCSV(f, cleanedHeader)
	if err != nil {
		return nil, fmt.Errorf("cleaned dataset: %w", err)
	}

	records := make([]domain.CleanedRecord, 0, len(rows))
	for i, row := range rows {
		date, err := time.Parse(domain.DateLayout, row[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("cleaned dataset row %d: bad date: %w", i+2, err)
		}
		stock, err := strconv.Atoi(row[cols["current_stock"]])
		if err != nil {
			return nil, fmt.Errorf("cleaned dataset row %d: bad current_stock: %w", i+2, err)
		}
		usage, err := strconv.Atoi(row[cols["usage_today"]])
		if err != nil {
			return nil, fmt.Errorf("cleaned dataset row %d: bad usage_today: %w", i+2, err)
		}
		records = append(records, domain.CleanedRecord{
			ItemName:     row[cols["item_name"]],
			Date:         date,
			CurrentStock: stock,
			UsageToday:   usage,
		})
	}
	return records, nil
}

// WriteForecast replaces the forecast artifact of result.ItemName.
func (s *Store) WriteForecast(ctx context.Context, result domain.ForecastResult) error {
	return s.writeAtomic(ctx, s.ForecastPath(result.ItemName), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(forecastHeader); err != nil {
			return err
		}
		for _, p := range result.Points {
			if err := cw.Write([]string{
				p.Date.Format(domain.DateLayout),
				formatFloat(p.Yhat),
				formatFloat(p.YhatLower),
				formatFloat(p.YhatUpper),
				formatFloat(p.Trend),
				strconv.FormatBool(p.Future),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ReadForecast loads the forecast artifact of item.
func (s *Store) ReadForecast(item string) (domain.ForecastResult, error) {
	f, err := openArtifact(s.ForecastPath(item))
	if err != nil {
		return domain.ForecastResult{}, err
	}
	defer f.Close()

	rows, cols, err := readCSV(f, []string{"ds", "yhat"})
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("forecast %s: %w", item, err)
	}

	result := domain.ForecastResult{
		ItemName: domain.NormalizeName(item),
		Points:   make([]domain.ForecastPoint, 0, len(rows)),
		Outcome:  domain.OutcomeOK,
	}
	for i, row := range rows {
		ds, err := time.Parse(domain.DateLayout, row[cols["ds"]])
		if err != nil {
			return domain.ForecastResult{}, fmt.Errorf("forecast %s row %d: bad ds: %w", item, i+2, err)
		}
		p := domain.ForecastPoint{Date: ds}
		if p.Yhat, err = strconv.ParseFloat(row[cols["yhat"]], 64); err != nil {
			return domain.ForecastResult{}, fmt.Errorf("forecast %s row %d: bad yhat: %w", item, i+2, err)
		}
		p.YhatLower = optionalFloat(row, cols, "yhat_lower")
		p.YhatUpper = optionalFloat(row, cols, "yhat_upper")
		p.Trend = optionalFloat(row, cols, "trend")
		if idx, ok := cols["future"]; ok {
			p.Future, _ = strconv.ParseBool(row[idx])
		}
		result.Points = append(result.Points, p)
	}

	// Without a future column every row counts as history.
	for _, p := range result.Points {
		if p.Future {
			result.Horizon++
		} else {
			result.Observations++
			result.LastObserved = p.Date
		}
	}
	return result, nil
}

// WriteAnomalies replaces the combined anomaly artifact with labels.
func (s *Store) WriteAnomalies(ctx context.Context, labels []domain.AnomalyLabel) error {
	return s.writeAtomic(ctx, s.AnomalyPath(), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(anomalyHeader); err != nil {
			return err
		}
		for _, l := range labels {
			if err := cw.Write([]string{
				l.Date.Format(domain.DateLayout),
				l.ItemName,
				formatFloat(l.UsageToday),
				l.Label,
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ReplaceItemAnomalies rewrites the combined artifact with item's rows
// swapped for labels, keeping every other item's rows.
func (s *Store) ReplaceItemAnomalies(ctx context.Context, item string, labels []domain.AnomalyLabel) error {
	existing, err := s.ReadAnomalies()
	if err != nil && !isNotComputed(err) {
		return err
	}

	item = domain.NormalizeName(item)
	merged := make([]domain.AnomalyLabel, 0, len(existing)+len(labels))
	for _, l := range existing {
		if domain.NormalizeName(l.ItemName) != item {
			merged = append(merged, l)
		}
	}
	merged = append(merged, labels...)
	return s.WriteAnomalies(ctx, merged)
}

// ReadAnomalies loads the combined anomaly artifact.
func (s *Store) ReadAnomalies() ([]domain.AnomalyLabel, error) {
	f, err := openArtifact(s.AnomalyPath())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, cols, err := readCSV(f, anomalyHeader)
	if err != nil {
		return nil, fmt.Errorf("anomaly artifact: %w", err)
	}

	labels := make([]domain.AnomalyLabel, 0, len(rows))
	for i, row := range rows {
		date, err := time.Parse(domain.DateLayout, row[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("anomaly artifact row %d: bad date: %w", i+2, err)
		}
		usage, err := strconv.ParseFloat(row[cols["usage_today"]], 64)
		if err != nil {
			return nil, fmt.Errorf("anomaly artifact row %d: bad usage_today: %w", i+2, err)
		}
		labels = append(labels, domain.AnomalyLabel{
			Date:       date,
			ItemName:   row[cols["item_name"]],
			UsageToday: usage,
			Label:      row[cols["anomaly"]],
		})
	}
	return labels, nil
}

// readCSV reads all rows and maps header names to column indexes, failing
// when a required column is absent.
func readCSV(r io.Reader, required []string) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, cols, nil
}

func optionalFloat(row []string, cols map[string]int, name string) float64 {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return 0
	}
	v, _ := strconv.ParseFloat(row[idx], 64)
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/pipeline/anomaly"
	"github.com/andresuchdata/grocerystock/internal/pipeline/cleaning"
	"github.com/andresuchdata/grocerystock/internal/pipeline/forecast"
)

// RawSource yields the raw stock log export the cleaning stage consumes
type RawSource interface {
	ExportRawLogs(ctx context.Context) ([]domain.RawStockLog, error)
}

// FileSource reads a raw stock log CSV from disk
type FileSource struct {
	Path string
}

func (s FileSource) ExportRawLogs(ctx context.Context) ([]domain.RawStockLog, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot open raw input %s: %w", s.Path, err)
	}
	defer f.Close()

	return cleaning.ReadRaw(f)
}

// Options holds the tunables of one runner
type Options struct {
	Horizon         int
	Contamination   float64
	RunoutThreshold float64
	Workers         int  // concurrent items for the all-items stages
	Force           bool // recompute even when the input hash is unchanged
}

// DefaultOptions returns the stage defaults
func DefaultOptions() Options {
	return Options{
		Horizon:         forecast.DefaultHorizon,
		Contamination:   anomaly.DefaultContamination,
		RunoutThreshold: forecast.DefaultRunoutThreshold,
		Workers:         1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Horizon <= 0 {
		o.Horizon = d.Horizon
	}
	if o.Contamination <= 0 {
		o.Contamination = d.Contamination
	}
	if o.RunoutThreshold <= 0 {
		o.RunoutThreshold = d.RunoutThreshold
	}
	if o.Workers < 1 {
		o.Workers = d.Workers
	}
	return o
}

// Summary is the outcome of a full pipeline run
type Summary struct {
	Cleaning  domain.CleanReport      `json:"cleaning"`
	Forecasts []domain.ForecastResult `json:"forecasts"`
	Anomalies []domain.AnomalyResult  `json:"anomalies"`
}

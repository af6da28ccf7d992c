package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/andresuchdata/grocerystock/internal/artifact"
	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/pipeline"
	"github.com/andresuchdata/grocerystock/internal/report"
	"github.com/rs/zerolog/log"
)

// AnalyticsService exposes the pipeline stages and their artifacts to the
// HTTP surfaces and the CLI. Reads never trigger computation.
type AnalyticsService struct {
	runner    *pipeline.Runner
	store     *artifact.Store
	inventory *InventoryService
}

func NewAnalyticsService(runner *pipeline.Runner, store *artifact.Store, inventory *InventoryService) *AnalyticsService {
	return &AnalyticsService{runner: runner, store: store, inventory: inventory}
}

func (s *AnalyticsService) Status() (domain.ArtifactStatus, error) {
	return s.store.Status()
}

// Forecast returns the stored forecast of item, or an error matching
// domain.ErrArtifactNotFound when it was never computed.
func (s *AnalyticsService) Forecast(item string) (domain.ForecastResult, error) {
	return s.store.ReadForecast(item)
}

func (s *AnalyticsService) Runout(item string) (domain.Runout, error) {
	return s.runner.Runout(item)
}

// Anomalies returns the stored labels, optionally narrowed to one item.
func (s *AnalyticsService) Anomalies(item string) ([]domain.AnomalyLabel, error) {
	labels, err := s.store.ReadAnomalies()
	if err != nil {
		return nil, err
	}
	if item == "" {
		return labels, nil
	}

	item = domain.NormalizeName(item)
	out := make([]domain.AnomalyLabel, 0)
	for _, l := range labels {
		if domain.NormalizeName(l.ItemName) == item {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *AnalyticsService) RunCleaning(ctx context.Context) (domain.CleanReport, error) {
	return s.runner.RunCleaning(ctx)
}

func (s *AnalyticsService) RunForecast(ctx context.Context, item string) (domain.ForecastResult, error) {
	return s.runner.RunForecast(ctx, item)
}

func (s *AnalyticsService) RunForecastAll(ctx context.Context) ([]domain.ForecastResult, error) {
	return s.runner.RunForecastAll(ctx)
}

func (s *AnalyticsService) RunAnomaly(ctx context.Context, item string) (domain.AnomalyResult, error) {
	return s.runner.RunAnomaly(ctx, item)
}

func (s *AnalyticsService) RunAnomalyAll(ctx context.Context) ([]domain.AnomalyResult, error) {
	return s.runner.RunAnomalyAll(ctx)
}

func (s *AnalyticsService) RunAll(ctx context.Context) (pipeline.Summary, error) {
	return s.runner.RunAll(ctx)
}

// Report writes an XLSX workbook of the summary view and whatever artifacts
// exist. Missing artifacts leave their sheet empty.
func (s *AnalyticsService) Report(ctx context.Context, w io.Writer) error {
	data := report.Data{GeneratedAt: time.Now()}

	if s.inventory != nil {
		summaries, err := s.inventory.Summary(ctx, domain.SummaryFilter{})
		if err != nil {
			return err
		}
		data.Summaries = summaries
	}

	items, err := s.store.ListForecastItems()
	if err != nil {
		return err
	}
	for _, item := range items {
		r, err := s.runner.Runout(item)
		if err != nil {
			log.Warn().Err(err).Str("item", item).Msg("report: skipping unreadable forecast")
			continue
		}
		data.Runouts = append(data.Runouts, r)
	}

	labels, err := s.store.ReadAnomalies()
	if err != nil && !errors.Is(err, domain.ErrArtifactNotFound) {
		return err
	}
	data.Anomalies = labels

	return report.Build(w, data)
}

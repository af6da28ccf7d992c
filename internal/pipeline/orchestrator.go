// Package pipeline runs the cleaning, forecasting and anomaly stages against
// the artifact store. Every stage is usable on its own; RunAll chains them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/andresuchdata/grocerystock/internal/artifact"
	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/model"
	"github.com/andresuchdata/grocerystock/internal/pipeline/anomaly"
	"github.com/andresuchdata/grocerystock/internal/pipeline/cleaning"
	"github.com/andresuchdata/grocerystock/internal/pipeline/forecast"
	"github.com/andresuchdata/grocerystock/internal/repository"
	"github.com/rs/zerolog/log"
)

// Runner coordinates the stages over one artifact store.
type Runner struct {
	store      *artifact.Store
	source     RawSource
	forecaster model.TimeSeriesForecaster
	detector   model.OutlierDetector
	tracker    tracker
	opts       Options

	// anomalyMu serialises read-modify-write cycles of the combined anomaly file.
	anomalyMu sync.Mutex
}

// NewRunner creates a Runner. runs may be nil to disable run tracking.
func NewRunner(
	store *artifact.Store,
	source RawSource,
	forecaster model.TimeSeriesForecaster,
	detector model.OutlierDetector,
	runs repository.PipelineRunRepository,
	opts Options,
) *Runner {
	return &Runner{
		store:      store,
		source:     source,
		forecaster: forecaster,
		detector:   detector,
		tracker:    tracker{runs: runs},
		opts:       opts.withDefaults(),
	}
}

// Options returns the effective runner options.
func (r *Runner) Options() Options {
	return r.opts
}

// RunCleaning exports the raw logs, cleans them and replaces the cleaned
// artifact. An unchanged export is not recomputed unless Force is set.
func (r *Runner) RunCleaning(ctx context.Context) (domain.CleanReport, error) {
	if r.source == nil {
		return domain.CleanReport{}, fmt.Errorf("no raw source configured")
	}

	raw, err := r.source.ExportRawLogs(ctx)
	if err != nil {
		return domain.CleanReport{}, fmt.Errorf("failed to export raw logs: %w", err)
	}

	hash := artifact.HashRaw(raw)
	path := r.store.CleanedPath()
	run := r.tracker.start(ctx, domain.StageCleaning, "", hash)

	if !r.opts.Force && r.store.Fresh(path, hash) {
		records, err := r.store.ReadCleaned()
		if err == nil {
			report := domain.CleanReport{Records: records, InputRows: len(raw), Outcome: domain.OutcomeUpToDate}
			r.tracker.finish(ctx, run, domain.RunStatusSkipped, len(records), nil)
			log.Info().Str("stage", domain.StageCleaning).Int("rows", len(records)).Msg("cleaned data up to date")
			return report, nil
		}
		log.Warn().Err(err).Msg("cleaned artifact unreadable, recomputing")
	}

	start := time.Now()
	report := cleaning.Clean(raw)

	if err := r.store.WriteCleaned(ctx, report.Records); err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return domain.CleanReport{}, err
	}
	if err := r.store.WriteManifest(ctx, path, artifact.Manifest{
		Stage:     domain.StageCleaning,
		InputHash: hash,
		Rows:      len(report.Records),
	}); err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return domain.CleanReport{}, err
	}
	r.tracker.finish(ctx, run, domain.RunStatusCompleted, len(report.Records), nil)

	log.Info().
		Str("stage", domain.StageCleaning).
		Int("input_rows", report.InputRows).
		Int("rows", len(report.Records)).
		Int("duplicates", report.Duplicates).
		Int("missing_fields", report.MissingFields).
		Int("bad_dates", report.BadDates).
		Int("bad_numbers", report.BadNumbers).
		Str("outcome", string(report.Outcome)).
		Dur("took", time.Since(start)).
		Msg("cleaning finished")

	return report, nil
}

// RunForecast fits and writes the forecast of one item. It needs the cleaned
// artifact and fails with domain.ErrArtifactNotFound when cleaning has not
// run yet.
func (r *Runner) RunForecast(ctx context.Context, item string) (domain.ForecastResult, error) {
	records, err := r.store.ReadCleaned()
	if err != nil {
		return domain.ForecastResult{}, err
	}
	return r.forecastItem(ctx, item, records)
}

// RunForecastAll forecasts every item of the cleaned dataset.
func (r *Runner) RunForecastAll(ctx context.Context) ([]domain.ForecastResult, error) {
	records, err := r.store.ReadCleaned()
	if err != nil {
		return nil, err
	}

	items := forecast.Items(records)
	results := make([]domain.ForecastResult, len(items))
	err = forEachItem(ctx, items, r.opts.Workers, func(ctx context.Context, i int, item string) error {
		res, err := r.forecastItem(ctx, item, records)
		if err != nil {
			return err
		}
		results[i] = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) forecastItem(ctx context.Context, item string, records []domain.CleanedRecord) (domain.ForecastResult, error) {
	item = domain.NormalizeName(item)
	if item == "" {
		return domain.ForecastResult{}, fmt.Errorf("%w: item is required", domain.ErrInvalidInput)
	}

	itemRecords := filterItem(records, item)
	hash := artifact.HashCleaned(itemRecords, model.Signature(r.forecaster), "horizon="+strconv.Itoa(r.opts.Horizon))
	path := r.store.ForecastPath(item)
	run := r.tracker.start(ctx, domain.StageForecasting, item, hash)

	if !r.opts.Force && r.store.Fresh(path, hash) {
		if cached, err := r.store.ReadForecast(item); err == nil {
			cached.Outcome = domain.OutcomeUpToDate
			r.tracker.finish(ctx, run, domain.RunStatusSkipped, len(cached.Points), nil)
			return cached, nil
		}
	}

	result, err := forecast.Forecast(item, itemRecords, r.opts.Horizon, r.forecaster)
	if err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return domain.ForecastResult{}, err
	}

	if result.Outcome == domain.OutcomeInsufficientData {
		log.Warn().
			Str("stage", domain.StageForecasting).
			Str("item", item).
			Int("dates", result.Observations).
			Msg("not enough data to forecast")
		if err := r.store.RemoveForecast(ctx, item); err != nil {
			r.tracker.finish(ctx, run, "", 0, err)
			return domain.ForecastResult{}, err
		}
		r.tracker.finish(ctx, run, domain.RunStatusCompleted, 0, nil)
		return result, nil
	}

	if err := r.store.WriteForecast(ctx, result); err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return domain.ForecastResult{}, err
	}
	if err := r.store.WriteManifest(ctx, path, artifact.Manifest{
		Stage:     domain.StageForecasting,
		Item:      item,
		InputHash: hash,
		Rows:      len(result.Points),
		Params: map[string]string{
			"model":   model.Signature(r.forecaster),
			"horizon": strconv.Itoa(r.opts.Horizon),
		},
	}); err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return domain.ForecastResult{}, err
	}
	r.tracker.finish(ctx, run, domain.RunStatusCompleted, len(result.Points), nil)

	log.Info().
		Str("stage", domain.StageForecasting).
		Str("item", item).
		Int("rows", len(result.Points)).
		Str("model", r.forecaster.Name()).
		Msg("forecast written")
	return result, nil
}

// RunAnomaly labels one item and swaps its rows in the combined anomaly
// artifact, leaving other items' rows untouched.
func (r *Runner) RunAnomaly(ctx context.Context, item string) (domain.AnomalyResult, error) {
	records, err := r.store.ReadCleaned()
	if err != nil {
		return domain.AnomalyResult{}, err
	}

	item = domain.NormalizeName(item)
	if item == "" {
		return domain.AnomalyResult{}, fmt.Errorf("%w: item is required", domain.ErrInvalidInput)
	}

	r.anomalyMu.Lock()
	defer r.anomalyMu.Unlock()

	path := r.store.AnomalyPath()
	manifest, err := r.store.ReadManifest(path)
	if err != nil && !errors.Is(err, domain.ErrArtifactNotFound) {
		return domain.AnomalyResult{}, err
	}

	itemRecords := filterItem(records, item)
	hash := r.anomalyHash(itemRecords)
	run := r.tracker.start(ctx, domain.StageAnomaly, item, hash)

	if !r.opts.Force && r.store.Exists(path) && manifest.ItemHashes[item] == hash {
		if labels, err := r.store.ReadAnomalies(); err == nil {
			cached := domain.AnomalyResult{
				ItemName:      item,
				Contamination: r.opts.Contamination,
				Labels:        labelsFor(labels, item),
				Outcome:       domain.OutcomeUpToDate,
			}
			r.tracker.finish(ctx, run, domain.RunStatusSkipped, len(cached.Labels), nil)
			return cached, nil
		}
	}

	result, err := anomaly.Detect(item, itemRecords, r.opts.Contamination, r.detector)
	if err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return domain.AnomalyResult{}, err
	}
	if result.Outcome == domain.OutcomeInsufficientData {
		log.Warn().Str("stage", domain.StageAnomaly).Str("item", item).Msg("not enough data for anomaly detection")
		if _, labelled := manifest.ItemHashes[item]; labelled {
			if err := r.dropItemAnomalies(ctx, item, manifest.ItemHashes); err != nil {
				r.tracker.finish(ctx, run, "", 0, err)
				return domain.AnomalyResult{}, err
			}
		}
		r.tracker.finish(ctx, run, domain.RunStatusCompleted, 0, nil)
		return result, nil
	}

	if err := r.store.ReplaceItemAnomalies(ctx, item, result.Labels); err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return domain.AnomalyResult{}, err
	}

	hashes := manifest.ItemHashes
	if hashes == nil {
		hashes = make(map[string]string)
	}
	hashes[item] = hash
	if err := r.writeAnomalyManifest(ctx, hashes); err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return domain.AnomalyResult{}, err
	}
	r.tracker.finish(ctx, run, domain.RunStatusCompleted, len(result.Labels), nil)

	log.Info().
		Str("stage", domain.StageAnomaly).
		Str("item", item).
		Int("rows", len(result.Labels)).
		Int("anomalies", result.AnomalyCount()).
		Msg("anomaly labels written")
	return result, nil
}

// RunAnomalyAll labels every item and rebuilds the combined artifact from
// scratch. Items without enough rows are left out of the file.
func (r *Runner) RunAnomalyAll(ctx context.Context) ([]domain.AnomalyResult, error) {
	records, err := r.store.ReadCleaned()
	if err != nil {
		return nil, err
	}

	r.anomalyMu.Lock()
	defer r.anomalyMu.Unlock()

	items := forecast.Items(records)
	run := r.tracker.start(ctx, domain.StageAnomaly, "", r.anomalyHash(records))

	results := make([]domain.AnomalyResult, len(items))
	err = forEachItem(ctx, items, r.opts.Workers, func(ctx context.Context, i int, item string) error {
		res, err := anomaly.Detect(item, filterItem(records, item), r.opts.Contamination, r.detector)
		if err != nil {
			return err
		}
		results[i] = res
		return nil
	})
	if err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return nil, err
	}

	var labels []domain.AnomalyLabel
	hashes := make(map[string]string, len(items))
	for i, res := range results {
		if res.Outcome != domain.OutcomeOK {
			continue
		}
		labels = append(labels, res.Labels...)
		hashes[items[i]] = r.anomalyHash(filterItem(records, items[i]))
	}

	if err := r.store.WriteAnomalies(ctx, labels); err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return nil, err
	}
	if err := r.writeAnomalyManifest(ctx, hashes); err != nil {
		r.tracker.finish(ctx, run, "", 0, err)
		return nil, err
	}
	r.tracker.finish(ctx, run, domain.RunStatusCompleted, len(labels), nil)

	log.Info().
		Str("stage", domain.StageAnomaly).
		Int("items", len(hashes)).
		Int("rows", len(labels)).
		Msg("anomaly artifact rebuilt")
	return results, nil
}

// RunAll cleans and then runs both analytics stages for every item.
func (r *Runner) RunAll(ctx context.Context) (Summary, error) {
	var summary Summary

	report, err := r.RunCleaning(ctx)
	if err != nil {
		return summary, fmt.Errorf("cleaning stage: %w", err)
	}
	summary.Cleaning = report

	if summary.Forecasts, err = r.RunForecastAll(ctx); err != nil {
		return summary, fmt.Errorf("forecasting stage: %w", err)
	}
	if summary.Anomalies, err = r.RunAnomalyAll(ctx); err != nil {
		return summary, fmt.Errorf("anomaly stage: %w", err)
	}
	return summary, nil
}

// Runout derives the depletion date of item from its forecast artifact.
func (r *Runner) Runout(item string) (domain.Runout, error) {
	result, err := r.store.ReadForecast(item)
	if err != nil {
		return domain.Runout{}, err
	}
	return forecast.PredictRunout(result, r.opts.RunoutThreshold), nil
}

func (r *Runner) anomalyHash(records []domain.CleanedRecord) string {
	return artifact.HashCleaned(records, model.Signature(r.detector), "contamination="+artifact.FormatParam(r.opts.Contamination))
}

// dropItemAnomalies removes the labels of an item that no longer has enough
// rows, so the combined artifact only holds labels the cleaned data supports.
func (r *Runner) dropItemAnomalies(ctx context.Context, item string, hashes map[string]string) error {
	if err := r.store.ReplaceItemAnomalies(ctx, item, nil); err != nil {
		return err
	}
	delete(hashes, item)
	return r.writeAnomalyManifest(ctx, hashes)
}

func (r *Runner) writeAnomalyManifest(ctx context.Context, hashes map[string]string) error {
	keys := make([]string, 0, len(hashes))
	for k := range hashes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		parts = append(parts, k, hashes[k])
	}

	return r.store.WriteManifest(ctx, r.store.AnomalyPath(), artifact.Manifest{
		Stage:      domain.StageAnomaly,
		InputHash:  artifact.HashParts(parts...),
		Rows:       len(hashes),
		ItemHashes: hashes,
		Params: map[string]string{
			"detector":      model.Signature(r.detector),
			"contamination": artifact.FormatParam(r.opts.Contamination),
		},
	})
}

func filterItem(records []domain.CleanedRecord, item string) []domain.CleanedRecord {
	out := make([]domain.CleanedRecord, 0)
	for _, rec := range records {
		if domain.NormalizeName(rec.ItemName) == item {
			out = append(out, rec)
		}
	}
	return out
}

func labelsFor(labels []domain.AnomalyLabel, item string) []domain.AnomalyLabel {
	out := make([]domain.AnomalyLabel, 0)
	for _, l := range labels {
		if domain.NormalizeName(l.ItemName) == item {
			out = append(out, l)
		}
	}
	return out
}

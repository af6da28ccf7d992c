package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/grocerystock/internal/config"
	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite3", Path: filepath.Join(dir, "stock.db")},
		App:      config.AppConfig{ArtifactDir: filepath.Join(dir, "artifacts")},
		Pipeline: config.PipelineConfig{
			ForecastHorizon:      7,
			ForecastModel:        "holt_winters",
			AnomalyContamination: 0.2,
			AnomalyDetector:      "isolation_forest",
			AnomalySeed:          42,
			RunoutThreshold:      1,
			Workers:              1,
		},
	}
}

func TestNew_WiresServices(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), Overrides{Horizon: 3})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 3, a.Runner.Options().Horizon)
	assert.Nil(t, a.Publisher)

	_, _, err = a.Inventory.RecordEntry(ctx, domain.EntryForm{
		ItemName: "wheat", Category: "grains", CurrentStock: 10, UsageToday: 1, Date: "2024-01-01",
	})
	require.NoError(t, err)

	report, err := a.Analytics.RunCleaning(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Records, 1)

	runs, err := a.RunRepo.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)
}

func TestNew_UnknownModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.ForecastModel = "prophet"

	_, err := New(context.Background(), cfg, Overrides{})
	assert.Error(t, err)
}

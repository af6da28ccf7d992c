package sqldb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/grocerystock/internal/config"
	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "stock.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func intRef(v int) *int { return &v }

func TestMigrate_Repeatable(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Migrate(context.Background()))
}

func TestGetOrCreateItem_NormalizesAndReuses(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(newTestDB(t))

	first, err := repo.GetOrCreateItem(ctx, "  Basmati   Rice ", "Grains")
	require.NoError(t, err)
	assert.Equal(t, "basmati rice", first.Name)
	assert.Equal(t, "grains", first.Category)

	second, err := repo.GetOrCreateItem(ctx, "basmati rice", "  GRAINS")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestGetOrCreateItem_RejectsBlankName(t *testing.T) {
	repo := NewInventoryRepository(newTestDB(t))

	_, err := repo.GetOrCreateItem(context.Background(), "   ", "grains")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAppendStockLog_UnknownItemPersistsNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(newTestDB(t))

	err := repo.AppendStockLog(ctx, &domain.StockLogEntry{
		ItemID:       999,
		CurrentStock: 10,
		UsageToday:   2,
		Date:         "2024-03-01",
	})
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	raw, err := repo.ExportRawLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestAppendStockLog_AssignsID(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(newTestDB(t))

	item, err := repo.GetOrCreateItem(ctx, "milk", "dairy")
	require.NoError(t, err)

	entry := &domain.StockLogEntry{ItemID: item.ID, CurrentStock: 40, UsageToday: 6, Date: "2024-03-01"}
	require.NoError(t, repo.AppendStockLog(ctx, entry))
	assert.NotZero(t, entry.ID)
}

func TestRecordEntry_ConstraintViolationRollsBackItem(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(newTestDB(t))

	_, _, err := repo.RecordEntry(ctx, domain.EntryForm{
		ItemName:     "yogurt",
		Category:     "dairy",
		CurrentStock: -4,
		UsageToday:   1,
		Date:         "2024-03-01",
	})
	require.Error(t, err)

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "item insert must roll back with the failed log")
}

func TestRecordEntry_ReusesNormalizedItem(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(newTestDB(t))

	first, _, err := repo.RecordEntry(ctx, domain.EntryForm{
		ItemName: "Wheat", Category: "Grains", CurrentStock: 100, UsageToday: 10, Date: "2024-03-01",
	})
	require.NoError(t, err)

	second, entry, err := repo.RecordEntry(ctx, domain.EntryForm{
		ItemName: " wheat ", Category: "grains", CurrentStock: 90, UsageToday: 12,
		DamagedStock: intRef(1), Date: "2024-03-02",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, entry.ItemID)
}

func TestListStockSummaries(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(newTestDB(t))

	forms := []domain.EntryForm{
		{ItemName: "rice", Category: "grains", CurrentStock: 10, UsageToday: 2, Date: "2024-01-01"},
		{ItemName: "rice", Category: "grains", CurrentStock: 5, UsageToday: 3, Date: "2024-01-02"},
		{ItemName: "cola", Category: "beverages", CurrentStock: 24, UsageToday: 6, Date: "2024-01-01"},
	}
	for _, f := range forms {
		_, _, err := repo.RecordEntry(ctx, f)
		require.NoError(t, err)
	}

	summaries, err := repo.ListStockSummaries(ctx, domain.SummaryFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "cola", summaries[0].ItemName)
	assert.Equal(t, "rice", summaries[1].ItemName)
	assert.Equal(t, "2024-01-02", summaries[1].LatestDate)
	assert.EqualValues(t, 15, summaries[1].TotalStock)
	assert.EqualValues(t, 5, summaries[1].TotalUsage)
	assert.Equal(t, 2, summaries[1].EntryCount)

	filtered, err := repo.ListStockSummaries(ctx, domain.SummaryFilter{Category: "Beverages"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "cola", filtered[0].ItemName)
}

func TestExportRawLogs_OptionalFieldsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(newTestDB(t))

	_, _, err := repo.RecordEntry(ctx, domain.EntryForm{
		ItemName: "chips", Category: "snacks", CurrentStock: 30, UsageToday: 4,
		DeliveryQuantity: intRef(12), Date: "2024-02-10",
	})
	require.NoError(t, err)

	raw, err := repo.ExportRawLogs(ctx)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, domain.RawStockLog{
		ItemName:         "chips",
		Category:         "snacks",
		CurrentStock:     "30",
		UsageToday:       "4",
		DamagedStock:     "",
		DeliveryQuantity: "12",
		Date:             "2024-02-10",
	}, raw[0])
}

func TestFeedbackRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedbackRepository(newTestDB(t))

	rec := &domain.FeedbackRecord{
		ItemName: "wheat",
		Type:     domain.FeedbackForecast,
		Value:    domain.FeedbackAgree,
		Date:     "2024-03-05",
	}
	require.NoError(t, repo.AppendFeedback(ctx, rec))
	assert.NotZero(t, rec.ID)

	list, err := repo.ListFeedback(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, *rec, list[0])
}

func TestPipelineRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPipelineRunRepository(newTestDB(t))

	none, err := repo.LatestRun(ctx, domain.StageForecasting, "wheat")
	require.NoError(t, err)
	assert.Nil(t, none)

	run := &domain.PipelineRun{Stage: domain.StageForecasting, ItemName: "wheat"}
	require.NoError(t, repo.CreateRun(ctx, run))
	assert.Equal(t, domain.RunStatusProcessing, run.Status)

	run.Status = domain.RunStatusCompleted
	run.RowCount = 12
	run.InputHash = "abc"
	require.NoError(t, repo.FinishRun(ctx, run))

	latest, err := repo.LatestRun(ctx, domain.StageForecasting, "wheat")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, domain.RunStatusCompleted, latest.Status)
	assert.Equal(t, 12, latest.RowCount)
	assert.Equal(t, "abc", latest.InputHash)
	require.NotNil(t, latest.CompletedAt)

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuild(t *testing.T) {
	runoutDate := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
	data := Data{
		GeneratedAt: time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC),
		Summaries: []domain.ItemStockSummary{
			{ItemName: "wheat", Category: "grains", LatestDate: "2024-01-05", TotalStock: 315, TotalUsage: 92, EntryCount: 5},
		},
		Runouts: []domain.Runout{
			{ItemName: "wheat", AtRisk: true, Date: &runoutDate, Message: "predicted runout on 2024-01-09"},
			{ItemName: "rice", Message: "no depletion expected within horizon"},
		},
		Anomalies: []domain.AnomalyLabel{
			{Date: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), ItemName: "wheat", UsageToday: 50, Label: domain.LabelAnomaly},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Build(&buf, data))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetRunout, SheetAnomalies}, f.GetSheetList())

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"wheat", "grains", "2024-01-05", "315", "92", "5"}, rows[1])

	rows, err = f.GetRows(SheetRunout)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-09", rows[1][2])

	rows, err = f.GetRows(SheetAnomalies)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-01-04", "wheat", "50", "Anomaly"}, rows[1])
}

func TestBuild_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Build(&buf, Data{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetAnomalies)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func TestStore_MissingArtifactsAreNotComputed(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.ReadCleaned()
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)

	_, err = s.ReadForecast("wheat")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)

	_, err = s.ReadAnomalies()
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)

	_, err = s.ReadManifest(s.CleanedPath())
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)

	status, err := s.Status()
	require.NoError(t, err)
	assert.False(t, status.CleanedAvailable)
	assert.False(t, status.AnomalyAvailable)
	assert.Empty(t, status.ForecastItems)
}

func TestStore_CleanedRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	records := []domain.CleanedRecord{
		{ItemName: "wheat", Date: day("2024-01-01"), CurrentStock: 100, UsageToday: 10},
		{ItemName: "basmati rice", Date: day("2024-01-02"), CurrentStock: 40, UsageToday: 4},
	}
	require.NoError(t, s.WriteCleaned(ctx, records))

	got, err := s.ReadCleaned()
	require.NoError(t, err)
	assert.Equal(t, records, got)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(s.CleanedPath()), ".*tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestStore_ForecastRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	result := domain.ForecastResult{
		ItemName: "Basmati Rice",
		Points: []domain.ForecastPoint{
			{Date: day("2024-01-01"), Yhat: 4, YhatLower: 3, YhatUpper: 5, Trend: 4},
			{Date: day("2024-01-02"), Yhat: 6, YhatLower: 5, YhatUpper: 7, Trend: 5.5},
			{Date: day("2024-01-03"), Yhat: 7.25, YhatLower: 5, YhatUpper: 9.5, Trend: 7.25, Future: true},
		},
	}
	require.NoError(t, s.WriteForecast(ctx, result))
	assert.FileExists(t, filepath.Join(s.Root(), "forecasts", "basmati_rice_forecast.csv"))

	got, err := s.ReadForecast("basmati rice")
	require.NoError(t, err)
	assert.Equal(t, "basmati rice", got.ItemName)
	assert.Equal(t, result.Points, got.Points)
	assert.Equal(t, 1, got.Horizon)
	assert.Equal(t, 2, got.Observations)
	assert.Equal(t, day("2024-01-02"), got.LastObserved)
}

func TestStore_ReadForecastWithoutFutureColumn(t *testing.T) {
	s := NewStore(t.TempDir())
	path := s.ForecastPath("wheat")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("ds,yhat\n2024-01-01,3.5\n2024-01-02,2\n"), 0o644))

	got, err := s.ReadForecast("wheat")
	require.NoError(t, err)
	require.Len(t, got.Points, 2)
	assert.Equal(t, 2, got.Observations)
	assert.Zero(t, got.Horizon)
}

func TestStore_ReplaceItemAnomalies(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	label := func(item, date string, usage float64, l string) domain.AnomalyLabel {
		return domain.AnomalyLabel{Date: day(date), ItemName: item, UsageToday: usage, Label: l}
	}

	require.NoError(t, s.ReplaceItemAnomalies(ctx, "wheat", []domain.AnomalyLabel{
		label("wheat", "2024-01-01", 10, domain.LabelNormal),
		label("wheat", "2024-01-02", 50, domain.LabelAnomaly),
	}))
	require.NoError(t, s.ReplaceItemAnomalies(ctx, "rice", []domain.AnomalyLabel{
		label("rice", "2024-01-01", 4, domain.LabelNormal),
	}))
	require.NoError(t, s.ReplaceItemAnomalies(ctx, "Wheat", []domain.AnomalyLabel{
		label("wheat", "2024-01-03", 9, domain.LabelNormal),
	}))

	got, err := s.ReadAnomalies()
	require.NoError(t, err)
	assert.Equal(t, []domain.AnomalyLabel{
		label("rice", "2024-01-01", 4, domain.LabelNormal),
		label("wheat", "2024-01-03", 9, domain.LabelNormal),
	}, got)
}

func TestStore_ManifestFreshness(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())
	path := s.CleanedPath()

	assert.False(t, s.Fresh(path, "abc"))

	require.NoError(t, s.WriteCleaned(ctx, nil))
	require.NoError(t, s.WriteManifest(ctx, path, Manifest{Stage: domain.StageCleaning, InputHash: "abc"}))

	assert.True(t, s.Fresh(path, "abc"))
	assert.False(t, s.Fresh(path, "def"))

	m, err := s.ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCleaning, m.Stage)
	assert.False(t, m.GeneratedAt.IsZero())

	status, err := s.Status()
	require.NoError(t, err)
	assert.True(t, status.CleanedAvailable)
	require.NotNil(t, status.CleanedAt)
}

func TestHashes(t *testing.T) {
	a := []domain.CleanedRecord{{ItemName: "wheat", Date: day("2024-01-01"), UsageToday: 1}}
	b := []domain.CleanedRecord{{ItemName: "wheat", Date: day("2024-01-01"), UsageToday: 2}}

	assert.Equal(t, HashCleaned(a, "x"), HashCleaned(a, "x"))
	assert.NotEqual(t, HashCleaned(a, "x"), HashCleaned(b, "x"))
	assert.NotEqual(t, HashCleaned(a, "x"), HashCleaned(a, "y"))
	assert.NotEqual(t, HashRaw(nil), HashRaw([]domain.RawStockLog{{ItemName: "wheat"}}))
}

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStorage) DownloadObject(ctx context.Context, key, destPath string) error {
	return os.WriteFile(destPath, m.objects[key], 0o644)
}

func (m *memoryStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memoryStorage) DeleteObject(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestObjectPublisher_PublishAndPull(t *testing.T) {
	ctx := context.Background()
	remote := &memoryStorage{objects: map[string][]byte{}}
	publisher := NewObjectPublisher(remote, "/grocery/")

	src := NewStore(t.TempDir(), WithPublisher(publisher))
	require.NoError(t, src.WriteCleaned(ctx, []domain.CleanedRecord{
		{ItemName: "wheat", Date: day("2024-01-01"), CurrentStock: 1, UsageToday: 1},
	}))
	assert.Contains(t, remote.objects, "grocery/cleaned/cleaned_stock.csv")

	dst := NewStore(t.TempDir())
	n, err := publisher.Pull(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := dst.ReadCleaned()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_ForecastPathsAreDistinctPerItem(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	names := []string{"rice flour", "rice.flour", "rice_flour", "rice/flour", "Rice  Flour"}
	assert.NotEqual(t, s.ForecastPath("rice flour"), s.ForecastPath("rice.flour"))
	assert.Equal(t, s.ForecastPath("rice flour"), s.ForecastPath("Rice  Flour"))

	for i, name := range names[:4] {
		points := make([]domain.ForecastPoint, i+1)
		for j := range points {
			points[j] = domain.ForecastPoint{Date: day("2024-01-01").AddDate(0, 0, j), Yhat: float64(i)}
		}
		require.NoError(t, s.WriteForecast(ctx, domain.ForecastResult{ItemName: name, Points: points}))
	}

	for i, name := range names[:4] {
		got, err := s.ReadForecast(name)
		require.NoError(t, err)
		assert.Len(t, got.Points, i+1, name)
	}

	items, err := s.ListForecastItems()
	require.NoError(t, err)
	assert.ElementsMatch(t, names[:4], items)
}

func TestStore_RemoveForecast(t *testing.T) {
	ctx := context.Background()
	remote := &memoryStorage{objects: map[string][]byte{}}
	s := NewStore(t.TempDir(), WithPublisher(NewObjectPublisher(remote, "")))

	require.NoError(t, s.WriteForecast(ctx, domain.ForecastResult{
		ItemName: "rice",
		Points:   []domain.ForecastPoint{{Date: day("2024-01-01"), Yhat: 3}},
	}))
	require.NoError(t, s.WriteManifest(ctx, s.ForecastPath("rice"), Manifest{Stage: "forecasting", Item: "rice"}))
	require.Len(t, remote.objects, 2)

	require.NoError(t, s.RemoveForecast(ctx, "rice"))

	_, err := s.ReadForecast("rice")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	_, err = s.ReadManifest(s.ForecastPath("rice"))
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	assert.Empty(t, remote.objects)

	require.NoError(t, s.RemoveForecast(ctx, "rice"))
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/grocerystock/internal/artifact"
	"github.com/andresuchdata/grocerystock/internal/config"
	"github.com/andresuchdata/grocerystock/internal/model"
	"github.com/andresuchdata/grocerystock/internal/pipeline"
	"github.com/andresuchdata/grocerystock/internal/repository/sqldb"
	"github.com/andresuchdata/grocerystock/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqldb.NewDB(config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "stock.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	inventoryRepo := sqldb.NewInventoryRepository(db)
	store := artifact.NewStore(t.TempDir())
	runner := pipeline.NewRunner(
		store,
		inventoryRepo,
		model.NewHoltWinters(),
		model.NewIsolationForest(42),
		sqldb.NewPipelineRunRepository(db),
		pipeline.DefaultOptions(),
	)

	inventory := service.NewInventoryService(inventoryRepo, nil)
	return NewRouter(&Services{
		Inventory: inventory,
		Analytics: service.NewAnalyticsService(runner, store, inventory),
		Feedback:  service.NewFeedbackService(sqldb.NewFeedbackRepository(db)),
	}, nil)
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestRouter(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestArtifactsNotComputed(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/forecasts/wheat",
		"/api/v1/forecasts/wheat/runout",
		"/api/v1/anomalies",
	} {
		rr := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.Equal(t, "not_computed", decode(t, rr)["status"], path)
	}

	rr := do(t, router, http.MethodGet, "/api/v1/artifacts/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["cleaned_available"])
}

func TestCreateEntry(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/v1/entries", map[string]interface{}{
		"item_name":     " Wheat ",
		"category":      "Grains",
		"current_stock": 100,
		"usage_today":   10,
		"date":          "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, router, http.MethodPost, "/api/v1/entries", map[string]interface{}{
		"item_name":     "wheat",
		"category":      "grains",
		"current_stock": -1,
		"usage_today":   10,
		"date":          "2024-01-02",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	fields := decode(t, rr)["fields"].(map[string]interface{})
	assert.Equal(t, "gte", fields["current_stock"])

	rr = do(t, router, http.MethodPost, "/api/v1/entries", "not an object")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/v1/items/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var summaries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "wheat", summaries[0]["item_name"])
	assert.Equal(t, float64(100), summaries[0]["total_stock"])
}

func TestCategories(t *testing.T) {
	rr := do(t, newTestRouter(t), http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["categories"], 7)
}

func TestRunAllAndRead(t *testing.T) {
	router := newTestRouter(t)

	for i, usage := range []int{10, 12, 11, 50, 9, 13} {
		rr := do(t, router, http.MethodPost, "/api/v1/entries", map[string]interface{}{
			"item_name":     "wheat",
			"category":      "grains",
			"current_stock": 100 - i*10,
			"usage_today":   usage,
			"date":          fmt.Sprintf("2024-01-%02d", i+1),
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := do(t, router, http.MethodPost, "/api/v1/pipeline/run-all", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "ok", decode(t, rr)["cleaning"])

	rr = do(t, router, http.MethodGet, "/api/v1/forecasts/wheat", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["points"], 13)

	rr = do(t, router, http.MethodGet, "/api/v1/forecasts/wheat/runout", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "wheat", decode(t, rr)["item_name"])

	rr = do(t, router, http.MethodGet, "/api/v1/anomalies?item=wheat", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["labels"], 6)

	rr = do(t, router, http.MethodPost, "/api/v1/pipeline/forecast/rice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "insufficient_data", decode(t, rr)["outcome"])

	rr = do(t, router, http.MethodGet, "/api/v1/reports/xlsx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, rr.Body.Bytes())
}

func TestFeedback(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/v1/feedback", map[string]string{
		"item_name":      "wheat",
		"feedback_type":  "anomaly",
		"feedback_value": "no",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "disagree", decode(t, rr)["feedback_value"])

	rr = do(t, router, http.MethodPost, "/api/v1/feedback", map[string]string{
		"feedback_type":  "mood",
		"feedback_value": "agree",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/v1/feedback", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["feedback"], 1)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}

package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/service"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalyticsHandler struct {
	service *service.AnalyticsService
}

func NewAnalyticsHandler(service *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

func (h *AnalyticsHandler) GetStatus(c *gin.Context) {
	status, err := h.service.Status()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *AnalyticsHandler) GetForecast(c *gin.Context) {
	result, err := h.service.Forecast(c.Param("item"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalyticsHandler) GetRunout(c *gin.Context) {
	runout, err := h.service.Runout(c.Param("item"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, runout)
}

func (h *AnalyticsHandler) GetAnomalies(c *gin.Context) {
	labels, err := h.service.Anomalies(c.Query("item"))
	if err != nil {
		respondError(c, err)
		return
	}

	anomalies := 0
	for _, l := range labels {
		if l.IsAnomaly() {
			anomalies++
		}
	}
	c.JSON(http.StatusOK, gin.H{"labels": labels, "anomalies": anomalies})
}

func (h *AnalyticsHandler) RunCleaning(c *gin.Context) {
	report, err := h.service.RunCleaning(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"outcome":        report.Outcome,
		"input_rows":     report.InputRows,
		"rows":           len(report.Records),
		"duplicates":     report.Duplicates,
		"missing_fields": report.MissingFields,
		"bad_dates":      report.BadDates,
		"bad_numbers":    report.BadNumbers,
	})
}

func (h *AnalyticsHandler) RunForecast(c *gin.Context) {
	result, err := h.service.RunForecast(c.Request.Context(), c.Param("item"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalyticsHandler) RunForecastAll(c *gin.Context) {
	results, err := h.service.RunForecastAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": forecastOutcomes(results)})
}

func (h *AnalyticsHandler) RunAnomaly(c *gin.Context) {
	result, err := h.service.RunAnomaly(c.Request.Context(), c.Param("item"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalyticsHandler) RunAnomalyAll(c *gin.Context) {
	results, err := h.service.RunAnomalyAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": anomalyOutcomes(results)})
}

func (h *AnalyticsHandler) RunAll(c *gin.Context) {
	summary, err := h.service.RunAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cleaning":  summary.Cleaning.Outcome,
		"rows":      len(summary.Cleaning.Records),
		"forecasts": forecastOutcomes(summary.Forecasts),
		"anomalies": anomalyOutcomes(summary.Anomalies),
	})
}

// DownloadReport streams the XLSX report.
func (h *AnalyticsHandler) DownloadReport(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.Report(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}

	name := fmt.Sprintf("stock_report_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func forecastOutcomes(results []domain.ForecastResult) map[string]domain.Outcome {
	byItem := make(map[string]domain.Outcome, len(results))
	for _, r := range results {
		byItem[r.ItemName] = r.Outcome
	}
	return byItem
}

func anomalyOutcomes(results []domain.AnomalyResult) map[string]domain.Outcome {
	byItem := make(map[string]domain.Outcome, len(results))
	for _, r := range results {
		byItem[r.ItemName] = r.Outcome
	}
	return byItem
}

// Package api wires the HTTP presentation adapter: entry form submission,
// the live stock summary, artifact reads, pipeline re-runs and feedback.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/grocerystock/internal/api/handlers"
	"github.com/andresuchdata/grocerystock/internal/api/middleware"
	"github.com/andresuchdata/grocerystock/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Inventory *service.InventoryService
	Analytics *service.AnalyticsService
	Feedback  *service.FeedbackService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	corsConfig := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")
	if services == nil {
		return router
	}

	if services.Inventory != nil {
		inventoryHandler := handlers.NewInventoryHandler(services.Inventory)
		apiGroup.POST("/entries", inventoryHandler.CreateEntry)
		apiGroup.GET("/categories", inventoryHandler.GetCategories)
		apiGroup.GET("/items", inventoryHandler.GetItems)
		apiGroup.GET("/items/summary", inventoryHandler.GetSummary)
	}

	if services.Analytics != nil {
		analyticsHandler := handlers.NewAnalyticsHandler(services.Analytics)
		apiGroup.GET("/artifacts/status", analyticsHandler.GetStatus)
		apiGroup.GET("/forecasts/:item", analyticsHandler.GetForecast)
		apiGroup.GET("/forecasts/:item/runout", analyticsHandler.GetRunout)
		apiGroup.GET("/anomalies", analyticsHandler.GetAnomalies)
		apiGroup.GET("/reports/xlsx", analyticsHandler.DownloadReport)

		pipelineGroup := apiGroup.Group("/pipeline")
		{
			pipelineGroup.POST("/clean", analyticsHandler.RunCleaning)
			pipelineGroup.POST("/forecast", analyticsHandler.RunForecastAll)
			pipelineGroup.POST("/forecast/:item", analyticsHandler.RunForecast)
			pipelineGroup.POST("/anomaly", analyticsHandler.RunAnomalyAll)
			pipelineGroup.POST("/anomaly/:item", analyticsHandler.RunAnomaly)
			pipelineGroup.POST("/run-all", analyticsHandler.RunAll)
		}
	}

	if services.Feedback != nil {
		feedbackHandler := handlers.NewFeedbackHandler(services.Feedback)
		apiGroup.POST("/feedback", feedbackHandler.Submit)
		apiGroup.GET("/feedback", feedbackHandler.List)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}

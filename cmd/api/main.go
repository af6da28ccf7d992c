// Command api serves operational endpoints: Google Drive sheet listing and
// import, raw artifact downloads and a health check.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/grocerystock/internal/app"
	"github.com/andresuchdata/grocerystock/internal/config"
	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/drive"
	"github.com/andresuchdata/grocerystock/internal/ingest"
	"github.com/andresuchdata/grocerystock/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.LogLevel)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.Overrides{})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to initialise application")
	}
	defer a.Close()

	r := mux.NewRouter()

	if cfg.Drive.CredentialsJSON != "" {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("failed to initialise Google Drive service")
		}
		ingestService := drive.NewIngestService(driveService, ingest.NewImporter(a.Inventory))
		drive.NewHandler(driveService, driveService, ingestService, cfg.Drive.FolderID).RegisterRoutes(r)
	} else {
		logger.Log.Warn().Msg("GOOGLE_DRIVE_CREDENTIALS_JSON not set, drive routes disabled")
	}

	r.HandleFunc("/api/artifacts/{kind}", artifactHandler(a, cfg)).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "ok"}
		code := http.StatusOK
		if err := a.DB.PingContext(r.Context()); err != nil {
			status["status"], status["database"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	}).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%s", cfg.Server.APIPort)
	logger.Log.Info().Str("addr", addr).Msg("ops api starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("ops api stopped")
	}
}

// artifactHandler streams a raw artifact CSV: kind is "cleaned", "anomalies"
// or "forecast" (with ?item=).
func artifactHandler(a *app.App, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var path string
		switch mux.Vars(r)["kind"] {
		case "cleaned":
			path = a.Artifacts.CleanedPath()
		case "anomalies":
			path = a.Artifacts.AnomalyPath()
		case "forecast":
			item := strings.TrimSpace(r.URL.Query().Get("item"))
			if item == "" {
				item = cfg.Pipeline.DefaultItem
			}
			path = a.Artifacts.ForecastPath(item)
		default:
			http.Error(w, "unknown artifact kind", http.StatusNotFound)
			return
		}

		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "not_computed",
				"error":  domain.ErrArtifactNotFound.Error(),
			})
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(path)))
		http.ServeContent(w, r, filepath.Base(path), modTime(f), f)
	}
}

func modTime(f *os.File) (t time.Time) {
	if info, err := f.Stat(); err == nil {
		t = info.ModTime()
	}
	return t
}

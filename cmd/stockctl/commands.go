package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/grocerystock/internal/config"
	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/drive"
	"github.com/andresuchdata/grocerystock/internal/ingest"
	"github.com/andresuchdata/grocerystock/internal/pipeline/cleaning"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func commands(cfg *config.Config) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "migrate",
			Usage:  "Create or update the database schema",
			Before: openApp,
			After:  closeApp,
			Action: func(c *cli.Context) error {
				log.Info().Str("driver", appFrom(c).DB.Driver()).Msg("schema up to date")
				return nil
			},
		},
		{
			Name:   "clean",
			Usage:  "Export the stock log and write the cleaned dataset",
			Flags:  []cli.Flag{inputFlag(), forceFlag()},
			Before: openApp,
			After:  closeApp,
			Action: runClean,
		},
		{
			Name:  "forecast",
			Usage: "Forecast daily usage for an item",
			Flags: []cli.Flag{
				itemFlag(cfg),
				allFlag(),
				&cli.IntFlag{
					Name:    "horizon",
					Usage:   "Days to forecast past the last observation",
					Value:   cfg.Pipeline.ForecastHorizon,
					EnvVars: []string{"FORECAST_HORIZON"},
				},
				forceFlag(),
			},
			Before: openApp,
			After:  closeApp,
			Action: runForecast,
		},
		{
			Name:  "anomaly",
			Usage: "Label unusual usage days for an item",
			Flags: []cli.Flag{
				itemFlag(cfg),
				allFlag(),
				&cli.Float64Flag{
					Name:    "contamination",
					Usage:   "Expected share of anomalous observations, in (0, 0.5]",
					Value:   cfg.Pipeline.AnomalyContamination,
					EnvVars: []string{"ANOMALY_CONTAMINATION"},
				},
				forceFlag(),
			},
			Before: openApp,
			After:  closeApp,
			Action: runAnomaly,
		},
		{
			Name:   "run-all",
			Usage:  "Clean, then forecast and label every item",
			Flags:  []cli.Flag{inputFlag(), forceFlag()},
			Before: openApp,
			After:  closeApp,
			Action: runAll,
		},
		{
			Name:   "runout",
			Usage:  "Show the predicted runout date of an item",
			Flags:  []cli.Flag{itemFlag(cfg)},
			Before: openApp,
			After:  closeApp,
			Action: runRunout,
		},
		{
			Name:      "import",
			Usage:     "Import stock counts from CSV or XLSX sheets",
			ArgsUsage: "FILE...",
			Before:    openApp,
			After:     closeApp,
			Action:    runImport,
		},
		{
			Name:  "import-drive",
			Usage: "Download count sheets from Google Drive and import them",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "folder",
					Usage:   "Drive folder id",
					Value:   cfg.Drive.FolderID,
					EnvVars: []string{"DRIVE_FOLDER_ID"},
				},
				&cli.StringFlag{
					Name:    "download-dir",
					Usage:   "Local directory for downloaded sheets",
					Value:   cfg.Drive.DownloadDir,
					EnvVars: []string{"DRIVE_DOWNLOAD_DIR"},
				},
			},
			Before: openApp,
			After:  closeApp,
			Action: runImportDrive,
		},
		{
			Name:  "export-raw",
			Usage: "Write the raw stock log export as CSV",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Value:   cfg.App.RawExport,
					EnvVars: []string{"APP_RAW_EXPORT"},
				},
			},
			Before: openApp,
			After:  closeApp,
			Action: runExportRaw,
		},
		{
			Name:  "report",
			Usage: "Write an XLSX report of stock levels, runout dates and anomalies",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "stock_report.xlsx"},
			},
			Before: openApp,
			After:  closeApp,
			Action: runReport,
		},
		{
			Name:   "sync-artifacts",
			Usage:  "Pull artifacts from object storage into the local artifact directory",
			Before: openApp,
			After:  closeApp,
			Action: runSyncArtifacts,
		},
		{
			Name:  "runs",
			Usage: "List recent pipeline runs",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Value: 20},
			},
			Before: openApp,
			After:  closeApp,
			Action: runListRuns,
		},
	}
}

func notComputedHint(err error, stage string) error {
	if errors.Is(err, domain.ErrArtifactNotFound) {
		return fmt.Errorf("%w: run `stockctl %s` first", err, stage)
	}
	return err
}

func runClean(c *cli.Context) error {
	report, err := appFrom(c).Analytics.RunCleaning(c.Context)
	if err != nil {
		return err
	}
	switch report.Outcome {
	case domain.OutcomeNoData:
		log.Warn().Int("input_rows", report.InputRows).Msg("no usable stock logs; cleaned dataset is empty")
	case domain.OutcomeUpToDate:
		fmt.Printf("cleaned dataset up to date (%d rows)\n", len(report.Records))
	default:
		fmt.Printf("cleaned %d of %d rows (%d dropped)\n", len(report.Records), report.InputRows, report.Dropped())
	}
	return nil
}

func runForecast(c *cli.Context) error {
	a := appFrom(c)
	if c.Bool("all") {
		results, err := a.Analytics.RunForecastAll(c.Context)
		if err != nil {
			return notComputedHint(err, "clean")
		}
		for _, r := range results {
			printForecast(r)
		}
		return nil
	}

	result, err := a.Analytics.RunForecast(c.Context, c.String("item"))
	if err != nil {
		return notComputedHint(err, "clean")
	}
	printForecast(result)
	if result.Outcome == domain.OutcomeOK || result.Outcome == domain.OutcomeUpToDate {
		runout, err := a.Analytics.Runout(result.ItemName)
		if err != nil {
			return err
		}
		fmt.Println(runout.Message)
	}
	return nil
}

func printForecast(r domain.ForecastResult) {
	switch r.Outcome {
	case domain.OutcomeInsufficientData:
		log.Warn().Str("item", r.ItemName).Int("dates", r.Observations).Msg("not enough data to forecast")
	case domain.OutcomeUpToDate:
		fmt.Printf("%s: forecast up to date (%d rows)\n", r.ItemName, len(r.Points))
	default:
		fmt.Printf("%s: forecast %d days past %s\n", r.ItemName, r.Horizon, r.LastObserved.Format(domain.DateLayout))
	}
}

func runAnomaly(c *cli.Context) error {
	a := appFrom(c)
	if c.Bool("all") {
		results, err := a.Analytics.RunAnomalyAll(c.Context)
		if err != nil {
			return notComputedHint(err, "clean")
		}
		for _, r := range results {
			printAnomaly(r)
		}
		return nil
	}

	result, err := a.Analytics.RunAnomaly(c.Context, c.String("item"))
	if err != nil {
		return notComputedHint(err, "clean")
	}
	printAnomaly(result)
	return nil
}

func printAnomaly(r domain.AnomalyResult) {
	switch r.Outcome {
	case domain.OutcomeInsufficientData:
		log.Warn().Str("item", r.ItemName).Int("rows", len(r.Labels)).Msg("not enough data for anomaly detection")
	case domain.OutcomeUpToDate:
		fmt.Printf("%s: anomaly labels up to date\n", r.ItemName)
	default:
		fmt.Printf("%s: %d of %d days flagged\n", r.ItemName, r.AnomalyCount(), len(r.Labels))
	}
}

func runAll(c *cli.Context) error {
	summary, err := appFrom(c).Analytics.RunAll(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("cleaning: %s (%d rows)\n", summary.Cleaning.Outcome, len(summary.Cleaning.Records))
	for _, r := range summary.Forecasts {
		printForecast(r)
	}
	for _, r := range summary.Anomalies {
		printAnomaly(r)
	}
	return nil
}

func runRunout(c *cli.Context) error {
	runout, err := appFrom(c).Analytics.Runout(c.String("item"))
	if err != nil {
		return notComputedHint(err, "forecast --item "+c.String("item"))
	}
	fmt.Printf("%s: %s\n", runout.ItemName, runout.Message)
	return nil
}

func runImport(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one FILE is required")
	}

	importer := ingest.NewImporter(appFrom(c).Inventory)
	failed := 0
	for _, path := range c.Args().Slice() {
		result, err := importer.ImportFile(c.Context, path)
		if err != nil {
			return err
		}
		printImport(result)
		failed += len(result.Failures)
	}
	if failed > 0 {
		log.Warn().Int("rows", failed).Msg("some rows were rejected")
	}
	return nil
}

func printImport(r ingest.Result) {
	fmt.Printf("%s: imported %d of %d rows\n", r.Source, r.Imported, r.Rows)
	for _, f := range r.Failures {
		fmt.Printf("  row %d: %s\n", f.Row, f.Error)
	}
}

func runImportDrive(c *cli.Context) error {
	a := appFrom(c)
	folder := c.String("folder")
	if folder == "" {
		return fmt.Errorf("drive folder id is required (--folder or DRIVE_FOLDER_ID)")
	}

	svc, err := drive.NewService(c.Context, a.Config.Drive.CredentialsJSON)
	if err != nil {
		return err
	}

	paths, err := drive.NewDownloader(svc).DownloadSheets(c.Context, folder, c.String("download-dir"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Warn().Str("folder", folder).Msg("no csv or xlsx sheets found")
		return nil
	}

	importer := ingest.NewImporter(a.Inventory)
	for _, path := range paths {
		result, err := importer.ImportFile(c.Context, path)
		if err != nil {
			return err
		}
		printImport(result)
	}
	return nil
}

func runExportRaw(c *cli.Context) error {
	rows, err := appFrom(c).InventoryRepo.ExportRawLogs(c.Context)
	if err != nil {
		return err
	}

	output := c.String("output")
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(output), err)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	if err := cleaning.WriteRaw(f, rows); err != nil {
		return err
	}
	fmt.Printf("exported %d rows to %s\n", len(rows), output)
	return nil
}

func runReport(c *cli.Context) error {
	output := c.String("output")
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	if err := appFrom(c).Analytics.Report(c.Context, f); err != nil {
		return err
	}
	fmt.Printf("report written to %s\n", output)
	return nil
}

func runSyncArtifacts(c *cli.Context) error {
	a := appFrom(c)
	if a.Publisher == nil {
		return fmt.Errorf("object storage is disabled (set OBJECT_STORAGE_ENABLED=true)")
	}

	n, err := a.Publisher.Pull(c.Context, a.Artifacts)
	if err != nil {
		return err
	}
	fmt.Printf("pulled %d artifacts into %s\n", n, a.Artifacts.Root())
	return nil
}

func runListRuns(c *cli.Context) error {
	runs, err := appFrom(c).RunRepo.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, r := range runs {
		item := r.ItemName
		if item == "" {
			item = "-"
		}
		fmt.Printf("%-5d %-12s %-16s %-10s rows=%-5d %s\n",
			r.ID, r.Stage, item, r.Status, r.RowCount, r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/andresuchdata/grocerystock/internal/app"
	"github.com/andresuchdata/grocerystock/internal/config"
	"github.com/andresuchdata/grocerystock/internal/pipeline"
	"github.com/andresuchdata/grocerystock/pkg/logger"
	"github.com/urfave/cli/v2"
)

type appKey struct{}

func forceFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "force",
		Usage: "Recompute even when the input is unchanged",
	}
}

func itemFlag(cfg *config.Config) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "item",
		Usage:   "Item to process",
		Value:   cfg.Pipeline.DefaultItem,
		EnvVars: []string{"PIPELINE_DEFAULT_ITEM"},
	}
}

func allFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "all",
		Usage: "Process every item in the cleaned dataset",
	}
}

func inputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "input",
		Usage: "Read raw stock logs from this CSV instead of the database",
	}
}

// openApp wires the application for a command. Flags that a command does
// not define read as zero values and keep the configured defaults.
func openApp(c *cli.Context) error {
	cfg := config.Load()
	if c.Bool("json-logs") {
		logger.UseJSON()
	}
	logger.SetLevel(cfg.Server.LogLevel)
	if c.Bool("verbose") {
		logger.SetLevel("debug")
	}

	o := app.Overrides{
		Horizon:       c.Int("horizon"),
		Contamination: c.Float64("contamination"),
		Force:         c.Bool("force"),
	}
	if input := c.String("input"); input != "" {
		o.Source = pipeline.FileSource{Path: input}
	}

	a, err := app.New(c.Context, cfg, o)
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, appKey{}, a)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey{}).(*app.App); ok && a != nil {
		return a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(appKey{}).(*app.App)
}

func main() {
	cfg := config.Load()

	cliApp := &cli.App{
		Name:  "stockctl",
		Usage: "Grocery stock log pipeline: cleaning, forecasting, anomaly detection",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "json-logs", Usage: "Write logs as JSON lines", EnvVars: []string{"LOG_JSON"}},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(cfg.Server.LogLevel)
			return nil
		},
		Commands: commands(cfg),
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Package ingest imports batches of manual stock counts from CSV or XLSX
// sheets. Each row is recorded as its own unit of work, so a bad row is
// reported without affecting the rows around it.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/pipeline/cleaning"
	"github.com/rs/zerolog/log"
)

// Recorder stores one validated stock count.
type Recorder interface {
	RecordEntry(ctx context.Context, form domain.EntryForm) (*domain.Item, *domain.StockLogEntry, error)
}

// RowFailure describes a sheet row that was not imported. Row is 1-based and
// counts the header.
type RowFailure struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Result summarises one imported sheet
type Result struct {
	Source   string       `json:"source"`
	Rows     int          `json:"rows"`
	Imported int          `json:"imported"`
	Failures []RowFailure `json:"failures"`
}

var requiredColumns = []string{"item_name", "category", "current_stock", "usage_today", "date"}

// column aliases used by hand-made count sheets
var columnAliases = map[string]string{
	"item":     "item_name",
	"name":     "item_name",
	"stock":    "current_stock",
	"usage":    "usage_today",
	"damaged":  "damaged_stock",
	"delivery": "delivery_quantity",
}

type Importer struct {
	recorder Recorder
}

func NewImporter(recorder Recorder) *Importer {
	return &Importer{recorder: recorder}
}

// ImportFile imports a .csv or .xlsx file from disk.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	return im.Import(ctx, filepath.Base(path), f)
}

// Import reads a sheet named name, choosing the format from its extension.
func (im *Importer) Import(ctx context.Context, name string, r io.Reader) (Result, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		rows, err = readXLSX(r)
	case ".csv", "":
		rows, err = readCSV(r)
	default:
		return Result{}, fmt.Errorf("%w: unsupported sheet type %q", domain.ErrInvalidInput, filepath.Ext(name))
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read %s: %w", name, err)
	}

	result, err := im.importRows(ctx, rows)
	result.Source = name
	if err != nil {
		return result, fmt.Errorf("%s: %w", name, err)
	}

	log.Info().
		Str("source", name).
		Int("rows", result.Rows).
		Int("imported", result.Imported).
		Int("failed", len(result.Failures)).
		Msg("sheet imported")
	return result, nil
}

func (im *Importer) importRows(ctx context.Context, rows [][]string) (Result, error) {
	result := Result{Failures: make([]RowFailure, 0)}
	if len(rows) == 0 {
		return result, fmt.Errorf("%w: missing header", domain.ErrInvalidInput)
	}

	cols := headerIndex(rows[0])
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return result, fmt.Errorf("%w: missing column %q", domain.ErrInvalidInput, name)
		}
	}

	for i, record := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if blankRow(record) {
			continue
		}
		result.Rows++
		rowNum := i + 2

		form, err := parseRow(record, cols)
		if err == nil {
			_, _, err = im.recorder.RecordEntry(ctx, form)
		}
		if err != nil {
			result.Failures = append(result.Failures, RowFailure{Row: rowNum, Error: err.Error()})
			log.Debug().Err(err).Int("row", rowNum).Msg("import row rejected")
			continue
		}
		result.Imported++
	}
	return result, nil
}

func parseRow(record []string, cols map[string]int) (domain.EntryForm, error) {
	get := func(name string) string {
		if idx, ok := cols[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	form := domain.EntryForm{
		ItemName: get("item_name"),
		Category: get("category"),
	}

	var ok bool
	if form.CurrentStock, ok = cleaning.ParseCount(get("current_stock")); !ok {
		return form, fmt.Errorf("%w: bad current_stock %q", domain.ErrInvalidInput, get("current_stock"))
	}
	if form.UsageToday, ok = cleaning.ParseCount(get("usage_today")); !ok {
		return form, fmt.Errorf("%w: bad usage_today %q", domain.ErrInvalidInput, get("usage_today"))
	}
	for _, opt := range []struct {
		name string
		dst  **int
	}{
		{"damaged_stock", &form.DamagedStock},
		{"delivery_quantity", &form.DeliveryQuantity},
	} {
		raw := get(opt.name)
		if raw == "" {
			continue
		}
		v, ok := cleaning.ParseCount(raw)
		if !ok {
			return form, fmt.Errorf("%w: bad %s %q", domain.ErrInvalidInput, opt.name, raw)
		}
		*opt.dst = &v
	}

	date, ok := cleaning.ParseDate(get("date"))
	if !ok {
		return form, fmt.Errorf("%w: bad date %q", domain.ErrInvalidInput, get("date"))
	}
	form.Date = date.Format(domain.DateLayout)
	return form, nil
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		name = strings.Join(strings.Fields(name), "_")
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	return cols
}

func blankRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// Package report renders the stock summary and analytics artifacts into an
// XLSX workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary   = "Summary"
	SheetRunout    = "Runout"
	SheetAnomalies = "Anomalies"
)

// Data is everything a report shows
type Data struct {
	GeneratedAt time.Time
	Summaries   []domain.ItemStockSummary
	Runouts     []domain.Runout
	Anomalies   []domain.AnomalyLabel
}

// Build writes the workbook to w.
func Build(w io.Writer, data Data) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetRunout, SheetAnomalies} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	summaryRows := make([][]interface{}, 0, len(data.Summaries))
	for _, s := range data.Summaries {
		summaryRows = append(summaryRows, []interface{}{
			s.ItemName, s.Category, s.LatestDate, s.TotalStock, s.TotalUsage, s.EntryCount,
		})
	}
	if err := writeSheet(f, SheetSummary, headerStyle,
		[]interface{}{"Item", "Category", "Latest Date", "Total Stock", "Total Usage", "Entries"},
		summaryRows,
	); err != nil {
		return err
	}

	runoutRows := make([][]interface{}, 0, len(data.Runouts))
	for _, r := range data.Runouts {
		date := ""
		if r.Date != nil {
			date = r.Date.Format(domain.DateLayout)
		}
		runoutRows = append(runoutRows, []interface{}{r.ItemName, r.AtRisk, date, r.Message})
	}
	if err := writeSheet(f, SheetRunout, headerStyle,
		[]interface{}{"Item", "At Risk", "Runout Date", "Message"},
		runoutRows,
	); err != nil {
		return err
	}

	anomalyRows := make([][]interface{}, 0, len(data.Anomalies))
	for _, a := range data.Anomalies {
		anomalyRows = append(anomalyRows, []interface{}{
			a.Date.Format(domain.DateLayout), a.ItemName, a.UsageToday, a.Label,
		})
	}
	if err := writeSheet(f, SheetAnomalies, headerStyle,
		[]interface{}{"Date", "Item", "Usage Today", "Anomaly"},
		anomalyRows,
	); err != nil {
		return err
	}

	generated := data.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Grocery stock report",
		Created: generated.UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("failed to set document properties: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

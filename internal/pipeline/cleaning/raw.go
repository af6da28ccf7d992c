package cleaning

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/andresuchdata/grocerystock/internal/domain"
)

// RawHeader is the column order of the raw stock log export.
var RawHeader = []string{
	"item_name",
	"category",
	"current_stock",
	"usage_today",
	"damaged_stock",
	"delivery_quantity",
	"date",
}

var requiredRawColumns = []string{"item_name", "current_stock", "usage_today", "date"}

// ReadRaw parses a raw stock log CSV. Columns are matched by header name;
// category, damaged_stock and delivery_quantity may be absent.
func ReadRaw(r io.Reader) ([]domain.RawStockLog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []domain.RawStockLog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read raw header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range requiredRawColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("raw stock log is missing column %q", name)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var rows []domain.RawStockLog
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read raw row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, domain.RawStockLog{
			ItemName:         field(rec, "item_name"),
			Category:         field(rec, "category"),
			CurrentStock:     field(rec, "current_stock"),
			UsageToday:       field(rec, "usage_today"),
			DamagedStock:     field(rec, "damaged_stock"),
			DeliveryQuantity: field(rec, "delivery_quantity"),
			Date:             field(rec, "date"),
		})
	}
	return rows, nil
}

// WriteRaw writes rows as a raw stock log CSV.
func WriteRaw(w io.Writer, rows []domain.RawStockLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RawHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.ItemName, r.Category, r.CurrentStock, r.UsageToday,
			r.DamagedStock, r.DeliveryQuantity, r.Date,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

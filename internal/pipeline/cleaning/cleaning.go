// Package cleaning turns raw stock log exports into the cleaned dataset the
// analytics stages read.
package cleaning

import (
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// Clean drops exact duplicates, rows missing a required field, rows with an
// unparseable date and rows with a non-numeric or negative count. Surviving
// rows keep their input order. Running Clean on its own output is a no-op.
func Clean(raw []domain.RawStockLog) domain.CleanReport {
	report := domain.CleanReport{
		InputRows: len(raw),
		Records:   make([]domain.CleanedRecord, 0, len(raw)),
	}

	seenRaw := make(map[domain.RawStockLog]struct{}, len(raw))
	seenClean := make(map[domain.CleanedRecord]struct{}, len(raw))

	for i, row := range raw {
		row = trimRow(row)

		if _, dup := seenRaw[row]; dup {
			report.Duplicates++
			continue
		}
		seenRaw[row] = struct{}{}

		if row.ItemName == "" || row.CurrentStock == "" || row.UsageToday == "" || row.Date == "" {
			report.MissingFields++
			continue
		}

		date, ok := ParseDate(row.Date)
		if !ok {
			report.BadDates++
			log.Warn().Int("row", i).Str("date", row.Date).Str("item", row.ItemName).Msg("dropping row with unparseable date")
			continue
		}

		stock, okStock := ParseCount(row.CurrentStock)
		usage, okUsage := ParseCount(row.UsageToday)
		if !okStock || !okUsage {
			report.BadNumbers++
			log.Warn().Int("row", i).Str("current_stock", row.CurrentStock).Str("usage_today", row.UsageToday).
				Msg("dropping row with malformed count")
			continue
		}

		rec := domain.CleanedRecord{
			ItemName:     domain.NormalizeName(row.ItemName),
			Date:         date,
			CurrentStock: stock,
			UsageToday:   usage,
		}
		// Rows that differed only in columns the cleaned schema drops
		// become duplicates here.
		if _, dup := seenClean[rec]; dup {
			report.Duplicates++
			continue
		}
		seenClean[rec] = struct{}{}
		report.Records = append(report.Records, rec)
	}

	report.Outcome = domain.OutcomeOK
	if len(report.Records) == 0 {
		report.Outcome = domain.OutcomeNoData
	}
	return report
}

// ParseDate accepts an ISO date optionally followed by a time component and
// returns the calendar date at UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// maxCount bounds counts to the range of the store's INTEGER columns.
var maxCount = decimal.NewFromInt(math.MaxInt32)

// ParseCount coerces a count to a non-negative integer, truncating any
// fractional part. Values beyond maxCount are rejected.
func ParseCount(s string) (int, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return 0, false
	}
	d = d.Truncate(0)
	if d.GreaterThan(maxCount) {
		return 0, false
	}
	return int(d.IntPart()), true
}

// ToRaw renders cleaned records back into the raw export shape.
func ToRaw(records []domain.CleanedRecord) []domain.RawStockLog {
	raw := make([]domain.RawStockLog, 0, len(records))
	for _, r := range records {
		raw = append(raw, domain.RawStockLog{
			ItemName:     r.ItemName,
			CurrentStock: decimal.NewFromInt(int64(r.CurrentStock)).String(),
			UsageToday:   decimal.NewFromInt(int64(r.UsageToday)).String(),
			Date:         r.Date.Format(domain.DateLayout),
		})
	}
	return raw
}

func trimRow(r domain.RawStockLog) domain.RawStockLog {
	return domain.RawStockLog{
		ItemName:         strings.TrimSpace(r.ItemName),
		Category:         strings.TrimSpace(r.Category),
		CurrentStock:     strings.TrimSpace(r.CurrentStock),
		UsageToday:       strings.TrimSpace(r.UsageToday),
		DamagedStock:     strings.TrimSpace(r.DamagedStock),
		DeliveryQuantity: strings.TrimSpace(r.DeliveryQuantity),
		Date:             strings.TrimSpace(r.Date),
	}
}

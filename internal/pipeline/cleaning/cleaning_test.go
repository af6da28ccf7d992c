package cleaning

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(item, stock, usage, date string) domain.RawStockLog {
	return domain.RawStockLog{ItemName: item, Category: "grains", CurrentStock: stock, UsageToday: usage, Date: date}
}

func day(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func TestClean_DropsExactDuplicates(t *testing.T) {
	report := Clean([]domain.RawStockLog{
		raw("wheat", "100", "10", "2024-01-01"),
		raw("wheat", "100", "10", "2024-01-01"),
		raw("wheat", "90", "12", "2024-01-02"),
	})

	require.Len(t, report.Records, 2)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, domain.OutcomeOK, report.Outcome)
}

func TestClean_KeepsSameDayRowsThatDiffer(t *testing.T) {
	report := Clean([]domain.RawStockLog{
		raw("wheat", "100", "10", "2024-01-01"),
		raw("wheat", "95", "5", "2024-01-01"),
	})

	assert.Len(t, report.Records, 2)
	assert.Zero(t, report.Dropped())
}

func TestClean_DropsMissingRequiredFields(t *testing.T) {
	report := Clean([]domain.RawStockLog{
		raw("wheat", "", "10", "2024-01-01"),
		raw("", "100", "10", "2024-01-01"),
		raw("wheat", "100", "10", ""),
		raw("wheat", "100", "10", "2024-01-02"),
	})

	require.Len(t, report.Records, 1)
	assert.Equal(t, 3, report.MissingFields)
	assert.Equal(t, day("2024-01-02"), report.Records[0].Date)
}

func TestClean_OptionalFieldsMayBeEmpty(t *testing.T) {
	row := raw("milk", "20", "3", "2024-01-01")
	row.DamagedStock = ""
	row.DeliveryQuantity = ""

	report := Clean([]domain.RawStockLog{row})
	assert.Len(t, report.Records, 1)
}

func TestClean_DropsUnparseableDate(t *testing.T) {
	report := Clean([]domain.RawStockLog{
		raw("wheat", "100", "10", "yesterday"),
		raw("wheat", "100", "10", "2024-13-45"),
		raw("wheat", "100", "10", "2024-01-03 08:15:00"),
	})

	require.Len(t, report.Records, 1)
	assert.Equal(t, 2, report.BadDates)
	assert.Equal(t, day("2024-01-03"), report.Records[0].Date)
}

func TestClean_TruncatesFractionsAndRejectsBadNumbers(t *testing.T) {
	report := Clean([]domain.RawStockLog{
		raw("wheat", "12.7", "3.2", "2024-01-01"),
		raw("wheat", "-1", "3", "2024-01-02"),
		raw("wheat", "ten", "3", "2024-01-03"),
		raw("wheat", "18446744073709551615", "3", "2024-01-04"),
		raw("wheat", "5", "9999999999999999999999", "2024-01-05"),
	})

	require.Len(t, report.Records, 1)
	assert.Equal(t, 4, report.BadNumbers)
	assert.Equal(t, 12, report.Records[0].CurrentStock)
	assert.Equal(t, 3, report.Records[0].UsageToday)
}

func TestClean_NormalizesItemNames(t *testing.T) {
	report := Clean([]domain.RawStockLog{raw("  Basmati   RICE ", "5", "1", "2024-01-01")})

	require.Len(t, report.Records, 1)
	assert.Equal(t, "basmati rice", report.Records[0].ItemName)
}

func TestClean_EmptyInputIsNoData(t *testing.T) {
	report := Clean(nil)

	assert.Equal(t, domain.OutcomeNoData, report.Outcome)
	assert.Empty(t, report.Records)

	report = Clean([]domain.RawStockLog{raw("wheat", "x", "1", "2024-01-01")})
	assert.Equal(t, domain.OutcomeNoData, report.Outcome)
}

func TestClean_Idempotent(t *testing.T) {
	input := []domain.RawStockLog{
		raw("wheat", "100", "10", "2024-01-01"),
		raw("wheat", "100", "10", "2024-01-01"),
		raw("Wheat", "100.4", "10", "2024-01-01T00:00:00Z"),
		{ItemName: "wheat", Category: "snacks", CurrentStock: "100", UsageToday: "10", Date: "2024-01-01"},
		raw("rice", "40", "4", "2024/01/02"),
		raw("rice", "", "4", "2024-01-03"),
	}

	once := Clean(input)
	twice := Clean(ToRaw(once.Records))

	assert.Equal(t, once.Records, twice.Records)
	assert.Zero(t, twice.Dropped())
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"7", 7, true},
		{" 7 ", 7, true},
		{"7.99", 7, true},
		{"0", 0, true},
		{"-0.5", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"2147483647", 2147483647, true},
		{"2147483647.9", 2147483647, true},
		{"2147483648", 0, false},
		{"9999999999999999999999", 0, false},
		{"18446744073709551615", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRawRoundTrip(t *testing.T) {
	rows := []domain.RawStockLog{
		{ItemName: "wheat", Category: "grains", CurrentStock: "100", UsageToday: "10", DamagedStock: "1", Date: "2024-01-01"},
		{ItemName: "cola", Category: "beverages", CurrentStock: "24", UsageToday: "6", DeliveryQuantity: "12", Date: "2024-01-02"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRaw(&buf, rows))

	got, err := ReadRaw(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestReadRaw_OptionalColumnsAbsent(t *testing.T) {
	got, err := ReadRaw(strings.NewReader("date,item_name,current_stock,usage_today\n2024-01-01,wheat,100,10\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wheat", got[0].ItemName)
	assert.Empty(t, got[0].Category)
}

func TestReadRaw_MissingRequiredColumn(t *testing.T) {
	_, err := ReadRaw(strings.NewReader("item_name,current_stock,date\nwheat,1,2024-01-01\n"))
	assert.ErrorContains(t, err, "usage_today")
}

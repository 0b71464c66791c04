package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iurnickita/affiliatemart/internal/ledger/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []string{"date", "ref", "orderId", "amount"}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalize(t *testing.T) {
	fallback := dec("100")

	_, skip := RawLedgerRow{Index: 0, Cells: header}.Normalize(fallback)
	assert.Equal(t, SkipHeader, skip)

	_, skip = RawLedgerRow{Index: 1, Cells: []string{"", " ", ""}}.Normalize(fallback)
	assert.Equal(t, SkipEmpty, skip)

	_, skip = RawLedgerRow{Index: 1, Cells: []string{"2024-01-01", "  ", "A1", "10"}}.Normalize(fallback)
	assert.Equal(t, SkipNoReferrer, skip)

	event, skip := RawLedgerRow{Index: 1, Cells: []string{"2024-01-02 10:00:00", " Anna ", "A1", "1 234,50"}}.Normalize(fallback)
	require.Equal(t, SkipNone, skip)
	assert.Equal(t, "anna", event.ReferrerCode)
	assert.Equal(t, "A1", event.OrderID)
	assert.True(t, event.DateValid)
	assert.True(t, dec("1234.5").Equal(event.Amount))

	// короткая строка без суммы
	event, skip = RawLedgerRow{Index: 2, Cells: []string{"not a date", "bob"}}.Normalize(fallback)
	require.Equal(t, SkipNone, skip)
	assert.False(t, event.DateValid)
	assert.True(t, fallback.Equal(event.Amount))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"50", "50", true},
		{"12.5", "12.5", true},
		{"1234,50 ₽", "1234.5", true},
		{"$ 7.00", "7", true},
		{"", "0", false},
		{"n/a", "0", false},
		{"-5", "0", false},
		{"1.2.3", "0", false},
		{"1,234", "1234", true},
		{"$1,234.50", "1234.5", true},
		{"1.234,50", "1234.5", true},
		{"12,345.00 USD", "12345", true},
		{"1,234,567", "1234567", true},
		{"1 234 567,89", "1234567.89", true},
		{"0.125", "0.125", true},
		{"1,23,4", "0", false},
		{"12.", "0", false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.True(t, dec(tt.want).Equal(got), "%q: got %s", tt.in, got)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-01T10:00:00Z", "2024-03-01 10:00:00", "2024-03-01", "01.03.2024 10:00:00", "3/1/2024"} {
		got, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.Equal(t, 2024, got.Year(), s)
		assert.Equal(t, time.March, got.Month(), s)
	}
	_, ok := ParseDate("yesterday")
	assert.False(t, ok)
}

func TestAggregateCaseInsensitive(t *testing.T) {
	rows := [][]string{
		header,
		{"2024-01-01", "ABC", "1", "10"},
		{"2024-01-03", "abc", "2", "20.5"},
		{"2024-01-02", " Abc ", "3", "30"},
	}
	aggs := Aggregate(rows, decimal.Zero)

	require.Equal(t, 1, aggs.Len())
	agg, ok := aggs.Get("ABC")
	require.True(t, ok)
	assert.Equal(t, 3, agg.TotalSales)
	assert.True(t, dec("60.5").Equal(agg.TotalRevenue))
	assert.Equal(t, "2024-01-01", agg.FirstSaleAt.Format(time.DateOnly))
	assert.Equal(t, "2024-01-03", agg.LastSaleAt.Format(time.DateOnly))
	assert.Equal(t, 1, aggs.Skipped[SkipHeader])
}

func TestAggregateFallbackAndInvalidDates(t *testing.T) {
	rows := [][]string{
		header,
		{"garbage", "anna", "1", ""},
		{"2024-05-01", "anna", "2", "oops"},
		{"2024-01-01", "", "3", "999"},
		{"2024-04-01", "anna", "4", "5"},
	}
	aggs := Aggregate(rows, dec("100"))

	agg, ok := aggs.Get("anna")
	require.True(t, ok)
	assert.Equal(t, 3, agg.TotalSales)
	assert.True(t, dec("205").Equal(agg.TotalRevenue))
	assert.Equal(t, "2024-04-01", agg.FirstSaleAt.Format(time.DateOnly))
	assert.Equal(t, "2024-05-01", agg.LastSaleAt.Format(time.DateOnly))
	assert.Equal(t, 1, aggs.Skipped[SkipNoReferrer])
}

func TestAggregateKeepsFirstAppearanceOrder(t *testing.T) {
	rows := [][]string{
		header,
		{"2024-01-01", "carol", "1", "1"},
		{"2024-01-01", "bob", "2", "1"},
		{"2024-01-01", "CAROL", "3", "1"},
		{"2024-01-01", "anna", "4", "1"},
	}
	aggs := Aggregate(rows, decimal.Zero)
	assert.Equal(t, []string{"carol", "bob", "anna"}, aggs.Order)
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	data := "date,ref,orderId,amount\n2024-01-01,anna,1,50\n2024-01-02,ANNA,2\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	r := NewReader(config.Config{FallbackAmount: dec("7")}, NewCSVSource(path), nil)
	aggs, err := r.Read(context.Background())
	require.NoError(t, err)

	agg, ok := aggs.Get("anna")
	require.True(t, ok)
	assert.Equal(t, 2, agg.TotalSales)
	assert.True(t, dec("57").Equal(agg.TotalRevenue))
}

func TestCSVSourceMissingFile(t *testing.T) {
	r := NewReader(config.Config{}, NewCSVSource(filepath.Join(t.TempDir(), "none.csv")), nil)
	aggs, err := r.Read(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, aggs.Len())
}

func TestSheetsSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Orders!A:D", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "FORMATTED_VALUE", r.URL.Query().Get("valueRenderOption"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Orders!A1:D3","values":[["date","ref","orderId","amount"],["2024-01-01","anna","1",50],["2024-01-02","bob","2"],["2024-01-03","carl","3",1000000]]}`))
	}))
	defer srv.Close()

	cfg := config.Config{
		SheetsURL:     srv.URL,
		SpreadsheetID: "sheet-1",
		Range:         "Orders!A:D",
		APIKey:        "secret",
	}
	rows, err := NewSheetsSource(cfg).ReadRange(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2024-01-01", "anna", "1", "50"}, rows[1])
	assert.Equal(t, []string{"2024-01-02", "bob", "2"}, rows[2])
	// большие числа без экспоненты
	assert.Equal(t, []string{"2024-01-03", "carl", "3", "1000000"}, rows[3])
}

func TestSheetsSourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewSheetsSource(config.Config{SheetsURL: srv.URL, SpreadsheetID: "x", Range: "A:D"}).ReadRange(context.Background())
	require.Error(t, err)
}

func TestNewSource(t *testing.T) {
	_, err := NewSource(config.Config{Source: "ftp"})
	require.True(t, errors.Is(err, ErrUnknownSource))

	src, err := NewSource(config.Config{Source: config.SourceCSV, CSVPath: "x.csv"})
	require.NoError(t, err)
	require.NotNil(t, src)
}

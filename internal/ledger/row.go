package ledger

import (
	"strings"
	"time"

	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/shopspring/decimal"
)

// Колонки журнала: [date, referrerCode, orderId, amount]
const (
	colDate = iota
	colReferrer
	colOrder
	colAmount
)

// Skip describes why a raw ledger row produced no OrderEvent.
type Skip int

const (
	SkipNone Skip = iota
	SkipHeader
	SkipEmpty
	SkipNoReferrer
)

func (s Skip) String() string {
	switch s {
	case SkipNone:
		return "ok"
	case SkipHeader:
		return "header"
	case SkipEmpty:
		return "empty"
	case SkipNoReferrer:
		return "no_referrer"
	default:
		return "unknown"
	}
}

// RawLedgerRow is one untyped row of the external ledger as read from the source.
// Cells may be missing at the tail.
type RawLedgerRow struct {
	Index int
	Cells []string
}

func (row RawLedgerRow) cell(i int) string {
	if i < len(row.Cells) {
		return strings.TrimSpace(row.Cells[i])
	}
	return ""
}

// Normalize validates the row and converts it into an OrderEvent.
// Invalid rows are reported through Skip, never through an error.
func (row RawLedgerRow) Normalize(fallbackAmount decimal.Decimal) (model.OrderEvent, Skip) {
	if row.Index == 0 {
		return model.OrderEvent{}, SkipHeader
	}

	empty := true
	for i := range row.Cells {
		if row.cell(i) != "" {
			empty = false
			break
		}
	}
	if empty {
		return model.OrderEvent{}, SkipEmpty
	}

	ref := model.NormalizeReferrerCode(row.cell(colReferrer))
	if ref == "" {
		return model.OrderEvent{}, SkipNoReferrer
	}

	event := model.OrderEvent{
		OrderID:      row.cell(colOrder),
		ReferrerCode: ref,
		RawDate:      row.cell(colDate),
	}
	event.Date, event.DateValid = ParseDate(event.RawDate)

	amount, ok := ParseAmount(row.cell(colAmount))
	if !ok {
		amount = fallbackAmount
	}
	event.Amount = amount

	return event, SkipNone
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// ParseDate tries the layouts a spreadsheet export commonly produces.
// The second result is false when nothing matched.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseAmount accepts "1234.50", "1 234,50", "1234,50 ₽", "$1,234.50",
// "1.234,50", "12,345.00 USD". Negative amounts are rejected.
//
// With both "." and "," present the last one is the decimal point. A single
// kind of separator is a thousands separator when it repeats or when exactly
// three digits follow it, "0.125" aside.
func ParseAmount(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, false
	}

	intPart, fracPart, ok := splitAmount(cleaned)
	if !ok {
		return decimal.Zero, false
	}
	number := intPart
	if fracPart != "" {
		number += "." + fracPart
	}

	amount, err := decimal.NewFromString(number)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}

// splitAmount separates the integer and fractional digits of a cleaned amount
// and drops the thousands separators.
func splitAmount(s string) (string, string, bool) {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	var decimalSep, groupSep byte
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimalSep, groupSep = '.', ','
		if lastComma > lastDot {
			decimalSep, groupSep = ',', '.'
		}
	case lastDot >= 0 || lastComma >= 0:
		sep, idx := byte('.'), lastDot
		if lastComma >= 0 {
			sep, idx = ',', lastComma
		}
		head := strings.TrimPrefix(s[:idx], "-")
		if strings.Count(s, string(sep)) == 1 && (len(s)-idx-1 != 3 || head == "0" || head == "") {
			decimalSep = sep
		} else {
			groupSep = sep
		}
	default:
		return s, "", true
	}

	intPart, fracPart := s, ""
	if decimalSep != 0 {
		idx := strings.LastIndexByte(s, decimalSep)
		intPart, fracPart = s[:idx], s[idx+1:]
		if strings.IndexByte(intPart, decimalSep) >= 0 || fracPart == "" {
			return "", "", false
		}
	}

	if groupSep != 0 && strings.IndexByte(intPart, groupSep) >= 0 {
		groups := strings.Split(intPart, string(groupSep))
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return "", "", false
			}
		}
		if strings.TrimPrefix(groups[0], "-") == "" {
			return "", "", false
		}
		intPart = strings.Join(groups, "")
	}
	return intPart, fracPart, true
}

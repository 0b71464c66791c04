package ledger

import (
	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/shopspring/decimal"
)

// Aggregates is the per-referrer fold of the ledger. Order preserves the
// sequence in which referrer codes first appear in the ledger.
type Aggregates struct {
	Order  []string
	ByCode map[string]*model.ReferrerAggregate
	// счётчики пропущенных строк по причинам
	Skipped map[Skip]int
}

func NewAggregates() Aggregates {
	return Aggregates{
		ByCode:  make(map[string]*model.ReferrerAggregate),
		Skipped: make(map[Skip]int),
	}
}

func (a Aggregates) Get(code string) (*model.ReferrerAggregate, bool) {
	agg, ok := a.ByCode[model.NormalizeReferrerCode(code)]
	return agg, ok
}

func (a Aggregates) Len() int {
	return len(a.Order)
}

// Add folds one normalized event into the aggregates.
func (a *Aggregates) Add(event model.OrderEvent) {
	agg, ok := a.ByCode[event.ReferrerCode]
	if !ok {
		agg = &model.ReferrerAggregate{ReferrerCode: event.ReferrerCode, TotalRevenue: decimal.Zero}
		a.ByCode[event.ReferrerCode] = agg
		a.Order = append(a.Order, event.ReferrerCode)
	}

	agg.TotalSales++
	agg.TotalRevenue = agg.TotalRevenue.Add(event.Amount)
	agg.Orders = append(agg.Orders, event)

	// некорректная дата не участвует в min/max
	if !event.DateValid {
		return
	}
	if agg.FirstSaleAt.IsZero() || event.Date.Before(agg.FirstSaleAt) {
		agg.FirstSaleAt = event.Date
	}
	if agg.LastSaleAt.IsZero() || event.Date.After(agg.LastSaleAt) {
		agg.LastSaleAt = event.Date
	}
}

// Aggregate folds raw ledger rows (row 0 is the header) into per-referrer aggregates.
func Aggregate(rows [][]string, fallbackAmount decimal.Decimal) Aggregates {
	aggs := NewAggregates()
	for i, cells := range rows {
		event, skip := RawLedgerRow{Index: i, Cells: cells}.Normalize(fallbackAmount)
		if skip != SkipNone {
			aggs.Skipped[skip]++
			continue
		}
		aggs.Add(event)
	}
	return aggs
}

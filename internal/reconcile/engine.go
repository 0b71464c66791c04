package reconcile

import (
	"sort"

	"github.com/iurnickita/affiliatemart/internal/ledger"
	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/shopspring/decimal"
)

// RecentOrdersWindow caps ReconciledStat.RecentOrders.
const RecentOrdersWindow = 5

// AffiliateReport left-joins registry accounts with ledger aggregates.
// Accounts without ledger sales get zero totals. The output follows the
// account order and depends only on the two inputs.
func AffiliateReport(accounts []model.AffiliateAccount, aggs ledger.Aggregates) []model.ReconciledStat {
	stats := make([]model.ReconciledStat, 0, len(accounts))
	for _, account := range accounts {
		stats = append(stats, Reconcile(account, aggs))
	}
	return stats
}

// Reconcile builds the statistics of a single account.
func Reconcile(account model.AffiliateAccount, aggs ledger.Aggregates) model.ReconciledStat {
	stat := model.ReconciledStat{
		Account:         account,
		TotalRevenue:    decimal.Zero,
		TotalCommission: decimal.Zero,
		RecentOrders:    []model.OrderEvent{},
	}

	agg, ok := aggs.Get(account.ReferrerCode)
	if !ok {
		return stat
	}

	stat.TotalSales = agg.TotalSales
	stat.TotalRevenue = agg.TotalRevenue
	stat.TotalCommission = model.Commission(agg.TotalRevenue, account.CommissionRate)
	stat.FirstSaleAt = agg.FirstSaleAt
	stat.LastSaleAt = agg.LastSaleAt
	stat.RecentOrders = RecentOrders(agg.Orders, RecentOrdersWindow)
	return stat
}

// RecentOrders returns at most limit orders, most recent first. Orders with
// an unparseable date go last in ledger order.
func RecentOrders(orders []model.OrderEvent, limit int) []model.OrderEvent {
	sorted := make([]model.OrderEvent, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.DateValid != b.DateValid {
			return a.DateValid
		}
		return a.Date.After(b.Date)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// NewReferrers lists ledger referrer codes that match neither a registry
// referrer code nor a registry username. Sorted by revenue descending, ties
// keep ledger order.
func NewReferrers(accounts []model.AffiliateAccount, aggs ledger.Aggregates) model.NewReferrerReport {
	known := make(map[string]struct{}, 2*len(accounts))
	for _, account := range accounts {
		for _, key := range []string{account.ReferrerCode, account.Username} {
			if key = model.NormalizeReferrerCode(key); key != "" {
				known[key] = struct{}{}
			}
		}
	}

	report := model.NewReferrerReport{
		Referrers:    []model.NewReferrer{},
		TotalRevenue: decimal.Zero,
	}
	for _, code := range aggs.Order {
		if _, ok := known[code]; ok {
			continue
		}
		agg := aggs.ByCode[code]
		report.Referrers = append(report.Referrers, model.NewReferrer{
			ReferrerCode: agg.ReferrerCode,
			TotalSales:   agg.TotalSales,
			TotalRevenue: agg.TotalRevenue,
			FirstSaleAt:  agg.FirstSaleAt,
			LastSaleAt:   agg.LastSaleAt,
		})
		report.TotalSales += agg.TotalSales
		report.TotalRevenue = report.TotalRevenue.Add(agg.TotalRevenue)
	}
	report.Count = len(report.Referrers)

	sort.SliceStable(report.Referrers, func(i, j int) bool {
		return report.Referrers[i].TotalRevenue.GreaterThan(report.Referrers[j].TotalRevenue)
	})
	return report
}

package handler

import (
	"encoding/json"
	"time"

	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/iurnickita/affiliatemart/internal/reconcile"
	"github.com/shopspring/decimal"
)

// Денежные суммы отдаются числом с двумя знаками: 8.00

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type OrderJSON struct {
	OrderID string      `json:"orderId"`
	Date    *time.Time  `json:"date,omitempty"`
	RawDate string      `json:"rawDate,omitempty"`
	Amount  json.Number `json:"amount"`
}

type AffiliateStatJSON struct {
	ReferrerCode    string      `json:"referrerCode"`
	Username        string      `json:"username,omitempty"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	CommissionRate  json.Number `json:"commissionRate"`
	Status          string      `json:"status"`
	CreatedAt       *time.Time  `json:"createdAt,omitempty"`
	TotalSales      int         `json:"totalSales"`
	TotalRevenue    json.Number `json:"totalRevenue"`
	TotalCommission json.Number `json:"totalCommission"`
	FirstSaleAt     *time.Time  `json:"firstSaleAt,omitempty"`
	LastSaleAt      *time.Time  `json:"lastSaleAt,omitempty"`
	RecentOrders    []OrderJSON `json:"recentOrders"`
}

type NewReferrerJSON struct {
	Ref          string      `json:"ref"`
	TotalSales   int         `json:"totalSales"`
	TotalRevenue json.Number `json:"totalRevenue"`
	FirstSaleAt  *time.Time  `json:"firstSaleAt,omitempty"`
	LastSaleAt   *time.Time  `json:"lastSaleAt,omitempty"`
}

type NewReferrersJSON struct {
	Referrers    []NewReferrerJSON `json:"referrers"`
	Count        int               `json:"count"`
	TotalSales   int               `json:"totalSales"`
	TotalRevenue json.Number       `json:"totalRevenue"`
}

type ReportJSONResponse struct {
	Success      bool                `json:"success"`
	Error        string              `json:"error,omitempty"`
	GeneratedAt  time.Time           `json:"generatedAt"`
	Affiliates   []AffiliateStatJSON `json:"affiliates"`
	NewReferrers NewReferrersJSON    `json:"newReferrers"`
}

type NewReferrersJSONResponse struct {
	Success      bool             `json:"success"`
	Error        string           `json:"error,omitempty"`
	NewReferrers NewReferrersJSON `json:"newReferrers"`
}

type AffiliateStatsJSONResponse struct {
	Success     bool               `json:"success"`
	Error       string             `json:"error,omitempty"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Affiliate   *AffiliateStatJSON `json:"affiliate,omitempty"`
}

func newReportJSON(report reconcile.Report) ReportJSONResponse {
	affiliates := make([]AffiliateStatJSON, 0, len(report.Affiliates))
	for _, stat := range report.Affiliates {
		affiliates = append(affiliates, affiliateStatJSON(stat))
	}
	return ReportJSONResponse{
		Success:      report.Success,
		Error:        report.Error,
		GeneratedAt:  report.GeneratedAt,
		Affiliates:   affiliates,
		NewReferrers: newReferrersJSON(report.NewReferrers),
	}
}

func affiliateStatJSON(stat model.ReconciledStat) AffiliateStatJSON {
	orders := make([]OrderJSON, 0, len(stat.RecentOrders))
	for _, order := range stat.RecentOrders {
		o := OrderJSON{OrderID: order.OrderID, Amount: money(order.Amount)}
		if order.DateValid {
			o.Date = timeOrNil(order.Date)
		} else {
			o.RawDate = order.RawDate
		}
		orders = append(orders, o)
	}
	return AffiliateStatJSON{
		ReferrerCode:    stat.Account.ReferrerCode,
		Username:        stat.Account.Username,
		Name:            stat.Account.Name,
		Email:           stat.Account.Email,
		CommissionRate:  json.Number(stat.Account.CommissionRate.String()),
		Status:          stat.Account.Status,
		CreatedAt:       timeOrNil(stat.Account.CreatedAt),
		TotalSales:      stat.TotalSales,
		TotalRevenue:    money(stat.TotalRevenue),
		TotalCommission: money(stat.TotalCommission),
		FirstSaleAt:     timeOrNil(stat.FirstSaleAt),
		LastSaleAt:      timeOrNil(stat.LastSaleAt),
		RecentOrders:    orders,
	}
}

func newReferrersJSON(report model.NewReferrerReport) NewReferrersJSON {
	referrers := make([]NewReferrerJSON, 0, len(report.Referrers))
	for _, r := range report.Referrers {
		referrers = append(referrers, NewReferrerJSON{
			Ref:          r.ReferrerCode,
			TotalSales:   r.TotalSales,
			TotalRevenue: money(r.TotalRevenue),
			FirstSaleAt:  timeOrNil(r.FirstSaleAt),
			LastSaleAt:   timeOrNil(r.LastSaleAt),
		})
	}
	return NewReferrersJSON{
		Referrers:    referrers,
		Count:        report.Count,
		TotalSales:   report.TotalSales,
		TotalRevenue: money(report.TotalRevenue),
	}
}

package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Реферальный код (ref). Ключ связи реестра и журнала заказов.

func NormalizeReferrerCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Заказы из внешнего журнала

type OrderEvent struct {
	OrderID      string
	ReferrerCode string
	Date         time.Time
	DateValid    bool
	RawDate      string
	Amount       decimal.Decimal
}

// Событие атрибуции, отправляемое клиентом со страницы подтверждения заказа.
// Уникальный ключ - OrderID.
type AttributionRecord struct {
	ReferrerCode string
	OrderID      string
	CapturedAt   time.Time
	Amount       *decimal.Decimal
}

// Реестр партнёров

type AffiliateAccount struct {
	ReferrerCode   string          `db:"referrer_code"`
	Username       string          `db:"username"`
	Name           string          `db:"name"`
	Email          string          `db:"email"`
	CommissionRate decimal.Decimal `db:"commission_rate"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
}

const (
	AffiliateStatusActive   = "active"
	AffiliateStatusInactive = "inactive"
)

// Агрегат журнала по одному реферальному коду

type ReferrerAggregate struct {
	ReferrerCode string
	TotalSales   int
	TotalRevenue decimal.Decimal
	FirstSaleAt  time.Time
	LastSaleAt   time.Time
	Orders       []OrderEvent
}

// Статистика партнёра после сверки. Не хранится, пересчитывается на каждый запрос.

type ReconciledStat struct {
	Account         AffiliateAccount
	TotalSales      int
	TotalRevenue    decimal.Decimal
	TotalCommission decimal.Decimal
	FirstSaleAt     time.Time
	LastSaleAt      time.Time
	RecentOrders    []OrderEvent
}

// Реферальный код из журнала, отсутствующий в реестре

type NewReferrer struct {
	ReferrerCode string
	TotalSales   int
	TotalRevenue decimal.Decimal
	FirstSaleAt  time.Time
	LastSaleAt   time.Time
}

type NewReferrerReport struct {
	Referrers    []NewReferrer
	Count        int
	TotalSales   int
	TotalRevenue decimal.Decimal
}

// Commission returns revenue*rate/100 rounded half-up to 2 decimal places.
// Revenue and rate are never negative, so decimal's half-away-from-zero
// rounding is half-up here.
func Commission(revenue, rate decimal.Decimal) decimal.Decimal {
	return revenue.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
}

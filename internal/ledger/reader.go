package ledger

import (
	"context"

	"github.com/iurnickita/affiliatemart/internal/ledger/config"
	"github.com/iurnickita/affiliatemart/internal/metrics"
	"github.com/shopspring/decimal"
)

// Reader reads the full ledger and folds it per referrer code on every call.
// It keeps no state between calls.
type Reader interface {
	Read(ctx context.Context) (Aggregates, error)
}

type reader struct {
	source         Source
	fallbackAmount decimal.Decimal
	metrics        *metrics.Metrics
}

func NewReader(cfg config.Config, source Source, m *metrics.Metrics) Reader {
	return &reader{
		source:         source,
		fallbackAmount: cfg.FallbackAmount,
		metrics:        m,
	}
}

func (r *reader) Read(ctx context.Context) (Aggregates, error) {
	rows, err := r.source.ReadRange(ctx)
	if err != nil {
		return NewAggregates(), err
	}

	aggs := Aggregate(rows, r.fallbackAmount)

	var accepted int
	for _, agg := range aggs.ByCode {
		accepted += agg.TotalSales
	}
	r.metrics.ObserveLedgerRows(SkipNone.String(), accepted)
	for skip, n := range aggs.Skipped {
		r.metrics.ObserveLedgerRows(skip.String(), n)
	}

	return aggs, nil
}

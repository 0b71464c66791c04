package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iurnickita/affiliatemart/internal/metrics"
	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/iurnickita/affiliatemart/internal/notify"
	"github.com/iurnickita/affiliatemart/internal/reconcile"
	"github.com/iurnickita/affiliatemart/internal/registry"
	"github.com/iurnickita/affiliatemart/internal/service/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	Attribute(ctx context.Context, record model.AttributionRecord) error
	Report(ctx context.Context) reconcile.Report
	AffiliateStats(ctx context.Context, code string) (reconcile.StatsReport, error)
	UpdateCommission(ctx context.Context, code string, rate decimal.Decimal) error
	Deactivate(ctx context.Context, code string) error
}

// Registry is the affiliate registry as the service uses it.
type Registry interface {
	reconcile.Registry
	UpdateCommissionRate(ctx context.Context, code string, rate decimal.Decimal) error
	Deactivate(ctx context.Context, code string) error
}

var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrNotFound            = errors.New("affiliate not found")
	ErrForwarding          = errors.New("failed to forward attribution")
)

type service struct {
	cfg        config.Config
	registry   Registry
	reconciler reconcile.Reconciler
	sink       notify.Sink
	zaplog     *zap.Logger
	metrics    *metrics.Metrics
}

func NewService(cfg config.Config, registry Registry, reconciler reconcile.Reconciler, sink notify.Sink, zaplog *zap.Logger, m *metrics.Metrics) Service {
	return &service{
		cfg:        cfg,
		registry:   registry,
		reconciler: reconciler,
		sink:       sink,
		zaplog:     zaplog,
		metrics:    m,
	}
}

// Attribute forwards one attribution event to the sink. Duplicates are
// forwarded as is; retries are the client's job.
func (service *service) Attribute(ctx context.Context, record model.AttributionRecord) error {
	record.ReferrerCode = model.NormalizeReferrerCode(record.ReferrerCode)
	record.OrderID = strings.TrimSpace(record.OrderID)
	if record.ReferrerCode == "" || record.OrderID == "" {
		return ErrInsufficientData
	}
	if record.CapturedAt.IsZero() {
		record.CapturedAt = time.Now()
	}

	if service.cfg.ForwardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, service.cfg.ForwardTimeout)
		defer cancel()
	}

	if err := service.sink.Forward(ctx, record); err != nil {
		service.metrics.ObserveForward("error")
		service.zaplog.Warn("attribution forward failed",
			zap.String("ref", record.ReferrerCode),
			zap.String("order_id", record.OrderID),
			zap.Error(err))
		return errors.Join(ErrForwarding, err)
	}
	service.metrics.ObserveForward("ok")
	return nil
}

func (service *service) Report(ctx context.Context) reconcile.Report {
	return service.reconciler.Report(ctx)
}

func (service *service) AffiliateStats(ctx context.Context, code string) (reconcile.StatsReport, error) {
	if model.NormalizeReferrerCode(code) == "" {
		return reconcile.StatsReport{}, ErrNotFound
	}
	stats, err := service.reconciler.AffiliateStats(ctx, code)
	if err != nil {
		return stats, mapRegistryError(err)
	}
	return stats, nil
}

func (service *service) UpdateCommission(ctx context.Context, code string, rate decimal.Decimal) error {
	return mapRegistryError(service.registry.UpdateCommissionRate(ctx, code, rate))
}

func (service *service) Deactivate(ctx context.Context, code string) error {
	return mapRegistryError(service.registry.Deactivate(ctx, code))
}

func mapRegistryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, registry.ErrRateIncorrect):
		return ErrUnprocessableEntity
	default:
		return err
	}
}

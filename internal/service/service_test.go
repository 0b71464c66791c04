package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iurnickita/affiliatemart/internal/metrics"
	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/iurnickita/affiliatemart/internal/reconcile"
	"github.com/iurnickita/affiliatemart/internal/registry"
	"github.com/iurnickita/affiliatemart/internal/service/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	records []model.AttributionRecord
	err     error
}

func (s *recordingSink) Forward(_ context.Context, record model.AttributionRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

type fakeRegistry struct{}

func (fakeRegistry) ListActiveAffiliates(context.Context) ([]model.AffiliateAccount, error) {
	return nil, nil
}

func (fakeRegistry) FindByReferrerCode(context.Context, string) (model.AffiliateAccount, error) {
	return model.AffiliateAccount{}, registry.ErrNotFound
}

func (fakeRegistry) UpdateCommissionRate(_ context.Context, code string, rate decimal.Decimal) error {
	if rate.GreaterThan(decimal.NewFromInt(100)) {
		return registry.ErrRateIncorrect
	}
	return registry.ErrNotFound
}

func (fakeRegistry) Deactivate(context.Context, string) error {
	return registry.ErrNotFound
}

type nopReconciler struct{}

func (nopReconciler) Report(context.Context) reconcile.Report {
	return reconcile.Report{Success: true}
}

func (nopReconciler) AffiliateStats(context.Context, string) (reconcile.StatsReport, error) {
	return reconcile.StatsReport{}, registry.ErrNotFound
}

func newTestService(sink *recordingSink) Service {
	return NewService(config.Config{}, fakeRegistry{}, nopReconciler{}, sink, zap.NewNop(), metrics.New())
}

func TestAttribute(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(sink)

	err := svc.Attribute(context.Background(), model.AttributionRecord{ReferrerCode: " ANNA ", OrderID: "1"})
	require.NoError(t, err)
	require.Len(t, sink.records, 1)
	require.Equal(t, "anna", sink.records[0].ReferrerCode)
	require.False(t, sink.records[0].CapturedAt.IsZero())

	// без дедупликации на сервере
	err = svc.Attribute(context.Background(), model.AttributionRecord{ReferrerCode: "anna", OrderID: "1"})
	require.NoError(t, err)
	require.Len(t, sink.records, 2)
}

func TestAttributeInsufficientData(t *testing.T) {
	svc := newTestService(&recordingSink{})

	require.ErrorIs(t, svc.Attribute(context.Background(), model.AttributionRecord{OrderID: "1"}), ErrInsufficientData)
	require.ErrorIs(t, svc.Attribute(context.Background(), model.AttributionRecord{ReferrerCode: "anna"}), ErrInsufficientData)

	// пробелы не считаются номером заказа
	sink := &recordingSink{}
	svc = newTestService(sink)
	require.ErrorIs(t, svc.Attribute(context.Background(), model.AttributionRecord{ReferrerCode: "anna", OrderID: "   "}), ErrInsufficientData)
	require.ErrorIs(t, svc.Attribute(context.Background(), model.AttributionRecord{ReferrerCode: "  ", OrderID: "1"}), ErrInsufficientData)
	require.Empty(t, sink.records)

	require.NoError(t, svc.Attribute(context.Background(), model.AttributionRecord{ReferrerCode: "anna", OrderID: " A-1 "}))
	require.Len(t, sink.records, 1)
	require.Equal(t, "A-1", sink.records[0].OrderID)
}

func TestAttributeForwardingFailure(t *testing.T) {
	sinkErr := errors.New("sink down")
	svc := newTestService(&recordingSink{err: sinkErr})

	err := svc.Attribute(context.Background(), model.AttributionRecord{ReferrerCode: "anna", OrderID: "1"})
	require.ErrorIs(t, err, ErrForwarding)
	require.ErrorIs(t, err, sinkErr)
}

func TestRegistryErrorMapping(t *testing.T) {
	svc := newTestService(&recordingSink{})
	ctx := context.Background()

	require.ErrorIs(t, svc.UpdateCommission(ctx, "anna", decimal.NewFromInt(150)), ErrUnprocessableEntity)
	require.ErrorIs(t, svc.UpdateCommission(ctx, "anna", decimal.NewFromInt(10)), ErrNotFound)
	require.ErrorIs(t, svc.Deactivate(ctx, "anna"), ErrNotFound)

	_, err := svc.AffiliateStats(ctx, "anna")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AffiliateStats(ctx, "  ")
	require.ErrorIs(t, err, ErrNotFound)
}

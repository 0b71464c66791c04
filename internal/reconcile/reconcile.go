package reconcile

import (
	"context"
	"time"

	"github.com/iurnickita/affiliatemart/internal/ledger"
	"github.com/iurnickita/affiliatemart/internal/metrics"
	"github.com/iurnickita/affiliatemart/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Registry is the part of the affiliate registry the reconciler reads.
type Registry interface {
	ListActiveAffiliates(ctx context.Context) ([]model.AffiliateAccount, error)
	FindByReferrerCode(ctx context.Context, code string) (model.AffiliateAccount, error)
}

const ledgerUnavailableNote = "order ledger unavailable, sales are shown as zero"

type Report struct {
	Success      bool
	Error        string
	GeneratedAt  time.Time
	Affiliates   []model.ReconciledStat
	NewReferrers model.NewReferrerReport
}

type StatsReport struct {
	Success     bool
	Error       string
	GeneratedAt time.Time
	Stat        model.ReconciledStat
}

type Reconciler interface {
	// Report never fails: registry errors give Success=false, ledger errors
	// give registry-only data with zero sales and an error note.
	Report(ctx context.Context) Report
	// AffiliateStats returns registry.ErrNotFound (from the registry) for unknown codes.
	AffiliateStats(ctx context.Context, code string) (StatsReport, error)
}

type reconciler struct {
	registry Registry
	ledger   ledger.Reader
	zaplog   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewReconciler(registry Registry, reader ledger.Reader, zaplog *zap.Logger, m *metrics.Metrics) Reconciler {
	return &reconciler{
		registry: registry,
		ledger:   reader,
		zaplog:   zaplog,
		metrics:  m,
		now:      time.Now,
	}
}

// readLedger never returns an error to the group: a failed ledger degrades
// to empty aggregates.
func (r *reconciler) readLedger(ctx context.Context, aggs *ledger.Aggregates, ledgerErr *error) func() error {
	return func() error {
		read, err := r.ledger.Read(ctx)
		if err != nil {
			r.zaplog.Error("ledger read failed", zap.Error(err))
			*ledgerErr = err
			*aggs = ledger.NewAggregates()
			return nil
		}
		*aggs = read
		return nil
	}
}

func (r *reconciler) Report(ctx context.Context) Report {
	start := time.Now()
	report := Report{GeneratedAt: r.now().UTC()}

	var (
		g         errgroup.Group
		accounts  []model.AffiliateAccount
		aggs      ledger.Aggregates
		ledgerErr error
	)
	g.Go(func() error {
		var err error
		accounts, err = r.registry.ListActiveAffiliates(ctx)
		return err
	})
	g.Go(r.readLedger(ctx, &aggs, &ledgerErr))

	if err := g.Wait(); err != nil {
		r.zaplog.Error("registry read failed", zap.Error(err))
		report.Error = "affiliate registry unavailable: " + err.Error()
		report.Affiliates = []model.ReconciledStat{}
		report.NewReferrers = NewReferrers(nil, ledger.NewAggregates())
		return report
	}

	report.Affiliates = AffiliateReport(accounts, aggs)
	report.NewReferrers = NewReferrers(accounts, aggs)
	report.Success = true
	if ledgerErr != nil {
		report.Error = ledgerUnavailableNote
	}

	r.metrics.ObserveReconcile(time.Since(start), ledgerErr == nil)
	return report
}

func (r *reconciler) AffiliateStats(ctx context.Context, code string) (StatsReport, error) {
	report := StatsReport{GeneratedAt: r.now().UTC()}

	var (
		g         errgroup.Group
		account   model.AffiliateAccount
		aggs      ledger.Aggregates
		ledgerErr error
	)
	g.Go(func() error {
		var err error
		account, err = r.registry.FindByReferrerCode(ctx, code)
		return err
	})
	g.Go(r.readLedger(ctx, &aggs, &ledgerErr))

	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Stat = Reconcile(account, aggs)
	report.Success = true
	if ledgerErr != nil {
		report.Error = ledgerUnavailableNote
	}
	return report, nil
}

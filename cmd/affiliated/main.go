package main

import (
	"log"

	"github.com/iurnickita/affiliatemart/internal/auth"
	"github.com/iurnickita/affiliatemart/internal/config"
	"github.com/iurnickita/affiliatemart/internal/handler"
	"github.com/iurnickita/affiliatemart/internal/ledger"
	"github.com/iurnickita/affiliatemart/internal/logger"
	"github.com/iurnickita/affiliatemart/internal/metrics"
	"github.com/iurnickita/affiliatemart/internal/notify"
	"github.com/iurnickita/affiliatemart/internal/reconcile"
	"github.com/iurnickita/affiliatemart/internal/registry"
	"github.com/iurnickita/affiliatemart/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	store, err := registry.NewStore(cfg.Registry)
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := ledger.NewSource(cfg.Ledger)
	if err != nil {
		return err
	}

	m := metrics.New()
	reader := ledger.NewReader(cfg.Ledger, source, m)
	sink := notify.NewSink(cfg.Notify, zaplog)
	reconciler := reconcile.NewReconciler(store, reader, zaplog, m)
	service := service.NewService(cfg.Service, store, reconciler, sink, zaplog, m)
	auth := auth.NewAuth(cfg.Auth)
	if auth.Open() {
		zaplog.Warn("AUTH_SECRET is not set: reports are open, registry changes are disabled")
	}

	zaplog.Info("starting affiliated",
		zap.String("addr", cfg.Handler.ServerAddr),
		zap.String("ledger", cfg.Ledger.Source))
	return handler.Serve(cfg.Handler, auth, service, m, zaplog)
}

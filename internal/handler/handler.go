package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/iurnickita/affiliatemart/internal/auth"
	"github.com/iurnickita/affiliatemart/internal/gzip"
	"github.com/iurnickita/affiliatemart/internal/handler/config"
	"github.com/iurnickita/affiliatemart/internal/logger"
	"github.com/iurnickita/affiliatemart/internal/metrics"
	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/iurnickita/affiliatemart/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const msgMissingFields = "Missing ref or orderId"

func Serve(cfg config.Config, auth auth.Auth, service service.Service, m *metrics.Metrics, zaplog *zap.Logger) error {
	h := newHandler(cfg, auth, service, m, zaplog)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           h.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	zaplog.Info("listening", zap.String("addr", cfg.ServerAddr))
	return srv.ListenAndServe()
}

type handler struct {
	cfg     config.Config
	auth    auth.Auth
	service service.Service
	metrics *metrics.Metrics
	zaplog  *zap.Logger
}

func newHandler(cfg config.Config, auth auth.Auth, service service.Service, m *metrics.Metrics, zaplog *zap.Logger) *handler {
	if cfg.AllowOrigin == "" {
		cfg.AllowOrigin = "*"
	}
	return &handler{
		cfg:     cfg,
		auth:    auth,
		service: service,
		metrics: m,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	// приёмник атрибуции: вызывается со страницы подтверждения заказа магазина
	mux.HandleFunc("POST /affiliate", h.cors(logger.RequestLogMdlw(h.PostAffiliate, h.zaplog)))
	mux.HandleFunc("OPTIONS /affiliate", h.cors(h.Preflight))
	// отчёты сверки
	mux.HandleFunc("GET /api/affiliates/report", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.GetReport, auth.RoleAdmin), h.zaplog)))
	mux.HandleFunc("GET /api/affiliates/new", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.GetNewReferrers, auth.RoleAdmin), h.zaplog)))
	mux.HandleFunc("GET /api/affiliates/{code}/stats", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.GetAffiliateStats, auth.RoleAdmin, auth.RoleAffiliate), h.zaplog)))
	// изменения реестра закрыты, пока не задан секрет
	mux.HandleFunc("PUT /api/affiliates/{code}/commission", logger.RequestLogMdlw(h.requireSecret(h.auth.Middleware(h.PutCommission, auth.RoleAdmin)), h.zaplog))
	mux.HandleFunc("DELETE /api/affiliates/{code}", logger.RequestLogMdlw(h.requireSecret(h.auth.Middleware(h.DeleteAffiliate, auth.RoleAdmin)), h.zaplog))
	mux.Handle("GET /metrics", h.metrics.Handler())

	return mux
}

func (h *handler) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.cfg.AllowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next(w, r)
	}
}

func (h *handler) requireSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.auth.Open() {
			writeJSON(w, http.StatusForbidden, ErrorJSONResponse{Error: auth.ErrNoSecret.Error()})
			return
		}
		next(w, r)
	}
}

func (h *handler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type ErrorJSONResponse struct {
	Error string `json:"error"`
}

type SuccessJSONResponse struct {
	Success bool `json:"success"`
}

type PostAffiliateJSONRequest struct {
	Ref     string `json:"ref"`
	OrderID string `json:"orderId"`
	Amount  string `json:"amount,omitempty"`
}

func (h *handler) PostAffiliate(w http.ResponseWriter, r *http.Request) {
	var request PostAffiliateJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorJSONResponse{Error: msgMissingFields})
		return
	}

	record := model.AttributionRecord{
		ReferrerCode: strings.TrimSpace(request.Ref),
		OrderID:      strings.TrimSpace(request.OrderID),
		CapturedAt:   time.Now(),
	}
	if amount, err := decimal.NewFromString(request.Amount); err == nil && !amount.IsNegative() {
		record.Amount = &amount
	}

	err := h.service.Attribute(r.Context(), record)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientData):
			writeJSON(w, http.StatusBadRequest, ErrorJSONResponse{Error: msgMissingFields})
		case errors.Is(err, service.ErrForwarding):
			// подробности приёмника магазину не отдаются
			writeJSON(w, http.StatusInternalServerError, ErrorJSONResponse{Error: service.ErrForwarding.Error()})
		default:
			h.zaplog.Error("attribution failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorJSONResponse{Error: http.StatusText(http.StatusInternalServerError)})
		}
		return
	}
	writeJSON(w, http.StatusOK, SuccessJSONResponse{Success: true})
}

func (h *handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report := h.service.Report(r.Context())
	writeJSON(w, http.StatusOK, newReportJSON(report))
}

func (h *handler) GetNewReferrers(w http.ResponseWriter, r *http.Request) {
	report := h.service.Report(r.Context())
	writeJSON(w, http.StatusOK, NewReferrersJSONResponse{
		Success:      report.Success,
		Error:        report.Error,
		NewReferrers: newReferrersJSON(report.NewReferrers),
	})
}

func (h *handler) GetAffiliateStats(w http.ResponseWriter, r *http.Request) {
	code := model.NormalizeReferrerCode(r.PathValue("code"))

	// партнёр видит только свою статистику
	if r.Header.Get(auth.HeaderRoleKey) == auth.RoleAffiliate && r.Header.Get(auth.HeaderRefKey) != code {
		writeJSON(w, http.StatusForbidden, ErrorJSONResponse{Error: auth.ErrForbidden.Error()})
		return
	}

	stats, err := h.service.AffiliateStats(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			writeJSON(w, http.StatusNotFound, ErrorJSONResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusOK, AffiliateStatsJSONResponse{Success: false, Error: err.Error()})
		}
		return
	}
	stat := affiliateStatJSON(stats.Stat)
	writeJSON(w, http.StatusOK, AffiliateStatsJSONResponse{
		Success:     stats.Success,
		Error:       stats.Error,
		GeneratedAt: stats.GeneratedAt,
		Affiliate:   &stat,
	})
}

type PutCommissionJSONRequest struct {
	CommissionRate json.Number `json:"commissionRate"`
}

func (h *handler) PutCommission(w http.ResponseWriter, r *http.Request) {
	var request PutCommissionJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorJSONResponse{Error: err.Error()})
		return
	}
	rate, err := decimal.NewFromString(request.CommissionRate.String())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorJSONResponse{Error: "commissionRate is required"})
		return
	}

	err = h.service.UpdateCommission(r.Context(), r.PathValue("code"), rate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessJSONResponse{Success: true})
}

func (h *handler) DeleteAffiliate(w http.ResponseWriter, r *http.Request) {
	err := h.service.Deactivate(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessJSONResponse{Success: true})
}

func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorJSONResponse{Error: err.Error()})
	case errors.Is(err, service.ErrUnprocessableEntity):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorJSONResponse{Error: err.Error()})
	default:
		h.zaplog.Error("registry update failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorJSONResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(responseJSON)
}

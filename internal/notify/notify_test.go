package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/iurnickita/affiliatemart/internal/notify/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWebhookSinkForward(t *testing.T) {
	var got WebhookEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	amount := decimal.RequireFromString("99.90")
	sink := NewSink(config.Config{WebhookURL: srv.URL, Token: "s3cret", Timeout: time.Second}, zap.NewNop())
	err := sink.Forward(context.Background(), model.AttributionRecord{
		ReferrerCode: "anna",
		OrderID:      "A-100",
		CapturedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Amount:       &amount,
	})
	require.NoError(t, err)
	require.Equal(t, "anna", got.Ref)
	require.Equal(t, "A-100", got.OrderID)
	require.Equal(t, "99.9", got.Amount)
}

func TestWebhookSinkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSink(config.Config{WebhookURL: srv.URL}).Forward(context.Background(),
		model.AttributionRecord{ReferrerCode: "anna", OrderID: "1"})
	require.ErrorIs(t, err, ErrSinkRejected)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewSink(config.Config{}, zap.New(core))

	require.NoError(t, sink.Forward(context.Background(), model.AttributionRecord{ReferrerCode: "anna", OrderID: "1"}))
	require.Equal(t, 1, logs.FilterField(zap.String("order_id", "1")).Len())
}

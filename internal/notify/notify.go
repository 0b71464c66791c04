package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/iurnickita/affiliatemart/internal/notify/config"
	"go.uber.org/zap"
)

var ErrSinkRejected = errors.New("notification sink rejected the event")

// Sink receives attribution events. It is the only write path into the
// downstream order system, which deduplicates by order id if it needs to.
type Sink interface {
	Forward(ctx context.Context, record model.AttributionRecord) error
}

func NewSink(cfg config.Config, zaplog *zap.Logger) Sink {
	if cfg.WebhookURL == "" {
		return NewLogSink(zaplog)
	}
	return NewWebhookSink(cfg)
}

// JSON тело webhook
type WebhookEvent struct {
	Ref        string    `json:"ref"`
	OrderID    string    `json:"orderId"`
	Amount     string    `json:"amount,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type webhookSink struct {
	client *resty.Client
	url    string
}

func NewWebhookSink(cfg config.Config) Sink {
	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &webhookSink{client: client, url: cfg.WebhookURL}
}

func (s *webhookSink) Forward(ctx context.Context, record model.AttributionRecord) error {
	event := WebhookEvent{
		Ref:        record.ReferrerCode,
		OrderID:    record.OrderID,
		ReceivedAt: record.CapturedAt.UTC(),
	}
	if record.Amount != nil {
		event.Amount = record.Amount.String()
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(s.url)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: status %d", ErrSinkRejected, resp.StatusCode())
	}
	return nil
}

type logSink struct {
	zaplog *zap.Logger
}

func NewLogSink(zaplog *zap.Logger) Sink {
	return &logSink{zaplog: zaplog}
}

func (s *logSink) Forward(_ context.Context, record model.AttributionRecord) error {
	fields := []zap.Field{
		zap.String("ref", record.ReferrerCode),
		zap.String("order_id", record.OrderID),
	}
	if record.Amount != nil {
		fields = append(fields, zap.String("amount", record.Amount.String()))
	}
	s.zaplog.Info("attribution event", fields...)
	return nil
}

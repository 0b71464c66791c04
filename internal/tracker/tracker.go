package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/iurnickita/affiliatemart/internal/tracker/config"
	"github.com/iurnickita/affiliatemart/internal/tracker/localstore"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	keyTrackedPrefix = "affiliate_tracked_"
	keyFallbacks     = "affiliate_fallbacks"
)

var (
	ErrDeliveryFailed = errors.New("attribution delivery failed")
	ErrNoEndpoint     = errors.New("tracker endpoint is not configured")
)

type Result int

const (
	// на странице нет реферального кода или номера заказа
	ResultSkipped Result = iota
	ResultDelivered
	ResultAlreadyDelivered
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultSkipped:
		return "skipped"
	case ResultDelivered:
		return "delivered"
	case ResultAlreadyDelivered:
		return "already_delivered"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Marker proves that the order was already delivered from this client.
type Marker struct {
	Ref       string    `json:"ref"`
	OrderID   string    `json:"orderId"`
	Timestamp time.Time `json:"timestamp"`
}

// FallbackEntry is a delivery that exhausted its attempts, kept for manual recovery.
type FallbackEntry struct {
	ID        string    `json:"id"`
	Ref       string    `json:"ref"`
	OrderID   string    `json:"orderId"`
	Amount    string    `json:"amount,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
}

// JSON тело запроса к приёмнику
type attributionRequest struct {
	Ref     string `json:"ref"`
	OrderID string `json:"orderId"`
	Amount  string `json:"amount,omitempty"`
}

type Tracker interface {
	// Track captures the attribution from the page and delivers it.
	Track(ctx context.Context, page Page) (Result, error)
	// Deliver sends the record at most once per order id.
	Deliver(ctx context.Context, record model.AttributionRecord, pageURL string) (Result, error)
	Fallbacks() ([]FallbackEntry, error)
	// Replay retries the fallback log; delivered entries leave the log.
	Replay(ctx context.Context) (delivered int, remaining int, err error)
}

type tracker struct {
	cfg      config.Config
	client   *resty.Client
	store    localstore.Store
	capturer *capturer
	zaplog   *zap.Logger
	now      func() time.Time
}

func NewTracker(cfg config.Config, store localstore.Store, zaplog *zap.Logger) (Tracker, error) {
	cfg = cfg.WithDefaults()
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}

	capturer, err := newCapturer(cfg, store, zaplog)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &tracker{
		cfg:      cfg,
		client:   client,
		store:    store,
		capturer: capturer,
		zaplog:   zaplog,
		now:      time.Now,
	}, nil
}

func (t *tracker) Track(ctx context.Context, page Page) (Result, error) {
	capture, ok := t.capturer.Capture(page)
	if !ok {
		t.zaplog.Debug("nothing to track",
			zap.String("ref", capture.ReferrerCode),
			zap.String("order_id", capture.OrderID))
		return ResultSkipped, nil
	}

	record := model.AttributionRecord{
		ReferrerCode: capture.ReferrerCode,
		OrderID:      capture.OrderID,
		CapturedAt:   t.now(),
		Amount:       capture.Amount,
	}
	return t.Deliver(ctx, record, page.URL)
}

func (t *tracker) Deliver(ctx context.Context, record model.AttributionRecord, pageURL string) (Result, error) {
	// Ключ идемпотентности - только номер заказа
	delivered, err := t.delivered(record.OrderID)
	if err != nil {
		return ResultFailed, err
	}
	if delivered {
		t.zaplog.Info("order already tracked", zap.String("order_id", record.OrderID))
		return ResultAlreadyDelivered, nil
	}

	if err := t.send(ctx, record); err != nil {
		if ferr := t.appendFallback(record, err, pageURL); ferr != nil {
			t.zaplog.Error("failed to save fallback", zap.Error(ferr))
		}
		return ResultFailed, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	// маркер пишется до возврата успеха
	if err := t.markDelivered(record); err != nil {
		return ResultDelivered, err
	}
	t.zaplog.Info("order tracked",
		zap.String("ref", record.ReferrerCode),
		zap.String("order_id", record.OrderID))
	return ResultDelivered, nil
}

// send makes up to cfg.Attempts sequential attempts with cfg.Delay between them.
func (t *tracker) send(ctx context.Context, record model.AttributionRecord) error {
	body := attributionRequest{Ref: record.ReferrerCode, OrderID: record.OrderID}
	if record.Amount != nil {
		body.Amount = record.Amount.String()
	}

	var lastErr error
	for attempt := 1; attempt <= t.cfg.Attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(t.cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(lastErr, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = t.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		t.zaplog.Warn("attribution attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("of", t.cfg.Attempts),
			zap.String("order_id", record.OrderID),
			zap.Error(lastErr))
	}
	return lastErr
}

func (t *tracker) post(ctx context.Context, body attributionRequest) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(t.cfg.Endpoint)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("attribution request status: %d", resp.StatusCode())
	}
	return nil
}

func (t *tracker) delivered(orderID string) (bool, error) {
	_, ok, err := t.store.Get(keyTrackedPrefix + orderID)
	return ok, err
}

func (t *tracker) markDelivered(record model.AttributionRecord) error {
	data, err := json.Marshal(Marker{
		Ref:       record.ReferrerCode,
		OrderID:   record.OrderID,
		Timestamp: t.now().UTC(),
	})
	if err != nil {
		return err
	}
	return t.store.Set(keyTrackedPrefix+record.OrderID, data)
}

func (t *tracker) Fallbacks() ([]FallbackEntry, error) {
	data, ok, err := t.store.Get(keyFallbacks)
	if err != nil || !ok {
		return nil, err
	}
	var entries []FallbackEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (t *tracker) saveFallbacks(entries []FallbackEntry) error {
	if len(entries) == 0 {
		return t.store.Delete(keyFallbacks)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return t.store.Set(keyFallbacks, data)
}

func (t *tracker) appendFallback(record model.AttributionRecord, cause error, pageURL string) error {
	entries, err := t.Fallbacks()
	if err != nil {
		// испорченный журнал не должен блокировать запись новой ошибки
		t.zaplog.Warn("fallback log unreadable, starting a new one", zap.Error(err))
		entries = nil
	}
	entry := FallbackEntry{
		ID:        uuid.NewString(),
		Ref:       record.ReferrerCode,
		OrderID:   record.OrderID,
		Error:     cause.Error(),
		Timestamp: t.now().UTC(),
		URL:       pageURL,
	}
	if record.Amount != nil {
		entry.Amount = record.Amount.String()
	}
	return t.saveFallbacks(append(entries, entry))
}

func (t *tracker) Replay(ctx context.Context) (int, int, error) {
	entries, err := t.Fallbacks()
	if err != nil {
		return 0, 0, err
	}

	var delivered int
	remaining := make([]FallbackEntry, 0, len(entries))
	for _, entry := range entries {
		record := model.AttributionRecord{
			ReferrerCode: entry.Ref,
			OrderID:      entry.OrderID,
			CapturedAt:   entry.Timestamp,
		}
		if entry.Amount != "" {
			if amount, err := decimal.NewFromString(entry.Amount); err == nil {
				record.Amount = &amount
			}
		}

		done, err := t.delivered(entry.OrderID)
		if err != nil {
			return delivered, len(entries) - delivered, err
		}
		if done {
			delivered++
			continue
		}

		if err := t.send(ctx, record); err != nil {
			entry.Error = err.Error()
			entry.Timestamp = t.now().UTC()
			remaining = append(remaining, entry)
			continue
		}
		if err := t.markDelivered(record); err != nil {
			return delivered, len(entries) - delivered, err
		}
		delivered++
	}

	if err := t.saveFallbacks(remaining); err != nil {
		return delivered, len(remaining), err
	}
	return delivered, len(remaining), nil
}

package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProviderEvent keeps every received webhook for dedupe and audit. The
// unique index on (provider, event_id) makes redelivery a no-op.
type ProviderEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Provider    string         `gorm:"type:varchar(32);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID     string         `gorm:"type:varchar(191);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"type:datetime(3);not null"`
	ProcessedAt  *time.Time `gorm:"type:datetime(3)"`
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (ProviderEvent) TableName() string { return "provider_events" }

// OrderProcessor is the slice of the order engine the webhook path needs.
type OrderProcessor interface {
	ProcessPaymentSucceeded(ctx context.Context, paymentID string) error
}

// eventStore is the durable side of webhook intake.
type eventStore interface {
	insert(ctx context.Context, pe *ProviderEvent) error
	markProcessed(ctx context.Context, id string, at time.Time, processErr *string) error
}

type gormEventStore struct{ db *gorm.DB }

func (s *gormEventStore) insert(ctx context.Context, pe *ProviderEvent) error {
	return s.db.WithContext(ctx).Create(pe).Error
}

func (s *gormEventStore) markProcessed(ctx context.Context, id string, at time.Time, processErr *string) error {
	updates := map[string]any{"processed_at": &at}
	if processErr != nil {
		updates["process_error"] = *processErr
	}
	return s.db.WithContext(ctx).Model(&ProviderEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

type WebhookService struct {
	store  eventStore
	engine OrderProcessor
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewWebhookService(db *gorm.DB, engine OrderProcessor, logger *slog.Logger) *WebhookService {
	return newWebhookService(&gormEventStore{db: db}, engine, logger)
}

func newWebhookService(store eventStore, engine OrderProcessor, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{store: store, engine: engine, logger: logger}
}

// Handle persists the event, dedupes on (provider, event_id), and schedules
// the apply step. It returns as soon as the event row is durable so the
// gateway's delivery is acknowledged without waiting on supplier or email
// latency; apply failures land in process_error, never in the response. An
// error is returned only when the event could not be recorded.
func (s *WebhookService) Handle(ctx context.Context, providerName string, ev WebhookEvent, rawBody []byte) error {
	payload := json.RawMessage(rawBody)

	pe := ProviderEvent{
		ID:          uuid.NewString(),
		Provider:    providerName,
		EventID:     ev.EventID,
		EventType:   ev.Type,
		PayloadJSON: datatypes.JSON(payload),
		ReceivedAt:  time.Now(),
	}

	if err := s.store.insert(ctx, &pe); err != nil {
		if isDupKey(err) {
			s.logger.InfoContext(ctx, "webhook event deduplicated",
				"provider", providerName, "event_id", ev.EventID, "type", ev.Type)
			return nil
		}
		s.logger.ErrorContext(ctx, "failed to persist provider event",
			"provider", providerName, "event_id", ev.EventID, "err", err)
		return err
	}

	// Detached from the request context: the gateway closing the connection
	// after our ack must not abort a dispatch in flight.
	applyCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.apply(applyCtx, pe.ID, providerName, ev)
	}()
	return nil
}

// Wait blocks until every scheduled apply has finished. Called on shutdown
// so an acknowledged event is not dropped mid-dispatch.
func (s *WebhookService) Wait() { s.wg.Wait() }

func (s *WebhookService) apply(ctx context.Context, eventRowID, providerName string, ev WebhookEvent) {
	var applyErr error
	switch ev.Type {
	case EventPaymentSucceeded:
		applyErr = s.engine.ProcessPaymentSucceeded(ctx, ev.PaymentRef)
	case EventPaymentFailed:
		// nothing to transition: a draft stays pending, a terminal order
		// stays terminal
		s.logger.InfoContext(ctx, "payment failed event recorded",
			"provider", providerName, "payment_ref", ev.PaymentRef)
	default:
		s.logger.InfoContext(ctx, "unhandled webhook event type, acknowledging",
			"provider", providerName, "event_id", ev.EventID, "type", ev.Type)
	}

	var msg *string
	if applyErr != nil {
		m := truncate(applyErr.Error(), 250)
		msg = &m
		s.logger.ErrorContext(ctx, "webhook event apply failed",
			"provider", providerName, "event_id", ev.EventID, "type", ev.Type, "error", m)
	}
	if err := s.store.markProcessed(ctx, eventRowID, time.Now(), msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark provider event processed",
			"provider", providerName, "event_id", ev.EventID, "err", err)
	}
}

func isDupKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// truncate cuts on a rune boundary so a clipped message stays valid UTF-8.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

package payments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memEventStore mirrors the MySQL repo's semantics: unique (provider,
// event_id), processed marker applied by row id.
type memEventStore struct {
	mu     sync.Mutex
	events map[string]*ProviderEvent // provider:event_id
	byID   map[string]*ProviderEvent
}

func newMemEventStore() *memEventStore {
	return &memEventStore{events: map[string]*ProviderEvent{}, byID: map[string]*ProviderEvent{}}
}

func (m *memEventStore) insert(_ context.Context, pe *ProviderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pe.Provider + ":" + pe.EventID
	if _, ok := m.events[key]; ok {
		return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	}
	cp := *pe
	m.events[key] = &cp
	m.byID[pe.ID] = &cp
	return nil
}

func (m *memEventStore) markProcessed(_ context.Context, id string, at time.Time, processErr *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pe, ok := m.byID[id]
	if !ok {
		return errors.New("no such event row")
	}
	pe.ProcessedAt = &at
	pe.ProcessError = processErr
	return nil
}

func (m *memEventStore) get(provider, eventID string) *ProviderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[provider+":"+eventID]
}

type fakeProcessor struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{} // when set, blocks each call until closed
}

func (p *fakeProcessor) ProcessPaymentSucceeded(ctx context.Context, paymentID string) error {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.err
}

func (p *fakeProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func succeededEvent(id, ref string) WebhookEvent {
	return WebhookEvent{EventID: id, Type: EventPaymentSucceeded, PaymentRef: ref}
}

func TestWebhookServiceAckDoesNotAwaitDispatch(t *testing.T) {
	store := newMemEventStore()
	proc := &fakeProcessor{release: make(chan struct{})}
	svc := newWebhookService(store, proc, discardLogger())

	// Handle must return while the engine is still blocked downstream.
	err := svc.Handle(context.Background(), "stripe", succeededEvent("evt_1", "pi_1"), []byte(`{}`))
	require.NoError(t, err)
	assert.Zero(t, proc.count())

	close(proc.release)
	svc.Wait()
	assert.Equal(t, 1, proc.count())

	pe := store.get("stripe", "evt_1")
	require.NotNil(t, pe)
	assert.NotNil(t, pe.ProcessedAt)
	assert.Nil(t, pe.ProcessError)
}

func TestWebhookServiceDeduplicatesRedelivery(t *testing.T) {
	store := newMemEventStore()
	proc := &fakeProcessor{}
	svc := newWebhookService(store, proc, discardLogger())

	ev := succeededEvent("evt_1", "pi_1")
	require.NoError(t, svc.Handle(context.Background(), "stripe", ev, []byte(`{}`)))
	svc.Wait()
	require.Equal(t, 1, proc.count())

	// redelivery of the same event id is acked without a second apply
	require.NoError(t, svc.Handle(context.Background(), "stripe", ev, []byte(`{}`)))
	svc.Wait()
	assert.Equal(t, 1, proc.count())
}

func TestWebhookServiceApplyFailureStillAcks(t *testing.T) {
	store := newMemEventStore()
	proc := &fakeProcessor{err: errors.New("order store unreachable")}
	svc := newWebhookService(store, proc, discardLogger())

	err := svc.Handle(context.Background(), "stripe", succeededEvent("evt_1", "pi_1"), []byte(`{}`))
	require.NoError(t, err)
	svc.Wait()

	pe := store.get("stripe", "evt_1")
	require.NotNil(t, pe)
	assert.NotNil(t, pe.ProcessedAt)
	require.NotNil(t, pe.ProcessError)
	assert.Equal(t, "order store unreachable", *pe.ProcessError)
}

func TestWebhookServiceUnknownTypeIsAcked(t *testing.T) {
	store := newMemEventStore()
	proc := &fakeProcessor{}
	svc := newWebhookService(store, proc, discardLogger())

	ev := WebhookEvent{EventID: "evt_1", Type: "charge.dispute.created", PaymentRef: "pi_1"}
	require.NoError(t, svc.Handle(context.Background(), "stripe", ev, []byte(`{}`)))
	svc.Wait()

	assert.Zero(t, proc.count())
	pe := store.get("stripe", "evt_1")
	require.NotNil(t, pe)
	assert.NotNil(t, pe.ProcessedAt)
	assert.Nil(t, pe.ProcessError)
}

func TestWebhookServicePersistFailureSurfaces(t *testing.T) {
	proc := &fakeProcessor{}
	svc := newWebhookService(failingEventStore{}, proc, discardLogger())

	err := svc.Handle(context.Background(), "stripe", succeededEvent("evt_1", "pi_1"), []byte(`{}`))
	assert.Error(t, err)
	svc.Wait()
	assert.Zero(t, proc.count())
}

type failingEventStore struct{}

func (failingEventStore) insert(context.Context, *ProviderEvent) error {
	return errors.New("db down")
}

func (failingEventStore) markProcessed(context.Context, string, time.Time, *string) error {
	return errors.New("db down")
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("é", 200) // 400 bytes of two-byte runes
	out := truncate(long, 251)       // 251 lands mid-rune

	assert.LessOrEqual(t, len(out), 251)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, 250, len(out))

	assert.Equal(t, "short", truncate("short", 250))
}

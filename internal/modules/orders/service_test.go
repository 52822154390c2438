package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// memStore gives the engine the same semantics the MySQL repo provides:
// unique payment ids, a pending->claimed CAS, and an atomic terminal update.
type memStore struct {
	mu    sync.Mutex
	rows  map[string]*Order
	items map[string][]OrderItem
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]*Order{}, items: map[string][]OrderItem{}}
}

func (m *memStore) InsertDraftIfAbsent(_ context.Context, o Order, items []OrderItem) (Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[o.PaymentID]; ok {
		return *existing, false, nil
	}
	cp := o
	m.rows[o.PaymentID] = &cp
	m.items[o.PaymentID] = items
	return o, true, nil
}

func (m *memStore) GetByPaymentID(_ context.Context, paymentID string) (Order, []OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[paymentID]
	if !ok {
		return Order{}, nil, ErrNotFound
	}
	return *o, m.items[paymentID], nil
}

func (m *memStore) Claim(_ context.Context, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[paymentID]
	if !ok || o.Status != StatusPending || o.SupplierResponse != nil {
		return false, nil
	}
	o.Status = StatusClaimed
	return true, nil
}

func (m *memStore) MarkTerminal(_ context.Context, paymentID string, resp datatypes.JSON, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[paymentID]
	if !ok {
		return ErrNotFound
	}
	o.SupplierResponse = resp
	o.Status = status
	now := time.Now()
	o.ProcessedAt = &now
	return nil
}

type mockVerifier struct {
	retrieveStatusFn func(ctx context.Context, id string) (string, error)
}

func (m *mockVerifier) RetrieveStatus(ctx context.Context, id string) (string, error) {
	return m.retrieveStatusFn(ctx, id)
}

type mockDispatcher struct {
	mu       sync.Mutex
	calls    int
	submitFn func(ctx context.Context, o Order, items []OrderItem) (SupplierResult, error)
}

func (m *mockDispatcher) Submit(ctx context.Context, o Order, items []OrderItem) (SupplierResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.submitFn != nil {
		return m.submitFn(ctx, o, items)
	}
	return SupplierResult{Success: true, Method: "api"}, nil
}

func (m *mockDispatcher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockNotifier) SendConfirmation(ctx context.Context, o Order, items []OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func succeededVerifier() *mockVerifier {
	return &mockVerifier{retrieveStatusFn: func(_ context.Context, _ string) (string, error) {
		return PaymentSucceeded, nil
	}}
}

func testDraft(paymentID string) Draft {
	return Draft{
		PaymentID: paymentID,
		Provider:  "stripe",
		Customer:  Customer{Name: "Ada Obi", Email: "ada@example.com"},
		Lines: []CartLine{
			{ProductID: "p1", Title: "Wireless Earbuds", UnitPriceCents: 1999, SupplierCostCents: 800, Quantity: 2},
		},
		Currency: "USD",
	}
}

func TestComputeTotals(t *testing.T) {
	total, share, profit, err := ComputeTotals(testDraft("x").Lines)
	require.NoError(t, err)
	assert.Equal(t, int64(3998), total)
	assert.Equal(t, int64(1600), share)
	assert.Equal(t, int64(2398), profit)
}

func TestComputeTotalsRejectsEmptyCart(t *testing.T) {
	_, _, _, err := ComputeTotals(nil)
	assert.Equal(t, ErrCartEmpty, err)
}

func TestComputeTotalsRejectsNegativeProfit(t *testing.T) {
	_, _, _, err := ComputeTotals([]CartLine{
		{ProductID: "p1", UnitPriceCents: 500, SupplierCostCents: 800, Quantity: 1},
	})
	assert.Equal(t, ErrNegativeProfit, err)
}

func TestComputeTotalsRejectsZeroQuantity(t *testing.T) {
	_, _, _, err := ComputeTotals([]CartLine{
		{ProductID: "p1", UnitPriceCents: 500, SupplierCostCents: 100, Quantity: 0},
	})
	assert.Equal(t, ErrInvalidLine, err)
}

func TestCreateDraftIdempotent(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, succeededVerifier(), &mockDispatcher{}, &mockNotifier{}, nil)

	first, err := svc.CreateDraft(context.Background(), testDraft("pi_1"))
	require.NoError(t, err)

	// retry with a different payload must not create a second row or alter the first
	second := testDraft("pi_1")
	second.Lines[0].Quantity = 5
	got, err := svc.CreateDraft(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, int64(3998), got.TotalCents)
	assert.Len(t, store.rows, 1)
}

func TestConfirmRejectsUnconfirmedPayment(t *testing.T) {
	store := newMemStore()
	disp := &mockDispatcher{}
	verifier := &mockVerifier{retrieveStatusFn: func(_ context.Context, _ string) (string, error) {
		return "requires_payment_method", nil
	}}
	svc := NewService(store, verifier, disp, &mockNotifier{}, nil)

	_, err := svc.Confirm(context.Background(), testDraft("pi_2"))
	assert.Equal(t, ErrPaymentNotConfirmed, err)
	assert.Equal(t, 0, disp.count())

	// draft created earlier must keep a null supplier response
	_, _ = svc.CreateDraft(context.Background(), testDraft("pi_2"))
	o, _, err := svc.Get(context.Background(), "pi_2")
	require.NoError(t, err)
	assert.Nil(t, o.SupplierResponse)
}

func TestConfirmDispatchesOnce(t *testing.T) {
	store := newMemStore()
	disp := &mockDispatcher{}
	notif := &mockNotifier{}
	svc := NewService(store, succeededVerifier(), disp, notif, nil)

	first, err := svc.Confirm(context.Background(), testDraft("pi_3"))
	require.NoError(t, err)
	assert.False(t, first.AlreadyProcessed)
	assert.True(t, first.SupplierResponse.Success)
	assert.Equal(t, StatusProcessed, first.Order.Status)
	require.NotNil(t, first.Order.ProcessedAt)

	second, err := svc.Confirm(context.Background(), testDraft("pi_3"))
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.SupplierResponse, second.SupplierResponse)

	assert.Equal(t, 1, disp.count())
	assert.Equal(t, 1, notif.count())
}

func TestConfirmBackfillsMissingDraft(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, succeededVerifier(), &mockDispatcher{}, &mockNotifier{}, nil)

	res, err := svc.Confirm(context.Background(), testDraft("pi_4"))
	require.NoError(t, err)
	assert.Equal(t, int64(3998), res.Order.TotalCents)
	assert.Equal(t, int64(2398), res.Order.ProfitCents)
}

func TestWebhookUnknownPaymentIsNoop(t *testing.T) {
	store := newMemStore()
	disp := &mockDispatcher{}
	svc := NewService(store, succeededVerifier(), disp, &mockNotifier{}, nil)

	err := svc.ProcessPaymentSucceeded(context.Background(), "pi_unknown")
	assert.NoError(t, err)
	assert.Equal(t, 0, disp.count())
	assert.Empty(t, store.rows)
}

func TestConfirmThenWebhookDispatchesOnce(t *testing.T) {
	store := newMemStore()
	disp := &mockDispatcher{}
	notif := &mockNotifier{}
	svc := NewService(store, succeededVerifier(), disp, notif, nil)

	_, err := svc.Confirm(context.Background(), testDraft("pi_5"))
	require.NoError(t, err)
	require.NoError(t, svc.ProcessPaymentSucceeded(context.Background(), "pi_5"))

	assert.Equal(t, 1, disp.count())
	assert.Equal(t, 1, notif.count())
}

func TestWebhookThenConfirmDispatchesOnce(t *testing.T) {
	store := newMemStore()
	disp := &mockDispatcher{}
	notif := &mockNotifier{}
	svc := NewService(store, succeededVerifier(), disp, notif, nil)

	_, err := svc.CreateDraft(context.Background(), testDraft("pi_6"))
	require.NoError(t, err)
	require.NoError(t, svc.ProcessPaymentSucceeded(context.Background(), "pi_6"))

	res, err := svc.Confirm(context.Background(), testDraft("pi_6"))
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, 1, disp.count())
	assert.Equal(t, 1, notif.count())
}

func TestSupplierFailureIsTerminal(t *testing.T) {
	store := newMemStore()
	disp := &mockDispatcher{submitFn: func(_ context.Context, _ Order, _ []OrderItem) (SupplierResult, error) {
		return SupplierResult{Success: false, Method: "api", Error: "supplier rejected order"}, nil
	}}
	svc := NewService(store, succeededVerifier(), disp, &mockNotifier{}, nil)

	res, err := svc.Confirm(context.Background(), testDraft("pi_7"))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Order.Status)
	assert.False(t, res.SupplierResponse.Success)
	require.NotNil(t, res.Order.ProcessedAt)

	// failed is terminal: no retry on the next confirm
	again, err := svc.Confirm(context.Background(), testDraft("pi_7"))
	require.NoError(t, err)
	assert.True(t, again.AlreadyProcessed)
	assert.Equal(t, 1, disp.count())
}

func TestDispatcherTransportErrorIsFailedResult(t *testing.T) {
	store := newMemStore()
	disp := &mockDispatcher{submitFn: func(_ context.Context, _ Order, _ []OrderItem) (SupplierResult, error) {
		return SupplierResult{}, errors.New("connect: connection refused")
	}}
	svc := NewService(store, succeededVerifier(), disp, &mockNotifier{}, nil)

	res, err := svc.Confirm(context.Background(), testDraft("pi_8"))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Order.Status)
	assert.Contains(t, res.SupplierResponse.Error, "connection refused")
}

func TestNotificationFailureDoesNotAlterStatus(t *testing.T) {
	store := newMemStore()
	notif := &mockNotifier{err: errors.New("smtp dial failed")}
	svc := NewService(store, succeededVerifier(), &mockDispatcher{}, notif, nil)

	res, err := svc.Confirm(context.Background(), testDraft("pi_9"))
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, res.Order.Status)
	assert.True(t, res.SupplierResponse.Success)
}

func TestConcurrentConfirmAndWebhookDispatchOnce(t *testing.T) {
	store := newMemStore()
	notif := &mockNotifier{}

	started := make(chan struct{})
	release := make(chan struct{})
	disp := &mockDispatcher{submitFn: func(_ context.Context, _ Order, _ []OrderItem) (SupplierResult, error) {
		close(started)
		<-release
		return SupplierResult{Success: true, Method: "api"}, nil
	}}
	svc := NewService(store, succeededVerifier(), disp, notif, nil)

	_, err := svc.CreateDraft(context.Background(), testDraft("pi_10"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Confirm(context.Background(), testDraft("pi_10"))
		done <- err
	}()
	<-started

	// webhook fires while the confirm call holds the claim and is mid-dispatch
	require.NoError(t, svc.ProcessPaymentSucceeded(context.Background(), "pi_10"))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, disp.count())
	assert.Equal(t, 1, notif.count())
}

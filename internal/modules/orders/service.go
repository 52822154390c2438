package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PaymentSucceeded is the normalized gateway status the engine accepts as
// proof of payment. Adapters translate provider-specific statuses to it.
const PaymentSucceeded = "succeeded"

// StatusVerifier asks the gateway what it thinks of a payment id. The
// client's own claim of success is never trusted.
type StatusVerifier interface {
	RetrieveStatus(ctx context.Context, paymentID string) (string, error)
}

// SupplierDispatcher forwards a confirmed order to the fulfillment source.
// A non-Success result is a recorded outcome, not an error; err is reserved
// for transport-level failures and is folded into a failed result by the
// engine.
type SupplierDispatcher interface {
	Submit(ctx context.Context, o Order, items []OrderItem) (SupplierResult, error)
}

// Notifier sends the customer confirmation. Failure never blocks order
// completion.
type Notifier interface {
	SendConfirmation(ctx context.Context, o Order, items []OrderItem) error
}

type Service struct {
	store      Store
	verifier   StatusVerifier
	dispatcher SupplierDispatcher
	notifier   Notifier
	logger     *slog.Logger
}

func NewService(store Store, v StatusVerifier, d SupplierDispatcher, n Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, verifier: v, dispatcher: d, notifier: n, logger: logger}
}

type CartLine struct {
	ProductID         string
	Title             string
	SupplierSKU       string
	UnitPriceCents    int64
	SupplierCostCents int64
	Quantity          int
}

// Draft carries everything needed to create (or backfill) the pending row
// for a payment id.
type Draft struct {
	PaymentID      string
	Provider       string
	Customer       Customer
	Lines          []CartLine
	Currency       string
	ChargeCurrency string
	ChargeCents    int64
}

// ComputeTotals validates the cart and derives total, supplier share and
// profit in minor units. Negative profit rejects the cart before any side
// effect.
func ComputeTotals(lines []CartLine) (total, supplierShare, profit int64, err error) {
	if len(lines) == 0 {
		return 0, 0, 0, ErrCartEmpty
	}
	for _, l := range lines {
		if l.Quantity < 1 || l.UnitPriceCents < 0 || l.SupplierCostCents < 0 {
			return 0, 0, 0, ErrInvalidLine
		}
		total += l.UnitPriceCents * int64(l.Quantity)
		supplierShare += l.SupplierCostCents * int64(l.Quantity)
	}
	profit = total - supplierShare
	if profit < 0 {
		return 0, 0, 0, ErrNegativeProfit
	}
	return total, supplierShare, profit, nil
}

// CreateDraft inserts the pending row for a payment id. Safe to call more
// than once: duplicates neither create a second row nor alter the first.
func (s *Service) CreateDraft(ctx context.Context, d Draft) (Order, error) {
	if d.PaymentID == "" {
		return Order{}, ErrNotFound
	}
	total, share, profit, err := ComputeTotals(d.Lines)
	if err != nil {
		return Order{}, err
	}

	now := time.Now()
	chargeCurrency := d.ChargeCurrency
	chargeCents := d.ChargeCents
	if chargeCurrency == "" {
		chargeCurrency = d.Currency
		chargeCents = total
	}

	o := Order{
		ID:              uuid.NewString(),
		PaymentID:       d.PaymentID,
		Provider:        d.Provider,
		Status:          StatusPending,
		CustomerName:    d.Customer.Name,
		CustomerEmail:   d.Customer.Email,
		ShippingAddress: d.Customer.Address,
		Currency:        d.Currency,
		TotalCents:      total,
		SupplierCents:   share,
		ProfitCents:     profit,
		ChargeCurrency:  chargeCurrency,
		ChargeCents:     chargeCents,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	items := make([]OrderItem, len(d.Lines))
	for i, l := range d.Lines {
		items[i] = OrderItem{
			ID:                uuid.NewString(),
			OrderID:           o.ID,
			ProductID:         l.ProductID,
			Title:             l.Title,
			SupplierSKU:       l.SupplierSKU,
			UnitPriceCents:    l.UnitPriceCents,
			SupplierCostCents: l.SupplierCostCents,
			Quantity:          l.Quantity,
			CreatedAt:         now,
		}
	}

	stored, created, err := s.store.InsertDraftIfAbsent(ctx, o, items)
	if err != nil {
		return Order{}, fmt.Errorf("insert draft: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "order draft created",
			"payment_id", d.PaymentID, "order_id", stored.ID,
			"total_cents", total, "profit_cents", profit)
	} else {
		s.logger.InfoContext(ctx, "order draft already exists",
			"payment_id", d.PaymentID, "order_id", stored.ID)
	}
	return stored, nil
}

type ConfirmResult struct {
	Order            Order
	SupplierResponse SupplierResult
	AlreadyProcessed bool
}

// Confirm is the client-initiated "place order" path. The gateway is asked
// to vouch for the payment, the draft is backfilled if the initiation call
// never landed, and the dispatch-once core runs at most one supplier
// submission and one customer email per payment id.
func (s *Service) Confirm(ctx context.Context, d Draft) (ConfirmResult, error) {
	st, err := s.verifier.RetrieveStatus(ctx, d.PaymentID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("verify payment %s: %w", d.PaymentID, err)
	}
	if st != PaymentSucceeded {
		s.logger.WarnContext(ctx, "confirmation for unconfirmed payment",
			"payment_id", d.PaymentID, "gateway_status", st)
		return ConfirmResult{}, ErrPaymentNotConfirmed
	}

	ord, items, err := s.store.GetByPaymentID(ctx, d.PaymentID)
	if errors.Is(err, ErrNotFound) {
		// The initiation call never reached us; create the draft now.
		if _, err := s.CreateDraft(ctx, d); err != nil {
			return ConfirmResult{}, err
		}
		ord, items, err = s.store.GetByPaymentID(ctx, d.PaymentID)
	}
	if err != nil {
		return ConfirmResult{}, err
	}

	if ord.SupplierResponse != nil {
		return ConfirmResult{
			Order:            ord,
			SupplierResponse: decodeResult(ord.SupplierResponse),
			AlreadyProcessed: true,
		}, nil
	}

	return s.process(ctx, ord, items)
}

// ProcessPaymentSucceeded is the webhook entry point. Unknown payment ids
// and already-processed orders are no-ops; cart and customer come from the
// stored snapshot, never from the webhook payload.
func (s *Service) ProcessPaymentSucceeded(ctx context.Context, paymentID string) error {
	ord, items, err := s.store.GetByPaymentID(ctx, paymentID)
	if errors.Is(err, ErrNotFound) {
		s.logger.InfoContext(ctx, "webhook for unknown payment, ignoring", "payment_id", paymentID)
		return nil
	}
	if err != nil {
		return err
	}
	if ord.SupplierResponse != nil {
		return nil
	}

	_, err = s.process(ctx, ord, items)
	if errors.Is(err, ErrInProgress) {
		// a concurrent confirm call owns the dispatch
		return nil
	}
	return err
}

// Get returns the stored order and its snapshot.
func (s *Service) Get(ctx context.Context, paymentID string) (Order, []OrderItem, error) {
	return s.store.GetByPaymentID(ctx, paymentID)
}

// process is the dispatch-once core shared by confirmation and webhook. The
// claim transition guarantees a single winner; the winner dispatches,
// notifies and records the terminal status.
func (s *Service) process(ctx context.Context, ord Order, items []OrderItem) (ConfirmResult, error) {
	claimed, err := s.store.Claim(ctx, ord.PaymentID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("claim order: %w", err)
	}
	if !claimed {
		ord2, _, err := s.store.GetByPaymentID(ctx, ord.PaymentID)
		if err != nil {
			return ConfirmResult{}, err
		}
		if ord2.SupplierResponse != nil {
			return ConfirmResult{
				Order:            ord2,
				SupplierResponse: decodeResult(ord2.SupplierResponse),
				AlreadyProcessed: true,
			}, nil
		}
		return ConfirmResult{}, ErrInProgress
	}

	res, derr := s.dispatcher.Submit(ctx, ord, items)
	if derr != nil {
		res = SupplierResult{Success: false, Method: res.Method, Error: derr.Error()}
	}

	status := StatusProcessed
	if !res.Success {
		status = StatusFailed
		s.logger.ErrorContext(ctx, "supplier dispatch failed",
			"payment_id", ord.PaymentID, "order_id", ord.ID, "method", res.Method, "error", res.Error)
	} else {
		s.logger.InfoContext(ctx, "supplier dispatch succeeded",
			"payment_id", ord.PaymentID, "order_id", ord.ID, "method", res.Method)
	}

	if err := s.notifier.SendConfirmation(ctx, ord, items); err != nil {
		// logged only; never alters order status
		s.logger.ErrorContext(ctx, "confirmation email failed",
			"payment_id", ord.PaymentID, "order_id", ord.ID, "err", err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("encode supplier response: %w", err)
	}
	if err := s.store.MarkTerminal(ctx, ord.PaymentID, raw, status); err != nil {
		// The row stays claimed. A stuck claim needs operator attention, but
		// releasing it here could double-dispatch an order whose supplier call
		// already went out.
		s.logger.ErrorContext(ctx, "failed to record terminal status",
			"payment_id", ord.PaymentID, "order_id", ord.ID, "err", err)
		return ConfirmResult{}, fmt.Errorf("mark terminal: %w", err)
	}

	now := time.Now()
	ord.Status = status
	ord.SupplierResponse = raw
	ord.ProcessedAt = &now
	return ConfirmResult{Order: ord, SupplierResponse: res}, nil
}

func decodeResult(raw []byte) SupplierResult {
	var res SupplierResult
	_ = json.Unmarshal(raw, &res)
	return res
}

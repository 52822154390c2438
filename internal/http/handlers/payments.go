package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charles588/dropship/internal/http/middleware"
	"github.com/charles588/dropship/internal/http/validation"
	"github.com/charles588/dropship/internal/modules/orders"
	"github.com/charles588/dropship/internal/modules/payments"
	"github.com/charles588/dropship/internal/modules/rates"
	"github.com/charles588/dropship/internal/shared/apperr"
	"github.com/charles588/dropship/internal/shared/money"
)

type PaymentsHandler struct {
	Logger       *slog.Logger
	Engine       *orders.Service
	Gateway      payments.Gateway
	Rates        rates.Converter
	BaseCurrency string
	BaseURL      string
}

func NewPaymentsHandler(logger *slog.Logger, engine *orders.Service, gw payments.Gateway, conv rates.Converter, baseCurrency, baseURL string) *PaymentsHandler {
	return &PaymentsHandler{
		Logger:       logger,
		Engine:       engine,
		Gateway:      gw,
		Rates:        conv,
		BaseCurrency: baseCurrency,
		BaseURL:      baseURL,
	}
}

type createIntentInput struct {
	Items    []cartItemInput `json:"cart_items" binding:"required,min=1,dive"`
	Customer customerInput   `json:"customer" binding:"required"`
	Currency string          `json:"currency" binding:"omitempty,len=3"`
}

// POST /api/payments/intent
// Computes totals, converts currency when the cart asks for one other than
// the base, opens the charge with the gateway and records the draft order.
func (h *PaymentsHandler) CreateIntent(c *gin.Context) {
	var in createIntentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	lines, err := toCartLines(in.Items)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr(err.Error(), nil))
		return
	}

	total, share, profit, err := orders.ComputeTotals(lines)
	if err != nil {
		middleware.Fail(c, cartError(err))
		return
	}

	ctx := c.Request.Context()
	chargeCurrency := h.BaseCurrency
	chargeCents := total
	if cur := strings.ToUpper(in.Currency); cur != "" && cur != h.BaseCurrency {
		rate, err := h.Rates.GetRate(ctx, h.BaseCurrency, cur)
		if err != nil {
			if errors.Is(err, rates.ErrRateUnavailable) {
				middleware.Fail(c, apperr.UnavailableErr("Currency conversion is unavailable.", err))
				return
			}
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
		chargeCurrency = cur
		chargeCents = money.ConvertMinorUnits(total, rate)
	}

	resp, err := h.Gateway.CreateCharge(ctx, payments.ChargeRequest{
		AmountCents:   chargeCents,
		Currency:      chargeCurrency,
		CustomerName:  in.Customer.Name,
		CustomerEmail: in.Customer.Email,
		Reference:     "ds_" + uuid.NewString(),
		CallbackURL:   h.BaseURL + "/checkout/complete",
	})
	if err != nil {
		h.Logger.ErrorContext(ctx, "gateway charge creation failed",
			"provider", h.Gateway.Name(), "err", err)
		middleware.Fail(c, apperr.UnavailableErr("Payment could not be initiated.", err))
		return
	}

	if _, err := h.Engine.CreateDraft(ctx, orders.Draft{
		PaymentID:      resp.ID,
		Provider:       h.Gateway.Name(),
		Customer:       in.Customer.toCustomer(),
		Lines:          lines,
		Currency:       h.BaseCurrency,
		ChargeCurrency: chargeCurrency,
		ChargeCents:    chargeCents,
	}); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":           resp.ID,
		"client_auth":          resp.ClientAuth,
		"total_cents":          total,
		"supplier_share_cents": share,
		"profit_cents":         profit,
		"currency":             h.BaseCurrency,
		"charge_cents":         chargeCents,
		"charge_currency":      chargeCurrency,
	})
}

func cartError(err error) error {
	switch {
	case errors.Is(err, orders.ErrCartEmpty):
		return apperr.InvalidErr("Cart is empty.", nil)
	case errors.Is(err, orders.ErrInvalidLine):
		return apperr.InvalidErr("Cart contains an invalid line.", nil)
	case errors.Is(err, orders.ErrNegativeProfit):
		return apperr.InvalidErr("Cart total is below supplier cost.", nil)
	default:
		return apperr.Wrap(err)
	}
}

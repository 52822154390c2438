package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charles588/dropship/internal/http/middleware"
	"github.com/charles588/dropship/internal/http/validation"
	"github.com/charles588/dropship/internal/modules/orders"
	"github.com/charles588/dropship/internal/shared/apperr"
)

type OrdersHandler struct {
	Logger       *slog.Logger
	Engine       *orders.Service
	Provider     string
	BaseCurrency string
}

func NewOrdersHandler(logger *slog.Logger, engine *orders.Service, provider, baseCurrency string) *OrdersHandler {
	return &OrdersHandler{Logger: logger, Engine: engine, Provider: provider, BaseCurrency: baseCurrency}
}

type confirmInput struct {
	PaymentID string          `json:"payment_id" binding:"required,max=128"`
	Items     []cartItemInput `json:"cart_items" binding:"required,min=1,dive"`
	Customer  customerInput   `json:"customer" binding:"required"`
}

// POST /api/orders/confirm
// The client claims the payment went through; the engine verifies with the
// gateway before anything else happens.
func (h *OrdersHandler) Confirm(c *gin.Context) {
	var in confirmInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	lines, err := toCartLines(in.Items)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr(err.Error(), nil))
		return
	}

	res, err := h.Engine.Confirm(c.Request.Context(), orders.Draft{
		PaymentID: in.PaymentID,
		Provider:  h.Provider,
		Customer:  in.Customer.toCustomer(),
		Lines:     lines,
		Currency:  h.BaseCurrency,
	})
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrPaymentNotConfirmed):
			middleware.Fail(c, apperr.ConflictErr("Payment has not been confirmed by the provider."))
		case errors.Is(err, orders.ErrInProgress):
			middleware.Fail(c, apperr.ConflictErr("Order is already being processed."))
		case errors.Is(err, orders.ErrCartEmpty), errors.Is(err, orders.ErrInvalidLine), errors.Is(err, orders.ErrNegativeProfit):
			middleware.Fail(c, cartError(err))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           res.SupplierResponse.Success,
		"status":            res.Order.Status,
		"already_processed": res.AlreadyProcessed,
		"supplier_response": res.SupplierResponse,
	})
}

// GET /api/orders/:paymentID
func (h *OrdersHandler) Get(c *gin.Context) {
	paymentID := c.Param("paymentID")

	ord, items, err := h.Engine.Get(c.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, orderJSON(ord, items))
}

func orderJSON(o orders.Order, items []orders.OrderItem) gin.H {
	lines := make([]gin.H, len(items))
	for i, it := range items {
		lines[i] = gin.H{
			"product_id":          it.ProductID,
			"title":               it.Title,
			"supplier_sku":        it.SupplierSKU,
			"unit_price_cents":    it.UnitPriceCents,
			"supplier_cost_cents": it.SupplierCostCents,
			"quantity":            it.Quantity,
		}
	}

	out := gin.H{
		"order_id":             o.ID,
		"payment_id":           o.PaymentID,
		"provider":             o.Provider,
		"status":               o.Status,
		"customer_name":        o.CustomerName,
		"customer_email":       o.CustomerEmail,
		"currency":             o.Currency,
		"total_cents":          o.TotalCents,
		"supplier_share_cents": o.SupplierCents,
		"profit_cents":         o.ProfitCents,
		"charge_currency":      o.ChargeCurrency,
		"charge_cents":         o.ChargeCents,
		"cart_items":           lines,
		"created_at":           o.CreatedAt,
		"processed_at":         o.ProcessedAt,
	}
	if o.SupplierResponse != nil {
		out["supplier_response"] = json.RawMessage(o.SupplierResponse)
	}
	return out
}

package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/charles588/dropship/internal/modules/orders"
)

type APIDispatcher struct {
	url    string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

func NewAPIDispatcher(url, apiKey string, logger *slog.Logger) *APIDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIDispatcher{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type apiOrderLine struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku,omitempty"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	CostCents int64  `json:"cost_cents"`
}

type apiOrder struct {
	Reference       string         `json:"reference"` // payment id, supplier-side dedupe key
	CustomerName    string         `json:"customer_name"`
	CustomerEmail   string         `json:"customer_email"`
	ShippingAddress string         `json:"shipping_address,omitempty"`
	Lines           []apiOrderLine `json:"lines"`
}

func (d *APIDispatcher) Submit(ctx context.Context, o orders.Order, items []orders.OrderItem) (orders.SupplierResult, error) {
	payload := apiOrder{
		Reference:     o.PaymentID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
	}
	if o.ShippingAddress != nil {
		payload.ShippingAddress = *o.ShippingAddress
	}
	for _, it := range items {
		payload.Lines = append(payload.Lines, apiOrderLine{
			ProductID: it.ProductID,
			SKU:       it.SupplierSKU,
			Title:     it.Title,
			Quantity:  it.Quantity,
			CostCents: it.SupplierCostCents,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return orders.SupplierResult{Method: "api"}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return orders.SupplierResult{Method: "api"}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return orders.SupplierResult{Method: "api"}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.ErrorContext(ctx, "supplier api rejected order",
			"payment_id", o.PaymentID, "status", resp.StatusCode)
		return orders.SupplierResult{
			Method: "api",
			Error:  "supplier api status " + resp.Status,
		}, nil
	}

	data := respBody
	if !json.Valid(data) {
		quoted, _ := json.Marshal(string(respBody))
		data = quoted
	}
	return orders.SupplierResult{Success: true, Method: "api", Data: data}, nil
}

package supplier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles588/dropship/internal/config"
	"github.com/charles588/dropship/internal/mailer"
	"github.com/charles588/dropship/internal/modules/orders"
)

func testOrder() (orders.Order, []orders.OrderItem) {
	o := orders.Order{
		ID:            "ord-1",
		PaymentID:     "pi_1",
		CustomerName:  "Ada Obi",
		CustomerEmail: "ada@example.com",
		Currency:      "USD",
		TotalCents:    3998,
		SupplierCents: 1600,
		ProfitCents:   2398,
	}
	items := []orders.OrderItem{
		{OrderID: "ord-1", ProductID: "p1", Title: "Wireless Earbuds", SupplierSKU: "WE-01", UnitPriceCents: 1999, SupplierCostCents: 800, Quantity: 2},
	}
	return o, items
}

func TestAPIDispatcherSubmit(t *testing.T) {
	var got apiOrder
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-supplier", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"supplier_order_id":"SUP-42"}`))
	}))
	defer srv.Close()

	d := NewAPIDispatcher(srv.URL, "sk-supplier", nil)
	o, items := testOrder()
	res, err := d.Submit(context.Background(), o, items)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "api", res.Method)
	assert.JSONEq(t, `{"supplier_order_id":"SUP-42"}`, string(res.Data))
	assert.Equal(t, "pi_1", got.Reference)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, "WE-01", got.Lines[0].SKU)
}

func TestAPIDispatcherNon2xxIsFailedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	d := NewAPIDispatcher(srv.URL, "", nil)
	o, items := testOrder()
	res, err := d.Submit(context.Background(), o, items)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "422")
}

func TestEmailDispatcherSubmit(t *testing.T) {
	mock := &mailer.Mock{}
	d := NewEmailDispatcher(mock, "orders@shop.test", "Shop", "orders@supplier.test", nil)

	o, items := testOrder()
	res, err := d.Submit(context.Background(), o, items)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "email", res.Method)
	require.Len(t, mock.Sent, 1)
	assert.Equal(t, []string{"orders@supplier.test"}, mock.Sent[0].To)
	assert.Contains(t, mock.Sent[0].TextBody, "2x Wireless Earbuds")
	assert.Contains(t, mock.Sent[0].TextBody, "SKU WE-01")
}

func TestFromConfigPrefersAPI(t *testing.T) {
	d := FromConfig(config.SupplierConfig{APIURL: "http://supplier.test", APIKey: "k"}, &mailer.Mock{}, "a@b", "Shop", nil)
	_, ok := d.(*APIDispatcher)
	assert.True(t, ok)

	d = FromConfig(config.SupplierConfig{OrderEmail: "x@y"}, &mailer.Mock{}, "a@b", "Shop", nil)
	_, ok = d.(*EmailDispatcher)
	assert.True(t, ok)
}

package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles588/dropship/internal/mailer"
	"github.com/charles588/dropship/internal/modules/orders"
)

func TestSendConfirmation(t *testing.T) {
	mock := &mailer.Mock{}
	c := NewConfirmation(mock, "orders@shop.test", "Dropship Store")

	o := orders.Order{
		ID:             "0b1e2d3c-4f5a-6789-abcd-ef0123456789",
		PaymentID:      "pi_1",
		CustomerName:   "Ada Obi",
		CustomerEmail:  "ada@example.com",
		Currency:       "USD",
		ChargeCurrency: "NGN",
		ChargeCents:    5_997_000,
	}
	items := []orders.OrderItem{
		{Title: "Wireless Earbuds", UnitPriceCents: 1999, Quantity: 2},
	}

	require.NoError(t, c.SendConfirmation(context.Background(), o, items))
	require.Len(t, mock.Sent, 1)

	sent := mock.Sent[0]
	assert.Equal(t, []string{"ada@example.com"}, sent.To)
	assert.Contains(t, sent.Subject, "0b1e2d3c")
	assert.Contains(t, sent.TextBody, "2x Wireless Earbuds")
	assert.Contains(t, sent.TextBody, "₦59970.00")
	assert.Contains(t, sent.HTMLBody, "pi_1")
}

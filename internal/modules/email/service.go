package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/charles588/dropship/internal/mailer"
	"github.com/charles588/dropship/internal/modules/orders"
	"github.com/charles588/dropship/internal/shared/money"
)

// Confirmation sends the customer order-confirmation email. Implements
// orders.Notifier; failures are the caller's to log, never to propagate.
type Confirmation struct {
	mail     mailer.Service
	from     string
	fromName string
}

func NewConfirmation(mail mailer.Service, from, fromName string) *Confirmation {
	return &Confirmation{mail: mail, from: from, fromName: fromName}
}

func (c *Confirmation) SendConfirmation(ctx context.Context, o orders.Order, items []orders.OrderItem) error {
	subject := fmt.Sprintf("Order confirmation #%s", shortID(o.ID))
	total := money.Format(o.ChargeCurrency, o.ChargeCents)

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nThanks for your order! Here is what you bought:\n\n", o.CustomerName)
	for _, it := range items {
		fmt.Fprintf(&text, "  %dx %s - %s\n", it.Quantity, it.Title, money.Format(o.Currency, it.UnitPriceCents*int64(it.Quantity)))
	}
	fmt.Fprintf(&text, "\nTotal charged: %s\nOrder reference: %s\n\nWe'll let you know when it ships.\n", total, o.PaymentID)

	var rows strings.Builder
	for _, it := range items {
		fmt.Fprintf(&rows, "<tr><td>%dx %s</td><td align=\"right\">%s</td></tr>",
			it.Quantity, html.EscapeString(it.Title),
			money.Format(o.Currency, it.UnitPriceCents*int64(it.Quantity)))
	}
	htmlBody := fmt.Sprintf(`
<html>
  <body style="font-family: sans-serif;">
    <h2>Thanks for your order!</h2>
    <p>Hi %s,</p>
    <table width="100%%" cellpadding="4">%s</table>
    <p><strong>Total charged:</strong> %s</p>
    <p><strong>Order reference:</strong> %s</p>
    <p>We'll let you know when it ships.</p>
  </body>
</html>
`, html.EscapeString(o.CustomerName), rows.String(), total, html.EscapeString(o.PaymentID))

	return c.mail.Send(ctx, mailer.Email{
		FromName: c.fromName,
		From:     c.from,
		To:       []string{o.CustomerEmail},
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: htmlBody,
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

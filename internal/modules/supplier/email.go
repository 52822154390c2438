package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charles588/dropship/internal/mailer"
	"github.com/charles588/dropship/internal/modules/orders"
	"github.com/charles588/dropship/internal/shared/money"
)

// EmailDispatcher sends the supplier a plain-text order sheet. Used when no
// supplier API is configured.
type EmailDispatcher struct {
	mail     mailer.Service
	from     string
	fromName string
	to       string
	logger   *slog.Logger
}

func NewEmailDispatcher(mail mailer.Service, from, fromName, to string, logger *slog.Logger) *EmailDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailDispatcher{mail: mail, from: from, fromName: fromName, to: to, logger: logger}
}

func (d *EmailDispatcher) Submit(ctx context.Context, o orders.Order, items []orders.OrderItem) (orders.SupplierResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s (ref %s)\n\n", o.ID, o.PaymentID)
	fmt.Fprintf(&b, "Customer: %s <%s>\n", o.CustomerName, o.CustomerEmail)
	if o.ShippingAddress != nil {
		fmt.Fprintf(&b, "Ship to: %s\n", *o.ShippingAddress)
	}
	b.WriteString("\nItems:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "  %dx %s", it.Quantity, it.Title)
		if it.SupplierSKU != "" {
			fmt.Fprintf(&b, " [SKU %s]", it.SupplierSKU)
		}
		fmt.Fprintf(&b, " @ %s\n", money.Format(o.Currency, it.SupplierCostCents))
	}
	fmt.Fprintf(&b, "\nSupplier total: %s\n", money.Format(o.Currency, o.SupplierCents))

	err := d.mail.Send(ctx, mailer.Email{
		FromName: d.fromName,
		From:     d.from,
		To:       []string{d.to},
		Subject:  fmt.Sprintf("New order %s", o.PaymentID),
		TextBody: b.String(),
	})
	if err != nil {
		return orders.SupplierResult{Method: "email"}, err
	}

	data, _ := json.Marshal(map[string]string{"sent_to": d.to})
	return orders.SupplierResult{Success: true, Method: "email", Data: data}, nil
}

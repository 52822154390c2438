// Package supplier forwards confirmed orders to the fulfillment source.
// The strategy (API vs. email) is fixed once at configuration time; the
// engine never re-evaluates it per call.
package supplier

import (
	"log/slog"

	"github.com/charles588/dropship/internal/config"
	"github.com/charles588/dropship/internal/mailer"
	"github.com/charles588/dropship/internal/modules/orders"
)

// FromConfig picks the dispatch strategy: the supplier API when a URL is
// configured, otherwise a human-readable order email.
func FromConfig(cfg config.SupplierConfig, mail mailer.Service, from, fromName string, logger *slog.Logger) orders.SupplierDispatcher {
	if cfg.APIURL != "" {
		return NewAPIDispatcher(cfg.APIURL, cfg.APIKey, logger)
	}
	return NewEmailDispatcher(mail, from, fromName, cfg.OrderEmail, logger)
}

package payments

import (
	"fmt"

	"github.com/charles588/dropship/internal/config"
)

// FromConfig builds the configured gateway. One provider per deployment;
// the choice is made once at startup.
func FromConfig(cfg config.Config) (Gateway, error) {
	switch cfg.PaymentProvider {
	case "stripe":
		if cfg.Stripe.SecretKey == "" {
			return nil, fmt.Errorf("payments: STRIPE_SECRET_KEY is required")
		}
		return NewStripe(cfg.Stripe), nil
	case "paystack":
		if cfg.Paystack.SecretKey == "" {
			return nil, fmt.Errorf("payments: PAYSTACK_SECRET_KEY is required")
		}
		return NewPaystack(cfg.Paystack), nil
	case "opay":
		if cfg.OPay.PublicKey == "" || cfg.OPay.MerchantID == "" {
			return nil, fmt.Errorf("payments: OPAY_PUBLIC_KEY and OPAY_MERCHANT_ID are required")
		}
		return NewOPay(cfg.OPay), nil
	default:
		return nil, fmt.Errorf("payments: unknown provider %q", cfg.PaymentProvider)
	}
}

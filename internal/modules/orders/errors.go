package orders

import "errors"

var (
	ErrCartEmpty           = errors.New("cart is empty")
	ErrInvalidLine         = errors.New("invalid cart line")
	ErrNegativeProfit      = errors.New("supplier cost exceeds cart total")
	ErrNotFound            = errors.New("order not found")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed by gateway")
	ErrInProgress          = errors.New("order is being processed")
)

package orders

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Order status values. "claimed" is the transition marker that makes the
// dispatch-once check atomic: only the caller whose conditional update moves
// pending to claimed may contact the supplier.
const (
	StatusPending   = "pending"
	StatusClaimed   = "claimed"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Order is one row per payment attempt. PaymentID is the gateway's
// charge/session reference and the idempotency key for every downstream
// effect; the unique index is the only concurrency-safety mechanism for
// draft creation.
type Order struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	PaymentID string `gorm:"type:varchar(128);not null;uniqueIndex:ux_orders_payment_id"`
	Provider  string `gorm:"type:varchar(32);not null"`
	Status    string `gorm:"type:varchar(16);not null"`

	CustomerName    string  `gorm:"type:varchar(200);not null"`
	CustomerEmail   string  `gorm:"type:varchar(255);not null"`
	ShippingAddress *string `gorm:"type:varchar(500)"`

	// Totals in the store's base currency. Profit is stored denormalized but
	// always equals TotalCents - SupplierCents.
	Currency      string `gorm:"type:char(3);not null"`
	TotalCents    int64  `gorm:"not null"`
	SupplierCents int64  `gorm:"not null"`
	ProfitCents   int64  `gorm:"not null"`

	// What the gateway actually charged, possibly after FX conversion.
	ChargeCurrency string `gorm:"type:char(3);not null"`
	ChargeCents    int64  `gorm:"not null"`

	// Non-null means the supplier dispatch side effect happened; the order
	// must never be dispatched again.
	SupplierResponse datatypes.JSON `gorm:"type:json"`

	CreatedAt   time.Time  `gorm:"type:datetime(3);not null"`
	UpdatedAt   time.Time  `gorm:"type:datetime(3);not null"`
	ProcessedAt *time.Time `gorm:"type:datetime(3)"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is the immutable cart snapshot taken at draft time. Unit price
// and supplier cost are copied by value so later catalog edits cannot change
// a placed order.
type OrderItem struct {
	ID                string    `gorm:"type:char(36);primaryKey"`
	OrderID           string    `gorm:"type:char(36);not null;index:ix_order_items_order_id"`
	ProductID         string    `gorm:"type:char(36);not null"`
	Title             string    `gorm:"type:varchar(255);not null"`
	SupplierSKU       string    `gorm:"type:varchar(64)"`
	UnitPriceCents    int64     `gorm:"not null"`
	SupplierCostCents int64     `gorm:"not null"`
	Quantity          int       `gorm:"not null"`
	CreatedAt         time.Time `gorm:"type:datetime(3);not null"`
}

func (OrderItem) TableName() string { return "order_items" }

type Customer struct {
	Name    string
	Email   string
	Address *string
}

// SupplierResult is the opaque outcome of one supplier dispatch, persisted
// verbatim in Order.SupplierResponse.
type SupplierResult struct {
	Success bool            `json:"success"`
	Method  string          `json:"method"` // api | email
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

package handlers

import (
	"github.com/charles588/dropship/internal/modules/orders"
	"github.com/charles588/dropship/internal/shared/money"
)

// Monetary fields carry an explicit unit tag; the old "big integer means
// minor units" guess only applies to untagged values and is not accepted
// on the API surface.
type cartItemInput struct {
	ProductID    string  `json:"product_id" binding:"required,max=64"`
	Title        string  `json:"title" binding:"required,max=255"`
	SupplierSKU  string  `json:"supplier_sku" binding:"omitempty,max=64"`
	UnitPrice    float64 `json:"unit_price" binding:"required"`
	SupplierCost float64 `json:"supplier_cost" binding:"gte=0"`
	Unit         string  `json:"unit" binding:"required,oneof=minor major"`
	Quantity     int     `json:"quantity" binding:"required,min=1"`
}

type customerInput struct {
	Name    string  `json:"name" binding:"required,min=2,max=200"`
	Email   string  `json:"email" binding:"required,email,max=255"`
	Address *string `json:"address" binding:"omitempty,max=500"`
}

func (c customerInput) toCustomer() orders.Customer {
	return orders.Customer{Name: c.Name, Email: c.Email, Address: c.Address}
}

func toCartLines(items []cartItemInput) ([]orders.CartLine, error) {
	lines := make([]orders.CartLine, len(items))
	for i, it := range items {
		price, err := money.FromTagged(it.UnitPrice, it.Unit)
		if err != nil {
			return nil, err
		}
		cost, err := money.FromTagged(it.SupplierCost, it.Unit)
		if err != nil {
			return nil, err
		}
		lines[i] = orders.CartLine{
			ProductID:         it.ProductID,
			Title:             it.Title,
			SupplierSKU:       it.SupplierSKU,
			UnitPriceCents:    price,
			SupplierCostCents: cost,
			Quantity:          it.Quantity,
		}
	}
	return lines, nil
}

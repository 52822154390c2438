package products

import "time"

// Product is a catalog entry. Orders copy price and supplier cost by value
// at draft time, so edits here never touch placed orders.
type Product struct {
	ID                string    `gorm:"type:char(36);primaryKey"`
	Title             string    `gorm:"type:varchar(255);not null"`
	PriceCents        int64     `gorm:"not null"`
	SupplierCostCents int64     `gorm:"not null"`
	SupplierSKU       string    `gorm:"type:varchar(64)"`
	ImageKey          string    `gorm:"type:varchar(255)"`
	ImageURL          string    `gorm:"type:varchar(1024)"`
	CreatedAt         time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt         time.Time `gorm:"type:datetime(3);not null"`
}

func (Product) TableName() string { return "products" }

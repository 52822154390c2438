package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// One statement per table. Each is Exec'd on its own so the tool works
// without the multiStatements DSN flag.
var ddlStatements = map[string]string{
	"products": `
	CREATE TABLE IF NOT EXISTS products (
	  id CHAR(36) NOT NULL,
	  title VARCHAR(255) NOT NULL,
	  price_cents BIGINT NOT NULL,
	  supplier_cost_cents BIGINT NOT NULL,
	  supplier_sku VARCHAR(64) NULL,
	  image_key VARCHAR(255) NULL,
	  image_url VARCHAR(1024) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	"orders": `
	CREATE TABLE IF NOT EXISTS orders (
	  id CHAR(36) NOT NULL,
	  payment_id VARCHAR(128) NOT NULL,
	  provider VARCHAR(32) NOT NULL,
	  status VARCHAR(16) NOT NULL,
	  customer_name VARCHAR(200) NOT NULL,
	  customer_email VARCHAR(255) NOT NULL,
	  shipping_address VARCHAR(500) NULL,
	  currency CHAR(3) NOT NULL,
	  total_cents BIGINT NOT NULL,
	  supplier_cents BIGINT NOT NULL,
	  profit_cents BIGINT NOT NULL,
	  charge_currency CHAR(3) NOT NULL,
	  charge_cents BIGINT NOT NULL,
	  supplier_response JSON NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  processed_at DATETIME(3) NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_orders_payment_id (payment_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	"order_items": `
	CREATE TABLE IF NOT EXISTS order_items (
	  id CHAR(36) NOT NULL,
	  order_id CHAR(36) NOT NULL,
	  product_id CHAR(36) NOT NULL,
	  title VARCHAR(255) NOT NULL,
	  supplier_sku VARCHAR(64) NULL,
	  unit_price_cents BIGINT NOT NULL,
	  supplier_cost_cents BIGINT NOT NULL,
	  quantity INT NOT NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_order_items_order_id (order_id),
	  CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	"provider_events": `
	CREATE TABLE IF NOT EXISTS provider_events (
	  id CHAR(36) NOT NULL,
	  provider VARCHAR(32) NOT NULL,
	  event_id VARCHAR(191) NOT NULL,
	  event_type VARCHAR(64) NOT NULL,
	  payload_json JSON NOT NULL,
	  received_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  processed_at DATETIME(3) NULL,
	  process_error VARCHAR(255) NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_provider_events_provider_event (provider, event_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// order_items references orders, so creation order matters
var tableOrder = []string{"products", "orders", "order_items", "provider_events"}

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	for _, name := range tableOrder {
		if _, err := sqlDB.Exec(ddlStatements[name]); err != nil {
			log.Fatalf("Failed to create %s table: %v", name, err)
		}
		log.Printf("✓ %s table created successfully", name)
	}
}

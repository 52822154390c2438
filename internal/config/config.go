package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type SMTPConfig struct {
	Host          string
	Port          string
	User          string
	Pass          string
	TLSMode       string // "", "tls", "starttls"
	SkipVerifyTLS bool
}

type DBConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type PaystackConfig struct {
	SecretKey string
}

type OPayConfig struct {
	PublicKey  string
	PrivateKey string
	MerchantID string
}

type SupplierConfig struct {
	APIURL string
	APIKey string
	// Fallback when no API is configured: orders go out as email.
	OrderEmail string
}

type RatesConfig struct {
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
}

type Config struct {
	Addr         string
	BaseURL      string
	BaseCurrency string

	// stripe | paystack | opay
	PaymentProvider string

	MailFrom     string
	MailFromName string

	DB       DBConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Stripe   StripeConfig
	Paystack PaystackConfig
	OPay     OPayConfig
	Supplier SupplierConfig
	Rates    RatesConfig
}

// Load reads the full configuration from the environment. godotenv is loaded
// by main before this runs; here we only see plain env vars.
func Load() (Config, error) {
	cfg := Config{
		Addr:            envOr("ADDR", ":8080"),
		BaseURL:         envOr("BASE_URL", "http://localhost:8080"),
		BaseCurrency:    envOr("BASE_CURRENCY", "USD"),
		PaymentProvider: envOr("PAYMENT_PROVIDER", "stripe"),
		MailFrom:        envOr("MAIL_FROM", "orders@localhost"),
		MailFromName:    envOr("MAIL_FROM_NAME", "Dropship Store"),
		DB: DBConfig{
			DSN: os.Getenv("DB_DSN"),
		},
		// Redis is optional; without an addr the FX cache layer is skipped.
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host:          envOr("SMTP_HOST", "localhost"),
			Port:          envOr("SMTP_PORT", "1025"),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			TLSMode:       os.Getenv("SMTP_TLS_MODE"),
			SkipVerifyTLS: envBool("SMTP_SKIP_VERIFY_TLS", false),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		Paystack: PaystackConfig{
			SecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		},
		OPay: OPayConfig{
			PublicKey:  os.Getenv("OPAY_PUBLIC_KEY"),
			PrivateKey: os.Getenv("OPAY_PRIVATE_KEY"),
			MerchantID: os.Getenv("OPAY_MERCHANT_ID"),
		},
		Supplier: SupplierConfig{
			APIURL:     os.Getenv("SUPPLIER_API_URL"),
			APIKey:     os.Getenv("SUPPLIER_API_KEY"),
			OrderEmail: os.Getenv("SUPPLIER_ORDER_EMAIL"),
		},
		Rates: RatesConfig{
			APIKey:   os.Getenv("EXCHANGE_RATE_API_KEY"),
			BaseURL:  envOr("EXCHANGE_RATE_BASE_URL", "https://v6.exchangerate-api.com/v6"),
			CacheTTL: envDuration("EXCHANGE_RATE_CACHE_TTL", 10*time.Minute),
		},
	}

	if cfg.DB.DSN == "" {
		return Config{}, fmt.Errorf("config: DB_DSN is required")
	}
	switch cfg.PaymentProvider {
	case "stripe", "paystack", "opay":
	default:
		return Config{}, fmt.Errorf("config: unknown PAYMENT_PROVIDER %q", cfg.PaymentProvider)
	}
	if cfg.Supplier.APIURL == "" && cfg.Supplier.OrderEmail == "" {
		return Config{}, fmt.Errorf("config: SUPPLIER_API_URL or SUPPLIER_ORDER_EMAIL is required")
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

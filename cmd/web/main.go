package main

import (
	"context"
	"log"
	"os"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/charles588/dropship/internal/config"
	apphttp "github.com/charles588/dropship/internal/http"
	"github.com/charles588/dropship/internal/mailer"
	"github.com/charles588/dropship/internal/modules/email"
	"github.com/charles588/dropship/internal/modules/orders"
	"github.com/charles588/dropship/internal/modules/payments"
	"github.com/charles588/dropship/internal/modules/products"
	"github.com/charles588/dropship/internal/modules/rates"
	"github.com/charles588/dropship/internal/modules/supplier"
	"github.com/charles588/dropship/internal/storage"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			log.Fatalf("database not reachable: %v", err)
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	gateway, err := payments.FromConfig(cfg)
	if err != nil {
		log.Fatalf("payment gateway: %v", err)
	}

	mail := mailer.NewSMTPMailer(cfg.SMTP)
	dispatcher := supplier.FromConfig(cfg.Supplier, mail, cfg.MailFrom, cfg.MailFromName, logger)
	notifier := email.NewConfirmation(mail, cfg.MailFrom, cfg.MailFromName)

	engine := orders.NewService(orders.NewRepo(db), gateway, dispatcher, notifier, logger)
	webhooks := payments.NewWebhookService(db, engine, logger)

	var conv rates.Converter = rates.NewAPIConverter(cfg.Rates)
	if rdb != nil {
		conv = rates.NewCachedConverter(rdb, conv, cfg.Rates.CacheTTL, logger)
	}

	files, err := storage.FromEnv(context.Background())
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	logger.Info("storage ready", "driver", files.Driver)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:   logger,
		Cfg:      cfg,
		DB:       db,
		Redis:    rdb,
		Engine:   engine,
		Gateway:  gateway,
		Webhooks: webhooks,
		Rates:    conv,
		Products: products.NewRepo(db),
		Files:    files,
	})

	logger.Info("listening", "addr", cfg.Addr, "provider", gateway.Name())
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

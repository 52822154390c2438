package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/charles588/dropship/internal/config"
	"github.com/charles588/dropship/internal/http/handlers"
	"github.com/charles588/dropship/internal/http/middleware"
	"github.com/charles588/dropship/internal/modules/orders"
	"github.com/charles588/dropship/internal/modules/payments"
	"github.com/charles588/dropship/internal/modules/products"
	"github.com/charles588/dropship/internal/modules/rates"
	"github.com/charles588/dropship/internal/storage"
)

type Deps struct {
	Logger   *slog.Logger
	Cfg      config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Engine   *orders.Service
	Gateway  payments.Gateway
	Webhooks *payments.WebhookService
	Rates    rates.Converter
	Products *products.Repo
	Files    storage.FactoryResult
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	// ErrorHandler sits outside Recovery so a recovered panic still gets a
	// JSON error response on the way back out.
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.ErrorHandler(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Metrics())

	pay := handlers.NewPaymentsHandler(d.Logger, d.Engine, d.Gateway, d.Rates, d.Cfg.BaseCurrency, d.Cfg.BaseURL)
	ord := handlers.NewOrdersHandler(d.Logger, d.Engine, d.Gateway.Name(), d.Cfg.BaseCurrency)
	hook := handlers.NewWebhookHandler(d.Logger, d.Gateway, d.Webhooks)
	prod := handlers.NewProductsHandler(d.Logger, d.Products, d.Files.Storage)
	health := handlers.NewHealthHandler(d.Logger, d.DB, d.Redis)

	api := r.Group("/api")
	{
		api.POST("/payments/intent", pay.CreateIntent)
		api.POST("/orders/confirm", ord.Confirm)
		api.GET("/orders/:paymentID", ord.Get)

		admin := api.Group("/admin")
		{
			admin.GET("/products", prod.List)
			admin.POST("/products", prod.Create)
			admin.GET("/products/:id", prod.Get)
			admin.PUT("/products/:id", prod.Update)
			admin.POST("/products/:id/image", prod.UploadImage)
			admin.DELETE("/products/:id", prod.Delete)
		}
	}

	r.POST("/webhooks/:provider", hook.Receive)

	r.GET("/healthz", health.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Uploaded images are only served by this process on the local driver;
	// with s3 the public base URL points at the bucket.
	if local, ok := d.Files.Storage.(*storage.Local); ok {
		r.Static(local.URLPrefix, local.BaseDir)
	}

	return r
}

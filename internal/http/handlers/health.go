package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthHandler struct {
	Logger *slog.Logger
	DB     *gorm.DB
	Redis  *redis.Client
}

func NewHealthHandler(logger *slog.Logger, db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{Logger: logger, DB: db, Redis: rdb}
}

// GET /healthz
//
// Reports each dependency separately. Redis only backs the FX cache, so a
// redis outage degrades the response but does not fail the check.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	deps := gin.H{"db": "ok", "redis": "ok"}

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		h.Logger.ErrorContext(ctx, "health: db ping failed", "err", err)
		deps["db"] = "down"
		status = http.StatusServiceUnavailable
	}

	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			h.Logger.WarnContext(ctx, "health: redis ping failed", "err", err)
			deps["redis"] = "down"
		}
	} else {
		deps["redis"] = "disabled"
	}

	c.JSON(status, deps)
}

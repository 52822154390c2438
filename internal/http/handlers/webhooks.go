package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charles588/dropship/internal/modules/payments"
)

// EventSink persists and routes a verified webhook event.
type EventSink interface {
	Handle(ctx context.Context, providerName string, ev payments.WebhookEvent, rawBody []byte) error
}

type WebhookHandler struct {
	Logger  *slog.Logger
	Gateway payments.Gateway
	Svc     EventSink
}

func NewWebhookHandler(logger *slog.Logger, gw payments.Gateway, svc EventSink) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Gateway: gw, Svc: svc}
}

// POST /webhooks/:provider
//
// A 2xx here tells the provider to stop retrying, so the only non-2xx
// outcomes are an unknown provider path, a signature failure, and a
// persistence failure. A persisted event is acknowledged immediately; order
// processing runs behind the ack and its outcome never changes the response.
func (h *WebhookHandler) Receive(c *gin.Context) {
	provider := c.Param("provider")
	if provider != h.Gateway.Name() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	ev, err := h.Gateway.VerifyAndParseWebhook(c.Request.Header, body)
	if err != nil {
		h.Logger.WarnContext(c.Request.Context(), "webhook rejected",
			"provider", provider, "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	if err := h.Svc.Handle(c.Request.Context(), provider, ev, body); err != nil {
		h.Logger.ErrorContext(c.Request.Context(), "webhook not persisted, provider will retry",
			"provider", provider, "event_id", ev.EventID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

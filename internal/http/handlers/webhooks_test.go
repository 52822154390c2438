package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles588/dropship/internal/modules/payments"
)

type fakeGateway struct {
	name      string
	verifyErr error
	event     payments.WebhookEvent
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreateCharge(ctx context.Context, req payments.ChargeRequest) (payments.ChargeResponse, error) {
	return payments.ChargeResponse{}, errors.New("not used")
}

func (g *fakeGateway) RetrieveStatus(ctx context.Context, paymentID string) (string, error) {
	return "", errors.New("not used")
}

func (g *fakeGateway) VerifyAndParseWebhook(headers http.Header, body []byte) (payments.WebhookEvent, error) {
	if g.verifyErr != nil {
		return payments.WebhookEvent{}, g.verifyErr
	}
	return g.event, nil
}

type fakeSink struct {
	err   error
	calls int
	last  payments.WebhookEvent
}

func (s *fakeSink) Handle(ctx context.Context, providerName string, ev payments.WebhookEvent, rawBody []byte) error {
	s.calls++
	s.last = ev
	return s.err
}

func newWebhookRouter(gw payments.Gateway, sink EventSink) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(testWriter{}, nil))
	r := gin.New()
	h := NewWebhookHandler(logger, gw, sink)
	r.POST("/webhooks/:provider", h.Receive)
	return r
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestWebhookUnknownProviderIs404(t *testing.T) {
	sink := &fakeSink{}
	r := newWebhookRouter(&fakeGateway{name: "stripe"}, sink)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, sink.calls)
}

func TestWebhookBadSignatureIs400(t *testing.T) {
	sink := &fakeSink{}
	gw := &fakeGateway{name: "stripe", verifyErr: payments.ErrInvalidSignature}
	r := newWebhookRouter(gw, sink)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, sink.calls)
}

func TestWebhookPersistFailureIs500(t *testing.T) {
	sink := &fakeSink{err: errors.New("db down")}
	gw := &fakeGateway{name: "stripe", event: payments.WebhookEvent{EventID: "evt_1", Type: payments.EventPaymentSucceeded, PaymentRef: "pi_1"}}
	r := newWebhookRouter(gw, sink)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, sink.calls)
}

func TestWebhookVerifiedEventIsAcked(t *testing.T) {
	sink := &fakeSink{}
	gw := &fakeGateway{name: "stripe", event: payments.WebhookEvent{EventID: "evt_1", Type: payments.EventPaymentSucceeded, PaymentRef: "pi_1"}}
	r := newWebhookRouter(gw, sink)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, "evt_1", sink.last.EventID)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

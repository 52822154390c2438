package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charles588/dropship/internal/config"
)

const paystackAPIBase = "https://api.paystack.co"

type Paystack struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystack(cfg config.PaystackConfig) *Paystack {
	return &Paystack{
		secretKey: cfg.SecretKey,
		baseURL:   paystackAPIBase,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *Paystack) Name() string { return "paystack" }

type paystackInitRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // minor units (kobo)
	Currency    string `json:"currency,omitempty"`
	Reference   string `json:"reference,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackTxData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

func (p *Paystack) CreateCharge(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	body := paystackInitRequest{
		Email:       req.CustomerEmail,
		Amount:      req.AmountCents,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
	}

	var data paystackInitData
	if err := p.call(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return ChargeResponse{}, err
	}
	return ChargeResponse{ID: data.Reference, ClientAuth: data.AuthorizationURL}, nil
}

func (p *Paystack) RetrieveStatus(ctx context.Context, paymentID string) (string, error) {
	var data paystackTxData
	if err := p.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(paymentID), nil, &data); err != nil {
		return "", err
	}
	if data.Status == "success" {
		return StatusSucceeded, nil
	}
	return data.Status, nil
}

func (p *Paystack) call(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("paystack: decode response: %w", err)
	}
	if !env.Status {
		return fmt.Errorf("paystack: %s", env.Message)
	}
	return json.Unmarshal(env.Data, out)
}

type paystackWebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// VerifyAndParseWebhook checks x-paystack-signature (HMAC-SHA512 of the raw
// body with the secret key). With no secret configured the payload is
// accepted unverified.
func (p *Paystack) VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error) {
	if p.secretKey != "" {
		sig := headers.Get("x-paystack-signature")
		mac := hmac.New(sha512.New, []byte(p.secretKey))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if sig == "" || !hmac.Equal([]byte(expected), []byte(sig)) {
			return WebhookEvent{}, ErrInvalidSignature
		}
	}

	var ev paystackWebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookEvent{}, ErrMalformedPayload
	}
	if ev.Event == "" || ev.Data.Reference == "" {
		return WebhookEvent{}, ErrMalformedPayload
	}

	out := WebhookEvent{
		// paystack has no top-level event id; reference+event is stable
		// enough for dedupe
		EventID:    fmt.Sprintf("%s:%s", ev.Data.Reference, ev.Event),
		PaymentRef: ev.Data.Reference,
	}
	switch ev.Event {
	case "charge.success":
		out.Type = EventPaymentSucceeded
	case "charge.failed":
		out.Type = EventPaymentFailed
	default:
		out.Type = ev.Event
	}
	return out, nil
}

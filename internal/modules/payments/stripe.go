package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charles588/dropship/internal/config"
)

const stripeAPIBase = "https://api.stripe.com"

// stripeSignatureTolerance bounds replay of captured webhook payloads.
const stripeSignatureTolerance = 5 * time.Minute

type Stripe struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client
	now           func() time.Time
}

func NewStripe(cfg config.StripeConfig) *Stripe {
	return &Stripe{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       stripeAPIBase,
		client:        &http.Client{Timeout: 30 * time.Second},
		now:           time.Now,
	}
}

func (s *Stripe) Name() string { return "stripe" }

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Stripe) CreateCharge(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	if req.CustomerEmail != "" {
		form.Set("receipt_email", req.CustomerEmail)
	}
	if req.CustomerName != "" {
		form.Set("metadata[customer_name]", req.CustomerName)
	}

	var intent stripeIntent
	if err := s.call(ctx, http.MethodPost, "/v1/payment_intents", form, &intent); err != nil {
		return ChargeResponse{}, err
	}
	return ChargeResponse{ID: intent.ID, ClientAuth: intent.ClientSecret}, nil
}

func (s *Stripe) RetrieveStatus(ctx context.Context, paymentID string) (string, error) {
	var intent stripeIntent
	if err := s.call(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(paymentID), nil, &intent); err != nil {
		return "", err
	}
	if intent.Status == "succeeded" {
		return StatusSucceeded, nil
	}
	return intent.Status, nil
}

func (s *Stripe) call(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var se stripeError
		_ = json.Unmarshal(raw, &se)
		if se.Error.Message != "" {
			return fmt.Errorf("stripe: %s", se.Error.Message)
		}
		return fmt.Errorf("stripe: status %d", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyAndParseWebhook checks the Stripe-Signature header
// ("t=<unix>,v1=<hmac>", HMAC-SHA256 over "<t>.<body>"). With no webhook
// secret configured the payload is accepted unverified.
func (s *Stripe) VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error) {
	if s.webhookSecret != "" {
		if err := s.verifySignature(headers.Get("Stripe-Signature"), body); err != nil {
			return WebhookEvent{}, err
		}
	}

	var ev stripeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookEvent{}, ErrMalformedPayload
	}
	if ev.ID == "" || ev.Type == "" {
		return WebhookEvent{}, ErrMalformedPayload
	}

	out := WebhookEvent{EventID: ev.ID, PaymentRef: ev.Data.Object.ID}
	switch ev.Type {
	case "payment_intent.succeeded":
		out.Type = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		out.Type = EventPaymentFailed
	default:
		out.Type = ev.Type
	}
	return out, nil
}

func (s *Stripe) verifySignature(header string, body []byte) error {
	if header == "" {
		return ErrInvalidSignature
	}

	var ts int64
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, _ = strconv.ParseInt(v, 10, 64)
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return ErrInvalidSignature
	}

	age := s.now().Sub(time.Unix(ts, 0))
	if age > stripeSignatureTolerance || age < -stripeSignatureTolerance {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range sigs {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

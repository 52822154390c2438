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
	"time"

	"github.com/charles588/dropship/internal/config"
)

const opayAPIBase = "https://cashier.opayweb.com"

type OPay struct {
	publicKey  string
	privateKey string
	merchantID string
	baseURL    string
	client     *http.Client
}

func NewOPay(cfg config.OPayConfig) *OPay {
	return &OPay{
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		merchantID: cfg.MerchantID,
		baseURL:    opayAPIBase,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (o *OPay) Name() string { return "opay" }

type opayAmount struct {
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

type opayCreateRequest struct {
	Reference   string     `json:"reference"`
	Amount      opayAmount `json:"amount"`
	CallbackURL string     `json:"callbackUrl,omitempty"`
	UserInfo    struct {
		UserName  string `json:"userName"`
		UserEmail string `json:"userEmail"`
	} `json:"userInfo"`
	Product struct {
		Name string `json:"name"`
	} `json:"product"`
	ExpireAt int `json:"expireAt"` // minutes
}

type opayEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type opayCashierData struct {
	OrderNo    string `json:"orderNo"`
	CashierURL string `json:"cashierUrl"`
	Status     string `json:"status"`
}

func (o *OPay) CreateCharge(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	body := opayCreateRequest{
		Reference:   req.Reference,
		Amount:      opayAmount{Total: req.AmountCents, Currency: req.Currency},
		CallbackURL: req.CallbackURL,
		ExpireAt:    30,
	}
	body.UserInfo.UserName = req.CustomerName
	body.UserInfo.UserEmail = req.CustomerEmail
	body.Product.Name = "Store order"

	var data opayCashierData
	if err := o.call(ctx, "/api/v1/international/cashier/create", body, o.publicKey, &data); err != nil {
		return ChargeResponse{}, err
	}
	// the merchant reference, not OPay's orderNo, keys the order row; status
	// lookups accept it
	return ChargeResponse{ID: req.Reference, ClientAuth: data.CashierURL}, nil
}

func (o *OPay) RetrieveStatus(ctx context.Context, paymentID string) (string, error) {
	body := map[string]string{"reference": paymentID}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	// status queries are signed with the private key over the request body
	auth := signHMAC512(raw, o.privateKey)

	var data opayCashierData
	if err := o.call(ctx, "/api/v1/international/cashier/status", body, auth, &data); err != nil {
		return "", err
	}
	if data.Status == "SUCCESS" {
		return StatusSucceeded, nil
	}
	return data.Status, nil
}

func (o *OPay) call(ctx context.Context, path string, in any, bearer string, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("MerchantId", o.merchantID)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("opay request failed: %w", err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var env opayEnvelope
	if err := json.Unmarshal(respRaw, &env); err != nil {
		return fmt.Errorf("opay: decode response: %w", err)
	}
	if env.Code != "00000" {
		return fmt.Errorf("opay: %s (code %s)", env.Message, env.Code)
	}
	return json.Unmarshal(env.Data, out)
}

type opayWebhookPayload struct {
	Reference     string `json:"reference"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
}

type opayWebhookEvent struct {
	// kept raw: the signature covers OPay's byte-exact serialization, which
	// a re-marshal would not reproduce
	Payload json.RawMessage `json:"payload"`
	SHA512  string          `json:"sha512"`
	Type    string          `json:"type"`
}

// VerifyAndParseWebhook checks the embedded sha512 field (HMAC-SHA512 over
// the raw payload object bytes with the private key). With no private key
// configured the payload is accepted unverified.
func (o *OPay) VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error) {
	_ = headers // opay puts the signature in the body

	var ev opayWebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookEvent{}, ErrMalformedPayload
	}

	var p opayWebhookPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return WebhookEvent{}, ErrMalformedPayload
	}
	if p.Reference == "" {
		return WebhookEvent{}, ErrMalformedPayload
	}

	if o.privateKey != "" {
		expected := signHMAC512(ev.Payload, o.privateKey)
		if ev.SHA512 == "" || !hmac.Equal([]byte(expected), []byte(ev.SHA512)) {
			return WebhookEvent{}, ErrInvalidSignature
		}
	}

	out := WebhookEvent{
		EventID:    fmt.Sprintf("%s:%s:%s", p.Reference, p.Status, p.Timestamp),
		PaymentRef: p.Reference,
	}
	switch p.Status {
	case "SUCCESS":
		out.Type = EventPaymentSucceeded
	case "FAIL", "FAILED":
		out.Type = EventPaymentFailed
	default:
		out.Type = "transaction." + p.Status
	}
	return out, nil
}

func signHMAC512(data []byte, key string) string {
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

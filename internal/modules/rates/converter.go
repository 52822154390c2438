package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charles588/dropship/internal/config"
)

// ErrRateUnavailable: the upstream returned no usable figure or the access
// credential is absent. Checkout conversion must abort on it.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

type Converter interface {
	GetRate(ctx context.Context, base, target string) (float64, error)
}

// APIConverter fetches a spot rate from the exchangerate-api v6 pair
// endpoint.
type APIConverter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAPIConverter(cfg config.RatesConfig) *APIConverter {
	return &APIConverter{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type pairResponse struct {
	Result         string  `json:"result"`
	ConversionRate float64 `json:"conversion_rate"`
}

func (c *APIConverter) GetRate(ctx context.Context, base, target string) (float64, error) {
	if c.apiKey == "" {
		return 0, ErrRateUnavailable
	}

	url := fmt.Sprintf("%s/%s/pair/%s/%s", c.baseURL, c.apiKey, base, target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: upstream status %d", ErrRateUnavailable, resp.StatusCode)
	}

	var pr pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if pr.Result != "success" || pr.ConversionRate <= 0 {
		return 0, ErrRateUnavailable
	}
	return pr.ConversionRate, nil
}

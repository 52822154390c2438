package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles588/dropship/internal/config"
)

func newTestConverter(upstreamURL string) *APIConverter {
	return NewAPIConverter(config.RatesConfig{
		APIKey:  "test-key",
		BaseURL: upstreamURL,
	})
}

func TestGetRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test-key/pair/USD/NGN", r.URL.Path)
		w.Write([]byte(`{"result":"success","conversion_rate":1500.0}`))
	}))
	defer srv.Close()

	rate, err := newTestConverter(srv.URL).GetRate(context.Background(), "USD", "NGN")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, rate)
}

func TestGetRateMissingKey(t *testing.T) {
	c := NewAPIConverter(config.RatesConfig{BaseURL: "http://localhost"})
	_, err := c.GetRate(context.Background(), "USD", "NGN")
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestGetRateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestConverter(srv.URL).GetRate(context.Background(), "USD", "NGN")
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestGetRateNoUsableFigure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","conversion_rate":0}`))
	}))
	defer srv.Close()

	_, err := newTestConverter(srv.URL).GetRate(context.Background(), "USD", "NGN")
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

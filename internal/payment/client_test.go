package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		var req createIntentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(4350), req.Amount)
		assert.Equal(t, "usd", req.Currency)
		assert.Equal(t, "chk-1", req.Metadata.CheckoutID)

		json.NewEncoder(w).Encode(Intent{
			ID:           "pi_123",
			ClientSecret: "pi_123_secret",
			Amount:       req.Amount,
			Currency:     req.Currency,
			Status:       StatusRequiresPaymentMethod,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_123", 5*time.Second)

	intent, err := client.CreateIntent(context.Background(), 43.50, "usd", "chk-1")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, StatusRequiresPaymentMethod, intent.Status)
	assert.NotEmpty(t, intent.ClientSecret)
}

func TestGetIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		json.NewEncoder(w).Encode(Intent{ID: "pi_123", Status: StatusSucceeded})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_123", 5*time.Second)

	intent, err := client.GetIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, intent.Status)
}

func TestGetIntent_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_123", 5*time.Second)

	_, err := client.GetIntent(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_123", 5*time.Second)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.GetIntent(ctx, "pi_123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	// Sixth call is rejected without reaching the processor.
	_, err := client.GetIntent(ctx, "pi_123")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), hits.Load())
}

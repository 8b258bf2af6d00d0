// Package payment is the client for the hosted-payment-element
// processor used on the card checkout path.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

type IntentStatus string

const (
	StatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	StatusProcessing            IntentStatus = "processing"
	StatusSucceeded             IntentStatus = "succeeded"
	StatusCanceled              IntentStatus = "canceled"
)

// Intent is the processor's payment-intent resource. Amount is in minor
// units (cents).
type Intent struct {
	ID           string       `json:"id"`
	ClientSecret string       `json:"client_secret"`
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	Status       IntentStatus `json:"status"`
}

var (
	ErrIntentNotFound = errors.New("payment intent not found")
	ErrUnavailable    = errors.New("payment processor unavailable")
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*Intent]
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name: "payment-processor",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 30 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*Intent](settings),
	}
}

type createIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Metadata struct {
		CheckoutID string `json:"checkout_id"`
	} `json:"metadata"`
}

// CreateIntent opens an intent for the given amount. amount is in major
// units and converted to cents here.
func (c *Client) CreateIntent(ctx context.Context, amount float64, currency, checkoutID string) (*Intent, error) {
	body := createIntentRequest{
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
	}
	body.Metadata.CheckoutID = checkoutID

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal intent request: %w", err)
	}

	return c.do(ctx, http.MethodPost, "/v1/payment_intents", payload)
}

// GetIntent fetches the intent's current status; the server-side
// verification step after the hosted element confirms.
func (c *Client) GetIntent(ctx context.Context, id string) (*Intent, error) {
	return c.do(ctx, http.MethodGet, "/v1/payment_intents/"+id, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*Intent, error) {
	intent, err := c.breaker.Execute(func() (*Intent, error) {
		return c.roundTrip(ctx, method, path, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return intent, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) (*Intent, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build processor request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrIntentNotFound
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("processor returned %d: %s", resp.StatusCode, apiErr.Error)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &intent, nil
}

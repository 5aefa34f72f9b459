// Package payment creates payment intents on an external payment service.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable is returned while the circuit is open or the service
	// cannot be reached.
	ErrUnavailable = errors.New("payment service unavailable")
	// ErrRejected is returned when the service refuses the request.
	ErrRejected = errors.New("payment intent rejected")
)

type Intent struct {
	ID           string          `json:"id"`
	ClientSecret string          `json:"client_secret"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type IntentClient interface {
	CreateIntent(ctx context.Context, userID string, amount decimal.Decimal, currency string) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[Intent]
	log     *zap.Logger
}

func NewHTTPClient(cfg Config, httpClient *http.Client, log *zap.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    httpClient,
		log:     log,
	}
	c.cb = gobreaker.NewCircuitBreaker[Intent](gobreaker.Settings{
		Name:        "payment-intents",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a rejected request means the service is up
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

type intentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// CreateIntent asks the payment service for an intent over amount, which is
// sent in minor units.
func (c *HTTPClient) CreateIntent(ctx context.Context, userID string, amount decimal.Decimal, currency string) (Intent, error) {
	if !amount.IsPositive() {
		return Intent{}, fmt.Errorf("%w: amount must be positive, got %s", ErrRejected, amount)
	}

	body, err := json.Marshal(intentRequest{
		Amount:   ToMinorUnits(amount),
		Currency: strings.ToLower(currency),
		Metadata: map[string]string{"user_id": userID},
	})
	if err != nil {
		return Intent{}, fmt.Errorf("marshal intent request: %w", err)
	}

	intent, err := c.execute(ctx, http.MethodPost, "/v1/payment_intents", body)
	if err != nil {
		return Intent{}, err
	}
	intent.Amount = amount
	intent.Currency = currency

	c.log.Info("payment intent created",
		zap.String("user_id", userID),
		zap.String("intent_id", intent.ID),
		zap.String("amount", amount.StringFixed(2)))
	return intent, nil
}

// GetIntent fetches an existing intent. The amount is converted back from
// minor units.
func (c *HTTPClient) GetIntent(ctx context.Context, id string) (Intent, error) {
	if strings.TrimSpace(id) == "" {
		return Intent{}, fmt.Errorf("%w: intent id is required", ErrRejected)
	}
	return c.execute(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil)
}

func (c *HTTPClient) execute(ctx context.Context, method, path string, body []byte) (Intent, error) {
	intent, err := c.cb.Execute(func() (Intent, error) {
		return c.do(ctx, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Intent{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return intent, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Intent{}, fmt.Errorf("build intent request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Intent{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return Intent{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return Intent{}, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out intentResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return Intent{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return Intent{
		ID:           out.ID,
		ClientSecret: out.ClientSecret,
		Status:       out.Status,
		Amount:       decimal.New(out.Amount, -2),
		Currency:     strings.ToUpper(out.Currency),
	}, nil
}

// ToMinorUnits converts an amount to integer minor units (cents, paise),
// rounding half away from zero at two places first.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

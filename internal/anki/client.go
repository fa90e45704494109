// Package anki talks to a running Anki instance through the AnkiConnect
// add-on's JSON API. Client implements the schema lookup and note storage
// interfaces used by the mapping and analysis packages.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// apiVersion is the AnkiConnect protocol version spoken by this client.
const apiVersion = 6

// Config holds AnkiConnect client configuration.
type Config struct {
	// URL of the AnkiConnect endpoint (default: http://127.0.0.1:8765)
	URL string

	// APIKey is sent with every request when AnkiConnect has one configured.
	APIKey string

	// Timeout bounds a single HTTP round trip (default: 10s)
	Timeout time.Duration

	// RequestsPerSecond and Burst throttle calls so bulk operations do not
	// freeze Anki's UI thread (defaults: 20/s, burst 5).
	RequestsPerSecond float64
	Burst             int
}

// APIError is an error reported by AnkiConnect itself, e.g. an unknown deck.
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anki: %s: %s", e.Action, e.Message)
}

// Client is an AnkiConnect client. It is safe for concurrent use.
type Client struct {
	url     string
	apiKey  string
	client  *http.Client
	breaker *CircuitBreaker
	limiter *rate.Limiter
}

type request struct {
	Action  string      `json:"action"`
	Version int         `json:"version"`
	Params  interface{} `json:"params,omitempty"`
	Key     string      `json:"key,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// NewClient creates a client, applying defaults for unset configuration.
func NewClient(config Config) *Client {
	if config.URL == "" {
		config.URL = "http://127.0.0.1:8765"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 20
	}
	if config.Burst <= 0 {
		config.Burst = 5
	}

	return &Client{
		url:     config.URL,
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: NewCircuitBreaker(),
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
	}
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (c *Client) BreakerState() string { return c.breaker.State() }

// BreakerMetrics reports the circuit breaker counters.
func (c *Client) BreakerMetrics() CircuitBreakerMetrics { return c.breaker.Metrics() }

// invoke calls action with params and decodes the result into out (which
// may be nil). Transport failures count against the circuit breaker;
// errors reported by AnkiConnect do not.
func (c *Client) invoke(ctx context.Context, action string, params interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("anki: %s: %w", action, err)
	}

	raw, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.post(ctx, request{Action: action, Version: apiVersion, Params: params, Key: c.apiKey})
	})
	if err != nil {
		return fmt.Errorf("anki: %s: %w", action, err)
	}

	resp := raw.(*response)
	if resp.Error != nil {
		return &APIError{Action: action, Message: *resp.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("anki: %s: failed to decode result: %w", action, err)
	}
	return nil
}

// post is a single HTTP round trip without breaker or limiter.
func (c *Client) post(ctx context.Context, body request) (*response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("ankiconnect returned status %d: %s", httpResp.StatusCode, string(data))
	}

	var resp response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

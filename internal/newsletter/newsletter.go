// Package newsletter proxies signup requests to the newsletter provider so
// the provider API key never reaches the browser. One POST, one bounded
// timeout, no retries; the upstream verdict passes through opaquely.
package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"time"
)

// Client subscribes addresses via the configured provider endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// New creates a newsletter client. timeout bounds the whole upstream call.
func New(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Subscribe registers an email address and returns the upstream status code.
// A malformed address is rejected locally with http.StatusBadRequest before
// anything is sent upstream.
func (c *Client) Subscribe(ctx context.Context, email string) (int, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return http.StatusBadRequest, fmt.Errorf("newsletter: invalid address: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"email_address": email})
	if err != nil {
		return http.StatusInternalServerError, fmt.Errorf("newsletter: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return http.StatusInternalServerError, fmt.Errorf("newsletter: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return http.StatusBadGateway, fmt.Errorf("newsletter: upstream call: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// Package commerce wraps the external commerce platform that holds
// fulfillment and order records.  Order creation is keyed by the
// registration id so retries never produce duplicate orders.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OrderInput carries everything the platform needs to create an order
// for a completed registration.
type OrderInput struct {
	RegistrationID string `json:"registration_id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EventTitle     string `json:"event_title"`
	AmountCents    int64  `json:"amount_cents"`
}

// OrderCreator creates an order and returns the platform's order
// reference.  Implementations must be idempotent with respect to the
// registration id.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in OrderInput) (string, error)
}

// Client is an OrderCreator over the platform's admin REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a Client for the given admin API base URL and
// access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

// CreateOrder posts the order.  The registration id doubles as the
// idempotency key header, so the platform deduplicates redelivery on
// its side as well.
func (c *Client) CreateOrder(ctx context.Context, in OrderInput) (string, error) {
	body, err := json.Marshal(map[string]interface{}{"order": in})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/orders.json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Token", c.token)
	req.Header.Set("Idempotency-Key", in.RegistrationID)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("commerce: create order: status %d", resp.StatusCode)
	}
	var out struct {
		Order struct {
			Reference string `json:"reference"`
		} `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Order.Reference == "" {
		return "", fmt.Errorf("commerce: create order: empty reference in response")
	}
	return out.Order.Reference, nil
}

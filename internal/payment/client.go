// Package payment wraps the external payment processor's REST API.
// The processor is the authority on whether a payment-intent actually
// succeeded; nothing in this service trusts client-supplied status.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Intent statuses reported by the processor.  Only StatusSucceeded
// permits a registration to complete.
const (
	StatusSucceeded = "succeeded"
	StatusPending   = "pending"
	StatusCanceled  = "canceled"
)

// Intent is a freshly created payment-intent handle.  ClientSecret is
// returned to the browser so the processor's JS can collect the card.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// ProcessorPayment is one successful payment from the processor's
// history, as consumed by the reconciliation engine.  EventID is zero
// when the intent predates the metadata convention.
type ProcessorPayment struct {
	IntentID    string
	AmountCents int64
	Email       string
	EventID     uint64
	PaidAt      time.Time
}

// IntentCreator creates a provisional payment-intent at intake time.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
}

// StatusChecker reports the authoritative status of an intent.
type StatusChecker interface {
	IntentStatus(ctx context.Context, intentID string) (string, error)
}

// HistoryLister returns every succeeded payment since the given time.
// The reconciliation engine is its only consumer.
type HistoryLister interface {
	ListSucceeded(ctx context.Context, since time.Time) ([]ProcessorPayment, error)
}

// Client talks to the processor over HTTPS with a secret API key.  It
// implements IntentCreator, StatusChecker and HistoryLister.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a Client for the given API base URL and secret key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError mirrors the processor's error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message != "" {
			return fmt.Errorf("processor: %s %s: %s", method, path, apiErr.Error.Message)
		}
		return fmt.Errorf("processor: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateIntent creates a payment-intent for the given amount.  The
// metadata map is forwarded to the processor so the intent can later be
// correlated back to a registration (email, event id and so on).
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	var in Intent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", form, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// IntentStatus fetches the current status of a payment-intent.
func (c *Client) IntentStatus(ctx context.Context, intentID string) (string, error) {
	var in Intent
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil, &in); err != nil {
		return "", err
	}
	return in.Status, nil
}

// listPage mirrors the processor's paginated list envelope.
type listPage struct {
	Data []struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Status   string `json:"status"`
		Created  int64  `json:"created"`
		Metadata struct {
			Email   string `json:"email"`
			EventID string `json:"event_id"`
		} `json:"metadata"`
		ReceiptEmail string `json:"receipt_email"`
	} `json:"data"`
	HasMore bool `json:"has_more"`
}

// ListSucceeded pages through the processor's payment-intent history
// and returns every intent that succeeded at or after since.  Results
// are returned oldest first; the caller owns any further ordering.
func (c *Client) ListSucceeded(ctx context.Context, since time.Time) ([]ProcessorPayment, error) {
	var all []ProcessorPayment
	startingAfter := ""
	for {
		q := "?limit=100&created[gte]=" + strconv.FormatInt(since.Unix(), 10)
		if startingAfter != "" {
			q += "&starting_after=" + url.QueryEscape(startingAfter)
		}
		var page listPage
		if err := c.do(ctx, http.MethodGet, "/v1/payment_intents"+q, nil, &page); err != nil {
			return nil, err
		}
		for _, d := range page.Data {
			if d.Status != StatusSucceeded {
				continue
			}
			email := d.Metadata.Email
			if email == "" {
				email = d.ReceiptEmail
			}
			var eventID uint64
			if d.Metadata.EventID != "" {
				eventID, _ = strconv.ParseUint(d.Metadata.EventID, 10, 64)
			}
			all = append(all, ProcessorPayment{
				IntentID:    d.ID,
				AmountCents: d.Amount,
				Email:       email,
				EventID:     eventID,
				PaidAt:      time.Unix(d.Created, 0).UTC(),
			})
		}
		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}
	// Oldest first keeps downstream matching deterministic.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].PaidAt.Equal(all[j].PaidAt) {
			return all[i].PaidAt.Before(all[j].PaidAt)
		}
		return all[i].IntentID < all[j].IntentID
	})
	return all, nil
}

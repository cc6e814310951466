package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/suttonsam862/richhabits-payments/internal/lock"
	"github.com/suttonsam862/richhabits-payments/internal/service"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookRequest(body, signature string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func succeededEvent(intentID string) string {
	return `{"type":"payment_intent.succeeded","data":{"object":{"id":"` + intentID + `"}}}`
}

func newWebhookHandler(pairs service.PairStore, statuses map[string]string, secret string) *WebhookHandler {
	v := service.NewVerifier(lock.NewMemoryLocker(), pairs, &stubProcessor{statuses: statuses}, nil)
	return NewWebhookHandler(v, secret)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := newWebhookHandler(&stubPairStore{}, nil, "whsec_test")

	body := succeededEvent("pi_1")
	c, rec := webhookRequest(body, "deadbeef")
	if err := h.HandlePaymentWebhook(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	// Missing signature is equally rejected.
	c, rec = webhookRequest(body, "")
	_ = h.HandlePaymentWebhook(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", rec.Code)
	}
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	h := newWebhookHandler(&stubPairStore{}, nil, "whsec_test")

	body := `{"type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`
	c, rec := webhookRequest(body, sign("whsec_test", []byte(body)))
	if err := h.HandlePaymentWebhook(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", rec.Code)
	}
}

func TestWebhookVerifiesSucceededIntent(t *testing.T) {
	pairs := newStubPairStore("pi_hook")
	h := newWebhookHandler(pairs, map[string]string{"pi_hook": "succeeded"}, "whsec_test")

	body := succeededEvent("pi_hook")
	c, rec := webhookRequest(body, sign("whsec_test", []byte(body)))
	if err := h.HandlePaymentWebhook(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if pairs.completions != 1 {
		t.Fatalf("expected one completion, got %d", pairs.completions)
	}

	// Redelivery acknowledges without another transition.
	c, rec = webhookRequest(body, sign("whsec_test", []byte(body)))
	_ = h.HandlePaymentWebhook(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if already, _ := resp["already_verified"].(bool); !already {
		t.Fatalf("expected already_verified on redelivery, got %v", resp)
	}
	if pairs.completions != 1 {
		t.Fatalf("redelivery must not transition again, completions=%d", pairs.completions)
	}
}

func TestWebhookAcknowledgesUnknownIntent(t *testing.T) {
	h := newWebhookHandler(&stubPairStore{}, nil, "whsec_test")

	body := succeededEvent("pi_unseen")
	c, rec := webhookRequest(body, sign("whsec_test", []byte(body)))
	if err := h.HandlePaymentWebhook(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Payments created outside this system are left for reconciliation;
	// redelivering the event would not change that.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["code"] != service.CodePaymentIntentNotFound {
		t.Fatalf("expected %s code, got %v", service.CodePaymentIntentNotFound, resp)
	}
}

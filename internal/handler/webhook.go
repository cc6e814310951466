package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/suttonsam862/richhabits-payments/internal/service"
)

// SignatureHeader carries the processor's hex-encoded HMAC-SHA256 of
// the raw request body.
const SignatureHeader = "X-Payment-Signature"

// WebhookHandler receives asynchronous payment notifications from the
// processor.  Deliveries may arrive duplicated or out of order; the
// verifier's idempotence contract is what makes acknowledging them all
// safe.
type WebhookHandler struct {
	Verifier *service.Verifier
	Secret   string
}

// NewWebhookHandler constructs a WebhookHandler.  An empty secret
// disables signature checking and should only happen in development.
func NewWebhookHandler(v *service.Verifier, secret string) *WebhookHandler {
	if v == nil {
		panic("nil verifier passed to NewWebhookHandler")
	}
	return &WebhookHandler{Verifier: v, Secret: secret}
}

// webhookEnvelope mirrors the processor's event envelope.
type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// HandlePaymentWebhook handles POST /v1/webhooks/payment.  Succeeded
// intents are run through the same verification path as the browser's
// call.  A concurrent verification or an already-settled intent both
// acknowledge with 200 so the processor stops redelivering; a payment
// the processor has not actually settled is also acknowledged, since
// redelivery would not change the answer.
func (h *WebhookHandler) HandlePaymentWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	if h.Secret != "" {
		if !validSignature(h.Secret, body, c.Request().Header.Get(SignatureHeader)) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
		}
	}
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event"})
	}
	if env.Type != "payment_intent.succeeded" || env.Data.Object.ID == "" {
		// Not a settlement event; acknowledge and move on.
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	intentID := env.Data.Object.ID
	res, err := h.Verifier.Verify(c.Request().Context(), intentID, false)
	if err != nil {
		var vErr *service.VerificationError
		if errors.As(err, &vErr) {
			switch vErr.Code {
			case service.CodeRaceConditionDetected, service.CodePaymentNotSucceeded:
				// Another caller is finishing the job, or the
				// processor's own answer disagrees with the event;
				// either way redelivery gains nothing.
				log.Printf("webhook: intent %s acknowledged without transition: %s", intentID, vErr.Code)
				return c.JSON(http.StatusOK, echo.Map{"received": true, "code": vErr.Code})
			case service.CodePaymentIntentNotFound:
				// Likely a payment created outside this system; the
				// reconciliation run will pick it up.
				log.Printf("webhook: intent %s has no registration; left for reconciliation", intentID)
				return c.JSON(http.StatusOK, echo.Map{"received": true, "code": vErr.Code})
			}
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	log.Printf("webhook: intent %s verified (already=%v, source=%s)", intentID, res.AlreadyVerified, res.Source)
	return c.JSON(http.StatusOK, echo.Map{"received": true, "already_verified": res.AlreadyVerified})
}

// validSignature compares the hex HMAC-SHA256 of body against the
// header value in constant time.
func validSignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}

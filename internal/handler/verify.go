package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/suttonsam862/richhabits-payments/internal/model"
	"github.com/suttonsam862/richhabits-payments/internal/service"
)

// VerifyHandler serves the payment verification endpoint.  The same
// verifier backs the browser's post-checkout call and the processor's
// webhook, so state transitions have a single authority.
type VerifyHandler struct {
	Verifier *service.Verifier
}

// NewVerifyHandler constructs a VerifyHandler.  The verifier must be non-nil.
func NewVerifyHandler(v *service.Verifier) *VerifyHandler {
	if v == nil {
		panic("nil verifier passed to NewVerifyHandler")
	}
	return &VerifyHandler{Verifier: v}
}

// VerifyPayment handles POST /v1/payments/verify.  The body carries
// the payment-intent identifier and an optional force flag.  Forced
// re-verification bypasses the lock gate and the already-verified
// short circuit, so it is restricted to staff tokens.  Responses:
// 200 on success or idempotent no-op, 404 for an unknown identifier,
// 409 when a concurrent verification holds the lock, 400 when the
// processor reports the payment has not succeeded.
func (h *VerifyHandler) VerifyPayment(c echo.Context) error {
	var body struct {
		PaymentIntentID   string `json:"payment_intent_id"`
		ForceVerification bool   `json:"force_verification"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PaymentIntentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_intent_id is required"})
	}
	if body.ForceVerification && !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "force verification requires a staff token"})
	}
	res, err := h.Verifier.Verify(c.Request().Context(), body.PaymentIntentID, body.ForceVerification)
	if err != nil {
		var vErr *service.VerificationError
		if errors.As(err, &vErr) {
			return c.JSON(statusForCode(vErr.Code), echo.Map{
				"success": false,
				"code":    vErr.Code,
				"error":   vErr.Message,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "verification failed"})
	}
	return c.JSON(http.StatusOK, verificationResponse(res))
}

func statusForCode(code string) int {
	switch code {
	case service.CodePaymentIntentNotFound:
		return http.StatusNotFound
	case service.CodeRaceConditionDetected:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func verificationResponse(res *service.VerificationResult) echo.Map {
	resp := echo.Map{
		"success":          res.Success,
		"already_verified": res.AlreadyVerified,
		"verified_at":      res.VerifiedAt,
		"source":           res.Source,
	}
	if res.Registration != nil {
		resp["registration"] = registrationSummary(res.Registration)
	}
	return resp
}

func registrationSummary(reg *model.Registration) echo.Map {
	return echo.Map{
		"id":                reg.ID,
		"event_id":          reg.EventID,
		"email":             reg.Email,
		"status":            reg.Status,
		"final_price_cents": reg.FinalPriceCents,
	}
}

// isStaff reports whether the staff-auth middleware validated a token
// with the STAFF role on this request.
func isStaff(c echo.Context) bool {
	v, _ := c.Get("staff").(bool)
	return v
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/suttonsam862/richhabits-payments/internal/repository"
	"github.com/suttonsam862/richhabits-payments/internal/service"
)

// RegistrationHandler serves the intake and lookup endpoints.  Intake
// performs all validation and the two inserts; the handler only maps
// transport concerns.
type RegistrationHandler struct {
	Intake *service.Intake
	Pairs  service.PairStore
}

// NewRegistrationHandler constructs a RegistrationHandler with the
// provided dependencies.  All dependencies must be non-nil.
func NewRegistrationHandler(intake *service.Intake, pairs service.PairStore) *RegistrationHandler {
	if intake == nil || pairs == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Intake: intake, Pairs: pairs}
}

// CreateRegistration handles POST /v1/registrations.  The body carries
// the customer, event and pricing fields.  On success it returns the
// new registration id, the payment-intent identifier and, for paid
// registrations, the client secret the browser needs to collect the
// card.  Validation failures return 400 with itemized field errors; an
// unknown event id returns 404.
func (h *RegistrationHandler) CreateRegistration(c echo.Context) error {
	var body struct {
		EventID         uint64          `json:"event_id"`
		FirstName       string          `json:"first_name"`
		LastName        string          `json:"last_name"`
		Email           string          `json:"email"`
		Phone           string          `json:"phone"`
		Options         json.RawMessage `json:"options"`
		BasePriceCents  int64           `json:"base_price_cents"`
		FinalPriceCents int64           `json:"final_price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Intake.Create(c.Request().Context(), service.CreateRegistrationInput{
		EventID:         body.EventID,
		FirstName:       body.FirstName,
		LastName:        body.LastName,
		Email:           body.Email,
		Phone:           body.Phone,
		Options:         body.Options,
		BasePriceCents:  body.BasePriceCents,
		FinalPriceCents: body.FinalPriceCents,
	})
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":  "validation failed",
				"fields": vErr.Fields,
			})
		}
		if service.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create registration"})
	}
	resp := echo.Map{
		"registration_id":      res.RegistrationID,
		"payment_intent_id":    res.IntentID,
		"is_free_registration": res.IsFreeRegistration,
	}
	if res.ClientSecret != "" {
		resp["client_secret"] = res.ClientSecret
	}
	return c.JSON(http.StatusOK, resp)
}

// GetRegistration handles GET /v1/registrations/:paymentIntentId.  It
// returns a summary of the registration and its payment, or 404 when
// the identifier is unknown.
func (h *RegistrationHandler) GetRegistration(c echo.Context) error {
	intentID := c.Param("paymentIntentId")
	if intentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing payment intent id"})
	}
	reg, pay, err := h.Pairs.FindByIntentID(c.Request().Context(), intentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch registration"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"registration": echo.Map{
			"id":                reg.ID,
			"event_id":          reg.EventID,
			"first_name":        reg.FirstName,
			"last_name":         reg.LastName,
			"email":             reg.Email,
			"status":            reg.Status,
			"final_price_cents": reg.FinalPriceCents,
		},
		"payment": echo.Map{
			"intent_id":    pay.IntentID,
			"kind":         pay.Kind,
			"status":       pay.Status,
			"amount_cents": pay.AmountCents,
			"paid_at":      pay.PaidAt,
		},
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/mail"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/suttonsam862/richhabits-payments/internal/model"
	"github.com/suttonsam862/richhabits-payments/internal/payment"
	"github.com/suttonsam862/richhabits-payments/internal/repository"
)

// EventGetter resolves event ids at intake time.
type EventGetter interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// PairCreator inserts a registration and its payment as one unit.
type PairCreator interface {
	CreateWithPayment(ctx context.Context, reg *model.Registration, pay *model.Payment) error
}

// Intake validates registration input and creates the registration and
// payment rows.  Free registrations (final price zero) complete
// immediately with a synthetic intent id; paid registrations are left
// pending with a provisional intent from the processor.  Intake never
// talks to the commerce platform.
type Intake struct {
	events  EventGetter
	pairs   PairCreator
	intents payment.IntentCreator
}

// NewIntake constructs an Intake.  All dependencies must be non-nil.
func NewIntake(events EventGetter, pairs PairCreator, intents payment.IntentCreator) *Intake {
	if events == nil || pairs == nil || intents == nil {
		panic("nil dependency passed to NewIntake")
	}
	return &Intake{events: events, pairs: pairs, intents: intents}
}

// CreateRegistrationInput carries the customer, event and pricing
// fields submitted at checkout.
type CreateRegistrationInput struct {
	EventID         uint64
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Options         json.RawMessage
	BasePriceCents  int64
	FinalPriceCents int64
}

// CreateRegistrationResult is returned to the client.  ClientSecret is
// empty for free registrations, which need no external payment step.
type CreateRegistrationResult struct {
	RegistrationID     string
	IntentID           string
	ClientSecret       string
	IsFreeRegistration bool
}

// Create validates the input and inserts the (registration, payment)
// pair.  On validation failure it returns a *ValidationError with one
// message per offending field and mutates nothing; an unknown event id
// surfaces as repository.ErrNotFound.
func (s *Intake) Create(ctx context.Context, in CreateRegistrationInput) (*CreateRegistrationResult, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.FirstName) == "" {
		fields["first_name"] = "first name is required"
	}
	if strings.TrimSpace(in.LastName) == "" {
		fields["last_name"] = "last name is required"
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		fields["email"] = "email is not a valid address"
	}
	if in.EventID == 0 {
		fields["event_id"] = "event id is required"
	}
	if in.BasePriceCents < 0 {
		fields["base_price_cents"] = "base price must not be negative"
	}
	if in.FinalPriceCents < 0 {
		fields["final_price_cents"] = "final price must not be negative"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	ev, err := s.events.GetByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	options := "{}"
	if len(in.Options) > 0 {
		options = string(in.Options)
	}
	reg := &model.Registration{
		ID:              uuid.NewString(),
		EventID:         ev.ID,
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		Options:         options,
		BasePriceCents:  in.BasePriceCents,
		FinalPriceCents: in.FinalPriceCents,
	}
	pay := &model.Payment{
		ID:             uuid.NewString(),
		RegistrationID: reg.ID,
		AmountCents:    in.FinalPriceCents,
	}

	if in.FinalPriceCents == 0 {
		// Free flow: both rows are born completed, no processor involved.
		reg.Status = model.RegistrationStatusCompleted
		pay.Status = model.PaymentStatusCompleted
		pay.Kind = model.PaymentKindFree
		pay.IntentID = model.FreeIntentPrefix + uuid.NewString()
		if err := s.pairs.CreateWithPayment(ctx, reg, pay); err != nil {
			return nil, err
		}
		log.Printf("intake: free registration %s created for event %d", reg.ID, ev.ID)
		return &CreateRegistrationResult{
			RegistrationID:     reg.ID,
			IntentID:           pay.IntentID,
			IsFreeRegistration: true,
		}, nil
	}

	// Paid flow: obtain a provisional intent first so its id can be
	// stored on the pending payment row.
	intent, err := s.intents.CreateIntent(ctx, in.FinalPriceCents, "usd", map[string]string{
		"registration_id": reg.ID,
		"event_id":        strconv.FormatUint(ev.ID, 10),
		"email":           reg.Email,
	})
	if err != nil {
		return nil, err
	}
	reg.Status = model.RegistrationStatusPending
	pay.Status = model.PaymentStatusPending
	pay.Kind = model.PaymentKindExternal
	pay.IntentID = intent.ID
	if err := s.pairs.CreateWithPayment(ctx, reg, pay); err != nil {
		return nil, err
	}
	log.Printf("intake: pending registration %s created for event %d, intent %s", reg.ID, ev.ID, intent.ID)
	return &CreateRegistrationResult{
		RegistrationID: reg.ID,
		IntentID:       intent.ID,
		ClientSecret:   intent.ClientSecret,
	}, nil
}

// IsNotFound reports whether err is the repositories' not-found
// sentinel.  Handlers use it to translate intake errors.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

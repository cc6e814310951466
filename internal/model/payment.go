package model

import "time"

// Payment statuses.  A payment row flips to COMPLETED only inside a
// successful verification transaction, together with its registration.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
)

// Payment kinds.  FREE payments belong to zero-value registrations and
// are settled without consulting the external processor; EXTERNAL
// payments carry a real processor payment-intent identifier.  The kind
// is an explicit column rather than a prefix convention, but the legacy
// "FREE_" prefix is still recognized when ingesting old rows.
const (
	PaymentKindFree     = "FREE"
	PaymentKindExternal = "EXTERNAL"
)

// FreeIntentPrefix marks synthetic payment-intent identifiers issued
// for zero-value registrations.
const FreeIntentPrefix = "FREE_"

// Payment is the single payment attached to a registration.  The
// (Registration, Payment) pair is finalized together or not at all.
//
// Fields:
//  ID             – opaque unique identifier (UUID string).
//  RegistrationID – owning registration; exactly one payment per registration.
//  IntentID       – external payment-intent identifier (globally unique).
//  Kind           – FREE or EXTERNAL.
//  AmountCents    – amount in cents.
//  Status         – PENDING or COMPLETED.
//  PaidAt         – when the payment completed (nullable).
//  CreatedAt      – creation timestamp (UTC).
//  UpdatedAt      – last update timestamp (UTC).
type Payment struct {
	ID             string     // payments.id
	RegistrationID string     // payments.registration_id
	IntentID       string     // payments.intent_id
	Kind           string     // payments.kind
	AmountCents    int64      // payments.amount_cents
	Status         string     // payments.status
	PaidAt         *time.Time // payments.paid_at (nullable)
	CreatedAt      time.Time  // payments.created_at
	UpdatedAt      time.Time  // payments.updated_at
}

// IsFree reports whether the payment settles without the external
// processor.  Rows written before the kind column existed carry only
// the synthetic prefix, so both signals are honored.
func (p *Payment) IsFree() bool {
	if p.Kind == PaymentKindFree {
		return true
	}
	return len(p.IntentID) > len(FreeIntentPrefix) && p.IntentID[:len(FreeIntentPrefix)] == FreeIntentPrefix
}

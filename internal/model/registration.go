package model

import "time"

// Registration statuses.  A registration only ever moves forward:
// PENDING -> COMPLETED or PENDING -> FAILED.  It never regresses from
// COMPLETED and rows are never deleted, only superseded by new rows
// when corrections are needed.
const (
	RegistrationStatusPending   = "PENDING"
	RegistrationStatusCompleted = "COMPLETED"
	RegistrationStatusFailed    = "FAILED"
)

// Registration records a customer's signup for an event or a retail
// order awaiting (or having completed) payment.  It is created by the
// intake flow and mutated only by the verification engine.
//
// Fields:
//  ID               – opaque unique identifier (UUID string).
//  EventID          – event being registered for.
//  FirstName        – customer first name.
//  LastName         – customer last name.
//  Email            – customer contact email.
//  Phone            – optional contact phone.
//  Options          – selected options serialized as JSON.
//  BasePriceCents   – price before discounts, in cents.
//  FinalPriceCents  – price after discounts, in cents.
//  Status           – PENDING, COMPLETED or FAILED.
//  ExternalOrderRef – order reference in the commerce platform, once created.
//  CreatedAt        – creation timestamp (UTC).
//  UpdatedAt        – last update timestamp (UTC).
type Registration struct {
	ID               string    // registrations.id
	EventID          uint64    // registrations.event_id
	FirstName        string    // registrations.first_name
	LastName         string    // registrations.last_name
	Email            string    // registrations.email
	Phone            string    // registrations.phone
	Options          string    // registrations.options (JSON)
	BasePriceCents   int64     // registrations.base_price_cents
	FinalPriceCents  int64     // registrations.final_price_cents
	Status           string    // registrations.status
	ExternalOrderRef *string   // registrations.external_order_ref (nullable)
	CreatedAt        time.Time // registrations.created_at
	UpdatedAt        time.Time // registrations.updated_at
}

package model

import "time"

// Event is a paid (or free) event customers register for.  Intake
// validates that the referenced event exists before creating any rows.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – display title of the event.
//  StartsAt       – when the event begins (UTC).
//  BasePriceCents – default price in cents before discounts.
//  CreatedAt      – creation timestamp.
type Event struct {
	ID             uint64    // events.id
	Title          string    // events.title
	StartsAt       time.Time // events.starts_at
	BasePriceCents int64     // events.base_price_cents
	CreatedAt      time.Time // events.created_at
}

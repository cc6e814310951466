// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationCompletedEvent is published when a registration's payment
// is verified and the (registration, payment) pair transitions to
// completed.  The order-retry consumer uses it to make sure a
// commerce-platform order exists even when the synchronous bridge
// attempt failed; other consumers can log, notify, or feed analytics
// without querying the primary database.
type RegistrationCompletedEvent struct {
	RegistrationID string `json:"registration_id"`
	EventID        uint64 `json:"event_id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	AmountCents    int64  `json:"amount_cents"`
	CompletedAt    string `json:"completed_at"`
}

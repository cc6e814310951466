package model

import "time"

// Correlation methods, in cascade order.  Every successful payment the
// processor reports ends up with exactly one record, orphans included.
const (
	MatchMethodExactID       = "exact-id"
	MatchMethodChronological = "chronological-anchor"
	MatchMethodEmailDate     = "email-date-proximity"
	MatchMethodOrphan        = "orphan"
)

// CorrelationRecord is the reconciliation output for one processor
// payment.  The set is regenerated wholesale on each run and is an
// audit artifact, never a source of truth: the engine that produces it
// does not mutate registrations or payments.
//
// Fields:
//  IntentID       – payment-intent identifier (identity of the record).
//  RegistrationID – matched registration, empty for orphans.
//  Source         – name of the store the match came from.
//  Method         – which cascade step produced the match.
//  Note           – free-form confidence note for reviewers.
//  AmountCents    – amount reported by the processor.
//  PaidAt         – payment timestamp reported by the processor.
type CorrelationRecord struct {
	IntentID       string    // correlation_records.intent_id
	RegistrationID string    // correlation_records.registration_id (empty = orphan)
	Source         string    // correlation_records.source
	Method         string    // correlation_records.method
	Note           string    // correlation_records.note
	AmountCents    int64     // correlation_records.amount_cents
	PaidAt         time.Time // correlation_records.paid_at
}

// OrderSyncFailure records a registration whose commerce-platform order
// could not be created after payment completed.  Payment finality is
// never rolled back; a sweep retries these rows until an order exists.
//
// Fields:
//  RegistrationID – registration missing its order.
//  Attempts       – how many creation attempts have been made.
//  LastError      – message from the most recent failure.
//  CreatedAt      – first failure timestamp.
//  UpdatedAt      – most recent attempt timestamp.
type OrderSyncFailure struct {
	RegistrationID string    // order_sync_failures.registration_id
	Attempts       int       // order_sync_failures.attempts
	LastError      string    // order_sync_failures.last_error
	CreatedAt      time.Time // order_sync_failures.created_at
	UpdatedAt      time.Time // order_sync_failures.updated_at
}

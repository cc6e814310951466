// Package store abstracts the fragmented registration stores the
// system accumulated over time behind one uniform query contract.  The
// reconciliation engine iterates a registered list of Source adapters,
// so adding another historical table never touches matching logic.
package store

import (
	"context"
	"time"
)

// Row is one registration row in source-neutral form.  Fields a legacy
// schema cannot provide stay zero: an empty IntentID means the row
// carries no verified payment-intent identifier, an EventID of zero
// means the source has no event dimension (retail orders).
type Row struct {
	RegistrationID string    // unique id within the source
	EventID        uint64    // event the row belongs to, 0 when unknown
	Email          string    // customer email, empty when the schema lacks one
	IntentID       string    // verbatim payment-intent identifier, empty when absent
	CreatedAt      time.Time // creation/update timestamp in UTC
	Source         string    // name of the source that produced the row
}

// Source is one registration store.  Rows returns every row created at
// or after since, ordered however the underlying table likes; the
// engine imposes its own deterministic ordering.
type Source interface {
	Name() string
	Rows(ctx context.Context, since time.Time) ([]Row, error)
}

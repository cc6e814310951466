package store

import (
	"context"
	"database/sql"
	"time"
)

// LegacyEventRegistrationsSource reads the first-generation
// event_registrations table.  stripe_payment_id was backfilled by hand
// for a handful of rows only, so most rows come back with an empty
// IntentID and are matched chronologically.
type LegacyEventRegistrationsSource struct {
	db *sql.DB
}

// NewLegacyEventRegistrationsSource returns an adapter over the legacy
// event_registrations table.
func NewLegacyEventRegistrationsSource(db *sql.DB) *LegacyEventRegistrationsSource {
	return &LegacyEventRegistrationsSource{db: db}
}

// Name identifies the source in correlation records.
func (s *LegacyEventRegistrationsSource) Name() string { return "event_registrations" }

// Rows returns every legacy registration created at or after since.
// The table has no updated_at column; created_at is the only timeline.
func (s *LegacyEventRegistrationsSource) Rows(ctx context.Context, since time.Time) ([]Row, error) {
	const q = `SELECT id, event_id, email, stripe_payment_id, created_at
               FROM event_registrations
               WHERE created_at >= ?`
	rows, err := s.db.QueryContext(ctx, q, since.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		var id uint64
		var email, intentID sql.NullString
		if err := rows.Scan(&id, &r.EventID, &email, &intentID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.RegistrationID = "event_registrations:" + formatID(id)
		if email.Valid {
			r.Email = email.String
		}
		if intentID.Valid {
			r.IntentID = intentID.String
		}
		r.Source = s.Name()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

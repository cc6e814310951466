package store

import (
	"context"
	"database/sql"
	"time"
)

// CurrentSource reads the live registrations table together with its
// payments.  Rows here always carry an intent id, which makes them the
// anchors that calibrate chronological matching for the older stores.
type CurrentSource struct {
	db *sql.DB
}

// NewCurrentSource returns an adapter over the live registrations table.
func NewCurrentSource(db *sql.DB) *CurrentSource { return &CurrentSource{db: db} }

// Name identifies the source in correlation records.
func (s *CurrentSource) Name() string { return "registrations" }

// Rows returns every registration created at or after since.
func (s *CurrentSource) Rows(ctx context.Context, since time.Time) ([]Row, error) {
	const q = `SELECT r.id, r.event_id, r.email, p.intent_id, r.created_at
               FROM registrations r
               JOIN payments p ON p.registration_id = r.id
               WHERE r.created_at >= ?`
	rows, err := s.db.QueryContext(ctx, q, since.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.RegistrationID, &r.EventID, &r.Email, &r.IntentID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Source = s.Name()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

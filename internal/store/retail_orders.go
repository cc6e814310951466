package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"
)

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }

// RetailOrdersSource reads the ad-hoc retail_orders table used before
// orders moved to the commerce platform.  Orders have no event
// dimension, so chronological-anchor matching skips them; they match
// by exact intent id or by email and date.
type RetailOrdersSource struct {
	db *sql.DB
}

// NewRetailOrdersSource returns an adapter over the retail_orders table.
func NewRetailOrdersSource(db *sql.DB) *RetailOrdersSource { return &RetailOrdersSource{db: db} }

// Name identifies the source in correlation records.
func (s *RetailOrdersSource) Name() string { return "retail_orders" }

// Rows returns every retail order created at or after since.
func (s *RetailOrdersSource) Rows(ctx context.Context, since time.Time) ([]Row, error) {
	const q = `SELECT id, customer_email, payment_intent_id, created_at
               FROM retail_orders
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
		if err := rows.Scan(&id, &email, &intentID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.RegistrationID = "retail_orders:" + formatID(id)
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

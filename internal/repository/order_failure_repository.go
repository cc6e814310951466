package repository

import (
	"context"
	"database/sql"

	"github.com/suttonsam862/richhabits-payments/internal/model"
)

// OrderFailureRepo tracks registrations whose commerce-platform order
// could not be created after a completed payment.  The sweep and the
// queue consumer retry from this table; a row disappears once an order
// reference exists.
type OrderFailureRepo struct {
	db *sql.DB
}

// NewOrderFailureRepo returns a new OrderFailureRepo bound to the given database.
func NewOrderFailureRepo(db *sql.DB) *OrderFailureRepo { return &OrderFailureRepo{db: db} }

// Record upserts a failure row for the registration, bumping the
// attempt counter and keeping the latest error message.
func (r *OrderFailureRepo) Record(ctx context.Context, registrationID, lastError string) error {
	const q = `INSERT INTO order_sync_failures (registration_id, attempts, last_error, created_at, updated_at)
               VALUES (?, 1, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP())
               ON DUPLICATE KEY UPDATE attempts = attempts + 1, last_error = VALUES(last_error), updated_at = UTC_TIMESTAMP()`
	_, err := r.db.ExecContext(ctx, q, registrationID, lastError)
	return err
}

// Clear removes the failure row once the order exists.  Clearing a
// missing row is a no-op.
func (r *OrderFailureRepo) Clear(ctx context.Context, registrationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM order_sync_failures WHERE registration_id = ?`, registrationID)
	return err
}

// ListPending returns up to limit failure rows, oldest first, for the
// retry sweep.
func (r *OrderFailureRepo) ListPending(ctx context.Context, limit int) ([]model.OrderSyncFailure, error) {
	const q = `SELECT registration_id, attempts, last_error, created_at, updated_at
               FROM order_sync_failures ORDER BY created_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OrderSyncFailure
	for rows.Next() {
		var f model.OrderSyncFailure
		if err := rows.Scan(&f.RegistrationID, &f.Attempts, &f.LastError, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/suttonsam862/richhabits-payments/internal/model"
)

// EventRepo provides read access to the events table.  Intake uses it
// to verify that a submitted event id resolves before any rows are
// written.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// GetByID returns the event with the given id or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, title, starts_at, base_price_cents, created_at FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(&ev.ID, &ev.Title, &ev.StartsAt, &ev.BasePriceCents, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}

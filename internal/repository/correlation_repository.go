package repository

import (
	"context"
	"database/sql"

	"github.com/suttonsam862/richhabits-payments/internal/model"
)

// CorrelationRepo persists reconciliation output.  The record set is a
// disposable audit artifact: each run replaces it wholesale inside one
// transaction so readers never observe a half-written run.
type CorrelationRepo struct {
	db *sql.DB
}

// NewCorrelationRepo returns a new CorrelationRepo bound to the given database.
func NewCorrelationRepo(db *sql.DB) *CorrelationRepo { return &CorrelationRepo{db: db} }

// ReplaceAll deletes the existing correlation_records rows and inserts
// the given set.  Passing an empty slice leaves the table empty.
func (r *CorrelationRepo) ReplaceAll(ctx context.Context, records []model.CorrelationRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM correlation_records`); err != nil {
		return err
	}
	if len(records) > 0 {
		query := `INSERT INTO correlation_records
            (intent_id, registration_id, source, method, note, amount_cents, paid_at, created_at) VALUES `
		args := make([]interface{}, 0, len(records)*7)
		for i, rec := range records {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())"
			var regID interface{}
			if rec.RegistrationID != "" {
				regID = rec.RegistrationID
			}
			args = append(args, rec.IntentID, regID, rec.Source, rec.Method, rec.Note,
				rec.AmountCents, rec.PaidAt.UTC().Format("2006-01-02 15:04:05"))
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

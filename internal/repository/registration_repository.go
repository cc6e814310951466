package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/suttonsam862/richhabits-payments/internal/model"
)

// RegistrationRepo provides data access to the registrations and
// payments tables.  The two tables always change together: intake
// inserts the pair in one transaction and verification completes the
// pair in one transaction, so no reachable state has one side of the
// pair completed and the other pending.  All timestamps are stored in
// UTC.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// CreateWithPayment inserts a registration and its single payment as
// one transaction.  Both rows carry the status the caller assigned:
// PENDING/PENDING for paid flows, COMPLETED/COMPLETED for free flows.
func (r *RegistrationRepo) CreateWithPayment(ctx context.Context, reg *model.Registration, pay *model.Payment) error {
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
	const insReg = `INSERT INTO registrations
        (id, event_id, first_name, last_name, email, phone, options, base_price_cents, final_price_cents, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP())`
	if _, err = tx.ExecContext(ctx, insReg,
		reg.ID, reg.EventID, reg.FirstName, reg.LastName, reg.Email, reg.Phone,
		reg.Options, reg.BasePriceCents, reg.FinalPriceCents, reg.Status,
	); err != nil {
		return err
	}
	const insPay = `INSERT INTO payments
        (id, registration_id, intent_id, kind, amount_cents, status, paid_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP())`
	var paidAt interface{}
	if pay.PaidAt != nil {
		paidAt = pay.PaidAt.UTC().Format("2006-01-02 15:04:05")
	}
	if _, err = tx.ExecContext(ctx, insPay,
		pay.ID, pay.RegistrationID, pay.IntentID, pay.Kind, pay.AmountCents, pay.Status, paidAt,
	); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// FindByIntentID loads the (registration, payment) pair for a
// payment-intent identifier.  It returns ErrNotFound when no payment
// carries the identifier.
func (r *RegistrationRepo) FindByIntentID(ctx context.Context, intentID string) (*model.Registration, *model.Payment, error) {
	const q = `SELECT r.id, r.event_id, r.first_name, r.last_name, r.email, r.phone, r.options,
                      r.base_price_cents, r.final_price_cents, r.status, r.external_order_ref,
                      r.created_at, r.updated_at,
                      p.id, p.registration_id, p.intent_id, p.kind, p.amount_cents, p.status,
                      p.paid_at, p.created_at, p.updated_at
               FROM payments p
               JOIN registrations r ON r.id = p.registration_id
               WHERE p.intent_id = ?`
	var reg model.Registration
	var pay model.Payment
	var orderRef sql.NullString
	var paidAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, intentID).Scan(
		&reg.ID, &reg.EventID, &reg.FirstName, &reg.LastName, &reg.Email, &reg.Phone, &reg.Options,
		&reg.BasePriceCents, &reg.FinalPriceCents, &reg.Status, &orderRef,
		&reg.CreatedAt, &reg.UpdatedAt,
		&pay.ID, &pay.RegistrationID, &pay.IntentID, &pay.Kind, &pay.AmountCents, &pay.Status,
		&paidAt, &pay.CreatedAt, &pay.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if orderRef.Valid {
		ref := orderRef.String
		reg.ExternalOrderRef = &ref
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		pay.PaidAt = &t
	}
	return &reg, &pay, nil
}

// CompletePair transitions the payment and its registration to
// COMPLETED in a single transaction.  Completing an already-completed
// pair is a no-op; completing a FAILED registration returns
// ErrConflict because a registration never regresses from a terminal
// state.
func (r *RegistrationRepo) CompletePair(ctx context.Context, intentID string, paidAt time.Time) error {
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
	// Lock the pair while both rows change.
	const sel = `SELECT p.registration_id, p.status, r.status
                 FROM payments p
                 JOIN registrations r ON r.id = p.registration_id
                 WHERE p.intent_id = ?
                 FOR UPDATE`
	var regID, payStatus, regStatus string
	if err = tx.QueryRowContext(ctx, sel, intentID).Scan(&regID, &payStatus, &regStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if regStatus == model.RegistrationStatusFailed {
		return ErrConflict
	}
	if payStatus == model.PaymentStatusCompleted && regStatus == model.RegistrationStatusCompleted {
		// Already settled; nothing to write.
		if err = tx.Commit(); err != nil {
			return err
		}
		committed = true
		return nil
	}
	when := paidAt.UTC().Format("2006-01-02 15:04:05")
	const updPay = `UPDATE payments SET status = ?, paid_at = ?, updated_at = UTC_TIMESTAMP() WHERE intent_id = ?`
	if _, err = tx.ExecContext(ctx, updPay, model.PaymentStatusCompleted, when, intentID); err != nil {
		return err
	}
	const updReg = `UPDATE registrations SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	if _, err = tx.ExecContext(ctx, updReg, model.RegistrationStatusCompleted, regID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetExternalOrderRef stores the commerce platform's order reference
// for a registration.  The WHERE clause keeps the write idempotent: a
// reference is only ever written once.
func (r *RegistrationRepo) SetExternalOrderRef(ctx context.Context, registrationID, ref string) error {
	const q = `UPDATE registrations SET external_order_ref = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND external_order_ref IS NULL`
	_, err := r.db.ExecContext(ctx, q, ref, registrationID)
	return err
}

// GetByID loads a registration by its identifier, returning
// ErrNotFound when it does not exist.
func (r *RegistrationRepo) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	const q = `SELECT id, event_id, first_name, last_name, email, phone, options,
                      base_price_cents, final_price_cents, status, external_order_ref, created_at, updated_at
               FROM registrations WHERE id = ?`
	var reg model.Registration
	var orderRef sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&reg.ID, &reg.EventID, &reg.FirstName, &reg.LastName, &reg.Email, &reg.Phone, &reg.Options,
		&reg.BasePriceCents, &reg.FinalPriceCents, &reg.Status, &orderRef, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if orderRef.Valid {
		ref := orderRef.String
		reg.ExternalOrderRef = &ref
	}
	return &reg, nil
}

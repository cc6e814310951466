package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/suttonsam862/richhabits-payments/internal/lock"
	"github.com/suttonsam862/richhabits-payments/internal/model"
	"github.com/suttonsam862/richhabits-payments/internal/payment"
	"github.com/suttonsam862/richhabits-payments/internal/repository"
)

// PairStore is the registration store as seen by the verification
// engine: look up the (registration, payment) pair for an intent and
// complete both rows in a single atomic write.
type PairStore interface {
	FindByIntentID(ctx context.Context, intentID string) (*model.Registration, *model.Payment, error)
	CompletePair(ctx context.Context, intentID string, paidAt time.Time) error
}

// CompletionHook is invoked after a pair completes.  Its failure never
// fails the verification: payment finality is not rolled back because
// a downstream system was unreachable.
type CompletionHook interface {
	OnRegistrationCompleted(ctx context.Context, reg *model.Registration) error
}

// VerificationResult reports the outcome of one verify call.
type VerificationResult struct {
	Success         bool
	AlreadyVerified bool
	Registration    *model.Registration
	VerifiedAt      time.Time
	Source          string
}

// Verifier is the single state-transition authority for registrations.
// Calling Verify any number of times on an already-completed intent is
// a reported no-op; calling it concurrently from two callers yields
// exactly one state transition, the other caller receiving
// RACE_CONDITION_DETECTED.
type Verifier struct {
	locks     lock.Locker
	pairs     PairStore
	processor payment.StatusChecker
	hook      CompletionHook
	now       func() time.Time
}

// NewVerifier constructs a Verifier.  hook may be nil when no order
// bridge is attached (tests, reconciliation tooling).
func NewVerifier(locks lock.Locker, pairs PairStore, processor payment.StatusChecker, hook CompletionHook) *Verifier {
	if locks == nil || pairs == nil || processor == nil {
		panic("nil dependency passed to NewVerifier")
	}
	return &Verifier{locks: locks, pairs: pairs, processor: processor, hook: hook, now: time.Now}
}

// Verify authoritatively decides whether the registration behind
// intentID moves to COMPLETED.  force bypasses the lock gate and the
// already-verified short circuit; it exists for staff-driven
// re-verification and must stay behind authentication.
func (v *Verifier) Verify(ctx context.Context, intentID string, force bool) (*VerificationResult, error) {
	acquired, err := v.locks.Acquire(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !acquired && !force {
		return nil, &VerificationError{
			Code:    CodeRaceConditionDetected,
			Message: "verification already in progress for this payment intent",
		}
	}
	// Release on every exit path.  When the acquire was lost but force
	// is set we never took the lock, so there is nothing to release;
	// releasing anyway would clear the other caller's lock.
	if acquired {
		defer func() {
			if err := v.locks.Release(context.WithoutCancel(ctx), intentID); err != nil {
				log.Printf("verify: release lock %s: %v", intentID, err)
			}
		}()
	}

	reg, pay, err := v.pairs.FindByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &VerificationError{
				Code:    CodePaymentIntentNotFound,
				Message: "no payment with this intent identifier",
			}
		}
		return nil, err
	}

	if pay.IsFree() {
		// Zero-value payments settle without the processor.  They are
		// reported as a completed confirmation rather than an
		// already-verified no-op even when intake created them settled;
		// CompletePair makes the write a no-op in that case.
		verifiedAt := v.now().UTC()
		if err := v.pairs.CompletePair(ctx, intentID, verifiedAt); err != nil {
			return nil, err
		}
		reg.Status = model.RegistrationStatusCompleted
		if v.hook != nil {
			if err := v.hook.OnRegistrationCompleted(ctx, reg); err != nil {
				log.Printf("verify: order bridge failed for registration %s: %v", reg.ID, err)
			}
		}
		return &VerificationResult{
			Success:      true,
			Registration: reg,
			VerifiedAt:   verifiedAt,
			Source:       "free",
		}, nil
	}

	if pay.Status == model.PaymentStatusCompleted && !force {
		// Idempotence contract: settled means settled, report success
		// and touch nothing.
		return &VerificationResult{
			Success:         true,
			AlreadyVerified: true,
			Registration:    reg,
			VerifiedAt:      v.now().UTC(),
			Source:          "cache",
		}, nil
	}

	// Consult the authority.  Anything but succeeded leaves all state
	// untouched; the processor may still settle later.
	status, err := v.processor.IntentStatus(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if status != payment.StatusSucceeded {
		return nil, &VerificationError{
			Code:    CodePaymentNotSucceeded,
			Message: "payment processor reports status " + status,
		}
	}
	source := "processor"

	verifiedAt := v.now().UTC()
	if err := v.pairs.CompletePair(ctx, intentID, verifiedAt); err != nil {
		return nil, err
	}
	reg.Status = model.RegistrationStatusCompleted
	pay.Status = model.PaymentStatusCompleted
	log.Printf("verify: registration %s completed via %s (intent %s)", reg.ID, source, intentID)

	if v.hook != nil {
		if err := v.hook.OnRegistrationCompleted(ctx, reg); err != nil {
			// Recorded downstream for the retry sweep; the payment
			// outcome stands.
			log.Printf("verify: order bridge failed for registration %s: %v", reg.ID, err)
		}
	}

	return &VerificationResult{
		Success:      true,
		Registration: reg,
		VerifiedAt:   verifiedAt,
		Source:       source,
	}, nil
}

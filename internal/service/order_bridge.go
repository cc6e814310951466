package service

import (
	"context"
	"log"
	"time"

	"github.com/suttonsam862/richhabits-payments/internal/commerce"
	"github.com/suttonsam862/richhabits-payments/internal/model"
	"github.com/suttonsam862/richhabits-payments/internal/queue"
)

// RegistrationStore is the slice of the registration repository the
// order bridge needs: load a registration and record the external
// order reference exactly once.
type RegistrationStore interface {
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	SetExternalOrderRef(ctx context.Context, registrationID, ref string) error
}

// FailureStore tracks registrations whose order creation failed, for
// the retry sweep.
type FailureStore interface {
	Record(ctx context.Context, registrationID, lastError string) error
	Clear(ctx context.Context, registrationID string) error
	ListPending(ctx context.Context, limit int) ([]model.OrderSyncFailure, error)
}

// CompletedPublisher pushes a completed-registration event to the
// broker.  queue.PublishRegistrationCompleted satisfies it; tests
// substitute a recorder.
type CompletedPublisher func(ctx context.Context, ev queue.RegistrationCompletedEvent) error

// OrderBridge creates the commerce-platform order for a completed
// registration.  It is idempotent via the stored external order
// reference, and its failures never undo payment finality: they are
// recorded, announced on the broker, and retried by the sweep and the
// queue consumer.
type OrderBridge struct {
	orders   commerce.OrderCreator
	regs     RegistrationStore
	events   EventGetter
	failures FailureStore
	publish  CompletedPublisher
}

// NewOrderBridge constructs an OrderBridge.  publish may be nil when
// no broker is configured; the sweep still retries from the failure
// table.
func NewOrderBridge(orders commerce.OrderCreator, regs RegistrationStore, events EventGetter, failures FailureStore, publish CompletedPublisher) *OrderBridge {
	if orders == nil || regs == nil || events == nil || failures == nil {
		panic("nil dependency passed to NewOrderBridge")
	}
	return &OrderBridge{orders: orders, regs: regs, events: events, failures: failures, publish: publish}
}

// OnRegistrationCompleted is the verification engine's completion
// hook.  The broker announcement is best effort; the synchronous
// creation attempt reports its own outcome.
func (b *OrderBridge) OnRegistrationCompleted(ctx context.Context, reg *model.Registration) error {
	if b.publish != nil {
		ev := queue.RegistrationCompletedEvent{
			RegistrationID: reg.ID,
			EventID:        reg.EventID,
			Email:          reg.Email,
			FirstName:      reg.FirstName,
			LastName:       reg.LastName,
			AmountCents:    reg.FinalPriceCents,
			CompletedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		if err := b.publish(ctx, ev); err != nil {
			log.Printf("order-bridge: publish completed event for %s: %v", reg.ID, err)
		}
	}
	return b.EnsureOrder(ctx, reg)
}

// EnsureOrder creates the order unless a reference is already stored.
// On failure the registration lands in the failure table and the error
// is returned for the caller to log.
func (b *OrderBridge) EnsureOrder(ctx context.Context, reg *model.Registration) error {
	if reg.ExternalOrderRef != nil && *reg.ExternalOrderRef != "" {
		// Order exists; make sure no stale failure row lingers.
		if err := b.failures.Clear(ctx, reg.ID); err != nil {
			log.Printf("order-bridge: clear failure row for %s: %v", reg.ID, err)
		}
		return nil
	}
	title := ""
	if ev, err := b.events.GetByID(ctx, reg.EventID); err == nil {
		title = ev.Title
	}
	ref, err := b.orders.CreateOrder(ctx, commerce.OrderInput{
		RegistrationID: reg.ID,
		Email:          reg.Email,
		FirstName:      reg.FirstName,
		LastName:       reg.LastName,
		EventTitle:     title,
		AmountCents:    reg.FinalPriceCents,
	})
	if err != nil {
		if recErr := b.failures.Record(ctx, reg.ID, err.Error()); recErr != nil {
			log.Printf("order-bridge: record failure for %s: %v", reg.ID, recErr)
		}
		return err
	}
	if err := b.regs.SetExternalOrderRef(ctx, reg.ID, ref); err != nil {
		return err
	}
	if err := b.failures.Clear(ctx, reg.ID); err != nil {
		log.Printf("order-bridge: clear failure row for %s: %v", reg.ID, err)
	}
	log.Printf("order-bridge: order %s created for registration %s", ref, reg.ID)
	return nil
}

// EnsureOrderByID loads the registration and ensures its order.  The
// queue consumer and the sweep drive retries through this entry point.
func (b *OrderBridge) EnsureOrderByID(ctx context.Context, registrationID string) error {
	reg, err := b.regs.GetByID(ctx, registrationID)
	if err != nil {
		return err
	}
	return b.EnsureOrder(ctx, reg)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/suttonsam862/richhabits-payments/internal/commerce"
	"github.com/suttonsam862/richhabits-payments/internal/model"
	"github.com/suttonsam862/richhabits-payments/internal/queue"
	"github.com/suttonsam862/richhabits-payments/internal/repository"
)

type fakeOrders struct {
	created []commerce.OrderInput
	err     error
}

func (f *fakeOrders) CreateOrder(_ context.Context, in commerce.OrderInput) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, in)
	return "order-" + in.RegistrationID, nil
}

type fakeRegStore struct {
	regs map[string]*model.Registration
	refs map[string]string
}

func newFakeRegStore(regs ...*model.Registration) *fakeRegStore {
	s := &fakeRegStore{regs: make(map[string]*model.Registration), refs: make(map[string]string)}
	for _, r := range regs {
		s.regs[r.ID] = r
	}
	return s
}

func (s *fakeRegStore) GetByID(_ context.Context, id string) (*model.Registration, error) {
	r, ok := s.regs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeRegStore) SetExternalOrderRef(_ context.Context, registrationID, ref string) error {
	if _, done := s.refs[registrationID]; done {
		return nil
	}
	s.refs[registrationID] = ref
	if r, ok := s.regs[registrationID]; ok {
		r.ExternalOrderRef = &ref
	}
	return nil
}

type fakeFailures struct {
	pending map[string]*model.OrderSyncFailure
}

func newFakeFailures() *fakeFailures {
	return &fakeFailures{pending: make(map[string]*model.OrderSyncFailure)}
}

func (f *fakeFailures) Record(_ context.Context, registrationID, lastError string) error {
	if row, ok := f.pending[registrationID]; ok {
		row.Attempts++
		row.LastError = lastError
		return nil
	}
	f.pending[registrationID] = &model.OrderSyncFailure{RegistrationID: registrationID, Attempts: 1, LastError: lastError}
	return nil
}

func (f *fakeFailures) Clear(_ context.Context, registrationID string) error {
	delete(f.pending, registrationID)
	return nil
}

func (f *fakeFailures) ListPending(_ context.Context, limit int) ([]model.OrderSyncFailure, error) {
	out := make([]model.OrderSyncFailure, 0, len(f.pending))
	for _, row := range f.pending {
		if len(out) == limit {
			break
		}
		out = append(out, *row)
	}
	return out, nil
}

func completedRegistration(id string) *model.Registration {
	return &model.Registration{
		ID:              id,
		EventID:         42,
		FirstName:       "Dana",
		LastName:        "Reyes",
		Email:           "dana@example.com",
		FinalPriceCents: 12500,
		Status:          model.RegistrationStatusCompleted,
	}
}

func bridgeFixture(orders *fakeOrders) (*OrderBridge, *fakeRegStore, *fakeFailures) {
	events := &fakeEvents{events: map[uint64]*model.Event{
		42: {ID: 42, Title: "Summer Wrestling Camp"},
	}}
	regs := newFakeRegStore(completedRegistration("reg-1"))
	failures := newFakeFailures()
	publish := func(_ context.Context, _ queue.RegistrationCompletedEvent) error { return nil }
	return NewOrderBridge(orders, regs, events, failures, publish), regs, failures
}

func TestEnsureOrderCreatesOnce(t *testing.T) {
	orders := &fakeOrders{}
	bridge, regs, failures := bridgeFixture(orders)
	ctx := context.Background()

	reg, _ := regs.GetByID(ctx, "reg-1")
	if err := bridge.EnsureOrder(ctx, reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders.created) != 1 {
		t.Fatalf("expected one order, got %d", len(orders.created))
	}
	if orders.created[0].EventTitle != "Summer Wrestling Camp" {
		t.Fatalf("order must carry the event title, got %+v", orders.created[0])
	}
	if regs.refs["reg-1"] != "order-reg-1" {
		t.Fatalf("expected stored order ref, got %q", regs.refs["reg-1"])
	}
	if len(failures.pending) != 0 {
		t.Fatalf("no failure rows expected, got %d", len(failures.pending))
	}

	// Second call sees the stored reference and does nothing.
	reg, _ = regs.GetByID(ctx, "reg-1")
	if err := bridge.EnsureOrder(ctx, reg); err != nil {
		t.Fatalf("unexpected error on repeat: %v", err)
	}
	if len(orders.created) != 1 {
		t.Fatalf("repeat ensure must not create another order, got %d", len(orders.created))
	}
}

func TestEnsureOrderRecordsFailure(t *testing.T) {
	orders := &fakeOrders{err: errors.New("503 from commerce platform")}
	bridge, regs, failures := bridgeFixture(orders)
	ctx := context.Background()

	reg, _ := regs.GetByID(ctx, "reg-1")
	if err := bridge.EnsureOrder(ctx, reg); err == nil {
		t.Fatal("expected error when order creation fails")
	}
	row, ok := failures.pending["reg-1"]
	if !ok {
		t.Fatal("expected a failure row for reg-1")
	}
	if row.Attempts != 1 || row.LastError == "" {
		t.Fatalf("unexpected failure row: %+v", row)
	}

	// A second failed attempt bumps the counter.
	reg, _ = regs.GetByID(ctx, "reg-1")
	_ = bridge.EnsureOrder(ctx, reg)
	if failures.pending["reg-1"].Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", failures.pending["reg-1"].Attempts)
	}
}

func TestSweepOrderFailures(t *testing.T) {
	orders := &fakeOrders{err: errors.New("down")}
	bridge, regs, failures := bridgeFixture(orders)
	ctx := context.Background()

	reg, _ := regs.GetByID(ctx, "reg-1")
	_ = bridge.EnsureOrder(ctx, reg)
	if len(failures.pending) != 1 {
		t.Fatalf("setup: expected one pending failure, got %d", len(failures.pending))
	}

	// Platform comes back; the sweep drains the failure table.
	orders.err = nil
	created, err := SweepOrderFailures(ctx, bridge, failures, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected 1 order from the sweep, got %d", created)
	}
	if len(failures.pending) != 0 {
		t.Fatalf("expected failure table drained, got %d rows", len(failures.pending))
	}
	if regs.refs["reg-1"] != "order-reg-1" {
		t.Fatal("sweep must store the order reference")
	}

	// An empty table sweeps to zero without error.
	created, err = SweepOrderFailures(ctx, bridge, failures, 10)
	if err != nil || created != 0 {
		t.Fatalf("expected clean empty sweep, got created=%d err=%v", created, err)
	}
}

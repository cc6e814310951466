package handler

import (
	"context"
	"errors"
	"time"

	"github.com/suttonsam862/richhabits-payments/internal/model"
	"github.com/suttonsam862/richhabits-payments/internal/repository"
)

// stubPairStore serves handler tests with a handful of pending pairs
// keyed by intent id.
type stubPairStore struct {
	regs        map[string]*model.Registration
	pays        map[string]*model.Payment
	completions int
}

func newStubPairStore(intentIDs ...string) *stubPairStore {
	s := &stubPairStore{
		regs: make(map[string]*model.Registration),
		pays: make(map[string]*model.Payment),
	}
	for _, id := range intentIDs {
		s.regs[id] = &model.Registration{
			ID:              "reg-" + id,
			EventID:         3,
			Email:           "test@example.com",
			FinalPriceCents: 4200,
			Status:          model.RegistrationStatusPending,
		}
		s.pays[id] = &model.Payment{
			ID:             "pay-" + id,
			RegistrationID: "reg-" + id,
			IntentID:       id,
			Kind:           model.PaymentKindExternal,
			AmountCents:    4200,
			Status:         model.PaymentStatusPending,
		}
	}
	return s
}

func (s *stubPairStore) FindByIntentID(_ context.Context, intentID string) (*model.Registration, *model.Payment, error) {
	reg, ok := s.regs[intentID]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	r := *reg
	p := *s.pays[intentID]
	return &r, &p, nil
}

func (s *stubPairStore) CompletePair(_ context.Context, intentID string, paidAt time.Time) error {
	pay, ok := s.pays[intentID]
	if !ok {
		return repository.ErrNotFound
	}
	if pay.Status == model.PaymentStatusCompleted {
		return nil
	}
	s.regs[intentID].Status = model.RegistrationStatusCompleted
	pay.Status = model.PaymentStatusCompleted
	pay.PaidAt = &paidAt
	s.completions++
	return nil
}

// stubProcessor answers status lookups from a fixed map.
type stubProcessor struct {
	statuses map[string]string
}

func (s *stubProcessor) IntentStatus(_ context.Context, intentID string) (string, error) {
	st, ok := s.statuses[intentID]
	if !ok {
		return "", errors.New("unknown intent")
	}
	return st, nil
}

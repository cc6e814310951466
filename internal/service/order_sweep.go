package service

import (
	"context"
	"log"
)

// SweepOrderFailures retries order creation for every registration in
// the failure table, up to limit rows per run.  Individual failures
// stay in the table with a bumped attempt counter; the sweep never
// aborts early.  It returns how many orders were created.
func SweepOrderFailures(ctx context.Context, bridge *OrderBridge, failures FailureStore, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	pending, err := failures.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, f := range pending {
		if err := bridge.EnsureOrderByID(ctx, f.RegistrationID); err != nil {
			log.Printf("order-sweep: registration %s still failing after %d attempts: %v", f.RegistrationID, f.Attempts, err)
			continue
		}
		created++
	}
	return created, nil
}

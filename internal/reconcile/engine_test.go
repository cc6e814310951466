package reconcile

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/suttonsam862/richhabits-payments/internal/model"
	"github.com/suttonsam862/richhabits-payments/internal/payment"
	"github.com/suttonsam862/richhabits-payments/internal/store"
)

type fakeHistory struct {
	payments []payment.ProcessorPayment
}

func (f *fakeHistory) ListSucceeded(_ context.Context, _ time.Time) ([]payment.ProcessorPayment, error) {
	out := make([]payment.ProcessorPayment, len(f.payments))
	copy(out, f.payments)
	return out, nil
}

type fakeSource struct {
	name string
	rows []store.Row
	err  error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Rows(_ context.Context, _ time.Time) ([]store.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]store.Row, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

// testBase returns a stable instant well inside the lookback window,
// pinned to mid-morning UTC so day arithmetic never straddles midnight.
func testBase() time.Time {
	return time.Now().UTC().Add(-72 * time.Hour).Truncate(24 * time.Hour).Add(10 * time.Hour)
}

func cascadeFixtures() (*fakeHistory, []store.Source) {
	base := testBase()

	history := &fakeHistory{payments: []payment.ProcessorPayment{
		// Deliberately out of order; the engine must sort.
		{IntentID: "pi_c2", AmountCents: 3000, Email: "bob@example.com", PaidAt: base.Add(29 * time.Hour)},
		{IntentID: "pi_a", AmountCents: 5000, Email: "alice@example.com", EventID: 5, PaidAt: base.Add(5 * time.Minute)},
		{IntentID: "pi_d", AmountCents: 9900, PaidAt: base.Add(40 * time.Hour)},
		{IntentID: "pi_b", AmountCents: 7500, EventID: 5, PaidAt: base.Add(15 * time.Minute)},
		{IntentID: "pi_c", AmountCents: 2500, Email: "bob@example.com", PaidAt: base.Add(28 * time.Hour)},
	}}

	live := &fakeSource{name: "registrations", rows: []store.Row{
		{RegistrationID: "REG-001", EventID: 5, Email: "alice@example.com", IntentID: "pi_a", CreatedAt: base, Source: "registrations"},
	}}
	legacy := &fakeSource{name: "event_registrations", rows: []store.Row{
		{RegistrationID: "REG-002", EventID: 5, Email: "carl@example.com", CreatedAt: base.Add(10 * time.Minute), Source: "event_registrations"},
	}}
	retail := &fakeSource{name: "retail_orders", rows: []store.Row{
		{RegistrationID: "RO-003", Email: "bob@example.com", CreatedAt: base.Add(26 * time.Hour), Source: "retail_orders"},
	}}
	return history, []store.Source{live, legacy, retail}
}

func recordFor(t *testing.T, report *Report, intentID string) model.CorrelationRecord {
	t.Helper()
	for _, rec := range report.Records {
		if rec.IntentID == intentID {
			return rec
		}
	}
	t.Fatalf("no record for intent %s", intentID)
	return model.CorrelationRecord{}
}

func TestRunCascade(t *testing.T) {
	history, sources := cascadeFixtures()
	engine := NewEngine(history, sources)

	report, err := engine.Run(context.Background(), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Total != 5 || len(report.Records) != 5 {
		t.Fatalf("expected 5 records, got total=%d records=%d", report.Total, len(report.Records))
	}

	// Exact intent id match.
	a := recordFor(t, report, "pi_a")
	if a.Method != model.MatchMethodExactID || a.RegistrationID != "REG-001" {
		t.Fatalf("pi_a: expected exact-id match to REG-001, got %+v", a)
	}

	// Chronological anchor: nearest preceding same-event row once the
	// anchor offset (5 minutes) is applied.
	b := recordFor(t, report, "pi_b")
	if b.Method != model.MatchMethodChronological || b.RegistrationID != "REG-002" {
		t.Fatalf("pi_b: expected chronological match to REG-002, got %+v", b)
	}

	// Email plus same calendar day.
	c := recordFor(t, report, "pi_c")
	if c.Method != model.MatchMethodEmailDate || c.RegistrationID != "RO-003" {
		t.Fatalf("pi_c: expected email-date match to RO-003, got %+v", c)
	}

	// Same email and day, but the row is already consumed: a row never
	// absorbs two payments.
	c2 := recordFor(t, report, "pi_c2")
	if c2.Method != model.MatchMethodOrphan || c2.RegistrationID != "" {
		t.Fatalf("pi_c2: expected orphan, got %+v", c2)
	}

	// Nothing to match at all.
	d := recordFor(t, report, "pi_d")
	if d.Method != model.MatchMethodOrphan {
		t.Fatalf("pi_d: expected orphan, got %+v", d)
	}

	if report.Orphans != 2 {
		t.Fatalf("expected 2 orphans, got %d", report.Orphans)
	}
	if report.RevenueCents != 27900 {
		t.Fatalf("expected total revenue 27900, got %d", report.RevenueCents)
	}
	if report.MatchedRevenueCents != 15000 {
		t.Fatalf("expected matched revenue 15000, got %d", report.MatchedRevenueCents)
	}

	sum := 0
	for _, n := range report.ByMethod {
		sum += n
	}
	if sum != report.Total {
		t.Fatalf("method counts must sum to total: %d != %d", sum, report.Total)
	}
}

func TestRunDeterministic(t *testing.T) {
	history, sources := cascadeFixtures()
	engine := NewEngine(history, sources)

	first, err := engine.Run(context.Background(), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Run(context.Background(), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Fatal("identical inputs must yield identical records")
	}
}

func TestRunNoAnchorsSkipsChronologicalPass(t *testing.T) {
	base := testBase()
	history := &fakeHistory{payments: []payment.ProcessorPayment{
		// No row carries this intent id, so there are no anchors and no
		// clock offset to calibrate against.
		{IntentID: "pi_x", AmountCents: 4000, EventID: 5, PaidAt: base.Add(time.Hour)},
	}}
	src := &fakeSource{name: "event_registrations", rows: []store.Row{
		{RegistrationID: "REG-010", EventID: 5, Email: "erin@example.com", CreatedAt: base, Source: "event_registrations"},
	}}
	engine := NewEngine(history, []store.Source{src})

	report, err := engine.Run(context.Background(), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := recordFor(t, report, "pi_x")
	if rec.Method != model.MatchMethodOrphan {
		t.Fatalf("without anchors the payment must orphan, got %+v", rec)
	}
}

func TestRunToleratesFailingSource(t *testing.T) {
	base := testBase()
	history := &fakeHistory{payments: []payment.ProcessorPayment{
		{IntentID: "pi_a", AmountCents: 5000, EventID: 5, PaidAt: base.Add(5 * time.Minute)},
	}}
	good := &fakeSource{name: "registrations", rows: []store.Row{
		{RegistrationID: "REG-001", EventID: 5, IntentID: "pi_a", CreatedAt: base, Source: "registrations"},
	}}
	dead := &fakeSource{name: "event_registrations", err: errors.New("connection refused")}
	engine := NewEngine(history, []store.Source{good, dead})

	report, err := engine.Run(context.Background(), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("a dead source must not fail the run: %v", err)
	}
	rec := recordFor(t, report, "pi_a")
	if rec.Method != model.MatchMethodExactID {
		t.Fatalf("expected exact-id match from the healthy source, got %+v", rec)
	}
}

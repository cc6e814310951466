// Package reconcile implements the offline correlation engine.  Given
// the processor's full list of successful payments over a lookback
// window and the registered list of registration store adapters, it
// produces exactly one correlation record per payment through a
// cascading match: exact intent id, then chronological-anchor, then
// email plus calendar day, then orphan.  The engine is strictly an
// audit tool: it never mutates registrations or payments.
package reconcile

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/suttonsam862/richhabits-payments/internal/model"
	"github.com/suttonsam862/richhabits-payments/internal/payment"
	"github.com/suttonsam862/richhabits-payments/internal/store"
)

// rowMargin widens the row fetch window beyond the payment lookback so
// registrations created shortly before the window still participate.
const rowMargin = 48 * time.Hour

// maxAnchorGap bounds how far before a payment a chronologically
// matched row may sit once the anchor offset is applied.  Anything
// further apart is left for the email pass or flagged as an orphan.
const maxAnchorGap = 48 * time.Hour

// Report summarizes one reconciliation run.
type Report struct {
	Since               time.Time
	Total               int
	ByMethod            map[string]int
	Orphans             int
	RevenueCents        int64
	MatchedRevenueCents int64
	Records             []model.CorrelationRecord
}

// Engine wires the processor history to the store adapters.
type Engine struct {
	history payment.HistoryLister
	sources []store.Source
}

// NewEngine constructs an Engine over the given history and sources.
// Source order matters only for row identity; matching order is fully
// determined by timestamps and ids.
func NewEngine(history payment.HistoryLister, sources []store.Source) *Engine {
	if history == nil {
		panic("nil history passed to NewEngine")
	}
	return &Engine{history: history, sources: sources}
}

// Run reconciles all successful payments newer than lookback.  Given
// the same two input snapshots it produces the same records: payments
// and rows are stably sorted by timestamp then id, and rows are
// consumed strictly first fit, so no registration absorbs two
// payments.  A single unmatched payment never stops the run; it
// becomes an orphan record.
func (e *Engine) Run(ctx context.Context, lookback time.Duration) (*Report, error) {
	since := time.Now().UTC().Add(-lookback)
	payments, err := e.history.ListSucceeded(ctx, since)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(payments, func(i, j int) bool {
		if !payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].PaidAt.Before(payments[j].PaidAt)
		}
		return payments[i].IntentID < payments[j].IntentID
	})

	var rows []store.Row
	for _, src := range e.sources {
		srcRows, err := src.Rows(ctx, since.Add(-rowMargin))
		if err != nil {
			// A dead legacy store must not sink the whole run; its
			// rows simply cannot match this time.
			log.Printf("reconcile: source %s failed: %v", src.Name(), err)
			continue
		}
		rows = append(rows, srcRows...)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].RegistrationID < rows[j].RegistrationID
	})

	return e.match(since, payments, rows), nil
}

// anchor is an exact-id match used to calibrate the offset between the
// processor clock and a store's row timestamps.
type anchor struct {
	paidAt  time.Time
	rowAt   time.Time
	eventID uint64
}

func (e *Engine) match(since time.Time, payments []payment.ProcessorPayment, rows []store.Row) *Report {
	report := &Report{
		Since:    since,
		Total:    len(payments),
		ByMethod: map[string]int{},
	}
	byIntent := make(map[string]int, len(rows))
	for i, r := range rows {
		if r.IntentID != "" {
			if _, dup := byIntent[r.IntentID]; !dup {
				byIntent[r.IntentID] = i
			}
		}
	}
	used := make([]bool, len(rows))
	matched := make([]model.CorrelationRecord, 0, len(payments))
	remaining := make([]int, 0, len(payments)) // indexes into payments

	// Pass 1: exact identifier match.  These matches double as the
	// anchors for the chronological pass.
	var anchors []anchor
	for pi, p := range payments {
		ri, ok := byIntent[p.IntentID]
		if ok && !used[ri] {
			used[ri] = true
			matched = append(matched, record(p, &rows[ri], model.MatchMethodExactID, "intent id present in "+rows[ri].Source))
			anchors = append(anchors, anchor{paidAt: p.PaidAt, rowAt: rows[ri].CreatedAt, eventID: rows[ri].EventID})
			continue
		}
		remaining = append(remaining, pi)
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].paidAt.Before(anchors[j].paidAt) })
	offset := anchorOffset(anchors)

	// Pass 2: chronological-anchor match.  Only runs when anchors
	// exist, because without them neither the clock offset nor the
	// event a payment belongs to can be pinned.
	stillLeft := remaining[:0]
	for _, pi := range remaining {
		p := payments[pi]
		if len(anchors) == 0 {
			stillLeft = append(stillLeft, pi)
			continue
		}
		eventID := p.EventID
		if eventID == 0 {
			eventID = nearestAnchorEvent(anchors, p.PaidAt)
		}
		adjusted := p.PaidAt.Add(-offset)
		best := -1
		for ri, r := range rows {
			if used[ri] || r.EventID == 0 || r.EventID != eventID {
				continue
			}
			if r.CreatedAt.After(adjusted) {
				// rows are sorted ascending; nothing later can precede
				break
			}
			if adjusted.Sub(r.CreatedAt) > maxAnchorGap {
				continue
			}
			if best == -1 || betterChronologicalCandidate(rows[ri], rows[best]) {
				best = ri
			}
		}
		if best >= 0 {
			used[best] = true
			matched = append(matched, record(p, &rows[best], model.MatchMethodChronological,
				"nearest preceding row in "+rows[best].Source+" after anchor offset"))
			continue
		}
		stillLeft = append(stillLeft, pi)
	}
	remaining = stillLeft

	// Pass 3: email plus same calendar day.
	stillLeft = remaining[:0]
	for _, pi := range remaining {
		p := payments[pi]
		if p.Email == "" {
			stillLeft = append(stillLeft, pi)
			continue
		}
		found := -1
		for ri, r := range rows {
			if used[ri] || r.Email == "" {
				continue
			}
			if !strings.EqualFold(r.Email, p.Email) {
				continue
			}
			if !sameDay(r.CreatedAt, p.PaidAt) {
				continue
			}
			found = ri // rows sorted ascending: first fit is earliest
			break
		}
		if found >= 0 {
			used[found] = true
			matched = append(matched, record(p, &rows[found], model.MatchMethodEmailDate,
				"email match in "+rows[found].Source+" on same calendar day"))
			continue
		}
		stillLeft = append(stillLeft, pi)
	}
	remaining = stillLeft

	// Pass 4: orphans, recorded explicitly for manual review.
	for _, pi := range remaining {
		matched = append(matched, record(payments[pi], nil, model.MatchMethodOrphan,
			"no registration found by any matching method"))
	}

	// Re-sort into payment order so the output is stable regardless of
	// which pass produced each record.
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].PaidAt.Equal(matched[j].PaidAt) {
			return matched[i].PaidAt.Before(matched[j].PaidAt)
		}
		return matched[i].IntentID < matched[j].IntentID
	})

	for _, rec := range matched {
		report.ByMethod[rec.Method]++
		report.RevenueCents += rec.AmountCents
		if rec.Method == model.MatchMethodOrphan {
			report.Orphans++
		} else {
			report.MatchedRevenueCents += rec.AmountCents
		}
	}
	report.Records = matched
	return report
}

func record(p payment.ProcessorPayment, row *store.Row, method, note string) model.CorrelationRecord {
	rec := model.CorrelationRecord{
		IntentID:    p.IntentID,
		Method:      method,
		Note:        note,
		AmountCents: p.AmountCents,
		PaidAt:      p.PaidAt,
	}
	if row != nil {
		rec.RegistrationID = row.RegistrationID
		rec.Source = row.Source
	}
	return rec
}

// anchorOffset returns the median difference between payment time and
// row time across the anchors.  The median keeps one badly backfilled
// row from skewing the whole timeline.
func anchorOffset(anchors []anchor) time.Duration {
	if len(anchors) == 0 {
		return 0
	}
	offsets := make([]time.Duration, len(anchors))
	for i, a := range anchors {
		offsets[i] = a.paidAt.Sub(a.rowAt)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets[len(offsets)/2]
}

// nearestAnchorEvent returns the event of the anchor closest in time
// to the payment.  Anchors must be sorted by paidAt.
func nearestAnchorEvent(anchors []anchor, paidAt time.Time) uint64 {
	best := anchors[0]
	bestGap := absDuration(paidAt.Sub(best.paidAt))
	for _, a := range anchors[1:] {
		gap := absDuration(paidAt.Sub(a.paidAt))
		if gap < bestGap {
			best, bestGap = a, gap
		}
	}
	return best.eventID
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// betterChronologicalCandidate prefers the later row (nearest
// preceding); on equal timestamps the earliest row id wins, which is
// the documented tie-break for equally close candidates.
func betterChronologicalCandidate(candidate, current store.Row) bool {
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.After(current.CreatedAt)
	}
	return candidate.RegistrationID < current.RegistrationID
}

// sameDay reports whether both times fall on the same UTC calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

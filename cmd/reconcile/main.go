package main // Offline reconciliation entry point

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/suttonsam862/richhabits-payments/internal/config"
	"github.com/suttonsam862/richhabits-payments/internal/database"
	"github.com/suttonsam862/richhabits-payments/internal/model"
	"github.com/suttonsam862/richhabits-payments/internal/payment"
	"github.com/suttonsam862/richhabits-payments/internal/reconcile"
	"github.com/suttonsam862/richhabits-payments/internal/repository"
	"github.com/suttonsam862/richhabits-payments/internal/store"
)

func main() {
	days := flag.Int("days", 90, "lookback window in days for processor payments")
	export := flag.String("export", "", "write the correlation records to this CSV file")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	processor := payment.NewClient(cfg.ProcessorAPIURL, cfg.ProcessorAPIKey)

	// Every registration store that ever took money participates.  The
	// engine tolerates an unreachable source; its rows just cannot match
	// on this run.
	sources := []store.Source{
		store.NewCurrentSource(db),
		store.NewLegacyEventRegistrationsSource(db),
		store.NewRetailOrdersSource(db),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	engine := reconcile.NewEngine(processor, sources)
	report, err := engine.Run(ctx, time.Duration(*days)*24*time.Hour)
	if err != nil {
		log.Fatalf("reconcile: %v", err)
	}

	// Persist the run wholesale.  Each run replaces the previous audit
	// set so reviewers always see a single consistent snapshot.
	if err := repository.NewCorrelationRepo(db).ReplaceAll(ctx, report.Records); err != nil {
		log.Fatalf("store correlation records: %v", err)
	}

	printSummary(report)

	if *export != "" {
		if err := exportCSV(*export, report.Records); err != nil {
			log.Fatalf("export: %v", err)
		}
		fmt.Printf("wrote %d records to %s\n", len(report.Records), *export)
	}
}

// printSummary writes a human-readable run summary to stdout.  Methods
// are printed in cascade order so runs are easy to diff.
func printSummary(r *reconcile.Report) {
	fmt.Printf("reconciled %d payments since %s\n", r.Total, r.Since.Format(time.RFC3339))
	for _, method := range []string{
		model.MatchMethodExactID,
		model.MatchMethodChronological,
		model.MatchMethodEmailDate,
		model.MatchMethodOrphan,
	} {
		fmt.Printf("  %-22s %d\n", method, r.ByMethod[method])
	}
	fmt.Printf("orphans: %d\n", r.Orphans)
	fmt.Printf("revenue: %s total, %s matched\n",
		dollars(r.RevenueCents), dollars(r.MatchedRevenueCents))
}

// exportCSV writes the records in the same order they are stored.
func exportCSV(path string, records []model.CorrelationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"intent_id", "registration_id", "source", "method", "note", "amount_cents", "paid_at"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.IntentID,
			rec.RegistrationID,
			rec.Source,
			rec.Method,
			rec.Note,
			fmt.Sprintf("%d", rec.AmountCents),
			rec.PaidAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func dollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

package main // Order-failure sweep entry point

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/suttonsam862/richhabits-payments/internal/commerce"
	"github.com/suttonsam862/richhabits-payments/internal/config"
	"github.com/suttonsam862/richhabits-payments/internal/database"
	"github.com/suttonsam862/richhabits-payments/internal/repository"
	"github.com/suttonsam862/richhabits-payments/internal/service"
)

// The sweep retries commerce-platform order creation for completed
// registrations whose synchronous bridge attempt failed.  It is safe
// to run on a schedule alongside the queue consumer: order creation is
// idempotent on the registration id, so both retry paths can race.
func main() {
	limit := flag.Int("limit", 200, "maximum failure rows to retry per run")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	regRepo := repository.NewRegistrationRepo(db)
	eventRepo := repository.NewEventRepo(db)
	failureRepo := repository.NewOrderFailureRepo(db)
	commercePlatform := commerce.NewClient(cfg.CommerceAPIURL, cfg.CommerceToken)
	bridge := service.NewOrderBridge(commercePlatform, regRepo, eventRepo, failureRepo, nil)

	created, err := service.SweepOrderFailures(ctx, bridge, failureRepo, *limit)
	if err != nil {
		log.Fatalf("order sweep: %v", err)
	}
	fmt.Printf("order sweep created %d orders\n", created)
}

package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files in local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/suttonsam862/richhabits-payments/internal/commerce"
	"github.com/suttonsam862/richhabits-payments/internal/config" // Internal config loader
	"github.com/suttonsam862/richhabits-payments/internal/database"
	"github.com/suttonsam862/richhabits-payments/internal/handler"
	"github.com/suttonsam862/richhabits-payments/internal/lock"
	"github.com/suttonsam862/richhabits-payments/internal/payment"
	"github.com/suttonsam862/richhabits-payments/internal/queue"
	"github.com/suttonsam862/richhabits-payments/internal/repository"
	"github.com/suttonsam862/richhabits-payments/internal/router" // Internal router setup
	"github.com/suttonsam862/richhabits-payments/internal/service"
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load() // Load environment config

	// Open the MySQL pool.  Every repository shares this handle.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis backs verification locks and rate limiting.  A nil client
	// means Redis is unreachable: verification falls back to in-process
	// locks and rate limiting is disabled.
	rdb := config.NewRedisClient()
	var locker lock.Locker
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, "verify-lock")
	} else {
		log.Println("redis unavailable; using in-process verification locks")
		locker = lock.NewMemoryLocker()
	}

	// Repositories
	regRepo := repository.NewRegistrationRepo(db)
	eventRepo := repository.NewEventRepo(db)
	failureRepo := repository.NewOrderFailureRepo(db)

	// External clients
	processor := payment.NewClient(cfg.ProcessorAPIURL, cfg.ProcessorAPIKey)
	commercePlatform := commerce.NewClient(cfg.CommerceAPIURL, cfg.CommerceToken)

	// Services.  The order bridge hangs off the verifier as its
	// completion hook so every completed registration gets an order.
	bridge := service.NewOrderBridge(commercePlatform, regRepo, eventRepo, failureRepo, queue.PublishRegistrationCompleted)
	verifier := service.NewVerifier(locker, regRepo, processor, bridge)
	intake := service.NewIntake(eventRepo, regRepo, processor)

	// Handlers
	regHandler := handler.NewRegistrationHandler(intake, regRepo)
	verifyHandler := handler.NewVerifyHandler(verifier)
	webhookHandler := handler.NewWebhookHandler(verifier, cfg.WebhookSecret)

	// Background consumer retrying commerce-order creation for
	// completed registrations.  It reconnects on broker failure and
	// never takes the HTTP server down with it.
	go func() {
		if err := queue.StartOrderRetryConsumer(bridge.EnsureOrderByID); err != nil {
			log.Printf("order retry consumer stopped: %v", err)
		}
	}()

	rlCfg := config.LoadRateLimitConfig()
	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterRegistration(e, regHandler, rlCfg, rdb)
	router.RegisterPayments(e, verifyHandler, webhookHandler, cfg.JWTSecret, rlCfg, rdb)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}

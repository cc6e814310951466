package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/suttonsam862/richhabits-payments/internal/config"
	"github.com/suttonsam862/richhabits-payments/internal/handler"    // import the handlers that implement business logic
	"github.com/suttonsam862/richhabits-payments/internal/middleware" // import middleware for staff auth and rate limiting
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterRegistration registers the registration intake and lookup endpoints.
// Both endpoints are public: intake is the storefront entry point and lookup
// only exposes a registration summary keyed by its payment intent id.  The
// same token-bucket limiter that guards verification is applied here so
// intake cannot be hammered into creating garbage pending pairs.
func RegisterRegistration(e *echo.Echo, r *handler.RegistrationHandler, rl config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/registrations")
	g.Use(middleware.NewTokenBucket(rl, rdb))
	// Create a registration together with its payment record.  Free events
	// complete immediately, paid events return a client secret for checkout.
	g.POST("", r.CreateRegistration)
	// Look up a registration by the payment intent that funds it.  Clients
	// poll this after checkout to confirm completion.
	g.GET("/:paymentIntentId", r.GetRegistration)
}

// RegisterPayments registers the payment verification and webhook endpoints.
// Verification is rate limited per client IP and runs the optional staff auth
// middleware so that authenticated staff can request forced re-verification.
// The webhook endpoint authenticates via HMAC signature instead of JWT and is
// therefore registered outside the staff group.
func RegisterPayments(e *echo.Echo, v *handler.VerifyHandler, w *handler.WebhookHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/payments")
	g.Use(middleware.NewTokenBucket(rl, rdb))

	verify := g.Group("")
	verify.Use(middleware.StaffAuth(jwtSecret))
	verify.POST("/verify", v.VerifyPayment)

	// Processor callbacks.  Signature verification happens in the handler
	// because it needs the raw request body.
	e.POST("/v1/webhooks/payment", w.HandlePaymentWebhook)
}

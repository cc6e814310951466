package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The types reflect how the values are used
// in the application: strings for identifiers, secrets and endpoints.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	JWTSecret       string // secret used to verify staff JWTs
	WebhookSecret   string // HMAC secret for processor webhook signatures (optional in dev)
	ProcessorAPIURL string // payment processor API base URL
	ProcessorAPIKey string // payment processor secret key
	CommerceAPIURL  string // commerce platform admin API base URL
	CommerceToken   string // commerce platform access token
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"), // empty allowed
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		WebhookSecret:   os.Getenv("WEBHOOK_SECRET"),
		ProcessorAPIURL: orDefault("PROCESSOR_API_URL", "https://api.stripe.com"),
		ProcessorAPIKey: must("PROCESSOR_API_KEY"),
		CommerceAPIURL:  must("COMMERCE_API_URL"),
		CommerceToken:   must("COMMERCE_ACCESS_TOKEN"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// orDefault retrieves an optional environment variable, falling back to
// the provided default when it is unset or empty.
func orDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

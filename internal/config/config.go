package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration values. Values are read once at
// startup and passed explicitly into component constructors.
type Config struct {
	Secret      string
	DatabaseDSN string
	HTTPPort    string

	// Policy oracle (dosage safety and refill judgment).
	OracleBaseURL string
	OracleAPIKey  string
	OracleModel   string
	OracleTimeout time.Duration

	// Fulfillment webhook fired after order confirmation. Empty disables it.
	FulfillmentWebhookURL string

	// Quantity sanitizer ceiling: anything above this is treated as a parsing
	// artifact, not a legitimate single-order size.
	MaxOrderQuantity int64

	// Recency window for pending proactive alerts.
	AlertWindowDays int
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "file:mediflow.db?_pragma=foreign_keys(1)"
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	oracleTimeout := 8 * time.Second
	if raw := os.Getenv("ORACLE_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			oracleTimeout = time.Duration(secs) * time.Second
		}
	}

	maxQty := int64(60)
	if raw := os.Getenv("MAX_ORDER_QUANTITY"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			maxQty = n
		}
	}

	alertWindow := 7
	if raw := os.Getenv("ALERT_WINDOW_DAYS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			alertWindow = n
		}
	}

	model := os.Getenv("ORACLE_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return Config{
		Secret:                secret,
		DatabaseDSN:           dsn,
		HTTPPort:              port,
		OracleBaseURL:         os.Getenv("ORACLE_BASE_URL"),
		OracleAPIKey:          os.Getenv("ORACLE_API_KEY"),
		OracleModel:           model,
		OracleTimeout:         oracleTimeout,
		FulfillmentWebhookURL: os.Getenv("FULFILLMENT_WEBHOOK_URL"),
		MaxOrderQuantity:      maxQty,
		AlertWindowDays:       alertWindow,
	}
}

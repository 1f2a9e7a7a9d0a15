package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/joho/godotenv" // optional .env file for local runs
)

// Environments recognised by APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env                 string // application environment (development, test, production)
	Port                string // HTTP port to listen on
	DBUser              string // database username
	DBPass              string // database password (optional)
	DBHost              string // database host address
	DBPort              string // database port number
	DBName              string // database name
	AccessSecret        string // HMAC secret for access tokens
	RefreshSecret       string // HMAC secret for refresh tokens, must differ from AccessSecret
	AccessTTLMin        int    // access token time-to-live in minutes
	RefreshTTLDays      int    // refresh token time-to-live in days
	BcryptCost          int    // bcrypt cost for password hashing
	StripeSecretKey     string // Stripe API key used to create payment intents
	StripeWebhookSecret string // shared secret for Stripe-Signature verification
	FrontendURL         string // allowed CORS origin
	LogLevel            string // zap level: debug, info, warn, error
	RabbitURL           string // AMQP broker for invoice.paid events (empty disables publishing)
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is applied first when present.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:                 envOr("APP_ENV", EnvDevelopment),
		Port:                envOr("APP_PORT", "4000"),
		DBUser:              must("DB_USER"),
		DBPass:              os.Getenv("DB_PASS"), // empty allowed
		DBHost:              must("DB_HOST"),
		DBPort:              envOr("DB_PORT", "3306"),
		DBName:              must("DB_NAME"),
		AccessSecret:        must("JWT_ACCESS_SECRET"),
		RefreshSecret:       must("JWT_REFRESH_SECRET"),
		AccessTTLMin:        mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:      mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:          mustInt("BCRYPT_COST"),
		StripeSecretKey:     must("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: must("STRIPE_WEBHOOK_SECRET"),
		FrontendURL:         envOr("FRONTEND_URL", "http://localhost:5173"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		RabbitURL:           rabbitURL(),
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		log.Fatalf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if cfg.AccessTTLMin <= 0 || cfg.RefreshTTLDays <= 0 {
		log.Fatalf("token TTLs must be positive")
	}
	return cfg
}

// IsProduction reports whether cookies and error bodies use production rules.
func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// IsDevelopment reports whether error responses may include stack detail.
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// AccessTTL returns the access token lifetime.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL returns the refresh token lifetime.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
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

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// rabbitURL accepts the same variable names the queue package has always read.
func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"pizza-service/internal/metrics"
)

// Config holds service settings derived from CLI flags, each defaulting to an
// environment variable.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	SessionDB   string
	Version     string
	LogJSON     bool

	FactoryURL    string
	FactoryAPIKey string

	AdminName     string
	AdminEmail    string
	AdminPassword string

	MetricsEnabled  bool
	MetricsURL      string
	MetricsAPIKey   string
	MetricsSource   string
	MetricsInterval time.Duration
	MetricsTimeout  time.Duration
}

// Load parses args (normally os.Args[1:]) into a Config.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("pizza", flag.ContinueOnError)

	fs.StringVar(&cfg.Addr, "addr", envString("PIZZA_ADDR", ":3000"), "address the HTTP server listens on")
	fs.StringVar(&cfg.DatabaseURL, "database-url", envString("DATABASE_URL", ""), "PostgreSQL connection string")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", envString("PIZZA_JWT_SECRET", ""), "HMAC secret for auth tokens")
	fs.StringVar(&cfg.SessionDB, "session-db", envString("PIZZA_SESSION_DB", "pizza-data/sessions.db"), "path to the session store")
	fs.StringVar(&cfg.Version, "version", envString("PIZZA_VERSION", "dev"), "version reported by GET /")
	fs.BoolVar(&cfg.LogJSON, "log-json", envBool("PIZZA_LOG_JSON", true), "emit JSON logs")

	fs.StringVar(&cfg.FactoryURL, "factory-url", envString("PIZZA_FACTORY_URL", "https://pizza-factory.cs329.click"), "pizza factory base url")
	fs.StringVar(&cfg.FactoryAPIKey, "factory-api-key", envString("PIZZA_FACTORY_API_KEY", ""), "pizza factory API key")

	fs.StringVar(&cfg.AdminName, "admin-name", envString("PIZZA_ADMIN_NAME", "pizza admin"), "name of the seeded admin")
	fs.StringVar(&cfg.AdminEmail, "admin-email", envString("PIZZA_ADMIN_EMAIL", ""), "seed an admin with this email at startup")
	fs.StringVar(&cfg.AdminPassword, "admin-password", envString("PIZZA_ADMIN_PASSWORD", ""), "password of the seeded admin")

	fs.BoolVar(&cfg.MetricsEnabled, "metrics", envBool("PIZZA_METRICS_ENABLED", true), "push metrics to the collector")
	fs.StringVar(&cfg.MetricsURL, "metrics-url", envString("PIZZA_METRICS_URL", ""), "OTLP/JSON collector url")
	fs.StringVar(&cfg.MetricsAPIKey, "metrics-api-key", envString("PIZZA_METRICS_API_KEY", ""), "collector bearer key")
	fs.StringVar(&cfg.MetricsSource, "metrics-source", envString("PIZZA_METRICS_SOURCE", ""), "source label attached to every metric")
	fs.DurationVar(&cfg.MetricsInterval, "metrics-interval", envDuration("PIZZA_METRICS_INTERVAL", metrics.DefaultInterval), "interval between metric pushes")
	fs.DurationVar(&cfg.MetricsTimeout, "metrics-timeout", envDuration("PIZZA_METRICS_TIMEOUT", metrics.DefaultTimeout), "timeout for one metric push")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on settings the service cannot run without.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("database url is required (DATABASE_URL)"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required (PIZZA_JWT_SECRET)"))
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		errs = append(errs, errors.New("admin email and admin password must be set together"))
	}
	if cfg.MetricsEnabled {
		if cfg.MetricsURL == "" {
			errs = append(errs, errors.New("metrics url is required when metrics are enabled (PIZZA_METRICS_URL)"))
		}
		if cfg.MetricsAPIKey == "" {
			errs = append(errs, errors.New("metrics api key is required when metrics are enabled (PIZZA_METRICS_API_KEY)"))
		}
		if cfg.MetricsSource == "" {
			errs = append(errs, errors.New("metrics source is required when metrics are enabled (PIZZA_METRICS_SOURCE)"))
		}
		if cfg.MetricsInterval <= 0 {
			errs = append(errs, fmt.Errorf("metrics interval must be positive, got %s", cfg.MetricsInterval))
		}
		if cfg.MetricsTimeout <= 0 {
			errs = append(errs, fmt.Errorf("metrics timeout must be positive, got %s", cfg.MetricsTimeout))
		}
	}
	return errors.Join(errs...)
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-photoedit/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	CurrencyCode       string
	IdempotencyTTL     time.Duration
	RateLimitQuotes    string
	RateLimitOrders    string
	OrderLockTTL       time.Duration
	MigrateOnStart     bool
	ShutdownTimeout    time.Duration
	PriceOverrides     map[pricing.ServiceID]pricing.Money
	MaxBodyBytes       int64
	SecurityHeaders    bool
	EnableHSTS         bool
	AuditEnabled       bool
	AuditSamplingRate  float64
	Obs                ObsConfig
}

// ObsConfig configures logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	EnablePrometheus bool
	EnableTracing    bool
	OTLPEndpoint     string
	SamplingRatio    float64
	SlowQuery        time.Duration
	EnablePprof      bool
	PprofUser        string
	PprofPass        string
}

// priceEnv maps each service to the variable overriding its unit price.
var priceEnv = map[pricing.ServiceID]string{
	pricing.StandardEditing:    "PRICE_STANDARD_EDITING",
	pricing.VirtualStaging:     "PRICE_VIRTUAL_STAGING",
	pricing.TwilightConversion: "PRICE_TWILIGHT_CONVERSION",
	pricing.Decluttering:       "PRICE_DECLUTTERING",
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "USD")),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitQuotes:    valueOrDefault(k.String("RATE_LIMIT_QUOTES"), "120-M"),
		RateLimitOrders:    valueOrDefault(k.String("RATE_LIMIT_ORDERS"), "20-M"),
		OrderLockTTL:       parseDuration(k.String("ORDER_LOCK_TTL"), "10s"),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START")),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		MaxBodyBytes:       parseInt64(k.String("MAX_BODY_BYTES"), 1<<20),
		SecurityHeaders:    parseBoolDefault(k.String("SECURITY_HEADERS"), true),
		AuditEnabled:       parseBoolDefault(k.String("AUDIT_ENABLED"), true),
		AuditSamplingRate:  parseFloat(k.String("AUDIT_SAMPLING_RATE"), 1),
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "photoedit"),
			EnablePrometheus: parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			EnableTracing:    parseBool(k.String("OBS_ENABLE_TRACING")),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			SlowQuery:        parseDuration(k.String("OBS_SLOW_QUERY"), "250ms"),
			EnablePprof:      parseBool(k.String("OBS_ENABLE_PPROF")),
			PprofUser:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
			PprofPass:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		},
	}

	cfg.EnableHSTS = parseBoolDefault(k.String("SECURITY_HSTS"), cfg.IsProduction())

	if len(cfg.CurrencyCode) != 3 {
		return nil, fmt.Errorf("CURRENCY_CODE must be an ISO 4217 code, got %q", cfg.CurrencyCode)
	}

	overrides, err := loadPriceOverrides(k)
	if err != nil {
		return nil, err
	}
	cfg.PriceOverrides = overrides

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// Catalog returns the default catalog with the configured price overrides applied.
func (c *Config) Catalog() (pricing.Catalog, error) {
	return pricing.DefaultCatalog().WithPrices(c.PriceOverrides)
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "production" || env == "prod"
}

func loadPriceOverrides(k *koanf.Koanf) (map[pricing.ServiceID]pricing.Money, error) {
	out := map[pricing.ServiceID]pricing.Money{}
	for id, key := range priceEnv {
		raw := strings.TrimSpace(k.String(key))
		if raw == "" {
			continue
		}
		price, err := pricing.ParseMoney(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if price < 0 {
			return nil, fmt.Errorf("%s must not be negative", key)
		}
		out[id] = price
	}
	return out, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseInt64(value string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// LoadForTests allows tests to override environment variables without touching the real environment.
// An empty value unsets the variable for the duration of the load.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]*string, len(env))
	for key, value := range env {
		if prev, ok := os.LookupEnv(key); ok {
			original[key] = &prev
		} else {
			original[key] = nil
		}
		if err := setEnvVar(key, value); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]*string) error {
	var errs []error
	for key, value := range values {
		var err error
		if value == nil {
			err = os.Unsetenv(key)
		} else {
			err = os.Setenv(key, *value)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %w", errors.Join(errs...))
	}
	return nil
}

// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Paystack
	PaystackSecretKey   string `koanf:"paystack_secret_key"`
	PaystackCallbackURL string `koanf:"paystack_callback_url"`
	Currency            string `koanf:"currency"`

	// TrackingMore
	TrackingMoreAPIKey string `koanf:"trackingmore_api_key"`

	// Model artifacts
	ModelPath        string `koanf:"model_path"`
	FeatureNamesPath string `koanf:"feature_names_path"`

	// Audit store. Empty DATABASE_URL selects the in-memory sink.
	DatabaseURL string `koanf:"database_url"`

	// Webhook deduplication. Empty REDIS_URL selects the in-memory store.
	RedisURL string `koanf:"redis_url"`

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingOTLPEndpoint string  `koanf:"tracing_otlp_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
}

// Configuration validation errors.
var (
	ErrMissingPaystackSecretKey  = errors.New("PAYSTACK_SECRET_KEY is required")
	ErrMissingTrackingMoreAPIKey = errors.New("TRACKINGMORE_API_KEY is required")
	ErrMissingModelPath          = errors.New("MODEL_PATH is required")
	ErrMissingFeatureNamesPath   = errors.New("FEATURE_NAMES_PATH is required")
	ErrInvalidPort               = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort                = 8080
	DefaultEnv                 = "development"
	DefaultCurrency            = "GHS"
	DefaultModelPath           = "eta_model.json"
	DefaultFeatureNamesPath    = "feature_names.json"
	DefaultTracingSamplingRate = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	samplingRate, rateErr := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), DefaultTracingSamplingRate)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}

	tracingEnabled := k.Bool("tracing_enabled")
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			tracingEnabled = true
		case "false", "0", "no", "off":
			tracingEnabled = false
		}
	}

	cfg := &Config{
		Port:                port,
		Env:                 getEnvOrDefault("ENV", k.String("env"), DefaultEnv),
		PaystackSecretKey:   getEnvOrKoanf("PAYSTACK_SECRET_KEY", k, "paystack_secret_key"),
		PaystackCallbackURL: getEnvOrKoanf("PAYSTACK_CALLBACK_URL", k, "paystack_callback_url"),
		Currency:            getEnvOrDefault("CURRENCY", k.String("currency"), DefaultCurrency),
		TrackingMoreAPIKey:  getEnvOrKoanf("TRACKINGMORE_API_KEY", k, "trackingmore_api_key"),
		ModelPath:           getEnvOrDefault("MODEL_PATH", k.String("model_path"), DefaultModelPath),
		FeatureNamesPath:    getEnvOrDefault("FEATURE_NAMES_PATH", k.String("feature_names_path"), DefaultFeatureNamesPath),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:            getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		TracingEnabled:      tracingEnabled,
		TracingOTLPEndpoint: getEnvOrKoanf("TRACING_OTLP_ENDPOINT", k, "tracing_otlp_endpoint"),
		TracingSamplingRate: samplingRate,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.PaystackSecretKey == "" {
		errs = append(errs, ErrMissingPaystackSecretKey)
	}
	if c.TrackingMoreAPIKey == "" {
		errs = append(errs, ErrMissingTrackingMoreAPIKey)
	}
	if c.ModelPath == "" {
		errs = append(errs, ErrMissingModelPath)
	}
	if c.FeatureNamesPath == "" {
		errs = append(errs, ErrMissingFeatureNamesPath)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  fmt.Sprintf("%d", c.Port),
		"env":                   c.Env,
		"paystack_secret_key":   maskPaystackKey(c.PaystackSecretKey),
		"paystack_callback_url": c.PaystackCallbackURL,
		"currency":              c.Currency,
		"trackingmore_api_key":  maskSecret(c.TrackingMoreAPIKey),
		"model_path":            c.ModelPath,
		"feature_names_path":    c.FeatureNamesPath,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"redis_url":             maskDatabaseURL(c.RedisURL),
		"tracing_enabled":       fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_otlp_endpoint": c.TracingOTLPEndpoint,
		"tracing_sampling_rate": fmt.Sprintf("%g", c.TracingSamplingRate),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskPaystackKey masks a Paystack secret key, preserving the prefix
// (sk_live_, sk_test_) so environments stay distinguishable in logs.
func maskPaystackKey(s string) string {
	if s == "" {
		return "<not set>"
	}

	parts := strings.SplitN(s, "_", 3)
	if len(parts) == 3 {
		return parts[0] + "_" + parts[1] + "_****"
	}

	return maskSecret(s)
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}

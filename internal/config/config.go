// Package config provides configuration loading and validation for the API
// server. It uses koanf to merge environment variables with optional file
// overrides.
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

	// Database. Empty means the server runs on in-memory repositories,
	// which is how the seed-data development mode works.
	DatabaseURL string `koanf:"database_url"`

	// Redis, for the distributed rate limit store. Empty falls back to
	// the in-memory store.
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Validation oracle (OpenAI-compatible chat API)
	OracleEndpoint string `koanf:"oracle_endpoint"`
	OracleAPIKey   string `koanf:"oracle_api_key"`
	OracleModel    string `koanf:"oracle_model"`

	// Search
	SearchThreshold int  `koanf:"search_threshold"`
	SearchFallback  bool `koanf:"search_fallback"` // substring-only degraded matching

	// Rewards
	CompensationBaseRate float64 `koanf:"compensation_base_rate"`

	// CORS
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporter     string  `koanf:"tracing_exporter"` // otlp-http or otlp-grpc
	TracingOTLPEndpoint string  `koanf:"tracing_otlp_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSecret      = errors.New("JWT_SECRET is required")
	ErrMissingOracleEndpoint = errors.New("ORACLE_ENDPOINT is required when oracle configuration is set")
	ErrMissingOracleModel    = errors.New("ORACLE_MODEL is required when oracle configuration is set")
	ErrInvalidPort           = errors.New("PORT must be a valid integer")
	ErrInvalidThreshold      = errors.New("SEARCH_THRESHOLD must be between 0 and 100")
	ErrInvalidBaseRate       = errors.New("COMPENSATION_BASE_RATE must be > 0")
	ErrInvalidSamplingRate   = errors.New("TRACING_SAMPLING_RATE must be between 0 and 1")
)

// Default values for non-secret configuration.
const (
	DefaultPort                 = 8080
	DefaultEnv                  = "development"
	DefaultSearchThreshold      = 55
	DefaultCompensationBaseRate = 10.0
	DefaultTracingSamplingRate  = 0.1
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if
// valid). A config file path that cannot be loaded is an immediate error.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// YAML file first, lower precedence.
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefaultMulti([]string{"WEPLACE_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	threshold, thresholdErr := getEnvIntOrDefault("SEARCH_THRESHOLD", k.Int("search_threshold"), DefaultSearchThreshold)
	if thresholdErr != nil {
		loadErrs = append(loadErrs, thresholdErr)
	}

	baseRate, baseRateErr := getEnvFloatOrDefault("COMPENSATION_BASE_RATE", k.Float64("compensation_base_rate"), DefaultCompensationBaseRate)
	if baseRateErr != nil {
		loadErrs = append(loadErrs, baseRateErr)
	}

	samplingRate, samplingErr := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), DefaultTracingSamplingRate)
	if samplingErr != nil {
		loadErrs = append(loadErrs, samplingErr)
	}

	cfg := &Config{
		Port:                 port,
		Env:                  getEnvOrDefaultMulti([]string{"WEPLACE_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:          getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:             getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:            getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret:    getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		OracleEndpoint:       getEnvOrKoanf("ORACLE_ENDPOINT", k, "oracle_endpoint"),
		OracleAPIKey:         getEnvOrKoanf("ORACLE_API_KEY", k, "oracle_api_key"),
		OracleModel:          getEnvOrKoanf("ORACLE_MODEL", k, "oracle_model"),
		SearchThreshold:      threshold,
		SearchFallback:       getEnvBool("SEARCH_FALLBACK", k, "search_fallback"),
		CompensationBaseRate: baseRate,
		CORSAllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		TracingEnabled:       getEnvBool("TRACING_ENABLED", k, "tracing_enabled"),
		TracingExporter:      getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), "otlp-http"),
		TracingOTLPEndpoint:  getEnvOrKoanf("TRACING_OTLP_ENDPOINT", k, "tracing_otlp_endpoint"),
		TracingSamplingRate:  samplingRate,
		TracingInsecure:      getEnvBool("TRACING_INSECURE", k, "tracing_insecure"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise
// the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise
// the koanf value, or the default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set,
// otherwise the koanf value, or the default. A zero in the YAML file falls
// back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set,
// otherwise the koanf value, or the default.
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

// getEnvBool returns the environment variable as bool if set, otherwise the
// koanf value. Unset means false.
func getEnvBool(envKey string, k *koanf.Koanf, koanfKey string) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return k.Bool(koanfKey)
}

// getEnvList returns a comma-separated environment variable as a slice,
// otherwise the koanf string slice.
func getEnvList(envKey string, k *koanf.Koanf, koanfKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return k.Strings(koanfKey)
}

// Validate checks that all required configuration values are present and
// within range. Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	// Oracle configuration is optional as a group: with none of it set the
	// server runs with validation disabled (every update rejected, by the
	// fail-closed rule). Partial configuration is a mistake worth failing on.
	if c.OracleEndpoint != "" || c.OracleAPIKey != "" || c.OracleModel != "" {
		if c.OracleEndpoint == "" {
			errs = append(errs, ErrMissingOracleEndpoint)
		}
		if c.OracleModel == "" {
			errs = append(errs, ErrMissingOracleModel)
		}
	}

	if c.SearchThreshold < 0 || c.SearchThreshold > 100 {
		errs = append(errs, ErrInvalidThreshold)
	}
	if c.CompensationBaseRate <= 0 {
		errs = append(errs, ErrInvalidBaseRate)
	}
	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		errs = append(errs, ErrInvalidSamplingRate)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// Secrets are masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                   fmt.Sprintf("%d", c.Port),
		"env":                    c.Env,
		"database_url":           maskDatabaseURL(c.DatabaseURL),
		"redis_url":              maskDatabaseURL(c.RedisURL),
		"jwt_secret":             maskSecret(c.JWTSecret),
		"oracle_endpoint":        c.OracleEndpoint,
		"oracle_api_key":         maskSecret(c.OracleAPIKey),
		"oracle_model":           c.OracleModel,
		"search_threshold":       fmt.Sprintf("%d", c.SearchThreshold),
		"search_fallback":        fmt.Sprintf("%t", c.SearchFallback),
		"compensation_base_rate": fmt.Sprintf("%.2f", c.CompensationBaseRate),
		"cors_allowed_origins":   strings.Join(c.CORSAllowedOrigins, ","),
		"tracing_enabled":        fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":       c.TracingExporter,
		"tracing_otlp_endpoint":  c.TracingOTLPEndpoint,
		"tracing_sampling_rate":  fmt.Sprintf("%.2f", c.TracingSamplingRate),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters.
// Secrets shorter than 8 characters are fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL. Works for
// postgres:// and redis:// alike.
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
		return s // no credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // no password, only username
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}

// Package config handles environment-based configuration loading and
// the optional targets seed file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all environment-variable-driven settings.
type Config struct {
	// Network
	ListenAddress   string
	Port            int
	APIMaxBodyBytes int

	// Database
	DatabaseURL string

	// Monitor
	PollInterval           time.Duration
	DefaultIntervalSeconds int
	DefaultTimeoutSeconds  int

	// Optional YAML file with targets applied at startup.
	TargetsFile string
}

// Load reads environment variables and returns a validated Config.
// Returns an error listing every invalid or missing value.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.ListenAddress = strings.TrimSpace(envStr("GENTRACK_LISTEN_ADDRESS", "0.0.0.0"))
	cfg.Port = envInt("PORT", 5000, &errs)
	cfg.APIMaxBodyBytes = envInt("GENTRACK_API_MAX_BODY_BYTES", 1<<20, &errs)

	cfg.DatabaseURL = ResolveDatabaseURL()

	pollSeconds := envInt("MONITOR_POLL_SECONDS", 5, &errs)
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second
	cfg.DefaultIntervalSeconds = envInt("DEFAULT_INTERVAL_SECONDS", 60, &errs)
	cfg.DefaultTimeoutSeconds = envInt("DEFAULT_TIMEOUT_SECONDS", 8, &errs)

	cfg.TargetsFile = strings.TrimSpace(envStr("GENTRACK_TARGETS_FILE", ""))

	// --- Validation ---
	if cfg.DatabaseURL == "" {
		errs = append(errs, "Defina DATABASE_URL (ou POSTGRES_URL/DB_URL) para iniciar o GenTrack.")
	}
	if cfg.ListenAddress == "" {
		errs = append(errs, "GENTRACK_LISTEN_ADDRESS must not be empty")
	}
	validatePort("PORT", cfg.Port, &errs)
	validatePositive("GENTRACK_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, &errs)
	validatePositive("MONITOR_POLL_SECONDS", pollSeconds, &errs)
	validatePositive("DEFAULT_INTERVAL_SECONDS", cfg.DefaultIntervalSeconds, &errs)
	if cfg.DefaultTimeoutSeconds < 1 || cfg.DefaultTimeoutSeconds > 60 {
		errs = append(errs, fmt.Sprintf("DEFAULT_TIMEOUT_SECONDS: must be 1-60, got %d", cfg.DefaultTimeoutSeconds))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return cfg, nil
}

// ResolveDatabaseURL returns the database DSN: the first non-empty of
// DATABASE_URL, DATABASE_URI, POSTGRES_URL, POSTGRESQL_URL,
// POSTGRES_CONNECTION_STRING, DB_URL; otherwise a URL synthesized from
// the discrete DB_*/POSTGRES_* variables. Returns "" when nothing is
// configured.
func ResolveDatabaseURL() string {
	candidates := []string{
		"DATABASE_URL",
		"DATABASE_URI",
		"POSTGRES_URL",
		"POSTGRESQL_URL",
		"POSTGRES_CONNECTION_STRING",
		"DB_URL",
	}
	for _, key := range candidates {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}

	host := firstEnv("DB_HOST", "POSTGRES_HOST")
	port := firstEnv("DB_PORT", "POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	user := firstEnv("DB_USER", "POSTGRES_USER")
	password := firstEnv("DB_PASSWORD", "POSTGRES_PASSWORD")
	name := firstEnv("DB_NAME", "POSTGRES_DB", "DB_DATABASE")
	sslmode := firstEnv("DB_SSLMODE", "PGSSLMODE")
	if sslmode == "" {
		sslmode = "disable"
	}

	if host == "" || user == "" || password == "" || name == "" {
		return ""
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(user),
		url.QueryEscape(password),
		host,
		port,
		url.QueryEscape(name),
		sslmode,
	)
}

// --- helpers ---

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}

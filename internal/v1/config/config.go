package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration
type Config struct {
	// Listen address and WebSocket path
	Addr   string
	WSPath string

	// Liveness timings
	HBCheckInterval       time.Duration
	HBTimeLimit           time.Duration
	ReconnectionTimeLimit time.Duration

	// Room defaults
	MaxPlayerCount int

	// Optional variables with defaults
	GoEnv          string
	LogLevel       string
	AllowedOrigins []string
}

// Defaults
const (
	DefaultAddr                  = "0.0.0.0:8000"
	DefaultWSPath                = "/ws"
	DefaultHBCheckInterval       = 5 * time.Second
	DefaultHBTimeLimit           = 2 * time.Second
	DefaultReconnectionTimeLimit = 15 * time.Second
	DefaultMaxPlayerCount        = 6
)

// ValidateEnv validates all environment variables and returns a Config
// object. Returns an error if any variable is present but invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.Addr = getEnvOrDefault("ADDR", DefaultAddr)
	if !isValidHostPort(cfg.Addr) {
		errs = append(errs, fmt.Sprintf("ADDR must be in format 'host:port' (got '%s')", cfg.Addr))
	}

	cfg.WSPath = getEnvOrDefault("WS_PATH", DefaultWSPath)
	if !strings.HasPrefix(cfg.WSPath, "/") {
		errs = append(errs, fmt.Sprintf("WS_PATH must begin with '/' (got '%s')", cfg.WSPath))
	}

	var err error
	if cfg.HBCheckInterval, err = durationEnv("HB_CHECK_INTERVAL", DefaultHBCheckInterval); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.HBTimeLimit, err = durationEnv("HB_TIME_LIMIT", DefaultHBTimeLimit); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.ReconnectionTimeLimit, err = durationEnv("RECONNECTION_TIME_LIMIT", DefaultReconnectionTimeLimit); err != nil {
		errs = append(errs, err.Error())
	}

	cfg.MaxPlayerCount = DefaultMaxPlayerCount
	if raw := os.Getenv("MAX_PLAYER_COUNT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Sprintf("MAX_PLAYER_COUNT must be a positive integer (got '%s')", raw))
		} else {
			cfg.MaxPlayerCount = n
		}
	}

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	origins := getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return cfg, nil
}

// durationEnv parses an env var as whole seconds, matching how the limits
// are documented, while also accepting Go duration strings.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 1 {
			return 0, fmt.Errorf("%s must be positive (got '%s')", key, raw)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be seconds or a duration (got '%s')", key, raw)
	}
	return d, nil
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	return parts[0] != ""
}

// getEnvOrDefault returns the value of the environment variable or a
// default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

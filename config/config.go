// Package config provides configuration management for the snsapp application.
// It handles loading and validation of configuration values from environment variables,
// with support for required variables, default values, and collective error reporting.
// A `.env` file, when present, is loaded into the environment by `main` before this runs.
package config

import (
	"fmt"
	// `os` package provides operating system functionalities, like reading environment variables.
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/snsapp/apperror"
)

// PoolConfig represents configuration for the database connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// SessionConfig holds settings for the signed session cookie.
type SessionConfig struct {
	SecretKey    string        // HMAC key used to sign the session token
	Lifetime     time.Duration // How long a session survives without a new login (30 days by default)
	CookieName   string
	CookieSecure bool // Set the Secure attribute; enable behind HTTPS
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port               string   // Port for the HTTP server
	CORSAllowedOrigins []string // Empty means same-origin only
}

// MigrationConfig holds the location of the SQL migration files.
type MigrationConfig struct {
	Path string
}

// EventsConfig holds settings for the activity event publisher.
type EventsConfig struct {
	NATSURL string // Empty disables NATS publishing
}

// AppConfig is the top-level configuration structure for the application.
// DBPool is nil when the application runs against the in-memory store.
type AppConfig struct {
	DBPool     *PoolConfig
	Session    *SessionConfig
	Server     *ServerConfig
	Migrations *MigrationConfig
	Events     *EventsConfig
}

// Helper function to get a required environment variable.
// Appends an error to the errors slice if the variable is not set.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return "" // Return empty string, error is collected
	}
	return value
}

// Helper function to get an optional environment variable with a default string value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get an optional environment variable parsed as an int.
// Uses defaultValue if not set or if parsing fails. Appends an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue // Return default, error is collected
	}
	return valueInt
}

// Helper function to get an optional environment variable parsed as a bool.
func getOptionalEnvBool(key string, defaultValue bool, errors *[]string) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueBool
}

// Helper function to get an optional environment variable parsed as time.Duration.
// `time.ParseDuration` expects a string like "15m", "720h".
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue // Return default, error is collected
	}
	return valueDuration
}

// clampPoolSize keeps the pool size between 5 and 100.
func clampPoolSize(size int, varName string, errors *[]string) int {
	if size < 5 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is less than minimum 5", varName, size))
		return 5
	}
	if size > 100 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100", varName, size))
		return 100
	}
	return size
}

// splitList turns "a, b,,c" into ["a" "b" "c"].
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig creates and returns an AppConfig by reading and validating environment variables.
// withDatabase controls whether the DB_* variables are required; the in-memory mode skips them.
// It collects all errors encountered during loading and returns a single error if any exist.
func LoadConfig(withDatabase bool) (*AppConfig, error) {
	// `errors` slice collects all validation/parsing errors during config loading.
	var errors []string

	// Database Configuration
	var pool *PoolConfig
	if withDatabase {
		pool = &PoolConfig{
			User:     getRequiredEnv("DB_USER", &errors),
			Password: getRequiredEnv("DB_PASSWORD", &errors),
			DBName:   getRequiredEnv("DB_NAME", &errors),
			Host:     getOptionalEnv("DB_HOST", "localhost"),
			Port:     getOptionalEnvInt("DB_PORT", 5432, &errors),
		}
		pool.MaxSize = clampPoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, &errors), "DB_POOL_SIZE", &errors)
	}

	// Session Configuration
	// Without SECRET_KEY every process start signs with a fresh random key, which logs
	// everybody out on restart. That mirrors the behaviour of the system this replaces.
	secret := getOptionalEnv("SECRET_KEY", "")
	if secret == "" {
		secret = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	sessionConfig := &SessionConfig{
		SecretKey:    secret,
		Lifetime:     getOptionalEnvDuration("SESSION_LIFETIME", 30*24*time.Hour, &errors),
		CookieName:   getOptionalEnv("SESSION_COOKIE_NAME", "session"),
		CookieSecure: getOptionalEnvBool("SESSION_COOKIE_SECURE", false, &errors),
	}
	if sessionConfig.Lifetime <= 0 {
		errors = append(errors, "SESSION_LIFETIME must be positive")
	}

	// Server Configuration
	serverConfig := &ServerConfig{
		// Note: Server port is a string because it's used directly in the listen address (":8080").
		Port:               getOptionalEnv("PORT", "8080"),
		CORSAllowedOrigins: splitList(getOptionalEnv("CORS_ALLOWED_ORIGINS", "")),
	}

	// If any errors were collected during loading, return a single aggregated error message.
	if len(errors) > 0 {
		return nil, apperror.NewConfigError(fmt.Sprintf("configuration errors:\n- %s", strings.Join(errors, "\n- ")), nil)
	}

	return &AppConfig{
		DBPool:     pool,
		Session:    sessionConfig,
		Server:     serverConfig,
		Migrations: &MigrationConfig{Path: getOptionalEnv("MIGRATIONS_PATH", "./migrations")},
		Events:     &EventsConfig{NATSURL: getOptionalEnv("NATS_URL", "")},
	}, nil
}

package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer       string // Issuer claim for access tokens (default: obralimpa)
	JWTSeedFile  string // Optional: path to an Ed25519 seed file; ephemeral keys when empty
	DatabaseFile string // Path to the SQLite database file (default: ./obralimpa.db)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	AccessTokenTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Refresh token lifetime (default: 720h)

	InviteTTL            time.Duration // Pending invites expire after this (default: 168h)
	HousekeepingInterval time.Duration // Expiry sweep interval (default: 1h)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)

	// Seed admin created at startup when the users table is empty. Without
	// one, the only path to an admin account is direct database access.
	BootstrapAdminEmail    string
	BootstrapAdminName     string
	BootstrapAdminPassword string

	// Outbound invite mail. Mail is disabled when SMTPHost is empty.
	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	// Address geocoding. Disabled when GeocodeBaseURL is empty.
	GeocodeBaseURL string
	GeocodeAPIKey  string
}

func LoadConfig() Config {
	return Config{
		Issuer:       getEnvOrDefault("OBRALIMPA_ISSUER", "obralimpa"),
		JWTSeedFile:  os.Getenv("OBRALIMPA_JWT_SEED_FILE"),
		DatabaseFile: getEnvOrDefault("OBRALIMPA_DATABASE_FILE", "obralimpa.db"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		AccessTokenTTL:  getEnvDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDurationOrDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		InviteTTL:            getEnvDurationOrDefault("INVITE_TTL", 7*24*time.Hour),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminName:     getEnvOrDefault("BOOTSTRAP_ADMIN_NAME", "Administrator"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@obralimpa.app"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		GeocodeBaseURL: os.Getenv("GEOCODE_BASE_URL"),
		GeocodeAPIKey:  os.Getenv("GEOCODE_API_KEY"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}

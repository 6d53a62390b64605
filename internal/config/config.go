package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort        int
	MongoURI          string
	MongoDatabase     string
	AllowedOrigins    []string
	FirebaseProjectID string
	LogLevel          string
	Env               string // development|production
	SentryDSN         string
	ReconcileSchedule string // cron spec, empty disables the reconciler
	ShutdownTimeout   time.Duration
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads a .env file when present, then loads configuration from
// environment variables, applying defaults.
func Load() (*Config, error) {
	// A missing .env is fine; the real environment still applies.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "3000"))
	if err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}

	shutdown, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		return nil, errors.New("MONGODB_URI is required")
	}

	projectID, err := firebaseProjectID()
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:        port,
		MongoURI:          mongoURI,
		MongoDatabase:     getEnv("MONGODB_DATABASE", "eTuitionBD"),
		AllowedOrigins:    splitList(getEnv("CLIENT_DOMAIN", "http://localhost:5173")),
		FirebaseProjectID: projectID,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Env:               getEnv("APP_ENV", "development"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@hourly"),
		ShutdownTimeout:   shutdown,
	}, nil
}

// firebaseProjectID prefers FIREBASE_PROJECT_ID and falls back to the
// project_id inside the base64 encoded FB_SERVICE_KEY.
func firebaseProjectID() (string, error) {
	if id := os.Getenv("FIREBASE_PROJECT_ID"); id != "" {
		return id, nil
	}
	encoded := os.Getenv("FB_SERVICE_KEY")
	if encoded == "" {
		return "", errors.New("FIREBASE_PROJECT_ID or FB_SERVICE_KEY is required")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("FB_SERVICE_KEY: %w", err)
	}
	var key struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &key); err != nil {
		return "", fmt.Errorf("FB_SERVICE_KEY: %w", err)
	}
	if key.ProjectID == "" {
		return "", errors.New("FB_SERVICE_KEY has no project_id")
	}
	return key.ProjectID, nil
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimRight(p, "/"))
	}
	return out
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

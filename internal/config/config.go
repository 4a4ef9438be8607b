package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string

	ChatModel            string
	ChatMaxTokens        int32
	ChatTemperature      float32
	ChatFrequencyPenalty float32
	ChatPresencePenalty  float32
	CompletionTimeout    time.Duration

	DatabaseDriver string
	DatabaseURL    string

	HTTPPort           string
	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string

	SessionSecret string
	SessionTTL    time.Duration

	UploadFolder  string
	ExportBackend string
	AWSRegion     string
	AWSAccessKey  string
	AWSSecretKey  string
	ExportBucket  string
}

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"

	ExportLocal = "local"
	ExportS3    = "s3"
)

var required = []string{
	"GEMINI_API_KEY",
	"CHAT_MODEL",
	"CHAT_MAX_TOKENS",
	"CHAT_TEMPERATURE",
	"CHAT_FREQUENCY_PENALTY",
	"CHAT_PRESENCE_PENALTY",
	"SESSION_SECRET",
}

// Load reads the environment, after applying a .env file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	var missing []string
	for _, key := range required {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		ChatModel:      os.Getenv("CHAT_MODEL"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", DriverSQLite),
		DatabaseURL:    getEnv("DATABASE_URL", "botchat.db"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		UploadFolder:   getEnv("UPLOAD_FOLDER", "data"),
		ExportBackend:  getEnv("EXPORT_BACKEND", ExportLocal),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		ExportBucket:   getEnv("EXPORT_BUCKET", ""),
	}
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	maxTokens, err := getEnvAsInt("CHAT_MAX_TOKENS", 0)
	collect(err)
	cfg.ChatMaxTokens = int32(maxTokens)
	cfg.ChatTemperature, err = getEnvAsFloat("CHAT_TEMPERATURE", 0)
	collect(err)
	cfg.ChatFrequencyPenalty, err = getEnvAsFloat("CHAT_FREQUENCY_PENALTY", 0)
	collect(err)
	cfg.ChatPresencePenalty, err = getEnvAsFloat("CHAT_PRESENCE_PENALTY", 0)
	collect(err)
	cfg.SessionTTL, err = getEnvAsDuration("SESSION_TTL", 24*time.Hour)
	collect(err)
	cfg.CompletionTimeout, err = getEnvAsDuration("COMPLETION_TIMEOUT", 60*time.Second)
	collect(err)

	if cfg.ChatMaxTokens <= 0 {
		collect(fmt.Errorf("CHAT_MAX_TOKENS must be positive"))
	}
	switch cfg.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		collect(fmt.Errorf("DATABASE_DRIVER %q is not supported (use %s or %s)", cfg.DatabaseDriver, DriverSQLite, DriverPostgres))
	}
	switch cfg.ExportBackend {
	case ExportLocal:
	case ExportS3:
		if cfg.ExportBucket == "" {
			collect(fmt.Errorf("EXPORT_BUCKET is required when EXPORT_BACKEND=s3"))
		}
	default:
		collect(fmt.Errorf("EXPORT_BACKEND %q is not supported (use %s or %s)", cfg.ExportBackend, ExportLocal, ExportS3))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, valueStr)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float32) (float32, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, valueStr)
	}
	return float32(value), nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, valueStr)
	}
	return value, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

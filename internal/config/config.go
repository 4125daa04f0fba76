// Package config loads the environment-provided configuration for the
// pipeline's entrypoints. Missing required configuration is a fatal startup
// error, never a per-request error.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/theory-cloud/quotetheory/internal/observability"
)

// Environment variable names.
const (
	EnvQueueURL       = "QUOTE_QUEUE_URL"
	EnvAllowedOrigins = "ALLOWED_ORIGINS"
	EnvSalesRepEmail  = "SALES_REP_EMAIL"
	EnvSenderEmail    = "SENDER_EMAIL"
	EnvAlertTopicARN  = "ALERT_TOPIC_ARN"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
)

// IntakeConfig configures the intake Lambda.
type IntakeConfig struct {
	QueueURL       string
	AllowedOrigins []string
	Logging        observability.LoggerConfig
}

// NotifierConfig configures the notification dispatcher Lambda.
type NotifierConfig struct {
	SalesRepEmail string
	SenderEmail   string
	AlertTopicARN string
	Logging       observability.LoggerConfig
}

// LoadIntake reads the intake configuration from the environment.
func LoadIntake() (IntakeConfig, error) {
	loadDotEnv()

	cfg := IntakeConfig{
		QueueURL:       strings.TrimSpace(os.Getenv(EnvQueueURL)),
		AllowedOrigins: SplitOrigins(os.Getenv(EnvAllowedOrigins)),
		Logging:        loggingFromEnv(),
	}

	var missing []string
	if cfg.QueueURL == "" {
		missing = append(missing, EnvQueueURL)
	}
	if len(cfg.AllowedOrigins) == 0 {
		missing = append(missing, EnvAllowedOrigins)
	}
	if len(missing) > 0 {
		return IntakeConfig{}, missingError(missing)
	}
	return cfg, nil
}

// LoadNotifier reads the dispatcher configuration from the environment.
func LoadNotifier() (NotifierConfig, error) {
	loadDotEnv()

	cfg := NotifierConfig{
		SalesRepEmail: strings.TrimSpace(os.Getenv(EnvSalesRepEmail)),
		SenderEmail:   strings.TrimSpace(os.Getenv(EnvSenderEmail)),
		AlertTopicARN: strings.TrimSpace(os.Getenv(EnvAlertTopicARN)),
		Logging:       loggingFromEnv(),
	}

	var missing []string
	if cfg.SalesRepEmail == "" {
		missing = append(missing, EnvSalesRepEmail)
	}
	if cfg.SenderEmail == "" {
		missing = append(missing, EnvSenderEmail)
	}
	if len(missing) > 0 {
		return NotifierConfig{}, missingError(missing)
	}
	return cfg, nil
}

// SplitOrigins parses a comma-separated origin allow-list.
func SplitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func loggingFromEnv() observability.LoggerConfig {
	return observability.LoggerConfig{
		Format: os.Getenv(EnvLogFormat),
		Level:  os.Getenv(EnvLogLevel),
	}
}

// loadDotEnv loads a local .env file outside Lambda. Best-effort; a missing
// file is the normal case in deployed environments.
func loadDotEnv() {
	if observability.IsLambda() {
		return
	}
	_ = godotenv.Load()
}

func missingError(missing []string) error {
	return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
}

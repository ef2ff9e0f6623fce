package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the API.
type Config struct {
	DatabaseURL string
	Port        int
	LogLevel    string

	JWTSecret string
	TokenTTL  time.Duration

	HistoryLimit int

	AlertCooldown   time.Duration
	MatchExactValue bool

	NotifyWorkers   int
	NotifyQueueSize int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:            8000,
		LogLevel:        "info",
		TokenTTL:        24 * time.Hour,
		HistoryLimit:    180,
		AlertCooldown:   5 * time.Minute,
		NotifyWorkers:   2,
		NotifyQueueSize: 256,
		SMTPPort:        587,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
		cfg.Port = port
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if ttlStr := os.Getenv("TOKEN_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil || ttl <= 0 {
			return cfg, fmt.Errorf("invalid TOKEN_TTL: %s", ttlStr)
		}
		cfg.TokenTTL = ttl
	}

	if limitStr := os.Getenv("HISTORY_LIMIT"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return cfg, fmt.Errorf("invalid HISTORY_LIMIT: %s", limitStr)
		}
		cfg.HistoryLimit = limit
	}

	if cdStr := os.Getenv("ALERT_COOLDOWN"); cdStr != "" {
		cd, err := time.ParseDuration(cdStr)
		if err != nil || cd <= 0 {
			return cfg, fmt.Errorf("invalid ALERT_COOLDOWN: %s", cdStr)
		}
		cfg.AlertCooldown = cd
	}

	if exactStr := os.Getenv("ALERT_MATCH_EXACT_VALUE"); exactStr != "" {
		exact, err := strconv.ParseBool(exactStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid ALERT_MATCH_EXACT_VALUE: %s", exactStr)
		}
		cfg.MatchExactValue = exact
	}

	if workersStr := os.Getenv("NOTIFY_WORKERS"); workersStr != "" {
		workers, err := strconv.Atoi(workersStr)
		if err != nil || workers <= 0 {
			return cfg, fmt.Errorf("invalid NOTIFY_WORKERS: %s", workersStr)
		}
		cfg.NotifyWorkers = workers
	}

	if sizeStr := os.Getenv("NOTIFY_QUEUE_SIZE"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size <= 0 {
			return cfg, fmt.Errorf("invalid NOTIFY_QUEUE_SIZE: %s", sizeStr)
		}
		cfg.NotifyQueueSize = size
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	cfg.MailFrom = os.Getenv("MAIL_FROM")

	if smtpPortStr := os.Getenv("SMTP_PORT"); smtpPortStr != "" {
		smtpPort, err := strconv.Atoi(smtpPortStr)
		if err != nil || smtpPort <= 0 {
			return cfg, fmt.Errorf("invalid SMTP_PORT: %s", smtpPortStr)
		}
		cfg.SMTPPort = smtpPort
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MailEnabled reports whether SMTP delivery is configured.
func (c Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.MailFrom != ""
}

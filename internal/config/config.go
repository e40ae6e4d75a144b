// Package config centralizes environment-driven configuration for the API
// and migration binaries. Every knob has a default so a development instance
// only needs RESTOMAP_PG_DSN and RESTOMAP_AUTH_SECRET.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "RESTOMAP_"

// Config holds process-wide settings.
type Config struct {
	Addr    string
	BaseURL string
	PGDSN   string

	AuthSecret  string
	TokenIssuer string
	TokenTTL    time.Duration

	ResetTokenTTL time.Duration
	SweepInterval time.Duration

	MinPasswordLen int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
}

// FromEnv builds a Config from RESTOMAP_* environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:         getenv("ADDR", ":8080"),
		BaseURL:      strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),
		PGDSN:        getenv("PG_DSN", ""),
		AuthSecret:   getenv("AUTH_SECRET", ""),
		TokenIssuer:  getenv("TOKEN_ISSUER", "restomap"),
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		MailFrom:     getenv("MAIL_FROM", "no-reply@restomap.org"),
	}

	var err error
	if cfg.TokenTTL, err = getduration("TOKEN_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ResetTokenTTL, err = getduration("RESET_TOKEN_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = getduration("RESET_SWEEP_INTERVAL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.MinPasswordLen, err = getint("MIN_PASSWORD_LEN", 6); err != nil {
		return Config{}, err
	}
	if cfg.SMTPPort, err = getint("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}

	if cfg.MinPasswordLen < 1 {
		return Config{}, errors.New("config: min password length must be positive")
	}
	if strings.TrimSpace(cfg.AuthSecret) == "" {
		return Config{}, errors.New("config: " + envPrefix + "AUTH_SECRET is required")
	}
	return cfg, nil
}

// MailConfigured reports whether SMTP delivery is set up.
func (c Config) MailConfigured() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s%s: %w", envPrefix, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s%s must be positive", envPrefix, key)
	}
	return d, nil
}

func getint(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s%s: %w", envPrefix, key, err)
	}
	return v, nil
}

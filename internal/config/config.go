package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pharmacy-pos/internal/pos"

	"github.com/joho/godotenv"
)

const devSecret = "dev_only_secret_change_me"

var ErrMissingDSN = errors.New("DB_DSN is not set")

type Config struct {
	DSN               string
	Port              string
	BaseURL           string
	CORSOrigins       []string
	JWTSecret         string
	JWTTTL            time.Duration
	AllowRegistration bool
	CheckoutMode      pos.CheckoutMode
	CheckoutTimeout   time.Duration
	SessionIdle       time.Duration
	DiscountTieBreak  string
	LogLevel          string
	GinMode           string
}

// Load reads .env (if present) and then the environment. The returned bool reports whether
// a .env file was found.
func Load() (*Config, bool, error) {
	found := godotenv.Load() == nil
	cfg, err := FromEnv(os.Getenv)
	return cfg, found, err
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		DSN:              get("DB_DSN", ""),
		Port:             get("PORT", "8080"),
		CORSOrigins:      splitList(get("CORS_ORIGINS", "http://localhost:5173")),
		JWTSecret:        get("JWT_SECRET", ""),
		DiscountTieBreak: get("DISCOUNT_TIE_BREAK", "first"),
		LogLevel:         get("LOG_LEVEL", "info"),
		GinMode:          get("GIN_MODE", "debug"),
	}
	cfg.BaseURL = get("BASE_URL", "http://localhost:"+cfg.Port)

	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}

	var err error
	if cfg.JWTTTL, err = time.ParseDuration(get("JWT_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("JWT_TTL: %w", err)
	}
	if cfg.CheckoutTimeout, err = time.ParseDuration(get("CHECKOUT_TIMEOUT", "15s")); err != nil {
		return nil, fmt.Errorf("CHECKOUT_TIMEOUT: %w", err)
	}
	if cfg.SessionIdle, err = time.ParseDuration(get("SESSION_IDLE_TIMEOUT", "8h")); err != nil || cfg.SessionIdle < 0 {
		if err == nil {
			err = errors.New("must not be negative")
		}
		return nil, fmt.Errorf("SESSION_IDLE_TIMEOUT: %w", err)
	}
	if cfg.AllowRegistration, err = strconv.ParseBool(get("ALLOW_REGISTRATION", "false")); err != nil {
		return nil, fmt.Errorf("ALLOW_REGISTRATION: %w", err)
	}
	if cfg.CheckoutMode, err = pos.ParseCheckoutMode(getenv("CHECKOUT_MODE")); err != nil {
		return nil, fmt.Errorf("CHECKOUT_MODE: %w", err)
	}
	if _, err = pos.PolicyFor(cfg.DiscountTieBreak); err != nil {
		return nil, fmt.Errorf("DISCOUNT_TIE_BREAK: %w", err)
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("GIN_MODE: unknown mode %q", cfg.GinMode)
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode == "release" {
			return nil, errors.New("JWT_SECRET is required in release mode")
		}
		cfg.JWTSecret = devSecret
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
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

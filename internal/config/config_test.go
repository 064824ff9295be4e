package config

import (
	"testing"
	"time"

	"pharmacy-pos/internal/pos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"DB_DSN": "user:pw@tcp(db:3306)/pos"}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 15*time.Second, cfg.CheckoutTimeout)
	assert.Equal(t, 8*time.Hour, cfg.SessionIdle)
	assert.Equal(t, pos.CheckoutAtomic, cfg.CheckoutMode)
	assert.Equal(t, "first", cfg.DiscountTieBreak)
	assert.False(t, cfg.AllowRegistration)
	assert.NotEmpty(t, cfg.JWTSecret, "debug mode falls back to a dev secret")
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"DB_DSN":               "dsn",
		"PORT":                 "9090",
		"CORS_ORIGINS":         "https://caja.example.com, https://admin.example.com,",
		"JWT_SECRET":           "s3cret",
		"JWT_TTL":              "8h",
		"ALLOW_REGISTRATION":   "true",
		"CHECKOUT_MODE":        "sequential",
		"CHECKOUT_TIMEOUT":     "5s",
		"SESSION_IDLE_TIMEOUT": "0s",
		"DISCOUNT_TIE_BREAK":   "last",
		"GIN_MODE":             "release",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://caja.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 8*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.AllowRegistration)
	assert.Equal(t, pos.CheckoutSequential, cfg.CheckoutMode)
	assert.Equal(t, 5*time.Second, cfg.CheckoutTimeout)
	assert.Zero(t, cfg.SessionIdle)
	assert.Equal(t, "http://localhost:9090", cfg.BaseURL)
}

func TestFromEnv_Errors(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{}))
	assert.ErrorIs(t, err, ErrMissingDSN)

	cases := map[string]string{
		"JWT_TTL":              "a day",
		"CHECKOUT_TIMEOUT":     "soon",
		"SESSION_IDLE_TIMEOUT": "-1h",
		"ALLOW_REGISTRATION":   "maybe",
		"CHECKOUT_MODE":        "eventual",
		"DISCOUNT_TIE_BREAK":   "random",
		"GIN_MODE":             "verbose",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			_, err := FromEnv(envOf(map[string]string{"DB_DSN": "dsn", key: val}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}

	_, err = FromEnv(envOf(map[string]string{"DB_DSN": "dsn", "GIN_MODE": "release"}))
	assert.ErrorContains(t, err, "JWT_SECRET")
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := FromViper(New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.Equal(t, 5, cfg.TagCodeAttempts)
	assert.Equal(t, 149, cfg.DeliveryFee)
	assert.Equal(t, "https://contactkar.in", cfg.PublicBaseURL)
	assert.NotEmpty(t, cfg.JWTSecret, "development falls back to a local secret")
	assert.False(t, cfg.TwilioEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:test.db")
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("PUBLIC_BASE_URL", "https://example.com/")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_FROM_NUMBER", "+15005550006")

	cfg, err := FromViper(New())
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, "https://example.com", cfg.PublicBaseURL)
	assert.True(t, cfg.TwilioEnabled())
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := FromViper(New())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")
	t.Setenv("TAG_CODE_ATTEMPTS", "0")

	_, err := FromViper(New())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DRIVER")
	assert.Contains(t, err.Error(), "TAG_CODE_ATTEMPTS")
}

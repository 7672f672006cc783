package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("rancho-server")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, "rancho.db", cfg.Database.Path)
	assert.Equal(t, 48, cfg.Booking.DeadlineHours)
	assert.Equal(t, 15, cfg.Booking.HorizonDays)
	assert.Equal(t, 24, cfg.Notify.WarnHours)
	assert.Equal(t, time.Hour, cfg.Notify.ScanInterval)
	assert.Equal(t, 8*time.Second, cfg.Notify.SendTimeout)
	assert.False(t, cfg.SMTP.Configured())
	assert.False(t, cfg.SMS.Configured())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RANCHO_BOOKING_DEADLINE_HOURS", "72")
	t.Setenv("RANCHO_BOOKING_HORIZON_DAYS", "7")
	t.Setenv("RANCHO_DATABASE_PATH", "/tmp/test.db")

	cfg, err := Load("rancho-server")
	require.NoError(t, err)

	assert.Equal(t, 72, cfg.Booking.DeadlineHours)
	assert.Equal(t, 7, cfg.Booking.HorizonDays)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
}

func TestLoadWithValidation_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("RANCHO_SERVER_ENVIRONMENT", EnvProduction)

	_, err := LoadWithValidation("rancho-server")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}

func TestLoadWithValidation_ProductionRequiresCronToken(t *testing.T) {
	t.Setenv("RANCHO_SERVER_ENVIRONMENT", EnvProduction)
	t.Setenv("RANCHO_AUTH_SECRET_KEY", "a-long-production-secret")

	_, err := LoadWithValidation("rancho-server")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRON_API_TOKEN")
}

func TestLoadWithValidation_RejectsDerivedCronToken(t *testing.T) {
	t.Setenv("RANCHO_SERVER_ENVIRONMENT", EnvProduction)
	t.Setenv("RANCHO_AUTH_SECRET_KEY", "a-long-production-secret")
	t.Setenv("RANCHO_AUTH_CRON_API_TOKEN", "a-long-production")

	_, err := LoadWithValidation("rancho-server")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "derived")
}

func TestLoadWithValidation_ProductionOK(t *testing.T) {
	t.Setenv("RANCHO_SERVER_ENVIRONMENT", EnvProduction)
	t.Setenv("RANCHO_AUTH_SECRET_KEY", "a-long-production-secret")
	t.Setenv("RANCHO_AUTH_CRON_API_TOKEN", "an-unrelated-cron-token")

	cfg, err := LoadWithValidation("rancho-server")
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Server.Environment)
}

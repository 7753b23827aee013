package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ORDER_STORE", "SLA_WARNING_AFTER", "SLA_LATE_AFTER", "TELEGRAM_CHAT_ID", "ACCESS_TOKEN_TTL"} {
		t.Setenv(key, "")
	}

	cfg := fromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, OrderStoreMongo, cfg.OrderStore)
	assert.Equal(t, 12*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.SLAThresholds().WarningAfter)
	assert.Equal(t, 60*time.Minute, cfg.SLAThresholds().LateAfter)
	assert.False(t, cfg.TelegramEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SLA_WARNING_AFTER", "20")
	t.Setenv("SLA_LATE_AFTER", "45")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200300")
	t.Setenv("ACCESS_TOKEN_TTL", "not-a-number")

	cfg := fromEnv()
	assert.Equal(t, 20*time.Minute, cfg.SLAWarningAfter)
	assert.Equal(t, 45*time.Minute, cfg.SLALateAfter)
	assert.Equal(t, int64(-100200300), cfg.TelegramChatID)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, 12*time.Hour, cfg.AccessTokenTTL)
}

func TestValidate(t *testing.T) {
	valid := Config{
		MongoURI:           "mongodb://localhost:27017",
		JWTSecret:          "secret",
		AdminConfirmSecret: "kitchen",
		OrderStore:         OrderStoreMongo,
		SLAWarningAfter:    30 * time.Minute,
		SLALateAfter:       60 * time.Minute,
	}
	require.NoError(t, valid.Validate())

	pg := valid
	pg.OrderStore = OrderStorePostgres
	assert.ErrorContains(t, pg.Validate(), "POSTGRES_URL")
	pg.PostgresURL = "postgres://localhost/shop"
	assert.NoError(t, pg.Validate())

	bad := valid
	bad.OrderStore = "sqlite"
	bad.JWTSecret = ""
	bad.SLALateAfter = bad.SLAWarningAfter
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "JWT_SECRET")
	assert.ErrorContains(t, err, "ORDER_STORE")
	assert.ErrorContains(t, err, "SLA_LATE_AFTER")
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.Level)
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log, err = NewLogger("info", "")
	require.NoError(t, err)
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)

	_, err = NewLogger("loud", "text")
	assert.Error(t, err)
}

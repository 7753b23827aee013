package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"storefront/internal/sla"
)

var AppEnv Config

const (
	OrderStoreMongo    = "mongo"
	OrderStorePostgres = "postgres"
)

type Config struct {
	Port               string
	MongoURI           string
	DBName             string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	AdminConfirmSecret string
	OrderStore         string
	PostgresURL        string
	UploadDir          string
	SLAWarningAfter    time.Duration
	SLALateAfter       time.Duration
	TelegramToken      string
	TelegramChatID     int64
	LogLevel           string
	LogFormat          string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug(".env not loaded")
	}
	AppEnv = fromEnv()
}

func fromEnv() Config {
	return Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		MongoURI:           getEnvOrDefault("MONGO_URI", ""),
		DBName:             getEnvOrDefault("DB_NAME", "storefront"),
		JWTSecret:          getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:     getDurationEnv("ACCESS_TOKEN_TTL", 12*60, time.Minute),
		AdminConfirmSecret: getEnvOrDefault("ADMIN_CONFIRM_SECRET", ""),
		OrderStore:         getEnvOrDefault("ORDER_STORE", OrderStoreMongo),
		PostgresURL:        getEnvOrDefault("POSTGRES_URL", ""),
		UploadDir:          getEnvOrDefault("UPLOAD_DIR", "uploads"),
		SLAWarningAfter:    getDurationEnv("SLA_WARNING_AFTER", 30, time.Minute),
		SLALateAfter:       getDurationEnv("SLA_LATE_AFTER", 60, time.Minute),
		TelegramToken:      getEnvOrDefault("TELEGRAM_TOKEN", ""),
		TelegramChatID:     getInt64Env("TELEGRAM_CHAT_ID", 0),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

func (c Config) SLAThresholds() sla.Thresholds {
	return sla.Thresholds{WarningAfter: c.SLAWarningAfter, LateAfter: c.SLALateAfter}
}

// TelegramEnabled reports whether new-order alerts go to a Telegram chat.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

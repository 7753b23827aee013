package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	required := map[string]string{
		"MONGO_URI":            c.MongoURI,
		"JWT_SECRET":           c.JWTSecret,
		"ADMIN_CONFIRM_SECRET": c.AdminConfirmSecret,
	}
	for _, key := range []string{"MONGO_URI", "JWT_SECRET", "ADMIN_CONFIRM_SECRET"} {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("ENV %s is required", key))
		}
	}

	switch c.OrderStore {
	case OrderStoreMongo:
	case OrderStorePostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("ENV POSTGRES_URL is required when ORDER_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("ORDER_STORE must be %q or %q, got %q", OrderStoreMongo, OrderStorePostgres, c.OrderStore))
	}

	if c.SLALateAfter <= c.SLAWarningAfter {
		errs = append(errs, fmt.Errorf("SLA_LATE_AFTER (%s) must be greater than SLA_WARNING_AFTER (%s)", c.SLALateAfter, c.SLAWarningAfter))
	}
	return errors.Join(errs...)
}

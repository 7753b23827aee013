package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/internal/apperr"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger used by every handler.
func SetLogger(l logrus.FieldLogger) {
	logger = l
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		logger.WithField("route", route).Errorf("panic recovered: %v", r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// Pinger checks that the backing database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

func ensureDBConnection(ctx context.Context, db Pinger) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Ping(checkCtx)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	logger.WithFields(logrus.Fields{"route": route, "status": status}).Warn(message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondWithDomainError maps the error kinds of the core packages to HTTP
// statuses. extra is merged into the response body.
func respondWithDomainError(c *gin.Context, route string, err error, extra gin.H) {
	var (
		validation *apperr.ValidationError
		transition *apperr.InvalidTransitionError
		auth       *apperr.AuthorizationError
		notFound   *apperr.NotFoundError
		persist    *apperr.PersistenceError
	)

	body := gin.H{"error": err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		if validation.Field != "" {
			body["field"] = validation.Field
		}
	case errors.As(err, &transition):
		status = http.StatusConflict
		body["refresh"] = true
	case errors.As(err, &auth):
		status = http.StatusForbidden
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &persist):
		status = http.StatusServiceUnavailable
		body["error"] = persist.Error()
	default:
		body["error"] = "internal server error"
	}
	for k, v := range extra {
		body[k] = v
	}

	entry := logger.WithFields(logrus.Fields{"route": route, "status": status}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	c.AbortWithStatusJSON(status, body)
}

// Health reports whether the database is reachable.
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /health"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

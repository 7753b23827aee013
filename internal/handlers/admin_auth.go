package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

type AdminFinder interface {
	FindAdmin(ctx context.Context, email string) (models.Customer, error)
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,notblank"`
	Password string `json:"password" binding:"required,notblank"`
}

func AdminLogin(accounts AdminFinder, jwtSecret string, accessTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/login"
		defer handlePanic(c, route)

		var req AdminLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		admin, err := accounts.FindAdmin(c.Request.Context(), req.Email)
		if err != nil {
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) {
				respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
				return
			}
			respondWithDomainError(c, route, apperr.Persistence("load admin", err), nil)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		now := time.Now()
		signed, err := middleware.IssueToken(jwtSecret, admin, accessTTL, now)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		logger.WithField("admin", admin.ID).Info("admin signed in")
		c.JSON(http.StatusOK, gin.H{
			"token":     signed,
			"expiresAt": now.Add(accessTTL),
		})
	}
}

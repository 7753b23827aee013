package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

type fakeAdmins map[string]models.Customer

func (f fakeAdmins) FindAdmin(_ context.Context, email string) (models.Customer, error) {
	admin, ok := f[email]
	if !ok {
		return models.Customer{}, apperr.NotFound("admin", email)
	}
	return admin, nil
}

func TestAdminLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	admins := fakeAdmins{"ops@example.com": {
		ID: "a1", Email: "ops@example.com", PasswordHash: string(hash), Role: models.RoleAdmin, IsActive: true,
	}}

	r := gin.New()
	r.POST("/admin/login", AdminLogin(admins, "signing-key", time.Hour))

	w := doJSON(t, r, http.MethodPost, "/admin/login", AdminLoginRequest{Email: "ops@example.com", Password: "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
	signed, ok := decodeBody(t, w)["token"].(string)
	require.True(t, ok)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("signing-key"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", claims["sub"])
	assert.Equal(t, models.RoleAdmin, claims["role"])

	w = doJSON(t, r, http.MethodPost, "/admin/login", AdminLoginRequest{Email: "ops@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/admin/login", AdminLoginRequest{Email: "nobody@example.com", Password: "s3cret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CartSessionHeader = "X-Cart-Session"
	cartSessionCookie = "cart_session"
	cartSessionKey    = "cartSession"
	cartSessionMaxAge = 30 * 24 * 60 * 60
)

// CartSession resolves the caller's cart session from the X-Cart-Session
// header or cookie. A missing or malformed id is replaced by a fresh UUID,
// which is echoed back in both places.
func CartSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(CartSessionHeader))
		if id == "" {
			id, _ = c.Cookie(cartSessionCookie)
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(cartSessionKey, id)
		c.Header(CartSessionHeader, id)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cartSessionCookie, id, cartSessionMaxAge, "/", "", false, true)
		c.Next()
	}
}

func CartSessionID(c *gin.Context) string {
	return c.GetString(cartSessionKey)
}

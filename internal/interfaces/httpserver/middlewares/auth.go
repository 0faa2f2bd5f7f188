package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver/responses"
)

// BearerKey only lets through requests whose Authorization header carries
// key as a bearer token. An empty key closes the routes entirely.
func BearerKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			responses.Abort(c, http.StatusServiceUnavailable, "admin routes are disabled")
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			responses.Abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
			responses.Abort(c, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		c.Next()
	}
}

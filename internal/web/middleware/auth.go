package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (m *MiddlewareManager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.auth == nil {
			c.Next()
			return
		}

		token := c.GetHeader("Authorization")
		if token == "" {
			// browsers cannot set headers on websocket upgrades
			token = c.Query("token")
		}
		subject, err := m.auth.ValidateTokenJWT(token)
		if err != nil {
			m.log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("authentication failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set("subject", subject)
		c.Next()
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"homecore/auth"
	"homecore/internal/utils"
)

type MiddlewareManager struct {
	auth *auth.AuthModule
	log  zerolog.Logger
}

// NewMiddlewareManager creates the middleware set. A nil auth module disables authentication.
func NewMiddlewareManager(auth *auth.AuthModule) *MiddlewareManager {
	return &MiddlewareManager{auth: auth, log: utils.Component("web")}
}

// RequestLogger logs every request with its status and latency
func (m *MiddlewareManager) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := m.log.Info()
		if c.Writer.Status() >= 500 {
			ev = m.log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("subject", c.GetString("subject")).
			Msg("request")
	}
}

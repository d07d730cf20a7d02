package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs every request through slog instead of gin's own writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{"method", c.Request.Method, "path", c.FullPath(), "status", status, "latency", time.Since(start)}
		if status >= http.StatusInternalServerError {
			slog.Error("Server request", attrs...)
			return
		}
		slog.Debug("Server request", attrs...)
	}
}

// adminAuth requires "Authorization: Bearer <token>".
func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			slog.Warn("adminAuth: invalid token", "path", c.FullPath(), "remote", c.ClientIP())
			abortWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		c.Next()
	}
}

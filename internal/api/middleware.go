package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andy/billable/internal/auth"
)

const (
	ctxRequestID = "requestID"
	ctxUserID    = "userID"
	ctxUsername  = "username"

	headerRequestID = "X-Request-ID"
)

// requestID tags every request with an id, reusing the caller's when given
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger writes one line per request once the handler has finished
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := append([]any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		}, logAttrs(c)...)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request", attrs...)
	}
}

// recovery turns a panic into the standard 500 envelope
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic", append([]any{"panic", recovered}, logAttrs(c)...)...)
		fail(c, http.StatusInternalServerError, internalMessage, nil)
	})
}

// jwtAuth requires a valid bearer token and stores the caller's identity
func jwtAuth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			fail(c, http.StatusUnauthorized, "missing or invalid Authorization header", nil)
			return
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			fail(c, http.StatusUnauthorized, "invalid token", nil)
			return
		}
		id, err := claims.UserID()
		if err != nil {
			fail(c, http.StatusUnauthorized, "invalid token", nil)
			return
		}

		c.Set(ctxUserID, id)
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

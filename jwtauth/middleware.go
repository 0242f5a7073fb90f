package jwtauth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation ID in and out of HTTP requests
const RequestIDHeader = "X-Request-ID"

// JWTAuth returns a Gin middleware handler that runs the gate on every request
func JWTAuth(g *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := requestIDFrom(c.Request)
		c.Header(RequestIDHeader, requestID)
		path := c.Request.URL.Path

		// Public paths are forwarded untouched and nothing below runs
		if g.cfg.IsPublicPath(path) {
			logBypass(g.cfg, "http", requestID, path)
			c.Next()
			return
		}

		a := g.authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if a.err != nil {
			status, body := rejectionFor(a.err)
			logAttempt(g.cfg, "http", requestID, path, a, status, time.Since(startTime))
			c.AbortWithStatusJSON(status, body)
			return
		}

		ctx := WithIdentity(c.Request.Context(), a.identity)
		ctx = WithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		logAttempt(g.cfg, "http", requestID, path, a, http.StatusOK, time.Since(startTime))

		c.Next()
	}
}

// requestIDFrom returns the caller's X-Request-ID or a fresh UUID
func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

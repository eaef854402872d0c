package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"yashubustudio/newscat/internal/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestIDMiddleware propagates or assigns an X-Request-ID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(requestIDKey, reqID)
		c.Header(requestIDHeader, reqID)
		c.Next()
	}
}

// requestID returns the id assigned by requestIDMiddleware.
func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(requestIDKey)
}

// accessLogMiddleware logs one line per request and records request metrics.
// Health checks and scrapes are counted but not logged.
func accessLogMiddleware(log logger.Logger, m *metrics) gin.HandlerFunc {
	quiet := map[string]struct{}{"/ping": {}, "/metrics": {}}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		m.observeRequest(route, strconv.Itoa(status), elapsed)

		if _, ok := quiet[route]; ok {
			return
		}
		keyvals := []any{
			"request_id", requestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed,
		}
		if len(c.Errors) > 0 {
			keyvals = append(keyvals, "error", c.Errors.Last().Error())
		}
		switch {
		case status >= 500:
			log.Error("request failed", keyvals...)
		case status >= 400:
			log.Warn("request rejected", keyvals...)
		default:
			log.Info("request handled", keyvals...)
		}
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

// LoggerMiddleware 记录请求日志
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", logger.SanitizeString(c.Request.URL.Path),
			"status", status,
			"latency", time.Since(start),
			"clientIP", c.ClientIP(),
		}
		switch {
		case status >= 500:
			logger.Error("HTTP request", args...)
		case status >= 400:
			logger.Warn("HTTP request", args...)
		default:
			logger.Debug("HTTP request", args...)
		}
	}
}

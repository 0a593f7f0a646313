package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"blogapi/internal/pkg/logger"
	"blogapi/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// ErrorLogger logs 5xx responses, errors attached with c.Error and panics.
// Panics are answered with a generic 500; details stay in the log.
func ErrorLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logRequestError(log, c, start, "panic", fmt.Sprintf("%v", recovered),
					logger.String("stack", string(debug.Stack())))
				response.AbortError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}

			if len(c.Errors) == 0 {
				if c.Writer.Status() >= http.StatusInternalServerError {
					logRequestError(log, c, start, "http_error", fmt.Sprintf("status=%d", c.Writer.Status()))
				}
				return
			}

			for _, err := range c.Errors {
				logRequestError(log, c, start, fmt.Sprintf("%v", err.Type), err.Error())
			}
		}()

		c.Next()
	}
}

// RequestLogger writes one info line per request.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
			logger.String("request_id", requestID(c)),
		)
	}
}

func logRequestError(log logger.Logger, c *gin.Context, start time.Time, errType string, message string, extra ...logger.Field) {
	fields := []logger.Field{
		logger.String("type", errType),
		logger.Int("status", c.Writer.Status()),
		logger.String("method", c.Request.Method),
		logger.String("path", c.Request.URL.Path),
		logger.String("client_ip", c.ClientIP()),
		logger.String("user_id", c.GetString("user_id")),
		logger.String("request_id", requestID(c)),
		logger.Duration("latency", time.Since(start)),
		logger.String("error", message),
	}
	log.Error("request_error", append(fields, extra...)...)
}

func requestID(c *gin.Context) string {
	return c.GetHeader("X-Request-ID")
}

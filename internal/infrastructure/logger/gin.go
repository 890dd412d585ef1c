package logger

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Gin context keys and headers shared with the HTTP layer
const (
	GinLoggerKey     = "logger"
	GinRequestIDKey  = "request_id"
	EmployeeIDHeader = "X-Employee-ID"
)

const accessMessage = "HTTP Request"

// GinMiddleware writes one access log line per request. It also puts the
// request id, employee id and order id on the request context so L(ctx)
// further down carries them.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request
		requestID := c.GetString(GinRequestIDKey)

		c.Request = req.WithContext(WithContext(requestScope(c, requestID), base))
		access := base.With(
			zap.String("request_id", requestID),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
		c.Set(GinLoggerKey, access)

		c.Next()

		status := c.Writer.Status()
		ce := access.Check(levelForStatus(status), accessMessage)
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if req.URL.RawQuery != "" {
			fields = append(fields, zap.String("query", req.URL.RawQuery))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		ce.Write(fields...)
	}
}

func requestScope(c *gin.Context, requestID string) context.Context {
	ctx := c.Request.Context()
	if requestID != "" {
		ctx = WithRequestID(ctx, requestID)
	}
	if employeeID := c.GetHeader(EmployeeIDHeader); employeeID != "" {
		ctx = WithEmployeeID(ctx, employeeID)
	}
	if orderID := c.Param("id"); orderID != "" {
		ctx = WithOrderID(ctx, orderID)
	}
	return ctx
}

func levelForStatus(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// Recovery turns a handler panic into a logged 500. Broken client
// connections are handled by gin and never reach the callback.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		base.Error("Panic recovered",
			zap.String("request_id", c.GetString(GinRequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("error", recovered),
			zap.Stack("stacktrace"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ERR_INTERNAL",
				"message": "An internal error occurred",
			},
		})
	})
}

// GetGinLogger returns the request-scoped logger stored by GinMiddleware, or
// a no-op logger outside it.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Value(GinLoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

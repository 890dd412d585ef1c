package middleware

import (
	"strconv"
	"time"

	"github.com/erp/receiving/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HTTPDurationBuckets are bucket boundaries for request latency (seconds)
var HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// unmatchedRoute labels requests that hit no registered route, keeping the
// route attribute bounded.
const unmatchedRoute = "unmatched"

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Logger        *zap.Logger
}

// HTTPMetrics counts requests by method, route and status, and records
// latency. It is a no-op when the meter provider is missing or disabled.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("receiving-http"), cfg.Logger)
}

// HTTPMetricsWithMeter records HTTP metrics on meter
func HTTPMetricsWithMeter(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	in := telemetry.NewInstruments(meter)
	total := in.Counter("http_server_request_total", "Total number of HTTP requests", "{request}")
	latency := in.Seconds("http_server_request_duration_seconds", "HTTP request latency distribution in seconds", HTTPDurationBuckets)
	active := in.Gauge("http_server_active_requests", "Number of currently active HTTP requests", "{request}")
	if err := in.Err(); err != nil {
		if logger != nil {
			logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		active.Add(ctx, 1)
		defer active.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		base := attribute.NewSet(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
		)
		latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributeSet(base))
		total.Add(ctx, 1,
			metric.WithAttributeSet(base),
			metric.WithAttributes(attribute.String("status_code", strconv.Itoa(c.Writer.Status()))),
		)
	}
}

func passThrough(c *gin.Context) { c.Next() }

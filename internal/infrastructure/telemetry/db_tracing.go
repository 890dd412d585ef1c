package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Attributes added to slow statement spans
var (
	AttrDBSlowQuery  = attribute.Key("db.slow_query")
	AttrDBDurationMS = attribute.Key("db.query_duration_ms")
)

const queryStartKey = "receiving:query_start"

// DBTracingConfig configures statement tracing.
type DBTracingConfig struct {
	DBName          string
	LogFullSQL      bool          // keep bound values in db.statement; development only
	SlowQueryThresh time.Duration // 0 disables slow statement marking
	TracerProvider  trace.TracerProvider
}

// DBTracingPlugin installs otelgorm and marks statements slower than the
// threshold on their span. Pool statistics are reported by otelgorm.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// gormCallback is the registration half of a gorm callback chain.
type gormCallback interface {
	Register(name string, fn func(*gorm.DB)) error
}

// Register installs the plugin on db.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	opts := []otelgorm.Option{}
	if p.config.DBName != "" {
		opts = append(opts, otelgorm.WithDBName(p.config.DBName))
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if p.config.SlowQueryThresh > 0 {
		cb := db.Callback()
		// the mark runs before otelgorm ends the span
		hooks := []struct {
			start, mark gormCallback
			op          string
		}{
			{cb.Create().Before("gorm:create"), cb.Create().After("gorm:create").Before("otel:after:create"), "create"},
			{cb.Query().Before("gorm:query"), cb.Query().After("gorm:query").Before("otel:after:select"), "query"},
			{cb.Update().Before("gorm:update"), cb.Update().After("gorm:update").Before("otel:after:update"), "update"},
			{cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete").Before("otel:after:delete"), "delete"},
			{cb.Row().Before("gorm:row"), cb.Row().After("gorm:row").Before("otel:after:row"), "row"},
			{cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw").Before("otel:after:raw"), "raw"},
		}
		var errs []error
		for _, h := range hooks {
			errs = append(errs,
				h.start.Register("receiving:start_"+h.op, startTimer),
				h.mark.Register("receiving:slow_"+h.op, p.markSlow),
			)
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.String("dialect", db.Dialector.Name()),
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func startTimer(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (p *DBTracingPlugin) markSlow(db *gorm.DB) {
	v, ok := db.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	started, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(started)
	if elapsed < p.config.SlowQueryThresh {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(AttrDBSlowQuery.Bool(true), AttrDBDurationMS.Int64(elapsed.Milliseconds()))
}

package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound values in db.statement (dev only)
	SlowQueryThresh time.Duration // queries slower than this get db.slow_query=true
	DBName          string
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "ar_ledger",
	}
}

// DBTracingPlugin wraps the otelgorm plugin with slow query and conflict annotations.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm installs otelgorm on db plus the timing callbacks that mark slow queries
// and unique conflicts on the statement span.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB, opts ...otelgorm.Option) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	// registered ahead of otelgorm so the after hooks see the statement span before it ends
	if err := p.registerCallbacks(db); err != nil {
		return err
	}
	pluginOpts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		pluginOpts = append(pluginOpts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(append(pluginOpts, opts...)...)); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	before, after := p.beforeCallback, p.afterCallback

	create := db.Callback().Create()
	if err := create.Before("gorm:create").Register("arledger_trace:before_create", before); err != nil {
		return err
	}
	if err := create.After("gorm:create").Register("arledger_trace:after_create", after); err != nil {
		return err
	}
	query := db.Callback().Query()
	if err := query.Before("gorm:query").Register("arledger_trace:before_query", before); err != nil {
		return err
	}
	if err := query.After("gorm:query").Register("arledger_trace:after_query", after); err != nil {
		return err
	}
	update := db.Callback().Update()
	if err := update.Before("gorm:update").Register("arledger_trace:before_update", before); err != nil {
		return err
	}
	if err := update.After("gorm:update").Register("arledger_trace:after_update", after); err != nil {
		return err
	}
	del := db.Callback().Delete()
	if err := del.Before("gorm:delete").Register("arledger_trace:before_delete", before); err != nil {
		return err
	}
	if err := del.After("gorm:delete").Register("arledger_trace:after_delete", after); err != nil {
		return err
	}
	row := db.Callback().Row()
	if err := row.Before("gorm:row").Register("arledger_trace:before_row", before); err != nil {
		return err
	}
	return row.After("gorm:row").Register("arledger_trace:after_row", after)
}

type queryStartKey struct{}

func (p *DBTracingPlugin) beforeCallback(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) afterCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && errors.Is(db.Error, gorm.ErrDuplicatedKey) {
		span.SetAttributes(attribute.Bool("db.unique_conflict", true))
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok || p.config.SlowQueryThresh <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

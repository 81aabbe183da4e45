package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBDurationBuckets are the query latency histogram boundaries in seconds.
var DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// DBMetricsConfig holds configuration for database metrics collection.
type DBMetricsConfig struct {
	Enabled            bool
	DBName             string
	SlowQueryThreshold time.Duration
}

// DefaultDBMetricsConfig returns default configuration for database metrics.
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		DBName:             "ar_ledger",
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

// DBMetrics holds the query collectors fed by DBMetricsPlugin.
type DBMetrics struct {
	queryTotal     *prometheus.CounterVec
	queryErrors    *prometheus.CounterVec
	queryDuration  *prometheus.HistogramVec
	slowQueryTotal *prometheus.CounterVec

	config DBMetricsConfig
}

// NewDBMetrics creates and registers the query collectors.
func NewDBMetrics(registerer prometheus.Registerer, cfg DBMetricsConfig) (*DBMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	m := &DBMetrics{
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_total",
			Help:      "Database queries, by operation.",
		}, []string{"operation"}),
		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Failed database queries, by operation and reason.",
		}, []string{"operation", "reason"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency distribution in seconds.",
			Buckets:   DBDurationBuckets,
		}, []string{"operation"}),
		slowQueryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "slow_query_total",
			Help:      "Database queries slower than the configured threshold, by table.",
		}, []string{"table"}),
		config: cfg,
	}

	for _, c := range []prometheus.Collector{m.queryTotal, m.queryErrors, m.queryDuration, m.slowQueryTotal} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordQuery records metrics for a database query.
func (m *DBMetrics) RecordQuery(operation, table string, duration time.Duration, err error) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}

	m.queryTotal.WithLabelValues(operation).Inc()
	m.queryDuration.WithLabelValues(operation).Observe(duration.Seconds())

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.queryErrors.WithLabelValues(operation, queryErrorReason(err)).Inc()
	}

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.WithLabelValues(table).Inc()
	}
}

func queryErrorReason(err error) string {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "unique_violation"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return "foreign_key_violation"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

// DBMetricsPlugin is a GORM plugin that collects query metrics.
type DBMetricsPlugin struct {
	metrics *DBMetrics
	logger  *zap.Logger
}

// NewDBMetricsPlugin creates a new GORM plugin for database metrics.
func NewDBMetricsPlugin(metrics *DBMetrics, logger *zap.Logger) *DBMetricsPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{
		metrics: metrics,
		logger:  logger,
	}
}

// Name returns the plugin name.
func (p *DBMetricsPlugin) Name() string {
	return "arledger:db_metrics"
}

// Initialize registers the GORM callbacks for metrics collection.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	before := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, dbMetricsStartKey{}, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperationType(db.Statement.SQL.String())
			}
			p.record(db, op)
		}
	}

	create := db.Callback().Create()
	if err := create.Before("gorm:create").Register("db_metrics:before_create", before); err != nil {
		return err
	}
	if err := create.After("gorm:create").Register("db_metrics:after_create", after("INSERT")); err != nil {
		return err
	}
	query := db.Callback().Query()
	if err := query.Before("gorm:query").Register("db_metrics:before_query", before); err != nil {
		return err
	}
	if err := query.After("gorm:query").Register("db_metrics:after_query", after("SELECT")); err != nil {
		return err
	}
	update := db.Callback().Update()
	if err := update.Before("gorm:update").Register("db_metrics:before_update", before); err != nil {
		return err
	}
	if err := update.After("gorm:update").Register("db_metrics:after_update", after("UPDATE")); err != nil {
		return err
	}
	del := db.Callback().Delete()
	if err := del.Before("gorm:delete").Register("db_metrics:before_delete", before); err != nil {
		return err
	}
	if err := del.After("gorm:delete").Register("db_metrics:after_delete", after("DELETE")); err != nil {
		return err
	}
	row := db.Callback().Row()
	if err := row.Before("gorm:row").Register("db_metrics:before_row", before); err != nil {
		return err
	}
	if err := row.After("gorm:row").Register("db_metrics:after_row", after("")); err != nil {
		return err
	}
	raw := db.Callback().Raw()
	if err := raw.Before("gorm:raw").Register("db_metrics:before_raw", before); err != nil {
		return err
	}
	if err := raw.After("gorm:raw").Register("db_metrics:after_raw", after("")); err != nil {
		return err
	}

	p.logger.Info("Database metrics plugin initialized")
	return nil
}

func (p *DBMetricsPlugin) record(db *gorm.DB, operation string) {
	var duration time.Duration
	if ctx := db.Statement.Context; ctx != nil {
		if start, ok := ctx.Value(dbMetricsStartKey{}).(time.Time); ok {
			duration = time.Since(start)
		}
	}
	p.metrics.RecordQuery(operation, db.Statement.Table, duration, db.Error)
}

// detectOperationType attempts to detect the SQL operation type from the query.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))

	switch {
	case strings.HasPrefix(sql, "SELECT"):
		return "SELECT"
	case strings.HasPrefix(sql, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(sql, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(sql, "DELETE"):
		return "DELETE"
	default:
		return "OTHER"
	}
}

type dbMetricsStartKey struct{}

// RegisterDBMetrics registers the connection pool collector and the query plugin on db.
// Returns nil metrics when disabled.
func RegisterDBMetrics(db *gorm.DB, registerer prometheus.Registerer, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("Database metrics disabled, skipping registration")
		return nil, nil
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := registerer.Register(collectors.NewDBStatsCollector(sqlDB, cfg.DBName)); err != nil {
		return nil, err
	}

	metrics, err := NewDBMetrics(registerer, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Use(NewDBMetricsPlugin(metrics, logger)); err != nil {
		return nil, err
	}

	logger.Info("Database metrics registered",
		zap.String("db_name", cfg.DBName),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return metrics, nil
}

// Command server runs the receivables ledger HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/cache"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/config"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/logger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/migration"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/persistence"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/telemetry"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/handler"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/middleware"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

//go:generate swag init -d ../.. -g cmd/server/main.go -o ../../docs

//	@title			Receivables Ledger API
//	@version		1.0
//	@description	Customers, invoices, payments with allocation, statements and aging reports.

//	@host		localhost:8080
//	@BasePath	/api/v1

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting receivables ledger",
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("allocation_policy", cfg.Ledger.AllocationPolicy),
		zap.String("lock_backend", cfg.Ledger.LockBackend),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilingAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilingAuthPassword,
		ProfileTypes:      cfg.Telemetry.ProfileTypes,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to start profiler: %w", err)
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Failed to stop profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		tp.EnableSpanProfiles()
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(ctx, cfg, log); err != nil {
			return err
		}
	}

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.DBLevel),
		logger.WithSlowThreshold(cfg.Log.DBSlowMs))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dbTracingCfg := telemetry.DefaultDBTracingConfig()
	dbTracingCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbTracingCfg.DBName = cfg.Database.DBName
	if err := telemetry.NewDBTracingPlugin(dbTracingCfg, log).RegisterOtelGorm(db.DB); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.Enabled = cfg.HTTP.MetricsEnabled
	dbMetricsCfg.DBName = cfg.Database.DBName
	if _, err := telemetry.RegisterDBMetrics(db.DB, registry, dbMetricsCfg, log); err != nil {
		return fmt.Errorf("failed to register database metrics: %w", err)
	}

	locker, err := cache.NewLockerFactory(cfg.Redis, cfg.Ledger,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateLocker()
	if err != nil {
		return fmt.Errorf("failed to create customer locker: %w", err)
	}
	defer func() {
		if err := locker.Close(); err != nil {
			log.Warn("Failed to close customer locker", zap.Error(err))
		}
	}()

	svc, err := newLedgerService(cfg, db, locker, registry, log)
	if err != nil {
		return err
	}

	if err := middleware.SetupValidator(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = profiler.IsEnabled()

	engineCfg := router.EngineConfig{
		Logger: log,
		CORS: middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.HeaderRequestID},
			MaxAge:        12 * time.Hour,
		},
		MaxBodySize: cfg.HTTP.MaxBodySize,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   []string{"/health", "/metrics"},
		},
		Profiling:      profilingCfg,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}

	var gatherer prometheus.Gatherer
	if cfg.HTTP.MetricsEnabled {
		httpMetrics, err := telemetry.NewHTTPMetrics(registry)
		if err != nil {
			return fmt.Errorf("failed to register HTTP metrics: %w", err)
		}
		engineCfg.Metrics = httpMetrics
		gatherer = registry
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	if cfg.HTTP.RateLimit > 0 {
		engineCfg.RateLimiter = middleware.NewRateLimiter(limiterCtx, cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		log.Info("Rate limiting enabled",
			zap.Int("limit", cfg.HTTP.RateLimit),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine, err := router.NewEngine(engineCfg)
	if err != nil {
		return err
	}
	router.RegisterLedgerAPI(engine, svc)
	router.OpsGroup(handler.NewHealthHandler(db, version, 0), gatherer,
		router.WithSwaggerUI(cfg.HTTP.SwaggerEnabled),
	).RegisterRoutes(&engine.RouterGroup)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}

func newLedgerService(
	cfg *config.Config,
	db *persistence.Database,
	locker appledger.CustomerLocker,
	registry prometheus.Registerer,
	log *zap.Logger,
) (*appledger.LedgerService, error) {
	policy, err := ledger.NewAllocationPolicy(ledger.AllocationPolicyType(cfg.Ledger.AllocationPolicy))
	if err != nil {
		return nil, fmt.Errorf("invalid allocation policy: %w", err)
	}

	opts := []appledger.LedgerServiceOption{
		appledger.WithAllocationPolicy(policy),
		appledger.WithOpeningBalancePolicy(ledger.OpeningBalancePolicy(cfg.Ledger.OpeningBalance)),
		appledger.WithInvoiceNumbering(cfg.Ledger.InvoiceNumberBase, cfg.Ledger.InvoiceNumberWindow, cfg.Ledger.InvoiceNumberRetries),
		appledger.WithTransactionRetries(cfg.Ledger.TxRetries),
		appledger.WithStoreTimeout(cfg.Ledger.StoreTimeout),
		appledger.WithLockWait(cfg.Ledger.LockWait),
		appledger.WithLogger(log.Named("ledger")),
	}
	if cfg.HTTP.MetricsEnabled {
		metrics, err := telemetry.NewLedgerMetrics(registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register ledger metrics: %w", err)
		}
		opts = append(opts, appledger.WithMetrics(metrics))
	}

	return appledger.NewLedgerService(
		persistence.NewGormCustomerRepository(db.DB),
		persistence.NewGormInvoiceRepository(db.DB),
		persistence.NewGormCustomerPaymentRepository(db.DB),
		persistence.NewGormAllocationRepository(db.DB),
		persistence.NewGormTransactionScope(db.DB),
		locker,
		opts...,
	), nil
}

func migrateUp(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to ping database for migrations: %w", err)
	}
	m, err := migration.New(sqlDB, log.Named("migrate"))
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

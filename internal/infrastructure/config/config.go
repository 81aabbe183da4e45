package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Lock backends
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Config holds all configuration for the ledger service
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Ledger    LedgerConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int  // minutes
	ConnMaxIdleTime int  // minutes
	AutoMigrate     bool // apply pending migrations when the server starts
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string
	Format   string
	Output   string
	DBLevel  string        // gorm log level: silent, error, warn, info
	DBSlowMs time.Duration // slow query threshold for the gorm logger
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	MetricsEnabled   bool
	SwaggerEnabled   bool // serve the OpenAPI UI under /swagger
	RateLimit        int  // requests per client per window, 0 disables
	RateLimitWindow  time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool    // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool    // Attach full SQL statements to spans (dev only)

	ProfilingEnabled       bool   // Push continuous profiles to Pyroscope
	ProfilingServerAddress string // e.g. "http://pyroscope:4040"
	ProfilingAuthUser      string // Optional basic auth (Grafana Cloud)
	ProfilingAuthPassword  string
	ProfileTypes           []string // cpu, alloc_objects, alloc_space, inuse_objects, inuse_space, goroutines, mutex, block
}

// LedgerConfig holds receivable ledger behavior
type LedgerConfig struct {
	AllocationPolicy     string        // oldest_due_first | oldest_issue_first
	OpeningBalance       string        // prior_outstanding | zero
	InvoiceNumberBase    int64         // first generated identifier is base+1
	InvoiceNumberWindow  int           // how many recent identifiers the allocator scans
	InvoiceNumberRetries int           // insert attempts when a generated identifier collides
	TxRetries            int           // runs of a transaction aborted by a concurrency conflict
	StoreTimeout         time.Duration // bound on one operation's store work
	LockBackend          string        // local | redis
	LockTTL              time.Duration // expiry of a redis customer lock
	LockWait             time.Duration // how long to wait for a customer lock
	Currency             string        // display only
}

// Load loads configuration from an optional .env file, a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with ARL_ prefix (e.g., ARL_DATABASE_PASSWORD)
// 2. .env entries (never override variables already set)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ARL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:    v.GetString("log.level"),
			Format:   v.GetString("log.format"),
			Output:   v.GetString("log.output"),
			DBLevel:  v.GetString("log.db_level"),
			DBSlowMs: v.GetDuration("log.db_slow_threshold"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			MetricsEnabled:   !v.IsSet("http.metrics_enabled") || v.GetBool("http.metrics_enabled"),
			SwaggerEnabled:   !v.IsSet("http.swagger_enabled") || v.GetBool("http.swagger_enabled"),
			RateLimit:        v.GetInt("http.rate_limit"),
			RateLimitWindow:  v.GetDuration("http.rate_limit_window"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),

			ProfilingEnabled:       v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress: v.GetString("telemetry.profiling_server_address"),
			ProfilingAuthUser:      v.GetString("telemetry.profiling_auth_user"),
			ProfilingAuthPassword:  v.GetString("telemetry.profiling_auth_password"),
			ProfileTypes:           v.GetStringSlice("telemetry.profile_types"),
		},
		Ledger: LedgerConfig{
			AllocationPolicy:     v.GetString("ledger.allocation_policy"),
			OpeningBalance:       v.GetString("ledger.opening_balance"),
			InvoiceNumberBase:    v.GetInt64("ledger.invoice_number_base"),
			InvoiceNumberWindow:  v.GetInt("ledger.invoice_number_window"),
			InvoiceNumberRetries: v.GetInt("ledger.invoice_number_retries"),
			TxRetries:            v.GetInt("ledger.tx_retries"),
			StoreTimeout:         v.GetDuration("ledger.store_timeout"),
			LockBackend:          v.GetString("ledger.lock_backend"),
			LockTTL:              v.GetDuration("ledger.lock_ttl"),
			LockWait:             v.GetDuration("ledger.lock_wait"),
			Currency:             v.GetString("ledger.currency"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ar-ledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "ar_ledger"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.DBLevel == "" {
		cfg.Log.DBLevel = "warn"
	}
	if cfg.Log.DBSlowMs == 0 {
		cfg.Log.DBSlowMs = 200 * time.Millisecond
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// An empty origin list means no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ProfilingServerAddress == "" {
		cfg.Telemetry.ProfilingServerAddress = "http://localhost:4040"
	}
	if len(cfg.Telemetry.ProfileTypes) == 0 {
		cfg.Telemetry.ProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
	if cfg.Ledger.AllocationPolicy == "" {
		cfg.Ledger.AllocationPolicy = "oldest_due_first"
	}
	if cfg.Ledger.OpeningBalance == "" {
		cfg.Ledger.OpeningBalance = "prior_outstanding"
	}
	if cfg.Ledger.InvoiceNumberBase == 0 {
		cfg.Ledger.InvoiceNumberBase = 1000
	}
	if cfg.Ledger.InvoiceNumberWindow == 0 {
		cfg.Ledger.InvoiceNumberWindow = 50
	}
	if cfg.Ledger.InvoiceNumberRetries == 0 {
		cfg.Ledger.InvoiceNumberRetries = 5
	}
	if cfg.Ledger.TxRetries == 0 {
		cfg.Ledger.TxRetries = 3
	}
	if cfg.Ledger.StoreTimeout == 0 {
		cfg.Ledger.StoreTimeout = 10 * time.Second
	}
	if cfg.Ledger.LockBackend == "" {
		cfg.Ledger.LockBackend = LockBackendLocal
	}
	if cfg.Ledger.LockTTL == 0 {
		cfg.Ledger.LockTTL = 30 * time.Second
	}
	if cfg.Ledger.LockWait == 0 {
		cfg.Ledger.LockWait = 5 * time.Second
	}
	if cfg.Ledger.Currency == "" {
		cfg.Ledger.Currency = "KWD"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit cannot be negative")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	for _, pt := range c.Telemetry.ProfileTypes {
		if !knownProfileTypes[pt] {
			return fmt.Errorf("telemetry.profile_types: unknown profile type %q", pt)
		}
	}

	return c.Ledger.validate()
}

var knownProfileTypes = map[string]bool{
	"cpu": true, "alloc_objects": true, "alloc_space": true, "inuse_objects": true,
	"inuse_space": true, "goroutines": true, "mutex": true, "block": true,
}

func (l *LedgerConfig) validate() error {
	switch l.AllocationPolicy {
	case "oldest_due_first", "oldest_issue_first":
	default:
		return fmt.Errorf("ledger.allocation_policy must be oldest_due_first or oldest_issue_first, got %q", l.AllocationPolicy)
	}
	switch l.OpeningBalance {
	case "prior_outstanding", "zero":
	default:
		return fmt.Errorf("ledger.opening_balance must be prior_outstanding or zero, got %q", l.OpeningBalance)
	}
	switch l.LockBackend {
	case LockBackendLocal, LockBackendRedis:
	default:
		return fmt.Errorf("ledger.lock_backend must be %s or %s, got %q", LockBackendLocal, LockBackendRedis, l.LockBackend)
	}
	if l.InvoiceNumberBase < 0 {
		return fmt.Errorf("ledger.invoice_number_base cannot be negative")
	}
	if l.InvoiceNumberWindow < 0 || l.InvoiceNumberRetries < 0 {
		return fmt.Errorf("ledger.invoice_number_window and ledger.invoice_number_retries must be positive")
	}
	if l.TxRetries < 0 {
		return fmt.Errorf("ledger.tx_retries must be positive")
	}
	if l.StoreTimeout < 0 || l.LockTTL < 0 || l.LockWait < 0 {
		return fmt.Errorf("ledger durations must be positive")
	}
	if l.LockBackend == LockBackendRedis {
		// a redis lock is held for the whole operation, which store_timeout bounds
		if l.LockTTL <= l.LockWait {
			return fmt.Errorf("ledger.lock_ttl (%s) must exceed ledger.lock_wait (%s)", l.LockTTL, l.LockWait)
		}
		if l.LockTTL <= l.StoreTimeout {
			return fmt.Errorf("ledger.lock_ttl (%s) must exceed ledger.store_timeout (%s)", l.LockTTL, l.StoreTimeout)
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

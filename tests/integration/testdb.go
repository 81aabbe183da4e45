// Package integration runs the ledger against a real PostgreSQL started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/migration"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// shared is the package-wide database used by NewSharedTestDB
var shared struct {
	mu        sync.Mutex
	container testcontainers.Container
	dsn       string
}

// TestDB is a connection to a migrated ledger schema
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	DSN   string

	t *testing.T
}

// NewTestDB starts a private container, migrates it and removes it when t ends.
// Use it for tests that change the schema or need an empty database.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	container, dsn := startMigratedPostgres(t, "ar_ledger_test")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})
	return open(t, dsn)
}

// NewSharedTestDB connects to the package container, starting it on first use.
// Tests sharing it work on their own customers or call CleanTables.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	shared.mu.Lock()
	if shared.container == nil {
		shared.container, shared.dsn = startMigratedPostgres(t, "ar_ledger_shared_test")
	}
	dsn := shared.dsn
	shared.mu.Unlock()

	return open(t, dsn)
}

// CleanupSharedContainer stops the package container; call it from TestMain
func CleanupSharedContainer() {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = shared.container.Terminate(ctx)
	shared.container, shared.dsn = nil, ""
}

// CleanTables empties every ledger table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	require.NoError(tdb.t, tdb.DB.Exec(
		`TRUNCATE TABLE invoice_payment_allocations, customer_payments, invoice_items, invoices, customers CASCADE`,
	).Error, "truncate ledger tables")
}

func startMigratedPostgres(t *testing.T, dbName string) (testcontainers.Container, string) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "postgres connection string")

	migrateUp(t, dsn)
	return container, dsn
}

// migrateUp applies the embedded migrations the way cmd/migrate does, over lib/pq
func migrateUp(t *testing.T, dsn string) {
	t.Helper()

	conn, err := sql.Open("postgres", dsn)
	require.NoError(t, err, "open migration connection")
	m, err := migration.New(conn, zap.NewNop())
	require.NoError(t, err, "create migrator")
	defer func() { _ = m.Close() }()

	require.NoError(t, m.Up(), "apply migrations")
}

func open(t *testing.T, dsn string) *TestDB {
	t.Helper()

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err, "connect to postgres")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &TestDB{DB: db, SqlDB: sqlDB, DSN: dsn, t: t}
}

package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "ar_ledger", cfg.DBName)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
}

func TestNewDBMetrics_AppliesDefaultThreshold(t *testing.T) {
	m, err := NewDBMetrics(prometheus.NewRegistry(), DBMetricsConfig{})
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, m.config.SlowQueryThreshold)
}

func TestNewDBMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewDBMetrics(reg, DefaultDBMetricsConfig())
	require.NoError(t, err)

	_, err = NewDBMetrics(reg, DefaultDBMetricsConfig())
	assert.Error(t, err)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	m, err := NewDBMetrics(prometheus.NewRegistry(), DBMetricsConfig{SlowQueryThreshold: 100 * time.Millisecond})
	require.NoError(t, err)

	m.RecordQuery("select", "invoices", 10*time.Millisecond, nil)
	m.RecordQuery("SELECT", "invoices", 250*time.Millisecond, nil)
	m.RecordQuery("INSERT", "invoices", time.Millisecond, gorm.ErrDuplicatedKey)
	m.RecordQuery("SELECT", "", 300*time.Millisecond, gorm.ErrRecordNotFound)
	m.RecordQuery("", "payments", time.Millisecond, context.DeadlineExceeded)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("SELECT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("INSERT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("UNKNOWN")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryErrors.WithLabelValues("INSERT", "unique_violation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryErrors.WithLabelValues("UNKNOWN", "deadline_exceeded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.queryErrors.WithLabelValues("SELECT", "other")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.slowQueryTotal.WithLabelValues("invoices")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slowQueryTotal.WithLabelValues("unknown")))
}

func TestQueryErrorReason(t *testing.T) {
	assert.Equal(t, "unique_violation", queryErrorReason(gorm.ErrDuplicatedKey))
	assert.Equal(t, "foreign_key_violation", queryErrorReason(gorm.ErrForeignKeyViolated))
	assert.Equal(t, "canceled", queryErrorReason(context.Canceled))
	assert.Equal(t, "other", queryErrorReason(errors.New("connection reset")))
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM invoices", "SELECT"},
		{"  select max(number_seq) from invoices", "SELECT"},
		{"INSERT INTO payments VALUES (1)", "INSERT"},
		{"update invoices set status = 'paid'", "UPDATE"},
		{"DELETE FROM payment_allocations", "DELETE"},
		{"SELECT pg_advisory_xact_lock(1)", "SELECT"},
		{"BEGIN", "OTHER"},
		{"", "OTHER"},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, detectOperationType(tt.sql))
		})
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	t.Run("disabled returns nil", func(t *testing.T) {
		db := setupTestDB(t)
		m, err := RegisterDBMetrics(db, prometheus.NewRegistry(), DBMetricsConfig{}, zap.NewNop())
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("plugin records gorm operations", func(t *testing.T) {
		db := setupTestDB(t)
		reg := prometheus.NewRegistry()
		m, err := RegisterDBMetrics(db, reg, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, m)

		require.NoError(t, db.Create(&tracedInvoice{Number: "INV-1"}).Error)
		var found tracedInvoice
		require.NoError(t, db.First(&found).Error)
		require.NoError(t, db.Model(&found).Update("number", "INV-2").Error)
		require.NoError(t, db.Delete(&found).Error)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("INSERT")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("SELECT")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("UPDATE")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("DELETE")))

		families, err := reg.Gather()
		require.NoError(t, err)
		names := make(map[string]bool)
		for _, f := range families {
			names[f.GetName()] = true
		}
		assert.True(t, names["go_sql_open_connections"], "pool stats collector should be registered")
		assert.True(t, names["arledger_db_query_duration_seconds"])
	})
}

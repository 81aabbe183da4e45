package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyError(t *testing.T) {
	plain := errors.New("syntax error at or near")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, shared.ErrNotFound},
		{"wrapped record not found", fmt.Errorf("find: %w", gorm.ErrRecordNotFound), shared.ErrNotFound},
		{"translated duplicate", gorm.ErrDuplicatedKey, shared.ErrAlreadyExists},
		{"pg unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "idx_invoices_number"}, shared.ErrAlreadyExists},
		{"pg lock not available", &pgconn.PgError{Code: "55P03"}, shared.ErrConcurrencyConflict},
		{"pg serialization failure", &pgconn.PgError{Code: "40001"}, shared.ErrConcurrencyConflict},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, shared.ErrConcurrencyConflict},
		{"pg statement timeout", &pgconn.PgError{Code: "57014"}, shared.ErrStoreTimeout},
		{"pg numeric out of range", &pgconn.PgError{Code: "22003", Message: "numeric field overflow"}, ledger.ErrAmountOutOfRange},
		{"context deadline", context.DeadlineExceeded, shared.ErrStoreTimeout},
		{"bad connection", driver.ErrBadConn, shared.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyError(tt.err), tt.want)
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, classifyError(nil))
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		domainErr := shared.NewDomainError("INVOICE_NUMBER_CONFLICT", "taken")
		assert.Same(t, domainErr, classifyError(domainErr))
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		assert.Same(t, plain, classifyError(plain))
	})

	t.Run("other pg codes pass through", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "42601"}
		assert.Equal(t, error(pgErr), classifyError(pgErr))
	})
}

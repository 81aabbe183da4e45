package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The postgres dialect is exercised through sqlmock to pin the row locking SQL.

func TestGormInvoiceRepository_FindReceivablesForUpdate_Postgres(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewGormInvoiceRepository(mockDB.DB)

	customerID := uuid.New()
	invoiceID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "number", "customer_id", "status", "total", "version"}).
		AddRow(invoiceID.String(), "INV-1001", customerID.String(), "pending", "100.000", 1)

	mockDB.Mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE customer_id = \$1 AND status NOT IN \(\$2,\$3\) ORDER BY due_date ASC,issue_date ASC,id ASC FOR UPDATE`).
		WithArgs(customerID, "draft", "cancelled").
		WillReturnRows(rows)

	invoices, err := repo.FindReceivablesForUpdate(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, invoiceID, invoices[0].ID)
	assert.Equal(t, ledger.InvoiceStatusPending, invoices[0].Status)
	assert.True(t, decimal.RequireFromString("100").Equal(invoices[0].Total))
	mockDB.ExpectationsWereMet(t)
}

func TestGormInvoiceRepository_FindByIDForUpdate_Postgres(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewGormInvoiceRepository(mockDB.DB)

	invoiceID := uuid.New()
	mockDB.Mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT \$2 FOR UPDATE`).
		WithArgs(invoiceID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "status"}).AddRow(invoiceID.String(), "INV-9", "pending"))
	mockDB.Mock.ExpectQuery(`SELECT \* FROM "invoice_items" WHERE invoice_id = \$1 ORDER BY sort_order ASC`).
		WithArgs(invoiceID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id", "description", "sort_order"}).
			AddRow(uuid.NewString(), invoiceID.String(), "Consulting", 0))

	inv, err := repo.FindByIDForUpdate(context.Background(), invoiceID)
	require.NoError(t, err)
	assert.Equal(t, "INV-9", inv.Number)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Consulting", inv.Items[0].Description)
	mockDB.ExpectationsWereMet(t)
}

func TestGormInvoiceRepository_RecentNumbers_Postgres(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewGormInvoiceRepository(mockDB.DB)

	mockDB.Mock.ExpectQuery(`SELECT "number" FROM "invoices" WHERE number_seq IS NOT NULL ORDER BY number_seq DESC,created_at DESC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"number"}).AddRow("INV-1010").AddRow("INV-1009"))

	numbers, err := repo.RecentNumbers(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-1010", "INV-1009"}, numbers)
	mockDB.ExpectationsWereMet(t)
}

func TestGormInvoiceRepository_SaveWithLock_Postgres(t *testing.T) {
	inv := &ledger.Invoice{
		BaseEntity: shared.BaseEntity{ID: uuid.New(), UpdatedAt: time.Now()},
		Number:     "INV-1001",
		Status:     ledger.InvoiceStatusCancelled,
		Discount:   decimal.Zero,
		Tax:        decimal.Zero,
		Total:      decimal.RequireFromString("10"),
		Version:    3,
	}

	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		repo := NewGormInvoiceRepository(mockDB.DB)

		mockDB.Mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), inv)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.True(t, shared.IsRetryable(err))
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("matching version updates", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		repo := NewGormInvoiceRepository(mockDB.DB)

		mockDB.Mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SaveWithLock(context.Background(), inv))
		mockDB.ExpectationsWereMet(t)
	})
}

func TestGormAllocationRepository_DeleteByInvoice_Postgres(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewGormAllocationRepository(mockDB.DB)

	invoiceID := uuid.New()
	mockDB.Mock.ExpectExec(`DELETE FROM "invoice_payment_allocations" WHERE invoice_id = \$1`).
		WithArgs(invoiceID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteByInvoice(context.Background(), invoiceID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	mockDB.ExpectationsWereMet(t)
}

package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type ledgerFixture struct {
	db          *gorm.DB
	customers   *GormCustomerRepository
	invoices    *GormInvoiceRepository
	payments    *GormCustomerPaymentRepository
	allocations *GormAllocationRepository
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return &ledgerFixture{
		db:          db,
		customers:   NewGormCustomerRepository(db),
		invoices:    NewGormInvoiceRepository(db),
		payments:    NewGormCustomerPaymentRepository(db),
		allocations: NewGormAllocationRepository(db),
	}
}

func (f *ledgerFixture) customer(t *testing.T, code, name string) *ledger.Customer {
	t.Helper()
	c, err := ledger.NewCustomer(code, name, "", "")
	require.NoError(t, err)
	require.NoError(t, f.customers.Create(context.Background(), c))
	return c
}

func (f *ledgerFixture) invoice(t *testing.T, customerID uuid.UUID, number string, issue, due time.Time, total string, status ledger.InvoiceStatus) *ledger.Invoice {
	t.Helper()
	inv, err := ledger.NewInvoice(ledger.NewInvoiceInput{
		Number:     number,
		CustomerID: customerID,
		IssueDate:  issue,
		DueDate:    due,
		Subtotal:   decimal.RequireFromString(total),
		Status:     status,
	})
	require.NoError(t, err)
	require.NoError(t, f.invoices.Create(context.Background(), inv))
	return inv
}

func (f *ledgerFixture) payment(t *testing.T, customerID uuid.UUID, amount, key string) *ledger.CustomerPayment {
	t.Helper()
	p, err := ledger.NewCustomerPayment(ledger.NewCustomerPaymentInput{
		CustomerID:     customerID,
		Amount:         decimal.RequireFromString(amount),
		PaymentDate:    testutil.Date(2024, time.June, 1),
		Method:         ledger.PaymentMethodCash,
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	require.NoError(t, f.payments.Create(context.Background(), p))
	return p
}

func TestGormCustomerRepository(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	acme := f.customer(t, "C-001", "Acme Trading")
	f.customer(t, "C-002", "Gulf Supplies")
	f.customer(t, "C-003", "Acme Logistics")

	t.Run("find by id", func(t *testing.T) {
		found, err := f.customers.FindByID(ctx, acme.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Trading", found.Name)
	})

	t.Run("missing customer is not found", func(t *testing.T) {
		_, err := f.customers.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)

		exists, err := f.customers.ExistsByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("duplicate code", func(t *testing.T) {
		dup, err := ledger.NewCustomer("C-001", "Other", "", "")
		require.NoError(t, err)
		assert.ErrorIs(t, f.customers.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("search and paging", func(t *testing.T) {
		list, total, err := f.customers.List(ctx, shared.Filter{Search: "acme", Page: 1, PageSize: 1, OrderBy: "name", OrderDir: "asc"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, list, 1)
		assert.Equal(t, "Acme Logistics", list[0].Name)
	})

	t.Run("find by ids", func(t *testing.T) {
		byID, err := f.customers.FindByIDs(ctx, []uuid.UUID{acme.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, byID, 1)
		assert.Equal(t, "C-001", byID[acme.ID].Code)
	})
}

func TestGormInvoiceRepository_CreateAndFind(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	c := f.customer(t, "C-001", "Acme")

	inv, err := ledger.NewInvoice(ledger.NewInvoiceInput{
		Number:     "INV-1001",
		CustomerID: c.ID,
		IssueDate:  testutil.Date(2024, time.May, 1),
		DueDate:    testutil.Date(2024, time.May, 31),
		Items: []ledger.InvoiceItemInput{
			{Description: "Steel pipe", Quantity: decimal.RequireFromString("2"), UnitPrice: decimal.RequireFromString("12.500")},
			{Description: "Fittings", Quantity: decimal.RequireFromString("1"), UnitPrice: decimal.RequireFromString("5")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.invoices.Create(ctx, inv))

	found, err := f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-1001", found.Number)
	assert.True(t, decimal.RequireFromString("30").Equal(found.Total))
	assert.True(t, testutil.Date(2024, time.May, 31).Equal(found.DueDate))
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Steel pipe", found.Items[0].Description)
	assert.Equal(t, "Fittings", found.Items[1].Description)

	byNumber, err := f.invoices.FindByNumber(ctx, " INV-1001 ")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, byNumber.ID)

	locked, err := f.invoices.FindByIDForUpdate(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, locked.Version)
}

func TestGormInvoiceRepository_DuplicateNumber(t *testing.T) {
	f := newLedgerFixture(t)
	c := f.customer(t, "C-001", "Acme")
	issue := testutil.Date(2024, time.May, 1)

	f.invoice(t, c.ID, "INV-1001", issue, issue, "10", "")

	dup, err := ledger.NewInvoice(ledger.NewInvoiceInput{
		Number: "INV-1001", CustomerID: c.ID, IssueDate: issue, DueDate: issue, Subtotal: decimal.RequireFromString("5"),
	})
	require.NoError(t, err)
	err = f.invoices.Create(context.Background(), dup)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormInvoiceRepository_RecentNumbers(t *testing.T) {
	f := newLedgerFixture(t)
	c := f.customer(t, "C-001", "Acme")
	issue := testutil.Date(2024, time.May, 1)

	f.invoice(t, c.ID, "INV-1002", issue, issue, "10", "")
	f.invoice(t, c.ID, "MANUAL", issue, issue, "10", "")
	f.invoice(t, c.ID, "INV-1010", issue, issue, "10", "")
	f.invoice(t, c.ID, "INV-999", issue, issue, "10", "")

	numbers, err := f.invoices.RecentNumbers(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-1010", "INV-1002"}, numbers)
}

func TestGormInvoiceRepository_ListAndReceivables(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	acme := f.customer(t, "C-001", "Acme")
	other := f.customer(t, "C-002", "Other")

	may1 := testutil.Date(2024, time.May, 1)
	may15 := testutil.Date(2024, time.May, 15)
	jun1 := testutil.Date(2024, time.June, 1)

	late := f.invoice(t, acme.ID, "INV-1", may15, jun1, "100", "")
	early := f.invoice(t, acme.ID, "INV-2", may1, may15, "50", "")
	f.invoice(t, acme.ID, "INV-3", may1, jun1, "70", ledger.InvoiceStatusDraft)
	f.invoice(t, other.ID, "INV-4", may1, jun1, "20", "")

	t.Run("receivables exclude drafts and order by due date", func(t *testing.T) {
		invoices, err := f.invoices.FindReceivablesForUpdate(ctx, acme.ID)
		require.NoError(t, err)
		require.Len(t, invoices, 2)
		assert.Equal(t, early.ID, invoices[0].ID)
		assert.Equal(t, late.ID, invoices[1].ID)
	})

	t.Run("customer and date filter", func(t *testing.T) {
		from := testutil.Date(2024, time.May, 10)
		list, total, err := f.invoices.List(ctx, ledger.InvoiceFilter{
			CustomerID: &acme.ID,
			IssuedFrom: &from,
			Filter:     shared.Filter{Page: 1, PageSize: 10},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, "INV-1", list[0].Number)
	})

	t.Run("status filter and receivable flag", func(t *testing.T) {
		drafts, err := f.invoices.FindAll(ctx, ledger.InvoiceFilter{Statuses: []ledger.InvoiceStatus{ledger.InvoiceStatusDraft}})
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, "INV-3", drafts[0].Number)

		before := testutil.Date(2024, time.May, 10)
		prior, err := f.invoices.FindAll(ctx, ledger.InvoiceFilter{CustomerID: &acme.ID, IssuedBefore: &before, ReceivableOnly: true})
		require.NoError(t, err)
		require.Len(t, prior, 1)
		assert.Equal(t, "INV-2", prior[0].Number)
	})

	t.Run("search", func(t *testing.T) {
		_, total, err := f.invoices.List(ctx, ledger.InvoiceFilter{Filter: shared.Filter{Search: "inv-4"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	c := f.customer(t, "C-001", "Acme")
	issue := testutil.Date(2024, time.May, 1)
	inv := f.invoice(t, c.ID, "INV-1", issue, issue, "100", "")

	first, err := f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	second, err := f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	require.NoError(t, first.Reprice(decimal.RequireFromString("100"), decimal.Zero, decimal.Zero))
	require.NoError(t, f.invoices.SaveWithLock(ctx, first))

	stored, err := f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.Total.IsZero(), "zero total must be written")
	assert.Equal(t, 2, stored.Version)

	require.NoError(t, second.Reprice(decimal.RequireFromString("10"), decimal.Zero, decimal.Zero))
	err = f.invoices.SaveWithLock(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestGormInvoiceRepository_Delete(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	c := f.customer(t, "C-001", "Acme")
	issue := testutil.Date(2024, time.May, 1)
	inv := f.invoice(t, c.ID, "INV-1", issue, issue, "100", "")

	require.NoError(t, f.invoices.Delete(ctx, inv.ID))
	_, err := f.invoices.FindByID(ctx, inv.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, f.invoices.Delete(ctx, inv.ID), shared.ErrNotFound)
}

func TestGormCustomerPaymentRepository(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	c := f.customer(t, "C-001", "Acme")

	keyed := f.payment(t, c.ID, "100", "client-key-1")
	f.payment(t, c.ID, "40", "")
	f.payment(t, c.ID, "60", "")

	t.Run("idempotency key lookup", func(t *testing.T) {
		found, err := f.payments.FindByIdempotencyKey(ctx, "client-key-1")
		require.NoError(t, err)
		assert.Equal(t, keyed.ID, found.ID)

		_, err = f.payments.FindByIdempotencyKey(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("reused key is rejected by the store", func(t *testing.T) {
		dup, err := ledger.NewCustomerPayment(ledger.NewCustomerPaymentInput{
			CustomerID: c.ID, Amount: decimal.RequireFromString("1"), PaymentDate: testutil.Date(2024, time.June, 2), IdempotencyKey: "client-key-1",
		})
		require.NoError(t, err)
		assert.ErrorIs(t, f.payments.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("payments without keys do not collide", func(t *testing.T) {
		list, total, err := f.payments.List(ctx, ledger.PaymentFilter{CustomerID: &c.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, list, 3)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, f.payments.Delete(ctx, keyed.ID))
		assert.ErrorIs(t, f.payments.Delete(ctx, keyed.ID), shared.ErrNotFound)
	})
}

func TestGormAllocationRepository(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	c := f.customer(t, "C-001", "Acme")
	issue := testutil.Date(2024, time.May, 1)
	inv1 := f.invoice(t, c.ID, "INV-1", issue, issue, "100", "")
	inv2 := f.invoice(t, c.ID, "INV-2", issue, issue, "100", "")
	p := f.payment(t, c.ID, "150", "")

	a1, err := ledger.NewAllocation(inv1.ID, p.ID, decimal.RequireFromString("100"))
	require.NoError(t, err)
	a2, err := ledger.NewAllocation(inv2.ID, p.ID, decimal.RequireFromString("50"))
	require.NoError(t, err)
	require.NoError(t, f.allocations.CreateBatch(ctx, []ledger.Allocation{*a1, *a2}))
	require.NoError(t, f.allocations.CreateBatch(ctx, nil))

	byPayment, err := f.allocations.FindByPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, byPayment, 2)
	assert.True(t, decimal.RequireFromString("150").Equal(ledger.SumAllocations(byPayment)))

	byInvoice, err := f.allocations.FindByInvoices(ctx, []uuid.UUID{inv1.ID, inv2.ID})
	require.NoError(t, err)
	assert.Len(t, byInvoice[inv1.ID], 1)
	assert.Len(t, byInvoice[inv2.ID], 1)

	empty, err := f.allocations.FindByInvoices(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	n, err := f.allocations.DeleteByInvoice(ctx, inv1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.allocations.DeleteByPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGormTransactionScope(t *testing.T) {
	f := newLedgerFixture(t)
	scope := NewGormTransactionScope(f.db)
	ctx := context.Background()

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		var created *ledger.Customer
		err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
			c, err := ledger.NewCustomer("C-TX", "Rolled Back", "", "")
			require.NoError(t, err)
			created = c
			if err := repos.CustomerRepo().Create(ctx, c); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = f.customers.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("commit", func(t *testing.T) {
		var created *ledger.Customer
		err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
			c, err := ledger.NewCustomer("C-OK", "Committed", "", "")
			if err != nil {
				return err
			}
			created = c
			return repos.CustomerRepo().Create(ctx, c)
		})
		require.NoError(t, err)

		found, err := f.customers.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Committed", found.Name)
	})

	t.Run("store errors are classified", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
			c, err := ledger.NewCustomer("C-OK", "Duplicate", "", "")
			if err != nil {
				return err
			}
			return repos.CustomerRepo().Create(ctx, c)
		})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

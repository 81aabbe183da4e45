package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/cache"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/persistence"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var today = testutil.Date(2024, time.June, 30)

func money(s string) decimal.Decimal {
	return valueobject.MustParseMoney(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "want %s, got %s", want, got.String())
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, shared.CodeOf(err), "unexpected error: %v", err)
}

// recordingMetrics captures what the service reports
type recordingMetrics struct {
	mu          sync.Mutex
	payments    int
	allocations int
	allocated   decimal.Decimal
	unallocated decimal.Decimal
	conflicts   int
	txConflicts []string
	lockWaits   []bool
}

func (m *recordingMetrics) PaymentRecorded(string, decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments++
}

func (m *recordingMetrics) AllocationsCreated(_ string, count int, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocations += count
	m.allocated = m.allocated.Add(amount)
}

func (m *recordingMetrics) UnallocatedCredit(amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unallocated = m.unallocated.Add(amount)
}

func (m *recordingMetrics) InvoiceNumberConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

func (m *recordingMetrics) TransactionConflict(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txConflicts = append(m.txConflicts, operation)
}

func (m *recordingMetrics) CustomerLockWait(_ time.Duration, acquired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockWaits = append(m.lockWaits, acquired)
}

type serviceFixture struct {
	svc     *appledger.LedgerService
	db      *gorm.DB
	locker  *cache.InMemoryCustomerLocker
	metrics *recordingMetrics
	ctx     context.Context
}

func newServiceFixture(t *testing.T, opts ...appledger.LedgerServiceOption) *serviceFixture {
	t.Helper()
	return newServiceFixtureWithScope(t, nil, opts...)
}

// newServiceFixtureWithScope lets a test wrap the transaction scope the service runs on
func newServiceFixtureWithScope(t *testing.T, wrap func(appledger.TransactionScope) appledger.TransactionScope, opts ...appledger.LedgerServiceOption) *serviceFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	var scope appledger.TransactionScope = persistence.NewGormTransactionScope(db)
	if wrap != nil {
		scope = wrap(scope)
	}
	locker := cache.NewInMemoryCustomerLocker()
	metrics := &recordingMetrics{allocated: decimal.Zero, unallocated: decimal.Zero}

	base := []appledger.LedgerServiceOption{
		appledger.WithClock(testutil.FixedClock(today)),
		appledger.WithMetrics(metrics),
	}
	svc := appledger.NewLedgerService(
		persistence.NewGormCustomerRepository(db),
		persistence.NewGormInvoiceRepository(db),
		persistence.NewGormCustomerPaymentRepository(db),
		persistence.NewGormAllocationRepository(db),
		scope,
		locker,
		append(base, opts...)...,
	)
	return &serviceFixture{
		svc:     svc,
		db:      db,
		locker:  locker,
		metrics: metrics,
		ctx:     testutil.ContextWithTimeout(t, 30*time.Second),
	}
}

func (f *serviceFixture) customer(t *testing.T, code string) uuid.UUID {
	t.Helper()
	c, err := f.svc.CreateCustomer(f.ctx, appledger.CreateCustomerRequest{Code: code, Name: "Customer " + code})
	require.NoError(t, err)
	return c.ID
}

func (f *serviceFixture) invoice(t *testing.T, customerID uuid.UUID, number string, issue, due time.Time, total string) *appledger.InvoiceResponse {
	t.Helper()
	inv, err := f.svc.CreateInvoice(f.ctx, appledger.CreateInvoiceRequest{
		Number:     number,
		CustomerID: customerID,
		IssueDate:  issue,
		DueDate:    due,
		Subtotal:   money(total),
	})
	require.NoError(t, err)
	return inv
}

func (f *serviceFixture) pay(t *testing.T, customerID uuid.UUID, amount string) *appledger.PaymentResult {
	t.Helper()
	res, err := f.svc.RecordPayment(f.ctx, appledger.RecordPaymentRequest{
		CustomerID:  customerID,
		Amount:      money(amount),
		PaymentDate: today,
	})
	require.NoError(t, err)
	return res
}

func (f *serviceFixture) getInvoice(t *testing.T, id uuid.UUID) *appledger.InvoiceResponse {
	t.Helper()
	inv, err := f.svc.GetInvoice(f.ctx, id)
	require.NoError(t, err)
	return inv
}

func (f *serviceFixture) getPayment(t *testing.T, id uuid.UUID) *appledger.PaymentResponse {
	t.Helper()
	p, err := f.svc.GetPayment(f.ctx, id)
	require.NoError(t, err)
	return p
}

// threeInvoices creates invoices whose issue order differs from their due order:
// B is issued first but due second.
func (f *serviceFixture) threeInvoices(t *testing.T, customerID uuid.UUID) (a, b, c *appledger.InvoiceResponse) {
	t.Helper()
	a = f.invoice(t, customerID, "INV-A", testutil.Date(2024, time.March, 1), testutil.Date(2024, time.March, 31), "100")
	b = f.invoice(t, customerID, "INV-B", testutil.Date(2024, time.February, 1), testutil.Date(2024, time.April, 30), "200")
	c = f.invoice(t, customerID, "INV-C", testutil.Date(2024, time.April, 1), testutil.Date(2024, time.May, 31), "300")
	return a, b, c
}

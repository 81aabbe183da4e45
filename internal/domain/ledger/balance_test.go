package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
)

func TestCalculateBalance(t *testing.T) {
	customerID := uuid.New()
	paymentID := uuid.New()

	t.Run("unpaid invoice past due is overdue", func(t *testing.T) {
		inv := newTestInvoice(t, customerID, "1001", date(2024, 4, 1), date(2024, 5, 1), "100.000")
		bal := CalculateBalance(inv, nil, today)

		assert.Equal(t, "100.000", valueobject.FormatMoney(bal.OutstandingAmount))
		assert.True(t, bal.AllocatedAmount.IsZero())
		assert.Equal(t, PaymentStatusOverdue, bal.PaymentStatus)
		assert.True(t, bal.IsOverdue)
		assert.NotEqual(t, AgingBucketCurrent, AgingBucketFor(bal.DaysOverdue))
	})

	t.Run("partial allocation", func(t *testing.T) {
		inv := newTestInvoice(t, customerID, "1001", date(2024, 4, 1), date(2024, 5, 1), "100.000")
		bal := CalculateBalance(inv, []Allocation{allocate(t, inv, paymentID, "60.000")}, today)

		assert.Equal(t, "60.000", valueobject.FormatMoney(bal.AllocatedAmount))
		assert.Equal(t, "40.000", valueobject.FormatMoney(bal.OutstandingAmount))
		assert.Equal(t, PaymentStatusPartiallyPaid, bal.PaymentStatus)
		assert.True(t, bal.IsOverdue)
	})

	t.Run("fully allocated is paid and never overdue", func(t *testing.T) {
		inv := newTestInvoice(t, customerID, "1001", date(2024, 4, 1), date(2024, 5, 1), "100.000")
		bal := CalculateBalance(inv, []Allocation{
			allocate(t, inv, paymentID, "30.000"),
			allocate(t, inv, uuid.New(), "70.000"),
		}, today)

		assert.Equal(t, PaymentStatusPaid, bal.PaymentStatus)
		assert.True(t, bal.OutstandingAmount.IsZero())
		assert.False(t, bal.IsOverdue)
	})

	t.Run("outstanding is never negative", func(t *testing.T) {
		inv := newTestInvoice(t, customerID, "1001", date(2024, 4, 1), date(2024, 5, 1), "100.000")
		bal := CalculateBalance(inv, []Allocation{allocate(t, inv, paymentID, "120.000")}, today)

		assert.True(t, bal.OutstandingAmount.IsZero())
		assert.Equal(t, PaymentStatusPaid, bal.PaymentStatus)
	})

	t.Run("due today is pending", func(t *testing.T) {
		inv := newTestInvoice(t, customerID, "1001", date(2024, 6, 1), today, "10")
		bal := CalculateBalance(inv, nil, today.Add(23*time.Hour))

		assert.Equal(t, PaymentStatusPending, bal.PaymentStatus)
		assert.False(t, bal.IsOverdue)
		assert.Equal(t, 0, bal.DaysOverdue)
	})

	t.Run("not yet due has negative days overdue", func(t *testing.T) {
		inv := newTestInvoice(t, customerID, "1001", date(2024, 6, 1), date(2024, 6, 25), "10")
		bal := CalculateBalance(inv, nil, today)

		assert.Equal(t, -10, bal.DaysOverdue)
		assert.Equal(t, AgingBucketCurrent, AgingBucketFor(bal.DaysOverdue))
	})

	t.Run("zero total invoice is paid", func(t *testing.T) {
		inv := newTestInvoice(t, customerID, "1001", date(2024, 4, 1), date(2024, 5, 1), "0")
		assert.Equal(t, PaymentStatusPaid, CalculateBalance(inv, nil, today).PaymentStatus)
	})

	t.Run("is deterministic", func(t *testing.T) {
		inv := newTestInvoice(t, customerID, "1001", date(2024, 4, 1), date(2024, 5, 1), "100.000")
		allocs := []Allocation{allocate(t, inv, paymentID, "12.345")}
		assert.Equal(t, CalculateBalance(inv, allocs, today), CalculateBalance(inv, allocs, today))
	})
}

func TestDisplayStatus(t *testing.T) {
	assert.Equal(t, "cancelled", DisplayStatus(InvoiceStatusCancelled, PaymentStatusOverdue))
	assert.Equal(t, "draft", DisplayStatus(InvoiceStatusDraft, PaymentStatusPending))
	assert.Equal(t, "partially_paid", DisplayStatus(InvoiceStatusPending, PaymentStatusPartiallyPaid))
	assert.Equal(t, "overdue", DisplayStatus(InvoiceStatusPaid, PaymentStatusOverdue))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 45, DaysBetween(date(2024, 5, 1), date(2024, 6, 15)))
	assert.Equal(t, 0, DaysBetween(time.Date(2024, 6, 15, 23, 59, 0, 0, time.UTC), today))
	assert.Equal(t, 366, DaysBetween(date(2024, 1, 1), date(2025, 1, 1)))
}

package ledger

import (
	"time"

	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentStatus is derived from allocations and never persisted
type PaymentStatus string

const (
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusOverdue       PaymentStatus = "overdue"
	PaymentStatusPending       PaymentStatus = "pending"
)

// String returns the string representation
func (s PaymentStatus) String() string {
	return string(s)
}

// DateOf truncates t to its UTC calendar date
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from one date to another (negative when to is earlier)
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}

// Balance is the derived payment position of a single invoice
type Balance struct {
	Total             decimal.Decimal
	AllocatedAmount   decimal.Decimal
	OutstandingAmount decimal.Decimal
	PaymentStatus     PaymentStatus
	IsOverdue         bool
	DaysOverdue       int
}

// CalculateBalance derives the balance of an invoice from its allocations as of today.
// It is a pure function: the same inputs always yield the same balance.
func CalculateBalance(inv *Invoice, allocations []Allocation, today time.Time) Balance {
	allocated := SumAllocations(allocations)
	outstanding := valueobject.ClampZero(inv.Total.Sub(allocated))
	days := DaysBetween(inv.DueDate, today)
	overdue := days > 0 && outstanding.IsPositive()

	var status PaymentStatus
	switch {
	case allocated.GreaterThanOrEqual(inv.Total):
		status = PaymentStatusPaid
	case allocated.IsPositive():
		status = PaymentStatusPartiallyPaid
	case overdue:
		status = PaymentStatusOverdue
	default:
		status = PaymentStatusPending
	}

	return Balance{
		Total:             inv.Total,
		AllocatedAmount:   allocated,
		OutstandingAmount: outstanding,
		PaymentStatus:     status,
		IsOverdue:         overdue,
		DaysOverdue:       days,
	}
}

// DisplayStatus resolves which status to show for an invoice. A cancelled or draft stored
// status wins; otherwise the derived payment status is shown.
func DisplayStatus(stored InvoiceStatus, derived PaymentStatus) string {
	if !stored.IsReceivable() {
		return stored.String()
	}
	return derived.String()
}

// OutstandingInvoice is an invoice joined with its derived balance and aging
type OutstandingInvoice struct {
	Invoice         Invoice
	AllocatedAmount decimal.Decimal
	Outstanding     decimal.Decimal
	PaymentStatus   PaymentStatus
	IsOverdue       bool
	DaysOverdue     int
	AgingBucket     AgingBucket
}

// InvoiceWithAllocations is an invoice as read from the store together with its allocation rows
type InvoiceWithAllocations struct {
	Invoice     Invoice
	Allocations []Allocation
}

// NewOutstandingInvoice derives the outstanding view of an invoice
func NewOutstandingInvoice(inv Invoice, allocations []Allocation, today time.Time) OutstandingInvoice {
	bal := CalculateBalance(&inv, allocations, today)
	return OutstandingInvoice{
		Invoice:         inv,
		AllocatedAmount: bal.AllocatedAmount,
		Outstanding:     bal.OutstandingAmount,
		PaymentStatus:   bal.PaymentStatus,
		IsOverdue:       bal.IsOverdue,
		DaysOverdue:     bal.DaysOverdue,
		AgingBucket:     AgingBucketFor(bal.DaysOverdue),
	}
}

// DisplayStatus returns the status to present for this invoice
func (o OutstandingInvoice) DisplayStatus() string {
	return DisplayStatus(o.Invoice.Status, o.PaymentStatus)
}

// Derive computes the outstanding view of every invoice
func Derive(invoices []InvoiceWithAllocations, today time.Time) []OutstandingInvoice {
	out := make([]OutstandingInvoice, 0, len(invoices))
	for _, iw := range invoices {
		out = append(out, NewOutstandingInvoice(iw.Invoice, iw.Allocations, today))
	}
	return out
}

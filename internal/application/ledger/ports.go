package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerLocker serializes allocation work per customer across every process sharing the store.
// Acquire blocks until the key is free or ctx is done; the returned release func must be called once.
type CustomerLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Metrics receives ledger business measurements
type Metrics interface {
	PaymentRecorded(method string, amount decimal.Decimal)
	AllocationsCreated(policy string, count int, amount decimal.Decimal)
	UnallocatedCredit(amount decimal.Decimal)
	InvoiceNumberConflict()
	TransactionConflict(operation string)
	CustomerLockWait(wait time.Duration, acquired bool)
}

type noopMetrics struct{}

func (noopMetrics) PaymentRecorded(string, decimal.Decimal)         {}
func (noopMetrics) AllocationsCreated(string, int, decimal.Decimal) {}
func (noopMetrics) UnallocatedCredit(decimal.Decimal)               {}
func (noopMetrics) InvoiceNumberConflict()                          {}
func (noopMetrics) TransactionConflict(string)                      {}
func (noopMetrics) CustomerLockWait(time.Duration, bool)            {}

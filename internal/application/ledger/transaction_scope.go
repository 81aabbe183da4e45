package ledger

import (
	"context"

	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// Every write of one ledger operation goes through a single Execute call, so readers
// never observe a payment without its allocations or an invoice without its items.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	CustomerRepo() ledger.CustomerRepository
	InvoiceRepo() ledger.InvoiceRepository
	PaymentRepo() ledger.PaymentRepository
	AllocationRepo() ledger.AllocationRepository
}

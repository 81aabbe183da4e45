package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
)

// InvoiceFilter selects invoices. Nil fields do not filter; the date bounds apply to issue date.
type InvoiceFilter struct {
	shared.Filter
	CustomerID     *uuid.UUID
	Statuses       []InvoiceStatus
	IssuedFrom     *time.Time
	IssuedTo       *time.Time
	IssuedBefore   *time.Time
	ReceivableOnly bool
}

// PaymentFilter selects payments. The date bounds apply to payment date.
type PaymentFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// CustomerRepository persists customers
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Customer, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter shared.Filter) ([]Customer, int64, error)
	Create(ctx context.Context, customer *Customer) error
}

// InvoiceRepository persists invoices and their items
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindByIDForUpdate locks the invoice row for the rest of the transaction where the store supports it
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	// List returns one page of invoices and the total count
	List(ctx context.Context, filter InvoiceFilter) ([]Invoice, int64, error)
	// FindAll returns every invoice matching the filter, ignoring paging
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	// FindReceivablesForUpdate locks the customer's receivable invoices for allocation
	FindReceivablesForUpdate(ctx context.Context, customerID uuid.UUID) ([]Invoice, error)
	// RecentNumbers returns identifiers of the most recently created invoices, newest first
	RecentNumbers(ctx context.Context, limit int) ([]string, error)
	Create(ctx context.Context, invoice *Invoice) error
	// SaveWithLock updates the invoice if its version is unchanged since it was read
	SaveWithLock(ctx context.Context, invoice *Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository persists customer payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CustomerPayment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*CustomerPayment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*CustomerPayment, error)
	List(ctx context.Context, filter PaymentFilter) ([]CustomerPayment, int64, error)
	Create(ctx context.Context, payment *CustomerPayment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AllocationRepository persists allocations. Rows are only ever inserted or deleted.
type AllocationRepository interface {
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Allocation, error)
	FindByInvoices(ctx context.Context, invoiceIDs []uuid.UUID) (map[uuid.UUID][]Allocation, error)
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]Allocation, error)
	CreateBatch(ctx context.Context, allocations []Allocation) error
	DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	DeleteByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error)
}

package ledger

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// Date is a calendar date rendered as YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate wraps t truncated to its UTC calendar date
func NewDate(t time.Time) Date {
	return Date{Time: ledger.DateOf(t)}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ===================== Customers =====================

// CreateCustomerRequest carries a new customer
type CreateCustomerRequest struct {
	Code  string
	Name  string
	Email string
	Phone string
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomerResponse(c *ledger.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Code:      c.Code,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

// ===================== Invoices =====================

// InvoiceItemRequest is one line of a new invoice
type InvoiceItemRequest struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateInvoiceRequest carries a new invoice. An empty Number is allocated by the service.
type CreateInvoiceRequest struct {
	Number     string
	CustomerID uuid.UUID
	IssueDate  time.Time
	DueDate    time.Time
	Items      []InvoiceItemRequest
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	Status     ledger.InvoiceStatus
	Notes      string
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	CustomerID *uuid.UUID
	Status     string
	FromDate   *time.Time
	ToDate     *time.Time
	Search     string
	Page       int
	PageSize   int
}

// InvoiceItemResponse represents an invoice line in API responses
type InvoiceItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID        uuid.UUID       `json:"id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// InvoiceResponse represents an invoice with its derived balance. Status is the stored
// coarse status; PaymentStatus is derived from allocations; DisplayStatus resolves the two.
type InvoiceResponse struct {
	ID                uuid.UUID             `json:"id"`
	Number            string                `json:"invoice_number"`
	CustomerID        uuid.UUID             `json:"customer_id"`
	IssueDate         Date                  `json:"issue_date"`
	DueDate           Date                  `json:"due_date"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	Discount          decimal.Decimal       `json:"discount"`
	Tax               decimal.Decimal       `json:"tax"`
	Total             decimal.Decimal       `json:"total"`
	AllocatedAmount   decimal.Decimal       `json:"allocated_amount"`
	OutstandingAmount decimal.Decimal       `json:"outstanding_amount"`
	Status            string                `json:"status"`
	PaymentStatus     string                `json:"payment_status"`
	DisplayStatus     string                `json:"display_status"`
	IsOverdue         bool                  `json:"is_overdue"`
	DaysOverdue       int                   `json:"days_overdue"`
	AgingBucket       string                `json:"aging_bucket"`
	Notes             string                `json:"notes,omitempty"`
	Items             []InvoiceItemResponse `json:"items,omitempty"`
	Allocations       []AllocationResponse  `json:"allocations,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Version           int                   `json:"version"`
}

// NextInvoiceIDResponse is the identifier the next invoice would receive
type NextInvoiceIDResponse struct {
	InvoiceNumber string `json:"invoice_number"`
}

func toInvoiceResponse(o ledger.OutstandingInvoice, allocations []ledger.Allocation, withItems bool) InvoiceResponse {
	inv := o.Invoice
	resp := InvoiceResponse{
		ID:                inv.ID,
		Number:            inv.Number,
		CustomerID:        inv.CustomerID,
		IssueDate:         NewDate(inv.IssueDate),
		DueDate:           NewDate(inv.DueDate),
		Subtotal:          inv.Subtotal,
		Discount:          inv.Discount,
		Tax:               inv.Tax,
		Total:             inv.Total,
		AllocatedAmount:   o.AllocatedAmount,
		OutstandingAmount: o.Outstanding,
		Status:            inv.Status.String(),
		PaymentStatus:     o.PaymentStatus.String(),
		DisplayStatus:     o.DisplayStatus(),
		IsOverdue:         o.IsOverdue,
		DaysOverdue:       o.DaysOverdue,
		AgingBucket:       o.AgingBucket.String(),
		Notes:             inv.Notes,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
		Version:           inv.Version,
	}
	if withItems {
		resp.Items = make([]InvoiceItemResponse, 0, len(inv.Items))
		for _, it := range inv.Items {
			resp.Items = append(resp.Items, InvoiceItemResponse{
				ID:          it.ID,
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				LineTotal:   it.LineTotal,
			})
		}
		resp.Allocations = toAllocationResponses(allocations)
	}
	return resp
}

func toAllocationResponses(allocations []ledger.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, 0, len(allocations))
	for _, a := range allocations {
		out = append(out, AllocationResponse{
			ID:        a.ID,
			InvoiceID: a.InvoiceID,
			PaymentID: a.PaymentID,
			Amount:    a.Amount,
			CreatedAt: a.CreatedAt,
		})
	}
	return out
}

// ===================== Payments =====================

// RecordPaymentRequest carries a received payment. IdempotencyKey is optional.
type RecordPaymentRequest struct {
	CustomerID      uuid.UUID
	Amount          decimal.Decimal
	PaymentDate     time.Time
	Method          ledger.PaymentMethod
	ReferenceNumber string
	Notes           string
	IdempotencyKey  string
}

// AllocatePaymentRequest applies (part of) a payment's unallocated credit automatically.
// A nil Amount applies all of it; a non-nil CustomerID must own the payment.
type AllocatePaymentRequest struct {
	CustomerID *uuid.UUID
	Amount     *decimal.Decimal
}

// ManualAllocationRequest applies caller-chosen amounts to specific invoices
type ManualAllocationRequest struct {
	CustomerID  *uuid.UUID
	Allocations []ledger.ManualAllocation
}

// PaymentListFilter defines filtering options for payment list queries
type PaymentListFilter struct {
	CustomerID *uuid.UUID
	FromDate   *time.Time
	ToDate     *time.Time
	Page       int
	PageSize   int
}

// PaymentResponse represents a payment with its allocation position
type PaymentResponse struct {
	ID                uuid.UUID            `json:"id"`
	CustomerID        uuid.UUID            `json:"customer_id"`
	Amount            decimal.Decimal      `json:"amount"`
	PaymentDate       Date                 `json:"payment_date"`
	Method            string               `json:"payment_method"`
	ReferenceNumber   string               `json:"reference_number,omitempty"`
	Notes             string               `json:"notes,omitempty"`
	AllocatedAmount   decimal.Decimal      `json:"allocated_amount"`
	UnallocatedCredit decimal.Decimal      `json:"unallocated_amount"`
	Allocations       []AllocationResponse `json:"allocations"`
	CreatedAt         time.Time            `json:"created_at"`
}

// PaymentResult is returned by operations that create allocations
type PaymentResult struct {
	Payment     PaymentResponse      `json:"payment"`
	Allocations []AllocationResponse `json:"allocations"`
	Policy      string               `json:"allocation_policy,omitempty"`
	Replayed    bool                 `json:"replayed"`
}

func toPaymentResponse(p *ledger.CustomerPayment, allocations []ledger.Allocation) PaymentResponse {
	allocated := ledger.SumAllocations(allocations)
	return PaymentResponse{
		ID:                p.ID,
		CustomerID:        p.CustomerID,
		Amount:            p.Amount,
		PaymentDate:       NewDate(p.PaymentDate),
		Method:            p.Method.String(),
		ReferenceNumber:   p.ReferenceNumber,
		Notes:             p.Notes,
		AllocatedAmount:   allocated,
		UnallocatedCredit: p.Unallocated(allocations),
		Allocations:       toAllocationResponses(allocations),
		CreatedAt:         p.CreatedAt,
	}
}

// ===================== Statements and reports =====================

// StatementLineResponse is one invoice of a statement
type StatementLineResponse struct {
	InvoiceResponse
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// StatementResponse is a customer's statement over a period
type StatementResponse struct {
	CustomerID       uuid.UUID               `json:"customer_id"`
	CustomerName     string                  `json:"customer_name"`
	StartDate        Date                    `json:"start_date"`
	EndDate          Date                    `json:"end_date"`
	Invoices         []StatementLineResponse `json:"invoices"`
	OpeningBalance   decimal.Decimal         `json:"opening_balance"`
	TotalOutstanding decimal.Decimal         `json:"total_outstanding"`
	TotalPaid        decimal.Decimal         `json:"total_paid"`
	ClosingBalance   decimal.Decimal         `json:"closing_balance"`
	GeneratedAt      Date                    `json:"generated_at"`
}

// CustomerSummaryResponse is one customer's rollup in the outstanding report
type CustomerSummaryResponse struct {
	CustomerID        uuid.UUID       `json:"customer_id"`
	CustomerName      string          `json:"customer_name"`
	InvoiceCount      int             `json:"invoice_count"`
	TotalOutstanding  decimal.Decimal `json:"total_outstanding"`
	OldestInvoiceDate Date            `json:"oldest_invoice_date"`
}

// BucketTotalResponse is the outstanding amount in one aging bucket
type BucketTotalResponse struct {
	Bucket       string          `json:"bucket"`
	InvoiceCount int             `json:"invoice_count"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// OutstandingReportResponse is the company-wide outstanding report
type OutstandingReportResponse struct {
	AsOf              Date                      `json:"as_of"`
	Invoices          []InvoiceResponse         `json:"invoices"`
	CustomerSummaries []CustomerSummaryResponse `json:"customer_summaries"`
	AgingBuckets      []BucketTotalResponse     `json:"aging_buckets"`
	TotalOutstanding  decimal.Decimal           `json:"total_outstanding"`
}

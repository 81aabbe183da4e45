package handler

import "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/dto"

// Money fields travel as decimal strings ("125.500"); dates as YYYY-MM-DD.

// CreateCustomerRequest represents a request to create a new customer
type CreateCustomerRequest struct {
	Code  string `json:"code" binding:"required,min=1,max=50"`
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Email string `json:"email" binding:"omitempty,email,max=200"`
	Phone string `json:"phone" binding:"max=50"`
}

// StatementQuery selects a statement period
type StatementQuery struct {
	StartDate string `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"required,datetime=2006-01-02"`
}

// InvoiceItemRequest is one line of a new invoice
type InvoiceItemRequest struct {
	Description string `json:"description" binding:"required,max=500"`
	Quantity    string `json:"quantity" binding:"required,money"`
	UnitPrice   string `json:"unit_price" binding:"required,money"`
}

// CreateInvoiceRequest represents a request to create an invoice.
// invoice_number is allocated when omitted; subtotal is ignored when items are given.
type CreateInvoiceRequest struct {
	InvoiceNumber string               `json:"invoice_number" binding:"max=50"`
	CustomerID    string               `json:"customer_id" binding:"required,uuid"`
	IssueDate     string               `json:"issue_date" binding:"required,datetime=2006-01-02"`
	DueDate       string               `json:"due_date" binding:"required,datetime=2006-01-02"`
	Items         []InvoiceItemRequest `json:"items" binding:"max=500,dive"`
	Subtotal      string               `json:"subtotal" binding:"omitempty,money"`
	Discount      string               `json:"discount" binding:"omitempty,money"`
	Tax           string               `json:"tax" binding:"omitempty,money"`
	Status        string               `json:"status" binding:"omitempty,oneof=draft pending"`
	Notes         string               `json:"notes" binding:"max=2000"`
}

// InvoiceListQuery represents invoice list filters
type InvoiceListQuery struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=draft pending paid cancelled overdue"`
	FromDate   string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate     string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
}

// ChangeInvoiceStatusRequest sets the stored invoice status
type ChangeInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft pending paid cancelled overdue"`
}

// RepriceInvoiceRequest replaces an invoice's discount and tax
type RepriceInvoiceRequest struct {
	Discount string `json:"discount" binding:"omitempty,money"`
	Tax      string `json:"tax" binding:"omitempty,money"`
}

// RecordPaymentRequest represents a received payment. The Idempotency-Key header
// takes precedence over idempotency_key in the body.
type RecordPaymentRequest struct {
	CustomerID      string `json:"customer_id" binding:"required,uuid"`
	Amount          string `json:"amount" binding:"required,money"`
	PaymentDate     string `json:"payment_date" binding:"required,datetime=2006-01-02"`
	PaymentMethod   string `json:"payment_method" binding:"required,oneof=cash bank_transfer cheque card other"`
	ReferenceNumber string `json:"reference_number" binding:"max=100"`
	Notes           string `json:"notes" binding:"max=2000"`
	IdempotencyKey  string `json:"idempotency_key" binding:"max=128"`
}

// PaymentListQuery represents payment list filters
type PaymentListQuery struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	FromDate   string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate     string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
}

// AllocatePaymentRequest applies remaining credit automatically; an empty amount applies all of it
type AllocatePaymentRequest struct {
	CustomerID string `json:"customer_id" binding:"omitempty,uuid"`
	Amount     string `json:"amount" binding:"omitempty,money"`
}

// ManualAllocationLine is one caller-chosen allocation
type ManualAllocationLine struct {
	InvoiceID string `json:"invoice_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required,money"`
}

// ManualAllocationRequest applies explicit amounts to invoices
type ManualAllocationRequest struct {
	CustomerID  string                 `json:"customer_id" binding:"omitempty,uuid"`
	Allocations []ManualAllocationLine `json:"allocations" binding:"required,min=1,max=500,dive"`
}

// OutstandingReportQuery represents outstanding report filters
type OutstandingReportQuery struct {
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	StartDate  string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate    string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	MinAmount  string `form:"min_amount" binding:"omitempty,money"`
}

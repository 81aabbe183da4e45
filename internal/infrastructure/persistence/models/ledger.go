package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for Customer
type CustomerModel struct {
	BaseModel
	Code  string `gorm:"type:varchar(50);not null;uniqueIndex:idx_customers_code"`
	Name  string `gorm:"type:varchar(200);not null;index"`
	Email string `gorm:"type:varchar(200)"`
	Phone string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *ledger.Customer {
	return &ledger.Customer{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
	}
}

// CustomerModelFromDomain creates a persistence model from a domain Customer
func CustomerModelFromDomain(c *ledger.Customer) *CustomerModel {
	m := &CustomerModel{
		BaseModel: newBaseModel(c.BaseEntity),
		Code:      c.Code,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
	}
	return m
}

// InvoiceModel is the persistence model for Invoice.
// NumberSeq holds the numeric part of the identifier so the allocator reads the highest
// identifiers through an index instead of scanning the table.
type InvoiceModel struct {
	VersionedModel
	Number     string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_number"`
	NumberSeq  *int64             `gorm:"index:idx_invoices_number_seq"`
	CustomerID uuid.UUID          `gorm:"type:uuid;not null;index:idx_invoices_customer_status,priority:1"`
	IssueDate  time.Time          `gorm:"type:date;not null;index"`
	DueDate    time.Time          `gorm:"type:date;not null;index"`
	Subtotal   decimal.Decimal    `gorm:"type:decimal(18,3);not null"`
	Discount   decimal.Decimal    `gorm:"type:decimal(18,3);not null"`
	Tax        decimal.Decimal    `gorm:"type:decimal(18,3);not null"`
	Total      decimal.Decimal    `gorm:"type:decimal(18,3);not null"`
	Status     string             `gorm:"type:varchar(20);not null;index:idx_invoices_customer_status,priority:2"`
	Notes      string             `gorm:"type:text"`
	Items      []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *ledger.Invoice {
	inv := &ledger.Invoice{
		BaseEntity: m.BaseModel.ToDomain(),
		Number:     m.Number,
		CustomerID: m.CustomerID,
		IssueDate:  ledger.DateOf(m.IssueDate),
		DueDate:    ledger.DateOf(m.DueDate),
		Subtotal:   m.Subtotal,
		Discount:   m.Discount,
		Tax:        m.Tax,
		Total:      m.Total,
		Status:     ledger.InvoiceStatus(m.Status),
		Notes:      m.Notes,
		Version:    m.Version,
		Items:      make([]ledger.InvoiceItem, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		inv.Items = append(inv.Items, *it.ToDomain())
	}
	return inv
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice, items included
func InvoiceModelFromDomain(inv *ledger.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		VersionedModel: VersionedModel{BaseModel: newBaseModel(inv.BaseEntity), Version: inv.Version},
		Number:         inv.Number,
		CustomerID:     inv.CustomerID,
		IssueDate:      ledger.DateOf(inv.IssueDate),
		DueDate:        ledger.DateOf(inv.DueDate),
		Subtotal:       inv.Subtotal,
		Discount:       inv.Discount,
		Tax:            inv.Tax,
		Total:          inv.Total,
		Status:         inv.Status.String(),
		Notes:          inv.Notes,
		Items:          make([]InvoiceItemModel, 0, len(inv.Items)),
	}
	if n, ok := ledger.LeadingNumber(inv.Number); ok {
		m.NumberSeq = &n
	}
	for i := range inv.Items {
		m.Items = append(m.Items, *InvoiceItemModelFromDomain(&inv.Items[i]))
	}
	return m
}

// InvoiceItemModel is the persistence model for an invoice line
type InvoiceItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	SortOrder   int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain InvoiceItem
func (m *InvoiceItemModel) ToDomain() *ledger.InvoiceItem {
	return &ledger.InvoiceItem{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		LineTotal:   m.LineTotal,
		SortOrder:   m.SortOrder,
	}
}

// InvoiceItemModelFromDomain creates a persistence model from a domain InvoiceItem
func InvoiceItemModelFromDomain(it *ledger.InvoiceItem) *InvoiceItemModel {
	return &InvoiceItemModel{
		ID:          it.ID,
		InvoiceID:   it.InvoiceID,
		Description: it.Description,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice,
		LineTotal:   it.LineTotal,
		SortOrder:   it.SortOrder,
	}
}

// CustomerPaymentModel is the persistence model for CustomerPayment.
// IdempotencyKey is NULL when the caller sent none, so the unique index only binds real keys.
type CustomerPaymentModel struct {
	BaseModel
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	PaymentDate     time.Time       `gorm:"type:date;not null;index"`
	Method          string          `gorm:"type:varchar(30);not null"`
	ReferenceNumber string          `gorm:"type:varchar(100)"`
	Notes           string          `gorm:"type:text"`
	IdempotencyKey  *string         `gorm:"type:varchar(128);uniqueIndex:idx_customer_payments_idempotency_key"`
}

// TableName returns the table name for GORM
func (CustomerPaymentModel) TableName() string {
	return "customer_payments"
}

// ToDomain converts the persistence model to a domain CustomerPayment
func (m *CustomerPaymentModel) ToDomain() *ledger.CustomerPayment {
	p := &ledger.CustomerPayment{
		BaseEntity:      m.BaseModel.ToDomain(),
		CustomerID:      m.CustomerID,
		Amount:          m.Amount,
		PaymentDate:     ledger.DateOf(m.PaymentDate),
		Method:          ledger.PaymentMethod(m.Method),
		ReferenceNumber: m.ReferenceNumber,
		Notes:           m.Notes,
	}
	if m.IdempotencyKey != nil {
		p.IdempotencyKey = *m.IdempotencyKey
	}
	return p
}

// CustomerPaymentModelFromDomain creates a persistence model from a domain CustomerPayment
func CustomerPaymentModelFromDomain(p *ledger.CustomerPayment) *CustomerPaymentModel {
	m := &CustomerPaymentModel{
		BaseModel:       newBaseModel(p.BaseEntity),
		CustomerID:      p.CustomerID,
		Amount:          p.Amount,
		PaymentDate:     ledger.DateOf(p.PaymentDate),
		Method:          p.Method.String(),
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
	}
	if p.IdempotencyKey != "" {
		key := p.IdempotencyKey
		m.IdempotencyKey = &key
	}
	return m
}

// AllocationModel is the persistence model for an invoice payment allocation
type AllocationModel struct {
	BaseModel
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,3);not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "invoice_payment_allocations"
}

// ToDomain converts the persistence model to a domain Allocation
func (m *AllocationModel) ToDomain() *ledger.Allocation {
	return &ledger.Allocation{
		BaseEntity: m.BaseModel.ToDomain(),
		InvoiceID:  m.InvoiceID,
		PaymentID:  m.PaymentID,
		Amount:     m.Amount,
	}
}

// AllocationModelFromDomain creates a persistence model from a domain Allocation
func AllocationModelFromDomain(a *ledger.Allocation) *AllocationModel {
	m := &AllocationModel{
		BaseModel: newBaseModel(a.BaseEntity),
		InvoiceID: a.InvoiceID,
		PaymentID: a.PaymentID,
		Amount:    a.Amount,
	}
	return m
}

// LedgerModels lists every ledger table model, in dependency order
func LedgerModels() []any {
	return []any{
		&CustomerModel{},
		&InvoiceModel{},
		&InvoiceItemModel{},
		&CustomerPaymentModel{},
		&AllocationModel{},
	}
}

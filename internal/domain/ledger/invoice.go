package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the coarse, manually managed status stored on an invoice.
// It is independent of the payment status derived from allocations.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
)

// IsValid checks if the status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPaid,
		InvoiceStatusCancelled, InvoiceStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsReceivable reports whether invoices in this status are owed by the customer.
// Drafts and cancelled invoices never receive allocations and never appear in reports.
func (s InvoiceStatus) IsReceivable() bool {
	return s != InvoiceStatusDraft && s != InvoiceStatusCancelled
}

// MaxInvoiceNumberLength bounds caller-supplied and generated identifiers
const MaxInvoiceNumberLength = 50

// InvoiceItem is a line of an invoice
type InvoiceItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	SortOrder   int
}

// InvoiceItemInput is the caller-supplied content of a line
type InvoiceItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Invoice is a bill issued to a customer. Total is fixed at creation and only changes
// through Reprice; the outstanding amount is never stored, it is derived from allocations.
type Invoice struct {
	shared.BaseEntity
	Number     string
	CustomerID uuid.UUID
	IssueDate  time.Time
	DueDate    time.Time
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Status     InvoiceStatus
	Notes      string
	Items      []InvoiceItem
	Version    int
}

// NewInvoiceInput carries everything needed to create an invoice.
// Subtotal is used only when no items are given.
type NewInvoiceInput struct {
	Number     string
	CustomerID uuid.UUID
	IssueDate  time.Time
	DueDate    time.Time
	Items      []InvoiceItemInput
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	Status     InvoiceStatus
	Notes      string
}

// NewInvoice creates a validated invoice. The number may be left empty and assigned later.
func NewInvoice(in NewInvoiceInput) (*Invoice, error) {
	if in.CustomerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer ID cannot be empty")
	}
	if in.IssueDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Issue date is required")
	}
	if in.DueDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Due date is required")
	}
	issue := DateOf(in.IssueDate)
	due := DateOf(in.DueDate)
	if due.Before(issue) {
		return nil, shared.NewDomainError(CodeInvalidDateRange, "Due date cannot be before issue date")
	}

	status := in.Status
	if status == "" {
		status = InvoiceStatusPending
	}
	if status != InvoiceStatusDraft && status != InvoiceStatusPending {
		return nil, shared.NewDomainErrorf(CodeInvalidStatus, "Invoice cannot be created with status %s", status)
	}

	base := shared.NewBaseEntity()
	items := make([]InvoiceItem, 0, len(in.Items))
	subtotal := in.Subtotal
	if len(in.Items) > 0 {
		subtotal = decimal.Zero
		for i, it := range in.Items {
			item, err := newInvoiceItem(base.ID, i, it)
			if err != nil {
				return nil, err
			}
			items = append(items, *item)
			subtotal = subtotal.Add(item.LineTotal)
		}
	}

	if err := validateAmount("Subtotal", subtotal); err != nil {
		return nil, err
	}
	total, err := computeTotal(subtotal, in.Discount, in.Tax)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		BaseEntity: base,
		CustomerID: in.CustomerID,
		IssueDate:  issue,
		DueDate:    due,
		Subtotal:   subtotal,
		Discount:   in.Discount,
		Tax:        in.Tax,
		Total:      total,
		Status:     status,
		Notes:      strings.TrimSpace(in.Notes),
		Items:      items,
		Version:    1,
	}
	if strings.TrimSpace(in.Number) != "" {
		if err := inv.AssignNumber(in.Number); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

func newInvoiceItem(invoiceID uuid.UUID, index int, in InvoiceItemInput) (*InvoiceItem, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, shared.NewDomainErrorf(shared.CodeValidation, "Item %d: description cannot be empty", index+1)
	}
	if !in.Quantity.IsPositive() {
		return nil, shared.NewDomainErrorf(shared.CodeValidation, "Item %d: quantity must be positive", index+1)
	}
	if err := valueobject.ValidateScale(in.Quantity); err != nil {
		return nil, shared.NewDomainErrorf(shared.CodeValidation, "Item %d: quantity %s", index+1, err.Error())
	}
	if in.UnitPrice.IsNegative() {
		return nil, shared.NewDomainErrorf(CodeInvalidAmount, "Item %d: unit price cannot be negative", index+1)
	}
	if err := valueobject.ValidateScale(in.UnitPrice); err != nil {
		return nil, shared.NewDomainErrorf(CodeInvalidAmount, "Item %d: unit price %s", index+1, err.Error())
	}
	lineTotal := valueobject.RoundMoney(in.Quantity.Mul(in.UnitPrice))
	if err := valueobject.ValidateScale(lineTotal); err != nil {
		return nil, shared.NewDomainErrorf(CodeInvalidAmount, "Item %d: line total %s", index+1, err.Error())
	}
	return &InvoiceItem{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		Description: desc,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		LineTotal:   lineTotal,
		SortOrder:   index,
	}, nil
}

func computeTotal(subtotal, discount, tax decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount("Discount", discount); err != nil {
		return decimal.Zero, err
	}
	if err := validateAmount("Tax", tax); err != nil {
		return decimal.Zero, err
	}
	if discount.GreaterThan(subtotal) {
		return decimal.Zero, shared.NewDomainError(CodeInvalidAmount, "Discount cannot exceed subtotal")
	}
	total := subtotal.Sub(discount).Add(tax)
	if err := validateAmount("Total", total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// validateAmount checks a non-negative amount with ledger scale
func validateAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return shared.NewDomainErrorf(CodeInvalidAmount, "%s cannot be negative", field)
	}
	if err := valueobject.ValidateScale(d); err != nil {
		return shared.NewDomainErrorf(CodeInvalidAmount, "%s %s", field, err.Error())
	}
	return nil
}

// AssignNumber sets the invoice identifier
func (i *Invoice) AssignNumber(number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return shared.NewDomainError(shared.CodeValidation, "Invoice number cannot be empty")
	}
	if len(number) > MaxInvoiceNumberLength {
		return shared.NewDomainErrorf(shared.CodeValidation, "Invoice number cannot exceed %d characters", MaxInvoiceNumberLength)
	}
	i.Number = number
	return nil
}

// IsReceivable reports whether the invoice can carry an outstanding balance
func (i *Invoice) IsReceivable() bool {
	return i.Status.IsReceivable()
}

// ChangeStatus moves the stored status. Paid requires nothing outstanding;
// draft and cancelled require no allocations.
func (i *Invoice) ChangeStatus(to InvoiceStatus, bal Balance) error {
	if !to.IsValid() {
		return shared.NewDomainErrorf(CodeInvalidStatus, "Unknown invoice status %q", to)
	}
	switch to {
	case InvoiceStatusPaid:
		if bal.OutstandingAmount.IsPositive() {
			return shared.NewDomainErrorf(shared.CodeInvalidState,
				"Cannot mark invoice %s paid while %s is outstanding", i.Number, valueobject.FormatMoney(bal.OutstandingAmount))
		}
	case InvoiceStatusCancelled, InvoiceStatusDraft:
		if bal.AllocatedAmount.IsPositive() {
			return shared.NewDomainErrorf(shared.CodeInvalidState,
				"Cannot move invoice %s to %s while %s is allocated to it", i.Number, to, valueobject.FormatMoney(bal.AllocatedAmount))
		}
	}
	i.Status = to
	i.Touch()
	i.Version++
	return nil
}

// Reprice changes discount and tax. The new total may not drop below what is already allocated.
func (i *Invoice) Reprice(discount, tax, allocated decimal.Decimal) error {
	total, err := computeTotal(i.Subtotal, discount, tax)
	if err != nil {
		return err
	}
	if total.LessThan(allocated) {
		return shared.NewDomainErrorf(CodeTotalBelowAllocated,
			"New total %s is below the allocated amount %s", valueobject.FormatMoney(total), valueobject.FormatMoney(allocated))
	}
	i.Discount = discount
	i.Tax = tax
	i.Total = total
	i.Touch()
	i.Version++
	return nil
}

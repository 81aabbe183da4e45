package ledger

import (
	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Allocation links a portion of a payment to an invoice
type Allocation struct {
	shared.BaseEntity
	InvoiceID uuid.UUID
	PaymentID uuid.UUID
	Amount    decimal.Decimal
}

// NewAllocation creates a validated allocation
func NewAllocation(invoiceID, paymentID uuid.UUID, amount decimal.Decimal) (*Allocation, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invoice ID cannot be empty")
	}
	if paymentID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Payment ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Allocation amount must be positive")
	}
	if err := valueobject.ValidateScale(amount); err != nil {
		return nil, shared.NewDomainErrorf(CodeInvalidAmount, "Allocation %s", err.Error())
	}
	return &Allocation{
		BaseEntity: shared.NewBaseEntity(),
		InvoiceID:  invoiceID,
		PaymentID:  paymentID,
		Amount:     amount,
	}, nil
}

// SumAllocations adds the amounts of the given allocations
func SumAllocations(allocations []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// GroupByInvoice indexes allocations by invoice
func GroupByInvoice(allocations []Allocation) map[uuid.UUID][]Allocation {
	out := make(map[uuid.UUID][]Allocation)
	for _, a := range allocations {
		out[a.InvoiceID] = append(out[a.InvoiceID], a)
	}
	return out
}

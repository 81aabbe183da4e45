package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer paid
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque,
		PaymentMethodCard, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation
func (m PaymentMethod) String() string {
	return string(m)
}

// MaxIdempotencyKeyLength bounds the client-supplied replay key
const MaxIdempotencyKeyLength = 128

// CustomerPayment is money received from a customer. Its amount never changes after recording.
type CustomerPayment struct {
	shared.BaseEntity
	CustomerID      uuid.UUID
	Amount          decimal.Decimal
	PaymentDate     time.Time
	Method          PaymentMethod
	ReferenceNumber string
	Notes           string
	IdempotencyKey  string
}

// NewCustomerPaymentInput carries the fields of a payment to record
type NewCustomerPaymentInput struct {
	CustomerID      uuid.UUID
	Amount          decimal.Decimal
	PaymentDate     time.Time
	Method          PaymentMethod
	ReferenceNumber string
	Notes           string
	IdempotencyKey  string
}

// NewCustomerPayment creates a validated payment
func NewCustomerPayment(in NewCustomerPaymentInput) (*CustomerPayment, error) {
	if in.CustomerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer ID cannot be empty")
	}
	if !in.Amount.IsPositive() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Payment amount must be positive")
	}
	if err := valueobject.ValidateScale(in.Amount); err != nil {
		return nil, shared.NewDomainErrorf(CodeInvalidAmount, "Payment %s", err.Error())
	}
	if in.PaymentDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Payment date is required")
	}
	method := in.Method
	if method == "" {
		method = PaymentMethodBankTransfer
	}
	if !method.IsValid() {
		return nil, shared.NewDomainErrorf(shared.CodeValidation, "Unknown payment method %q", method)
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > MaxIdempotencyKeyLength {
		return nil, shared.NewDomainErrorf(shared.CodeValidation, "Idempotency key cannot exceed %d characters", MaxIdempotencyKeyLength)
	}

	return &CustomerPayment{
		BaseEntity:      shared.NewBaseEntity(),
		CustomerID:      in.CustomerID,
		Amount:          in.Amount,
		PaymentDate:     DateOf(in.PaymentDate),
		Method:          method,
		ReferenceNumber: strings.TrimSpace(in.ReferenceNumber),
		Notes:           strings.TrimSpace(in.Notes),
		IdempotencyKey:  key,
	}, nil
}

// Unallocated returns the credit of the payment not yet applied to any invoice
func (p *CustomerPayment) Unallocated(allocations []Allocation) decimal.Decimal {
	return valueobject.ClampZero(p.Amount.Sub(SumAllocations(allocations)))
}

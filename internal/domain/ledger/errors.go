package ledger

import "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"

// Ledger error codes. Codes ending in _CONFLICT are retryable (see shared.IsRetryable).
const (
	CodeInvalidAmount         = "INVALID_AMOUNT"
	CodeInvalidDateRange      = "INVALID_DATE_RANGE"
	CodeInvalidStatus         = "INVALID_STATUS"
	CodeInvalidPolicy         = "INVALID_POLICY"
	CodeExceedsOutstanding    = "EXCEEDS_OUTSTANDING"
	CodeExceedsPayment        = "EXCEEDS_PAYMENT"
	CodeTotalBelowAllocated   = "TOTAL_BELOW_ALLOCATED"
	CodeInvoiceNotFound       = "INVOICE_NOT_FOUND"
	CodePaymentNotFound       = "PAYMENT_NOT_FOUND"
	CodeCustomerNotFound      = "CUSTOMER_NOT_FOUND"
	CodeCustomerMismatch      = "CUSTOMER_MISMATCH"
	CodeInvoiceNumberConflict = "INVOICE_NUMBER_CONFLICT"
	CodeCustomerCodeExists    = "CUSTOMER_CODE_EXISTS"
	CodePaymentFullyAllocated = "PAYMENT_FULLY_ALLOCATED"
	CodeIdempotencyKeyReused  = "IDEMPOTENCY_KEY_REUSED"
)

var (
	ErrInvoiceNotFound  = shared.NewDomainError(CodeInvoiceNotFound, "Invoice not found")
	ErrPaymentNotFound  = shared.NewDomainError(CodePaymentNotFound, "Payment not found")
	ErrAmountOutOfRange = shared.NewDomainError(CodeInvalidAmount, "Amount exceeds the precision the ledger stores")
)

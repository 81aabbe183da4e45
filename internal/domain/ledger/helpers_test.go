package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var today = date(2024, time.June, 15)

func money(s string) decimal.Decimal {
	return valueobject.MustParseMoney(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestInvoice(t *testing.T, customerID uuid.UUID, number string, issue, due time.Time, total string) *Invoice {
	t.Helper()
	inv, err := NewInvoice(NewInvoiceInput{
		Number:     number,
		CustomerID: customerID,
		IssueDate:  issue,
		DueDate:    due,
		Subtotal:   money(total),
	})
	require.NoError(t, err)
	return inv
}

func newTestPayment(t *testing.T, customerID uuid.UUID, amount string) *CustomerPayment {
	t.Helper()
	p, err := NewCustomerPayment(NewCustomerPaymentInput{
		CustomerID:  customerID,
		Amount:      money(amount),
		PaymentDate: today,
		Method:      PaymentMethodCash,
	})
	require.NoError(t, err)
	return p
}

func allocate(t *testing.T, inv *Invoice, paymentID uuid.UUID, amount string) Allocation {
	t.Helper()
	a, err := NewAllocation(inv.ID, paymentID, money(amount))
	require.NoError(t, err)
	return *a
}

package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomerPayment(t *testing.T) {
	customerID := uuid.New()

	t.Run("defaults method and truncates date", func(t *testing.T) {
		p, err := NewCustomerPayment(NewCustomerPaymentInput{
			CustomerID:     customerID,
			Amount:         money("12.345"),
			PaymentDate:    time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC),
			IdempotencyKey: "  key-1 ",
		})
		require.NoError(t, err)
		assert.Equal(t, PaymentMethodBankTransfer, p.Method)
		assert.Equal(t, today, p.PaymentDate)
		assert.Equal(t, "key-1", p.IdempotencyKey)
		assert.NotEqual(t, uuid.Nil, p.ID)
	})

	tests := []struct {
		name  string
		input NewCustomerPaymentInput
		code  string
	}{
		{"zero amount", NewCustomerPaymentInput{CustomerID: customerID, Amount: decimal.Zero, PaymentDate: today}, CodeInvalidAmount},
		{"negative amount", NewCustomerPaymentInput{CustomerID: customerID, Amount: money("-5"), PaymentDate: today}, CodeInvalidAmount},
		{"sub-fils amount", NewCustomerPaymentInput{CustomerID: customerID, Amount: decimal.RequireFromString("1.0005"), PaymentDate: today}, CodeInvalidAmount},
		{"missing customer", NewCustomerPaymentInput{Amount: money("1"), PaymentDate: today}, shared.CodeValidation},
		{"missing date", NewCustomerPaymentInput{CustomerID: customerID, Amount: money("1")}, shared.CodeValidation},
		{"unknown method", NewCustomerPaymentInput{CustomerID: customerID, Amount: money("1"), PaymentDate: today, Method: "barter"}, shared.CodeValidation},
		{"long idempotency key", NewCustomerPaymentInput{CustomerID: customerID, Amount: money("1"), PaymentDate: today, IdempotencyKey: strings.Repeat("k", 129)}, shared.CodeValidation},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := NewCustomerPayment(tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.CodeOf(err))
		})
	}
}

func TestCustomerPayment_Unallocated(t *testing.T) {
	customerID := uuid.New()
	p := newTestPayment(t, customerID, "100")
	inv := newTestInvoice(t, customerID, "1001", date(2024, 5, 1), date(2024, 5, 31), "70")

	assert.Equal(t, "100.000", valueobject.FormatMoney(p.Unallocated(nil)))
	assert.Equal(t, "30.000", valueobject.FormatMoney(p.Unallocated([]Allocation{allocate(t, inv, p.ID, "70")})))
}

func TestNewAllocation(t *testing.T) {
	_, err := NewAllocation(uuid.New(), uuid.New(), decimal.Zero)
	assert.Equal(t, CodeInvalidAmount, shared.CodeOf(err))

	_, err = NewAllocation(uuid.Nil, uuid.New(), money("1"))
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))

	a, err := NewAllocation(uuid.New(), uuid.New(), money("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "1.500", valueobject.FormatMoney(a.Amount))
}

func TestNewCustomer(t *testing.T) {
	c, err := NewCustomer(" acme ", "Acme Trading", "billing@acme.example", "")
	require.NoError(t, err)
	assert.Equal(t, "ACME", c.Code)

	_, err = NewCustomer("", "Acme", "", "")
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))

	_, err = NewCustomer("ACME", " ", "", "")
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))

	_, err = NewCustomer("ACME", "Acme", "not-an-email", "")
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
}

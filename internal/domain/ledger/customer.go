package ledger

import (
	"net/mail"
	"strings"

	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
)

// Customer is the party invoices are issued to and payments are received from.
// Only the fields the ledger needs are kept here.
type Customer struct {
	shared.BaseEntity
	Code  string
	Name  string
	Email string
	Phone string
}

// NewCustomer creates a validated customer
func NewCustomer(code, name, email, phone string) (*Customer, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if code == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer code cannot exceed 50 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer name cannot exceed 200 characters")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, shared.NewDomainError(shared.CodeValidation, "Customer email is not a valid address")
		}
	}

	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		Code:       strings.ToUpper(code),
		Name:       name,
		Email:      email,
		Phone:      strings.TrimSpace(phone),
	}, nil
}

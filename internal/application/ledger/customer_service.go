package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CreateCustomer registers a customer
func (s *LedgerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "create_customer")
	defer span.End()

	customer, err := ledger.NewCustomer(req.Code, req.Name, req.Email, req.Phone)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := storeError(s.customers.Create(ctx, customer)); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			err = shared.NewDomainErrorf(ledger.CodeCustomerCodeExists, "Customer code %s is already in use", customer.Code)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.log(ctx).Info("customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("code", customer.Code))
	resp := toCustomerResponse(customer)
	return &resp, nil
}

// GetCustomer returns one customer
func (s *LedgerService) GetCustomer(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, ledger.CodeCustomerNotFound, "Customer", id)
	}
	resp := toCustomerResponse(customer)
	return &resp, nil
}

// ListCustomers returns one page of customers
func (s *LedgerService) ListCustomers(ctx context.Context, filter shared.Filter) (*shared.Paginated[CustomerResponse], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter = filter.WithDefaults("name", "asc")
	customers, total, err := s.customers.List(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	items := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		items = append(items, toCustomerResponse(&customers[i]))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

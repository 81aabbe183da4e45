package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateInvoice validates and stores an invoice with its items in one transaction.
// Without a caller identifier the next one is allocated inside the insert transaction; a unique
// conflict re-reads the recent window and tries again, each attempt in a fresh transaction.
func (s *LedgerService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "create_invoice")
	defer span.End()

	items := make([]ledger.InvoiceItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ledger.InvoiceItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	inv, err := ledger.NewInvoice(ledger.NewInvoiceInput{
		Number:     req.Number,
		CustomerID: req.CustomerID,
		IssueDate:  req.IssueDate,
		DueDate:    req.DueDate,
		Items:      items,
		Subtotal:   req.Subtotal,
		Discount:   req.Discount,
		Tax:        req.Tax,
		Status:     req.Status,
		Notes:      req.Notes,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	generated := strings.TrimSpace(req.Number) == ""
	attempts := 1
	if generated {
		attempts = s.numberRetries
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.transact(ctx, "create_invoice", func(repos TransactionalRepositories) error {
			if err := requireCustomer(ctx, repos.CustomerRepo(), inv.CustomerID); err != nil {
				return err
			}
			if generated {
				recent, err := repos.InvoiceRepo().RecentNumbers(ctx, s.numberWindow)
				if err != nil {
					return err
				}
				next, err := ledger.NextInvoiceNumber(recent, s.numberBase)
				if err != nil {
					return err
				}
				if err := inv.AssignNumber(next); err != nil {
					return err
				}
			}
			return repos.InvoiceRepo().Create(ctx, inv)
		})
		if err == nil || !errors.Is(err, shared.ErrAlreadyExists) {
			break
		}
		s.metrics.InvoiceNumberConflict()
		if !generated {
			err = shared.NewDomainErrorf(ledger.CodeInvoiceNumberConflict, "Invoice number %s is already in use", inv.Number)
			break
		}
		s.log(ctx).Warn("invoice number taken, allocating another",
			zap.String("invoice_number", inv.Number),
			zap.Int("attempt", attempt))
		err = shared.NewDomainErrorf(ledger.CodeInvoiceNumberConflict,
			"Could not allocate a unique invoice number after %d attempts", attempts)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		"invoice.id", inv.ID.String(),
		"invoice.number", inv.Number,
		"customer.id", inv.CustomerID.String())
	s.log(ctx).Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.Number),
		zap.String("customer_id", inv.CustomerID.String()),
		zap.String("total", inv.Total.StringFixed(3)))

	resp := toInvoiceResponse(ledger.NewOutstandingInvoice(*inv, nil, s.today()), nil, true)
	return &resp, nil
}

// GetInvoice returns an invoice with its items, allocations and derived balance
func (s *LedgerService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, ledger.CodeInvoiceNotFound, "Invoice", id)
	}
	allocations, err := s.allocations.FindByInvoice(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	resp := toInvoiceResponse(ledger.NewOutstandingInvoice(*inv, allocations, s.today()), allocations, true)
	return &resp, nil
}

// ListInvoices returns one page of invoices with their derived balances
func (s *LedgerService) ListInvoices(ctx context.Context, filter InvoiceListFilter) (*shared.Paginated[InvoiceResponse], error) {
	query := ledger.InvoiceFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Search:   filter.Search,
		}.WithDefaults("issue_date", "desc"),
		CustomerID: filter.CustomerID,
		IssuedFrom: filter.FromDate,
		IssuedTo:   filter.ToDate,
	}
	if filter.Status != "" {
		status := ledger.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainErrorf(ledger.CodeInvalidStatus, "Unknown invoice status %q", filter.Status)
		}
		query.Statuses = []ledger.InvoiceStatus{status}
	}
	if filter.FromDate != nil && filter.ToDate != nil && ledger.DateOf(*filter.FromDate).After(ledger.DateOf(*filter.ToDate)) {
		return nil, shared.NewDomainError(ledger.CodeInvalidDateRange, "Start date cannot be after end date")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	invoices, total, err := s.invoices.List(ctx, query)
	if err != nil {
		return nil, storeError(err)
	}
	joined, err := loadAllocations(ctx, s.allocations, invoices)
	if err != nil {
		return nil, err
	}
	today := s.today()
	items := make([]InvoiceResponse, 0, len(joined))
	for _, j := range joined {
		items = append(items, toInvoiceResponse(ledger.NewOutstandingInvoice(j.Invoice, j.Allocations, today), nil, false))
	}
	page := shared.NewPaginated(items, total, query.Page, query.PageSize)
	return &page, nil
}

// GetNextInvoiceID previews the identifier the next generated invoice would receive.
// The value is not reserved; CreateInvoice allocates again inside its transaction.
func (s *LedgerService) GetNextInvoiceID(ctx context.Context) (*NextInvoiceIDResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	recent, err := s.invoices.RecentNumbers(ctx, s.numberWindow)
	if err != nil {
		return nil, storeError(err)
	}
	next, err := ledger.NextInvoiceNumber(recent, s.numberBase)
	if err != nil {
		return nil, err
	}
	return &NextInvoiceIDResponse{InvoiceNumber: next}, nil
}

// ChangeInvoiceStatus moves the stored status of an invoice under the customer lock,
// so no allocation can land between the balance check and the update.
func (s *LedgerService) ChangeInvoiceStatus(ctx context.Context, id uuid.UUID, status ledger.InvoiceStatus) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "change_invoice_status")
	defer span.End()

	var out ledger.OutstandingInvoice
	var allocations []ledger.Allocation
	err := s.mutateInvoice(ctx, "change_invoice_status", id, func(repos TransactionalRepositories, inv *ledger.Invoice, allocs []ledger.Allocation) error {
		bal := ledger.CalculateBalance(inv, allocs, s.today())
		if err := inv.ChangeStatus(status, bal); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		out = ledger.NewOutstandingInvoice(*inv, allocs, s.today())
		allocations = allocs
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.log(ctx).Info("invoice status changed",
		zap.String("invoice_id", id.String()),
		zap.String("status", status.String()))
	resp := toInvoiceResponse(out, allocations, true)
	return &resp, nil
}

// RepriceInvoice replaces discount and tax; the new total may not fall below what is allocated
func (s *LedgerService) RepriceInvoice(ctx context.Context, id uuid.UUID, discount, tax decimal.Decimal) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "reprice_invoice")
	defer span.End()

	var out ledger.OutstandingInvoice
	var allocations []ledger.Allocation
	err := s.mutateInvoice(ctx, "reprice_invoice", id, func(repos TransactionalRepositories, inv *ledger.Invoice, allocs []ledger.Allocation) error {
		if err := inv.Reprice(discount, tax, ledger.SumAllocations(allocs)); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		out = ledger.NewOutstandingInvoice(*inv, allocs, s.today())
		allocations = allocs
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.log(ctx).Info("invoice repriced",
		zap.String("invoice_id", id.String()),
		zap.String("total", out.Invoice.Total.StringFixed(3)))
	resp := toInvoiceResponse(out, allocations, true)
	return &resp, nil
}

// DeleteInvoice removes an invoice together with its allocations, returning their credit to the payments
func (s *LedgerService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "delete_invoice")
	defer span.End()

	var released int64
	err := s.mutateInvoice(ctx, "delete_invoice", id, func(repos TransactionalRepositories, inv *ledger.Invoice, _ []ledger.Allocation) error {
		n, err := repos.AllocationRepo().DeleteByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		released = n
		return repos.InvoiceRepo().Delete(ctx, inv.ID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.log(ctx).Info("invoice deleted",
		zap.String("invoice_id", id.String()),
		zap.Int64("allocations_removed", released))
	return nil
}

// mutateInvoice resolves the invoice's customer, takes the customer lock and runs fn in a transaction
// with the invoice row locked and its allocations loaded.
func (s *LedgerService) mutateInvoice(
	ctx context.Context,
	op string,
	id uuid.UUID,
	fn func(repos TransactionalRepositories, inv *ledger.Invoice, allocs []ledger.Allocation) error,
) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, ledger.CodeInvoiceNotFound, "Invoice", id)
	}
	release, err := s.lockCustomer(ctx, current.CustomerID)
	if err != nil {
		return err
	}
	defer release()

	return s.transact(ctx, op, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, ledger.CodeInvoiceNotFound, "Invoice", id)
		}
		allocs, err := repos.AllocationRepo().FindByInvoice(ctx, id)
		if err != nil {
			return err
		}
		return fn(repos, inv, allocs)
	})
}

package ledger

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordPayment stores a payment and allocates it across the customer's outstanding invoices
// in policy order, all in one transaction under the customer lock. Whatever the invoices cannot
// absorb stays on the payment as unallocated credit.
//
// A payment carrying an idempotency key that was already recorded is not written again: the
// original payment and its allocations are returned with Replayed set.
func (s *LedgerService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "record_payment")
	defer span.End()

	payment, err := ledger.NewCustomerPayment(ledger.NewCustomerPaymentInput{
		CustomerID:      req.CustomerID,
		Amount:          req.Amount,
		PaymentDate:     req.PaymentDate,
		Method:          req.Method,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		"payment.id", payment.ID.String(),
		"customer.id", payment.CustomerID.String(),
		"payment.amount", payment.Amount.String())

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if payment.IdempotencyKey != "" {
		if result, err := s.replay(ctx, s.payments, s.allocations, payment); result != nil || err != nil {
			return result, err
		}
	}

	release, err := s.lockCustomer(ctx, payment.CustomerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	var plan *ledger.AllocationPlan
	var replayed *PaymentResult
	err = s.transact(ctx, "record_payment", func(repos TransactionalRepositories) error {
		plan, replayed = nil, nil
		if err := requireCustomer(ctx, repos.CustomerRepo(), payment.CustomerID); err != nil {
			return err
		}
		if payment.IdempotencyKey != "" {
			r, err := s.replay(ctx, repos.PaymentRepo(), repos.AllocationRepo(), payment)
			if err != nil || r != nil {
				replayed = r
				return err
			}
		}
		if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
			return err
		}
		candidates, err := s.lockedOutstanding(ctx, repos, payment.CustomerID)
		if err != nil {
			return err
		}
		plan, err = s.engine.Plan(payment, payment.Amount, payment.Amount, candidates)
		if err != nil {
			return err
		}
		if len(plan.Allocations) == 0 {
			return nil
		}
		return repos.AllocationRepo().CreateBatch(ctx, plan.Allocations)
	})
	if err != nil && payment.IdempotencyKey != "" && errors.Is(err, shared.ErrAlreadyExists) {
		// the key was committed concurrently under another customer's lock
		replayed, err = s.replay(ctx, s.payments, s.allocations, payment)
		if err == nil && replayed == nil {
			err = shared.ErrConcurrencyConflict
		}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if replayed != nil {
		return replayed, nil
	}

	s.metrics.PaymentRecorded(payment.Method.String(), payment.Amount)
	s.recordPlan(plan)
	if plan.Unallocated.IsPositive() {
		s.metrics.UnallocatedCredit(plan.Unallocated)
	}
	telemetry.AddEvent(span, "payment.allocated",
		"allocations", len(plan.Allocations),
		"unallocated", plan.Unallocated.String())
	s.log(ctx).Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("customer_id", payment.CustomerID.String()),
		zap.String("amount", payment.Amount.StringFixed(3)),
		zap.Int("allocations", len(plan.Allocations)),
		zap.String("unallocated", plan.Unallocated.StringFixed(3)),
		zap.String("policy", s.AllocationPolicy().String()))

	return &PaymentResult{
		Payment:     toPaymentResponse(payment, plan.Allocations),
		Allocations: toAllocationResponses(plan.Allocations),
		Policy:      s.AllocationPolicy().String(),
	}, nil
}

// AllocatePayment applies (part of) a payment's unallocated credit to the customer's current
// outstanding invoices in policy order
func (s *LedgerService) AllocatePayment(ctx context.Context, paymentID uuid.UUID, req AllocatePaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "allocate_payment",
		telemetry.WithAttribute("payment.id", paymentID.String()))
	defer span.End()

	if req.Amount != nil && !req.Amount.IsPositive() {
		err := shared.NewDomainError(ledger.CodeInvalidAmount, "Allocation amount must be positive")
		telemetry.RecordError(span, err)
		return nil, err
	}

	result, err := s.allocate(ctx, "allocate_payment", paymentID, req.CustomerID,
		func(repos TransactionalRepositories, payment *ledger.CustomerPayment, available decimal.Decimal) (*ledger.AllocationPlan, error) {
			amount := available
			if req.Amount != nil {
				amount = *req.Amount
			}
			candidates, err := s.lockedOutstanding(ctx, repos, payment.CustomerID)
			if err != nil {
				return nil, err
			}
			return s.engine.Plan(payment, available, amount, candidates)
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// AllocatePaymentManually applies caller-chosen amounts to specific invoices of the payment's customer
func (s *LedgerService) AllocatePaymentManually(ctx context.Context, paymentID uuid.UUID, req ManualAllocationRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "allocate_payment_manually",
		telemetry.WithAttribute("payment.id", paymentID.String()))
	defer span.End()

	if len(req.Allocations) == 0 {
		err := shared.NewDomainError(shared.CodeValidation, "At least one allocation is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	result, err := s.allocate(ctx, "allocate_payment_manually", paymentID, req.CustomerID,
		func(repos TransactionalRepositories, payment *ledger.CustomerPayment, available decimal.Decimal) (*ledger.AllocationPlan, error) {
			candidates, err := s.lockedInvoices(ctx, repos, req.Allocations)
			if err != nil {
				return nil, err
			}
			return s.engine.PlanManual(payment, available, req.Allocations, candidates)
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// GetPayment returns a payment with its allocations and remaining credit
func (s *LedgerService) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, ledger.CodePaymentNotFound, "Payment", id)
	}
	allocations, err := s.allocations.FindByPayment(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	resp := toPaymentResponse(payment, allocations)
	return &resp, nil
}

// ListPayments returns one page of payments with their allocation position
func (s *LedgerService) ListPayments(ctx context.Context, filter PaymentListFilter) (*shared.Paginated[PaymentResponse], error) {
	if filter.FromDate != nil && filter.ToDate != nil && ledger.DateOf(*filter.FromDate).After(ledger.DateOf(*filter.ToDate)) {
		return nil, shared.NewDomainError(ledger.CodeInvalidDateRange, "Start date cannot be after end date")
	}
	query := ledger.PaymentFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
		}.WithDefaults("payment_date", "desc"),
		CustomerID: filter.CustomerID,
		From:       filter.FromDate,
		To:         filter.ToDate,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	payments, total, err := s.payments.List(ctx, query)
	if err != nil {
		return nil, storeError(err)
	}
	items := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		allocations, err := s.allocations.FindByPayment(ctx, payments[i].ID)
		if err != nil {
			return nil, storeError(err)
		}
		items = append(items, toPaymentResponse(&payments[i], allocations))
	}
	page := shared.NewPaginated(items, total, query.Page, query.PageSize)
	return &page, nil
}

// DeletePayment removes a payment and its allocations, reopening the invoices it covered
func (s *LedgerService) DeletePayment(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "delete_payment",
		telemetry.WithAttribute("payment.id", id.String()))
	defer span.End()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.payments.FindByID(ctx, id)
	if err != nil {
		err = lookupError(err, ledger.CodePaymentNotFound, "Payment", id)
		telemetry.RecordError(span, err)
		return err
	}
	release, err := s.lockCustomer(ctx, current.CustomerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	defer release()

	var removed int64
	err = s.transact(ctx, "delete_payment", func(repos TransactionalRepositories) error {
		if _, err := repos.PaymentRepo().FindByIDForUpdate(ctx, id); err != nil {
			return lookupError(err, ledger.CodePaymentNotFound, "Payment", id)
		}
		n, err := repos.AllocationRepo().DeleteByPayment(ctx, id)
		if err != nil {
			return err
		}
		removed = n
		return repos.PaymentRepo().Delete(ctx, id)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.log(ctx).Info("payment deleted",
		zap.String("payment_id", id.String()),
		zap.Int64("allocations_removed", removed))
	return nil
}

type planFunc func(repos TransactionalRepositories, payment *ledger.CustomerPayment, available decimal.Decimal) (*ledger.AllocationPlan, error)

// allocate locks the payment's customer, re-reads the payment and its allocations inside the
// transaction and persists whatever plan returns
func (s *LedgerService) allocate(ctx context.Context, op string, paymentID uuid.UUID, customerID *uuid.UUID, plan planFunc) (*PaymentResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, lookupError(err, ledger.CodePaymentNotFound, "Payment", paymentID)
	}
	if customerID != nil && *customerID != current.CustomerID {
		return nil, shared.NewDomainErrorf(ledger.CodeCustomerMismatch,
			"Payment %s does not belong to customer %s", paymentID, *customerID)
	}

	release, err := s.lockCustomer(ctx, current.CustomerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		payment  *ledger.CustomerPayment
		existing []ledger.Allocation
		result   *ledger.AllocationPlan
	)
	err = s.transact(ctx, op, func(repos TransactionalRepositories) error {
		var err error
		payment, err = repos.PaymentRepo().FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return lookupError(err, ledger.CodePaymentNotFound, "Payment", paymentID)
		}
		existing, err = repos.AllocationRepo().FindByPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		available := payment.Unallocated(existing)
		if !available.IsPositive() {
			return shared.NewDomainErrorf(ledger.CodePaymentFullyAllocated,
				"Payment %s has no unallocated credit left", paymentID)
		}
		result, err = plan(repos, payment, available)
		if err != nil {
			return err
		}
		if len(result.Allocations) == 0 {
			return nil
		}
		return repos.AllocationRepo().CreateBatch(ctx, result.Allocations)
	})
	if err != nil {
		return nil, err
	}

	s.recordPlan(result)
	s.log(ctx).Info("payment allocated",
		zap.String("operation", op),
		zap.String("payment_id", paymentID.String()),
		zap.String("customer_id", payment.CustomerID.String()),
		zap.Int("allocations", len(result.Allocations)),
		zap.String("allocated", result.TotalAllocated.StringFixed(3)),
		zap.String("unallocated", result.Unallocated.StringFixed(3)))

	all := append(append(make([]ledger.Allocation, 0, len(existing)+len(result.Allocations)), existing...), result.Allocations...)
	return &PaymentResult{
		Payment:     toPaymentResponse(payment, all),
		Allocations: toAllocationResponses(result.Allocations),
		Policy:      s.AllocationPolicy().String(),
	}, nil
}

// replay returns the stored result of a payment recorded earlier under the same idempotency key,
// or nil when the key is unused
func (s *LedgerService) replay(
	ctx context.Context,
	payments ledger.PaymentRepository,
	allocations ledger.AllocationRepository,
	payment *ledger.CustomerPayment,
) (*PaymentResult, error) {
	original, err := payments.FindByIdempotencyKey(ctx, payment.IdempotencyKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, storeError(err)
	}
	if original.CustomerID != payment.CustomerID || !original.Amount.Equal(payment.Amount) {
		return nil, shared.NewDomainErrorf(ledger.CodeIdempotencyKeyReused,
			"Idempotency key %s was already used for a different payment", payment.IdempotencyKey)
	}
	allocs, err := allocations.FindByPayment(ctx, original.ID)
	if err != nil {
		return nil, storeError(err)
	}
	s.log(ctx).Info("payment replayed",
		zap.String("payment_id", original.ID.String()),
		zap.String("idempotency_key", payment.IdempotencyKey))
	return &PaymentResult{
		Payment:     toPaymentResponse(original, allocs),
		Allocations: toAllocationResponses(allocs),
		Policy:      s.AllocationPolicy().String(),
		Replayed:    true,
	}, nil
}

// lockedOutstanding loads the customer's receivable invoices with row locks and derives their balances
func (s *LedgerService) lockedOutstanding(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID) ([]ledger.OutstandingInvoice, error) {
	invoices, err := repos.InvoiceRepo().FindReceivablesForUpdate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	joined, err := loadAllocations(ctx, repos.AllocationRepo(), invoices)
	if err != nil {
		return nil, err
	}
	return ledger.Derive(joined, s.today()), nil
}

// lockedInvoices loads the requested invoices with row locks in id order.
// Unknown ids are skipped so the planner can report them by name.
func (s *LedgerService) lockedInvoices(ctx context.Context, repos TransactionalRepositories, requests []ledger.ManualAllocation) ([]ledger.OutstandingInvoice, error) {
	ids := make([]uuid.UUID, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.InvoiceID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	invoices := make([]ledger.Invoice, 0, len(ids))
	for _, id := range ids {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	joined, err := loadAllocations(ctx, repos.AllocationRepo(), invoices)
	if err != nil {
		return nil, err
	}
	return ledger.Derive(joined, s.today()), nil
}

func (s *LedgerService) recordPlan(plan *ledger.AllocationPlan) {
	if len(plan.Allocations) > 0 {
		s.metrics.AllocationsCreated(s.AllocationPolicy().String(), len(plan.Allocations), plan.TotalAllocated)
	}
}

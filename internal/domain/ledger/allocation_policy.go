package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AllocationPolicyType names the order in which outstanding invoices absorb a payment
type AllocationPolicyType string

const (
	AllocationPolicyOldestDueFirst   AllocationPolicyType = "oldest_due_first"
	AllocationPolicyOldestIssueFirst AllocationPolicyType = "oldest_issue_first"
)

// IsValid checks if the policy type is valid
func (t AllocationPolicyType) IsValid() bool {
	switch t {
	case AllocationPolicyOldestDueFirst, AllocationPolicyOldestIssueFirst:
		return true
	}
	return false
}

// String returns the string representation
func (t AllocationPolicyType) String() string {
	return string(t)
}

// AllocationPolicy orders candidate invoices for automatic allocation
type AllocationPolicy interface {
	Type() AllocationPolicyType
	// Order returns a sorted copy of the candidates; the input is not modified
	Order(candidates []OutstandingInvoice) []OutstandingInvoice
}

// OldestDueFirstPolicy satisfies the earliest obligation first.
// Ties break on issue date, then identifier ascending.
type OldestDueFirstPolicy struct{}

// Type returns the policy type
func (OldestDueFirstPolicy) Type() AllocationPolicyType { return AllocationPolicyOldestDueFirst }

// Order sorts by due date, issue date, identifier
func (OldestDueFirstPolicy) Order(candidates []OutstandingInvoice) []OutstandingInvoice {
	sorted := make([]OutstandingInvoice, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Invoice, sorted[j].Invoice
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.IssueDate.Equal(b.IssueDate) {
			return a.IssueDate.Before(b.IssueDate)
		}
		return CompareInvoiceNumbers(a.Number, b.Number) < 0
	})
	return sorted
}

// OldestIssueFirstPolicy allocates in the order invoices were issued.
// Ties break on due date, then identifier ascending.
type OldestIssueFirstPolicy struct{}

// Type returns the policy type
func (OldestIssueFirstPolicy) Type() AllocationPolicyType { return AllocationPolicyOldestIssueFirst }

// Order sorts by issue date, due date, identifier
func (OldestIssueFirstPolicy) Order(candidates []OutstandingInvoice) []OutstandingInvoice {
	sorted := make([]OutstandingInvoice, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Invoice, sorted[j].Invoice
		if !a.IssueDate.Equal(b.IssueDate) {
			return a.IssueDate.Before(b.IssueDate)
		}
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return CompareInvoiceNumbers(a.Number, b.Number) < 0
	})
	return sorted
}

// NewAllocationPolicy returns the policy registered under t. An empty type selects oldest_due_first.
func NewAllocationPolicy(t AllocationPolicyType) (AllocationPolicy, error) {
	switch t {
	case "", AllocationPolicyOldestDueFirst:
		return OldestDueFirstPolicy{}, nil
	case AllocationPolicyOldestIssueFirst:
		return OldestIssueFirstPolicy{}, nil
	}
	return nil, shared.NewDomainErrorf(CodeInvalidPolicy, "Unknown allocation policy %q", t)
}

// ManualAllocation is a caller-chosen amount for one invoice
type ManualAllocation struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
}

// AllocationPlan is the set of allocations one request will create.
// Unallocated is the payment credit still free once the plan is applied.
type AllocationPlan struct {
	PaymentID             uuid.UUID
	Requested             decimal.Decimal
	Allocations           []Allocation
	TotalAllocated        decimal.Decimal
	Unallocated           decimal.Decimal
	InvoicesFullyPaid     []uuid.UUID
	InvoicesPartiallyPaid []uuid.UUID
}

// AllocationEngine plans how a payment is spread over outstanding invoices.
// Planning is pure; persisting the plan atomically is the caller's job.
type AllocationEngine struct {
	policy AllocationPolicy
}

// NewAllocationEngine creates an engine using the given policy
func NewAllocationEngine(policy AllocationPolicy) *AllocationEngine {
	if policy == nil {
		policy = OldestDueFirstPolicy{}
	}
	return &AllocationEngine{policy: policy}
}

// Policy returns the engine's ordering policy
func (e *AllocationEngine) Policy() AllocationPolicy {
	return e.policy
}

// Plan walks the candidates in policy order, giving each min(remaining, outstanding) until the
// amount runs out. Whatever is left stays unallocated as customer credit. Amount may not exceed
// the payment's available (unallocated) credit.
func (e *AllocationEngine) Plan(payment *CustomerPayment, available, amount decimal.Decimal, candidates []OutstandingInvoice) (*AllocationPlan, error) {
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Allocation amount must be positive")
	}
	if err := valueobject.ValidateScale(amount); err != nil {
		return nil, shared.NewDomainErrorf(CodeInvalidAmount, "Allocation %s", err.Error())
	}
	if amount.GreaterThan(available) {
		return nil, shared.NewDomainErrorf(CodeExceedsPayment,
			"Requested %s exceeds the payment's unallocated credit of %s",
			valueobject.FormatMoney(amount), valueobject.FormatMoney(available))
	}

	plan := newPlan(payment.ID, amount)
	remaining := amount
	for _, c := range e.policy.Order(eligible(payment, candidates)) {
		if !remaining.IsPositive() {
			break
		}
		share := decimal.Min(remaining, c.Outstanding)
		if err := plan.add(c, share); err != nil {
			return nil, err
		}
		remaining = remaining.Sub(share)
	}
	plan.Unallocated = available.Sub(plan.TotalAllocated)
	return plan, nil
}

// PlanManual validates caller-chosen allocations against invoice and payment capacity.
// Each invoice may appear once; every amount must fit its invoice's outstanding balance and the
// sum must fit the payment's available credit.
func (e *AllocationEngine) PlanManual(payment *CustomerPayment, available decimal.Decimal, requests []ManualAllocation, candidates []OutstandingInvoice) (*AllocationPlan, error) {
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if len(requests) == 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "At least one allocation is required")
	}

	byID := make(map[uuid.UUID]OutstandingInvoice, len(candidates))
	for _, c := range candidates {
		byID[c.Invoice.ID] = c
	}

	requested := decimal.Zero
	seen := make(map[uuid.UUID]bool, len(requests))
	for _, r := range requests {
		if seen[r.InvoiceID] {
			return nil, shared.NewDomainErrorf(shared.CodeValidation, "Invoice %s appears more than once", r.InvoiceID)
		}
		seen[r.InvoiceID] = true
		if !r.Amount.IsPositive() {
			return nil, shared.NewDomainError(CodeInvalidAmount, "Allocation amount must be positive")
		}
		if err := valueobject.ValidateScale(r.Amount); err != nil {
			return nil, shared.NewDomainErrorf(CodeInvalidAmount, "Allocation %s", err.Error())
		}
		requested = requested.Add(r.Amount)
	}
	if requested.GreaterThan(available) {
		return nil, shared.NewDomainErrorf(CodeExceedsPayment,
			"Requested %s exceeds the payment's unallocated credit of %s",
			valueobject.FormatMoney(requested), valueobject.FormatMoney(available))
	}

	plan := newPlan(payment.ID, requested)
	for _, r := range requests {
		c, ok := byID[r.InvoiceID]
		if !ok {
			return nil, shared.NewDomainErrorf(CodeInvoiceNotFound, "Invoice %s not found", r.InvoiceID)
		}
		if c.Invoice.CustomerID != payment.CustomerID {
			return nil, shared.NewDomainErrorf(CodeCustomerMismatch, "Invoice %s belongs to another customer", c.Invoice.Number)
		}
		if !c.Invoice.IsReceivable() {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidState, "Invoice %s is %s and cannot receive payments", c.Invoice.Number, c.Invoice.Status)
		}
		if r.Amount.GreaterThan(c.Outstanding) {
			return nil, shared.NewDomainErrorf(CodeExceedsOutstanding,
				"Allocation %s exceeds the outstanding %s of invoice %s",
				valueobject.FormatMoney(r.Amount), valueobject.FormatMoney(c.Outstanding), c.Invoice.Number)
		}
		if err := plan.add(c, r.Amount); err != nil {
			return nil, err
		}
	}
	plan.Unallocated = available.Sub(requested)
	return plan, nil
}

func eligible(payment *CustomerPayment, candidates []OutstandingInvoice) []OutstandingInvoice {
	out := make([]OutstandingInvoice, 0, len(candidates))
	for _, c := range candidates {
		if c.Invoice.CustomerID == payment.CustomerID && c.Invoice.IsReceivable() && c.Outstanding.IsPositive() {
			out = append(out, c)
		}
	}
	return out
}

func newPlan(paymentID uuid.UUID, requested decimal.Decimal) *AllocationPlan {
	return &AllocationPlan{
		PaymentID:             paymentID,
		Requested:             requested,
		Allocations:           make([]Allocation, 0),
		TotalAllocated:        decimal.Zero,
		Unallocated:           decimal.Zero,
		InvoicesFullyPaid:     make([]uuid.UUID, 0),
		InvoicesPartiallyPaid: make([]uuid.UUID, 0),
	}
}

func (p *AllocationPlan) add(c OutstandingInvoice, amount decimal.Decimal) error {
	a, err := NewAllocation(c.Invoice.ID, p.PaymentID, amount)
	if err != nil {
		return err
	}
	p.Allocations = append(p.Allocations, *a)
	p.TotalAllocated = p.TotalAllocated.Add(amount)
	if amount.GreaterThanOrEqual(c.Outstanding) {
		p.InvoicesFullyPaid = append(p.InvoicesFullyPaid, c.Invoice.ID)
	} else {
		p.InvoicesPartiallyPaid = append(p.InvoicesPartiallyPaid, c.Invoice.ID)
	}
	return nil
}

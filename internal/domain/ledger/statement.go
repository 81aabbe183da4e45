package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OpeningBalancePolicy decides what a statement carries in from before its period
type OpeningBalancePolicy string

const (
	// OpeningBalancePriorOutstanding sums what is still outstanding on receivable invoices issued before the period
	OpeningBalancePriorOutstanding OpeningBalancePolicy = "prior_outstanding"
	// OpeningBalanceZero always opens at zero
	OpeningBalanceZero OpeningBalancePolicy = "zero"
)

// IsValid checks if the policy is valid
func (p OpeningBalancePolicy) IsValid() bool {
	return p == OpeningBalancePriorOutstanding || p == OpeningBalanceZero
}

// DateRange is an inclusive range of calendar dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates and normalizes an inclusive date range
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, shared.NewDomainError(CodeInvalidDateRange, "Start and end dates are required")
	}
	r := DateRange{Start: DateOf(start), End: DateOf(end)}
	if r.Start.After(r.End) {
		return DateRange{}, shared.NewDomainError(CodeInvalidDateRange, "Start date cannot be after end date")
	}
	return r, nil
}

// Contains reports whether the date of t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// StatementLine is one invoice of a statement with the running balance after it
type StatementLine struct {
	OutstandingInvoice
	RunningBalance decimal.Decimal
}

// Statement is a customer's invoices over a period with running and summary balances.
// RunningBalance of the last line equals TotalOutstanding; ClosingBalance adds the opening balance.
type Statement struct {
	CustomerID       uuid.UUID
	Period           DateRange
	Lines            []StatementLine
	OpeningBalance   decimal.Decimal
	TotalOutstanding decimal.Decimal
	TotalPaid        decimal.Decimal
	ClosingBalance   decimal.Decimal
	GeneratedAt      time.Time
}

// StatementInput is everything the builder needs. Prior holds the invoices issued before the period
// and is only consulted by the prior_outstanding policy.
type StatementInput struct {
	CustomerID uuid.UUID
	Period     DateRange
	Invoices   []InvoiceWithAllocations
	Prior      []InvoiceWithAllocations
	Policy     OpeningBalancePolicy
	Today      time.Time
}

// BuildStatement lists the customer's receivable invoices issued inside the period in issue order
// and accumulates outstanding amounts into a running balance.
func BuildStatement(in StatementInput) (*Statement, error) {
	if in.Period.Start.After(in.Period.End) {
		return nil, shared.NewDomainError(CodeInvalidDateRange, "Start date cannot be after end date")
	}
	policy := in.Policy
	if policy == "" {
		policy = OpeningBalancePriorOutstanding
	}
	if !policy.IsValid() {
		return nil, shared.NewDomainErrorf(CodeInvalidPolicy, "Unknown opening balance policy %q", policy)
	}

	rows := make([]OutstandingInvoice, 0, len(in.Invoices))
	for _, o := range Derive(in.Invoices, in.Today) {
		if o.Invoice.CustomerID != in.CustomerID || !o.Invoice.IsReceivable() || !in.Period.Contains(o.Invoice.IssueDate) {
			continue
		}
		rows = append(rows, o)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Invoice, rows[j].Invoice
		if !a.IssueDate.Equal(b.IssueDate) {
			return a.IssueDate.Before(b.IssueDate)
		}
		return CompareInvoiceNumbers(a.Number, b.Number) < 0
	})

	lines := make([]StatementLine, 0, len(rows))
	running := decimal.Zero
	paid := decimal.Zero
	for _, o := range rows {
		running = running.Add(o.Outstanding)
		paid = paid.Add(o.AllocatedAmount)
		lines = append(lines, StatementLine{OutstandingInvoice: o, RunningBalance: running})
	}

	opening := decimal.Zero
	if policy == OpeningBalancePriorOutstanding {
		opening = priorOutstanding(in)
	}

	return &Statement{
		CustomerID:       in.CustomerID,
		Period:           in.Period,
		Lines:            lines,
		OpeningBalance:   opening,
		TotalOutstanding: running,
		TotalPaid:        paid,
		ClosingBalance:   opening.Add(running),
		GeneratedAt:      in.Today,
	}, nil
}

func priorOutstanding(in StatementInput) decimal.Decimal {
	total := decimal.Zero
	for _, o := range Derive(in.Prior, in.Today) {
		if o.Invoice.CustomerID != in.CustomerID || !o.Invoice.IsReceivable() {
			continue
		}
		if !DateOf(o.Invoice.IssueDate).Before(in.Period.Start) {
			continue
		}
		total = total.Add(o.Outstanding)
	}
	return total
}

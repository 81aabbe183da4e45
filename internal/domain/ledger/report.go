package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReportFilter narrows the outstanding report. Nil fields do not filter.
// StartDate and EndDate bound the invoice issue date, inclusive.
type ReportFilter struct {
	CustomerID *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	MinAmount  *decimal.Decimal
}

// Validate checks the filter before any store access
func (f ReportFilter) Validate() error {
	if f.StartDate != nil && f.EndDate != nil && DateOf(*f.StartDate).After(DateOf(*f.EndDate)) {
		return shared.NewDomainError(CodeInvalidDateRange, "Start date cannot be after end date")
	}
	if f.MinAmount != nil && f.MinAmount.IsNegative() {
		return shared.NewDomainError(CodeInvalidAmount, "Minimum amount cannot be negative")
	}
	return nil
}

// Matches reports whether an outstanding invoice passes the filter.
// Zero outstanding never matches.
func (f ReportFilter) Matches(o OutstandingInvoice) bool {
	if !o.Invoice.IsReceivable() || !o.Outstanding.IsPositive() {
		return false
	}
	if f.CustomerID != nil && o.Invoice.CustomerID != *f.CustomerID {
		return false
	}
	issue := DateOf(o.Invoice.IssueDate)
	if f.StartDate != nil && issue.Before(DateOf(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && issue.After(DateOf(*f.EndDate)) {
		return false
	}
	if f.MinAmount != nil && o.Outstanding.LessThan(*f.MinAmount) {
		return false
	}
	return true
}

// OutstandingReport is the company-wide view of unpaid receivables
type OutstandingReport struct {
	AsOf              time.Time
	Invoices          []OutstandingInvoice
	CustomerSummaries []CustomerSummary
	BucketTotals      []BucketTotal
	TotalOutstanding  decimal.Decimal
}

// BuildOutstandingReport derives, filters, ages and summarizes invoices as of today.
// Invoices are ordered by due date, then issue date, then identifier.
func BuildOutstandingReport(invoices []InvoiceWithAllocations, filter ReportFilter, today time.Time) (*OutstandingReport, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	rows := make([]OutstandingInvoice, 0, len(invoices))
	total := decimal.Zero
	for _, o := range Derive(invoices, today) {
		if !filter.Matches(o) {
			continue
		}
		rows = append(rows, o)
		total = total.Add(o.Outstanding)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Invoice, rows[j].Invoice
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.IssueDate.Equal(b.IssueDate) {
			return a.IssueDate.Before(b.IssueDate)
		}
		return CompareInvoiceNumbers(a.Number, b.Number) < 0
	})

	return &OutstandingReport{
		AsOf:              DateOf(today),
		Invoices:          rows,
		CustomerSummaries: Summarize(rows),
		BucketTotals:      TotalsByBucket(rows),
		TotalOutstanding:  total,
	}, nil
}

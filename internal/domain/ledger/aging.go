package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgingBucket classifies how overdue an outstanding balance is
type AgingBucket string

const (
	AgingBucketCurrent AgingBucket = "Current"
	AgingBucket1To30   AgingBucket = "1-30 Days"
	AgingBucket31To60  AgingBucket = "31-60 Days"
	AgingBucket61To90  AgingBucket = "61-90 Days"
	AgingBucketOver90  AgingBucket = "90+ Days"
)

// String returns the string representation
func (b AgingBucket) String() string {
	return string(b)
}

// AgingBuckets returns every bucket from least to most overdue
func AgingBuckets() []AgingBucket {
	return []AgingBucket{
		AgingBucketCurrent,
		AgingBucket1To30,
		AgingBucket31To60,
		AgingBucket61To90,
		AgingBucketOver90,
	}
}

// AgingBucketFor maps days overdue onto the fixed bucket partition
func AgingBucketFor(daysOverdue int) AgingBucket {
	switch {
	case daysOverdue <= 0:
		return AgingBucketCurrent
	case daysOverdue <= 30:
		return AgingBucket1To30
	case daysOverdue <= 60:
		return AgingBucket31To60
	case daysOverdue <= 90:
		return AgingBucket61To90
	default:
		return AgingBucketOver90
	}
}

// BucketTotal is the outstanding amount falling into one aging bucket
type BucketTotal struct {
	Bucket       AgingBucket
	InvoiceCount int
	Outstanding  decimal.Decimal
}

// TotalsByBucket rolls outstanding invoices into every bucket, including empty ones
func TotalsByBucket(invoices []OutstandingInvoice) []BucketTotal {
	idx := make(map[AgingBucket]int)
	totals := make([]BucketTotal, 0, 5)
	for i, b := range AgingBuckets() {
		idx[b] = i
		totals = append(totals, BucketTotal{Bucket: b, Outstanding: decimal.Zero})
	}
	for _, inv := range invoices {
		i := idx[inv.AgingBucket]
		totals[i].InvoiceCount++
		totals[i].Outstanding = totals[i].Outstanding.Add(inv.Outstanding)
	}
	return totals
}

// CustomerSummary is the per-customer rollup of outstanding invoices
type CustomerSummary struct {
	CustomerID        uuid.UUID
	CustomerName      string
	InvoiceCount      int
	TotalOutstanding  decimal.Decimal
	OldestInvoiceDate time.Time
}

// Summarize groups outstanding invoices by customer, largest balance first.
// Equal balances are ordered by customer id so the output is stable.
func Summarize(invoices []OutstandingInvoice) []CustomerSummary {
	byCustomer := make(map[uuid.UUID]*CustomerSummary)
	order := make([]uuid.UUID, 0)
	for _, inv := range invoices {
		s, ok := byCustomer[inv.Invoice.CustomerID]
		if !ok {
			s = &CustomerSummary{
				CustomerID:        inv.Invoice.CustomerID,
				TotalOutstanding:  decimal.Zero,
				OldestInvoiceDate: inv.Invoice.IssueDate,
			}
			byCustomer[inv.Invoice.CustomerID] = s
			order = append(order, inv.Invoice.CustomerID)
		}
		s.InvoiceCount++
		s.TotalOutstanding = s.TotalOutstanding.Add(inv.Outstanding)
		if inv.Invoice.IssueDate.Before(s.OldestInvoiceDate) {
			s.OldestInvoiceDate = inv.Invoice.IssueDate
		}
	}

	summaries := make([]CustomerSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byCustomer[id])
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if c := summaries[i].TotalOutstanding.Cmp(summaries[j].TotalOutstanding); c != 0 {
			return c > 0
		}
		return summaries[i].CustomerID.String() < summaries[j].CustomerID.String()
	})
	return summaries
}

package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportFilter_Validate(t *testing.T) {
	start := date(2024, 6, 1)
	end := date(2024, 5, 1)
	err := ReportFilter{StartDate: &start, EndDate: &end}.Validate()
	require.Error(t, err)
	assert.Equal(t, CodeInvalidDateRange, shared.CodeOf(err))

	neg := money("-1")
	assert.Equal(t, CodeInvalidAmount, shared.CodeOf(ReportFilter{MinAmount: &neg}.Validate()))

	same := date(2024, 6, 1)
	assert.NoError(t, ReportFilter{StartDate: &start, EndDate: &same}.Validate())
}

func TestBuildOutstandingReport(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	paymentID := uuid.New()

	paid := newTestInvoice(t, alice, "1001", date(2024, 3, 1), date(2024, 3, 31), "50")
	partial := newTestInvoice(t, alice, "1002", date(2024, 4, 1), date(2024, 5, 1), "100")
	fresh := newTestInvoice(t, bob, "1003", date(2024, 6, 10), date(2024, 7, 10), "25")
	old := newTestInvoice(t, bob, "1004", date(2024, 1, 1), date(2024, 2, 1), "300")
	draft := newTestInvoice(t, bob, "1005", date(2024, 1, 1), date(2024, 2, 1), "999")
	draft.Status = InvoiceStatusDraft
	cancelled := newTestInvoice(t, alice, "1006", date(2024, 1, 1), date(2024, 2, 1), "999")
	cancelled.Status = InvoiceStatusCancelled

	input := []InvoiceWithAllocations{
		{Invoice: *paid, Allocations: []Allocation{allocate(t, paid, paymentID, "50")}},
		{Invoice: *partial, Allocations: []Allocation{allocate(t, partial, paymentID, "60")}},
		{Invoice: *fresh},
		{Invoice: *old},
		{Invoice: *draft},
		{Invoice: *cancelled},
	}

	t.Run("excludes settled and non receivable invoices", func(t *testing.T) {
		report, err := BuildOutstandingReport(input, ReportFilter{}, today)
		require.NoError(t, err)
		require.Len(t, report.Invoices, 3)

		// due date order
		assert.Equal(t, "1004", report.Invoices[0].Invoice.Number)
		assert.Equal(t, "1002", report.Invoices[1].Invoice.Number)
		assert.Equal(t, "1003", report.Invoices[2].Invoice.Number)

		assert.Equal(t, AgingBucketOver90, report.Invoices[0].AgingBucket)
		assert.Equal(t, 135, report.Invoices[0].DaysOverdue)
		assert.Equal(t, "40.000", valueobject.FormatMoney(report.Invoices[1].Outstanding))
		assert.Equal(t, AgingBucketCurrent, report.Invoices[2].AgingBucket)

		assert.Equal(t, "365.000", valueobject.FormatMoney(report.TotalOutstanding))
		require.Len(t, report.CustomerSummaries, 2)
		assert.Equal(t, bob, report.CustomerSummaries[0].CustomerID)
		assert.Equal(t, "325.000", valueobject.FormatMoney(report.CustomerSummaries[0].TotalOutstanding))
		assert.Equal(t, date(2024, 1, 1), report.CustomerSummaries[0].OldestInvoiceDate)
		assert.Equal(t, today, report.AsOf)
	})

	t.Run("filters by customer", func(t *testing.T) {
		report, err := BuildOutstandingReport(input, ReportFilter{CustomerID: &alice}, today)
		require.NoError(t, err)
		require.Len(t, report.Invoices, 1)
		assert.Equal(t, "1002", report.Invoices[0].Invoice.Number)
	})

	t.Run("filters by issue date range inclusive", func(t *testing.T) {
		start := date(2024, 4, 1)
		end := date(2024, 6, 10)
		report, err := BuildOutstandingReport(input, ReportFilter{StartDate: &start, EndDate: &end}, today)
		require.NoError(t, err)
		require.Len(t, report.Invoices, 2)
		assert.Equal(t, "1002", report.Invoices[0].Invoice.Number)
		assert.Equal(t, "1003", report.Invoices[1].Invoice.Number)
	})

	t.Run("min amount compares outstanding not total", func(t *testing.T) {
		minAmount := money("40")
		report, err := BuildOutstandingReport(input, ReportFilter{MinAmount: &minAmount}, today)
		require.NoError(t, err)
		require.Len(t, report.Invoices, 2)
		assert.Equal(t, "1004", report.Invoices[0].Invoice.Number)
		assert.Equal(t, "1002", report.Invoices[1].Invoice.Number)
	})

	t.Run("rejects inverted range before reading", func(t *testing.T) {
		start := date(2024, 6, 2)
		end := date(2024, 6, 1)
		_, err := BuildOutstandingReport(input, ReportFilter{StartDate: &start, EndDate: &end}, today)
		assert.Equal(t, CodeInvalidDateRange, shared.CodeOf(err))
	})

	t.Run("ties on dates order by identifier numerically", func(t *testing.T) {
		a := newTestInvoice(t, alice, "999", date(2024, 5, 1), date(2024, 5, 2), "1")
		b := newTestInvoice(t, alice, "1000", date(2024, 5, 1), date(2024, 5, 2), "1")
		report, err := BuildOutstandingReport([]InvoiceWithAllocations{{Invoice: *b}, {Invoice: *a}}, ReportFilter{}, today.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "999", report.Invoices[0].Invoice.Number)
	})

	t.Run("bucket totals add up to the grand total", func(t *testing.T) {
		report, err := BuildOutstandingReport(input, ReportFilter{}, today)
		require.NoError(t, err)
		sum := money("0")
		for _, b := range report.BucketTotals {
			sum = sum.Add(b.Outstanding)
		}
		assert.True(t, sum.Equal(report.TotalOutstanding))
	})
}

package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// GetStatement builds a customer's statement for an inclusive date range.
// Reads are not serialized against concurrent allocation; a statement reflects committed state only.
func (s *LedgerService) GetStatement(ctx context.Context, customerID uuid.UUID, startDate, endDate time.Time) (*StatementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "get_statement",
		telemetry.WithAttribute("customer.id", customerID.String()))
	defer span.End()

	period, err := ledger.NewDateRange(startDate, endDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		err = lookupError(err, ledger.CodeCustomerNotFound, "Customer", customerID)
		telemetry.RecordError(span, err)
		return nil, err
	}

	inPeriod, err := s.invoicesWithAllocations(ctx, ledger.InvoiceFilter{
		CustomerID:     &customerID,
		IssuedFrom:     &period.Start,
		IssuedTo:       &period.End,
		ReceivableOnly: true,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	var prior []ledger.InvoiceWithAllocations
	if s.openingPolicy == ledger.OpeningBalancePriorOutstanding {
		prior, err = s.invoicesWithAllocations(ctx, ledger.InvoiceFilter{
			CustomerID:     &customerID,
			IssuedBefore:   &period.Start,
			ReceivableOnly: true,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	stmt, err := ledger.BuildStatement(ledger.StatementInput{
		CustomerID: customerID,
		Period:     period,
		Invoices:   inPeriod,
		Prior:      prior,
		Policy:     s.openingPolicy,
		Today:      s.today(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.log(ctx).Debug("statement built",
		zap.String("customer_id", customerID.String()),
		zap.Int("invoices", len(stmt.Lines)),
		zap.String("closing_balance", stmt.ClosingBalance.StringFixed(3)))

	lines := make([]StatementLineResponse, 0, len(stmt.Lines))
	for _, l := range stmt.Lines {
		lines = append(lines, StatementLineResponse{
			InvoiceResponse: toInvoiceResponse(l.OutstandingInvoice, nil, false),
			RunningBalance:  l.RunningBalance,
		})
	}
	return &StatementResponse{
		CustomerID:       customerID,
		CustomerName:     customer.Name,
		StartDate:        NewDate(period.Start),
		EndDate:          NewDate(period.End),
		Invoices:         lines,
		OpeningBalance:   stmt.OpeningBalance,
		TotalOutstanding: stmt.TotalOutstanding,
		TotalPaid:        stmt.TotalPaid,
		ClosingBalance:   stmt.ClosingBalance,
		GeneratedAt:      NewDate(stmt.GeneratedAt),
	}, nil
}

// GetOutstandingReport lists every receivable invoice with a positive outstanding balance that passes
// the filter, aged as of today, with per-customer and per-bucket rollups
func (s *LedgerService) GetOutstandingReport(ctx context.Context, filter ledger.ReportFilter) (*OutstandingReportResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "get_outstanding_report")
	defer span.End()

	if err := filter.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if filter.CustomerID != nil {
		if err := requireCustomer(ctx, s.customers, *filter.CustomerID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	joined, err := s.invoicesWithAllocations(ctx, ledger.InvoiceFilter{
		CustomerID:     filter.CustomerID,
		IssuedFrom:     filter.StartDate,
		IssuedTo:       filter.EndDate,
		ReceivableOnly: true,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report, err := ledger.BuildOutstandingReport(joined, filter, s.today())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(report.CustomerSummaries))
	for _, cs := range report.CustomerSummaries {
		ids = append(ids, cs.CustomerID)
	}
	names, err := s.customers.FindByIDs(ctx, ids)
	if err != nil {
		err = storeError(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		"report.invoices", len(report.Invoices),
		"report.customers", len(report.CustomerSummaries))

	resp := &OutstandingReportResponse{
		AsOf:              NewDate(report.AsOf),
		Invoices:          make([]InvoiceResponse, 0, len(report.Invoices)),
		CustomerSummaries: make([]CustomerSummaryResponse, 0, len(report.CustomerSummaries)),
		AgingBuckets:      make([]BucketTotalResponse, 0, len(report.BucketTotals)),
		TotalOutstanding:  report.TotalOutstanding,
	}
	for _, o := range report.Invoices {
		resp.Invoices = append(resp.Invoices, toInvoiceResponse(o, nil, false))
	}
	for _, cs := range report.CustomerSummaries {
		name := cs.CustomerName
		if c, ok := names[cs.CustomerID]; ok {
			name = c.Name
		}
		resp.CustomerSummaries = append(resp.CustomerSummaries, CustomerSummaryResponse{
			CustomerID:        cs.CustomerID,
			CustomerName:      name,
			InvoiceCount:      cs.InvoiceCount,
			TotalOutstanding:  cs.TotalOutstanding,
			OldestInvoiceDate: NewDate(cs.OldestInvoiceDate),
		})
	}
	for _, b := range report.BucketTotals {
		resp.AgingBuckets = append(resp.AgingBuckets, BucketTotalResponse{
			Bucket:       b.Bucket.String(),
			InvoiceCount: b.InvoiceCount,
			Outstanding:  b.Outstanding,
		})
	}
	return resp, nil
}

func (s *LedgerService) invoicesWithAllocations(ctx context.Context, filter ledger.InvoiceFilter) ([]ledger.InvoiceWithAllocations, error) {
	invoices, err := s.invoices.FindAll(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	return loadAllocations(ctx, s.allocations, invoices)
}

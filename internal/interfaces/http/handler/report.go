package handler

import (
	"github.com/gin-gonic/gin"
	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
)

// ReportHandler handles receivables report endpoints
type ReportHandler struct {
	BaseHandler
	ledgerService *appledger.LedgerService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(ledgerService *appledger.LedgerService) *ReportHandler {
	return &ReportHandler{ledgerService: ledgerService}
}

// Outstanding returns unpaid receivables with aging, customer rollups and bucket totals.
// @ID           getOutstandingReport
// @Summary      Outstanding receivables with aging
// @Tags         reports
// @Produce      json
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        start_date query string false "Issued on or after" format(date)
// @Param        end_date query string false "Issued on or before" format(date)
// @Param        min_amount query string false "Minimum outstanding balance"
// @Success      200 {object} dto.Response{data=appledger.OutstandingReportResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /reports/outstanding [get]
func (h *ReportHandler) Outstanding(c *gin.Context) {
	var q OutstandingReportQuery
	if !h.bindQuery(c, &q) {
		return
	}

	report, err := h.ledgerService.GetOutstandingReport(c.Request.Context(), ledger.ReportFilter{
		CustomerID: parseOptionalUUID(q.CustomerID),
		StartDate:  parseOptionalDate(q.StartDate),
		EndDate:    parseOptionalDate(q.EndDate),
		MinAmount:  parseOptionalMoney(q.MinAmount),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// RegisterRoutes registers report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("/outstanding", h.Outstanding)
	}
}

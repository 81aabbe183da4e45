package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
)

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	ledgerService *appledger.LedgerService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(ledgerService *appledger.LedgerService) *InvoiceHandler {
	return &InvoiceHandler{ledgerService: ledgerService}
}

// Create issues an invoice. The identifier is allocated when invoice_number is omitted.
// @ID           createInvoice
// @Summary      Issue an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body CreateInvoiceRequest true "Invoice"
// @Success      201 {object} dto.Response{data=appledger.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	items := make([]appledger.InvoiceItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, appledger.InvoiceItemRequest{
			Description: it.Description,
			Quantity:    parseMoney(it.Quantity),
			UnitPrice:   parseMoney(it.UnitPrice),
		})
	}
	customerID := uuid.MustParse(req.CustomerID)

	invoice, err := h.ledgerService.CreateInvoice(customerContext(c, req.CustomerID), appledger.CreateInvoiceRequest{
		Number:     req.InvoiceNumber,
		CustomerID: customerID,
		IssueDate:  parseDate(req.IssueDate),
		DueDate:    parseDate(req.DueDate),
		Items:      items,
		Subtotal:   parseMoney(req.Subtotal),
		Discount:   parseMoney(req.Discount),
		Tax:        parseMoney(req.Tax),
		Status:     ledger.InvoiceStatus(req.Status),
		Notes:      req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// List returns invoices, newest issue date first.
// @ID           listInvoices
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(100)
// @Param        search query string false "Matches the invoice number"
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        status query string false "Stored status" Enums(draft, pending, paid, cancelled, overdue)
// @Param        from_date query string false "Issued on or after" format(date)
// @Param        to_date query string false "Issued on or before" format(date)
// @Success      200 {object} dto.Response{data=[]appledger.InvoiceResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var q InvoiceListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	result, err := h.ledgerService.ListInvoices(c.Request.Context(), appledger.InvoiceListFilter{
		CustomerID: parseOptionalUUID(q.CustomerID),
		Status:     q.Status,
		FromDate:   parseOptionalDate(q.FromDate),
		ToDate:     parseOptionalDate(q.ToDate),
		Search:     q.Search,
		Page:       q.Page,
		PageSize:   q.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// NextID previews the identifier the next generated invoice would receive.
// @ID           getNextInvoiceId
// @Summary      Preview the next generated invoice identifier
// @Tags         invoices
// @Produce      json
// @Success      200 {object} dto.Response{data=appledger.NextInvoiceIDResponse}
// @Failure      500 {object} dto.Response
// @Router       /invoices/next-id [get]
func (h *InvoiceHandler) NextID(c *gin.Context) {
	next, err := h.ledgerService.GetNextInvoiceID(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, next)
}

// Get returns an invoice with items, allocations and derived balance.
// @ID           getInvoiceById
// @Summary      Get invoice by ID
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=appledger.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	invoice, err := h.ledgerService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// ChangeStatus sets the stored invoice status.
// @ID           changeInvoiceStatus
// @Summary      Change invoice status
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body ChangeInvoiceStatusRequest true "New status"
// @Success      200 {object} dto.Response{data=appledger.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id}/status [patch]
func (h *InvoiceHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ChangeInvoiceStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.ledgerService.ChangeInvoiceStatus(c.Request.Context(), id, ledger.InvoiceStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Reprice replaces discount and tax; the new total may not drop below what is allocated.
// @ID           repriceInvoice
// @Summary      Replace invoice discount and tax
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body RepriceInvoiceRequest true "Discount and tax"
// @Success      200 {object} dto.Response{data=appledger.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id}/amounts [patch]
func (h *InvoiceHandler) Reprice(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req RepriceInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.ledgerService.RepriceInvoice(c.Request.Context(), id, parseMoney(req.Discount), parseMoney(req.Tax))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Delete removes an invoice and releases its allocations back to payment credit.
// @ID           deleteInvoice
// @Summary      Delete an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.ledgerService.DeleteInvoice(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/next-id", h.NextID)
		invoices.GET("/:id", h.Get)
		invoices.PATCH("/:id/status", h.ChangeStatus)
		invoices.PATCH("/:id/amounts", h.Reprice)
		invoices.DELETE("/:id", h.Delete)
	}
}

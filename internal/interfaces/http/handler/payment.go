package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/middleware"
)

// PaymentHandler handles payment recording and allocation endpoints
type PaymentHandler struct {
	BaseHandler
	ledgerService *appledger.LedgerService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(ledgerService *appledger.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledgerService: ledgerService}
}

// Record stores a payment and allocates it across the customer's outstanding invoices.
// A replayed Idempotency-Key answers 200 with the original result instead of 201.
// @ID           recordPayment
// @Summary      Record and allocate a payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replays the original result for a repeated key"
// @Param        request body RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=appledger.PaymentResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	key := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}
	if len(key) > 128 {
		h.validationError(c, "idempotency_key", "Must be at most 128 characters")
		return
	}

	result, err := h.ledgerService.RecordPayment(customerContext(c, req.CustomerID), appledger.RecordPaymentRequest{
		CustomerID:      uuid.MustParse(req.CustomerID),
		Amount:          parseMoney(req.Amount),
		PaymentDate:     parseDate(req.PaymentDate),
		Method:          ledger.PaymentMethod(req.PaymentMethod),
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		IdempotencyKey:  key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// List returns payments, newest first.
// @ID           listPayments
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(100)
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        from_date query string false "Paid on or after" format(date)
// @Param        to_date query string false "Paid on or before" format(date)
// @Success      200 {object} dto.Response{data=[]appledger.PaymentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var q PaymentListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	result, err := h.ledgerService.ListPayments(c.Request.Context(), appledger.PaymentListFilter{
		CustomerID: parseOptionalUUID(q.CustomerID),
		FromDate:   parseOptionalDate(q.FromDate),
		ToDate:     parseOptionalDate(q.ToDate),
		Page:       q.Page,
		PageSize:   q.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns a payment with its allocations and unallocated credit.
// @ID           getPaymentById
// @Summary      Get payment by ID
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=appledger.PaymentResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	payment, err := h.ledgerService.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Allocate applies (part of) a payment's unallocated credit with the configured policy.
// The body is optional; without an amount all remaining credit is applied.
// @ID           allocatePayment
// @Summary      Allocate unapplied credit with the configured policy
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body AllocatePaymentRequest false "Amount to apply"
// @Success      200 {object} dto.Response{data=appledger.PaymentResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /payments/{id}/allocate [post]
func (h *PaymentHandler) Allocate(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req AllocatePaymentRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	result, err := h.ledgerService.AllocatePayment(c.Request.Context(), id, appledger.AllocatePaymentRequest{
		CustomerID: parseOptionalUUID(req.CustomerID),
		Amount:     parseOptionalMoney(req.Amount),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// AllocateManually applies caller-chosen amounts to specific invoices.
// @ID           allocatePaymentManually
// @Summary      Allocate a payment to chosen invoices
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body ManualAllocationRequest true "Allocations"
// @Success      200 {object} dto.Response{data=appledger.PaymentResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /payments/{id}/allocations [post]
func (h *PaymentHandler) AllocateManually(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ManualAllocationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	allocations := make([]ledger.ManualAllocation, 0, len(req.Allocations))
	for _, line := range req.Allocations {
		allocations = append(allocations, ledger.ManualAllocation{
			InvoiceID: uuid.MustParse(line.InvoiceID),
			Amount:    parseMoney(line.Amount),
		})
	}

	result, err := h.ledgerService.AllocatePaymentManually(c.Request.Context(), id, appledger.ManualAllocationRequest{
		CustomerID:  parseOptionalUUID(req.CustomerID),
		Allocations: allocations,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Delete removes a payment together with its allocations.
// @ID           deletePayment
// @Summary      Delete a payment and its allocations
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.ledgerService.DeletePayment(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.Record)
		payments.GET("", h.List)
		payments.GET("/:id", h.Get)
		payments.POST("/:id/allocate", h.Allocate)
		payments.POST("/:id/allocations", h.AllocateManually)
		payments.DELETE("/:id", h.Delete)
	}
}

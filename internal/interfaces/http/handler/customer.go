package handler

import (
	"github.com/gin-gonic/gin"
	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/dto"
)

// CustomerHandler handles customer registry and statement endpoints
type CustomerHandler struct {
	BaseHandler
	ledgerService *appledger.LedgerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(ledgerService *appledger.LedgerService) *CustomerHandler {
	return &CustomerHandler{ledgerService: ledgerService}
}

// Create registers a customer.
// @ID           createCustomer
// @Summary      Register a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        request body CreateCustomerRequest true "Customer"
// @Success      201 {object} dto.Response{data=appledger.CustomerResponse}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	customer, err := h.ledgerService.CreateCustomer(c.Request.Context(), appledger.CreateCustomerRequest{
		Code:  req.Code,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, customer)
}

// List returns customers ordered by name.
// @ID           listCustomers
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(100)
// @Param        search query string false "Matches code or name"
// @Success      200 {object} dto.Response{data=[]appledger.CustomerResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	var q dto.ListRequest
	if !h.bindQuery(c, &q) {
		return
	}

	result, err := h.ledgerService.ListCustomers(c.Request.Context(), shared.Filter{
		Page:     q.Page,
		PageSize: q.PageSize,
		Search:   q.Search,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns one customer.
// @ID           getCustomerById
// @Summary      Get customer by ID
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} dto.Response{data=appledger.CustomerResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	customer, err := h.ledgerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Statement returns the customer's statement over a period.
// @ID           getCustomerStatement
// @Summary      Customer statement for a period
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        start_date query string true "Period start" format(date)
// @Param        end_date query string true "Period end" format(date)
// @Success      200 {object} dto.Response{data=appledger.StatementResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /customers/{id}/statement [get]
func (h *CustomerHandler) Statement(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var q StatementQuery
	if !h.bindQuery(c, &q) {
		return
	}

	ctx := customerContext(c, id.String())
	statement, err := h.ledgerService.GetStatement(ctx, id, parseDate(q.StartDate), parseDate(q.EndDate))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statement)
}

// RegisterRoutes registers customer routes
func (h *CustomerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	customers := rg.Group("/customers")
	{
		customers.POST("", h.Create)
		customers.GET("", h.List)
		customers.GET("/:id", h.Get)
		customers.GET("/:id/statement", h.Statement)
	}
}

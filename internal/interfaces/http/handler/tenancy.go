package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rentapp "github.com/rentledger/backend/internal/application/rent"
	"github.com/rentledger/backend/internal/interfaces/http/dto"
)

// TenancyHandler handles tenancy lifecycle endpoints
type TenancyHandler struct {
	BaseHandler
	tenancyService *rentapp.TenancyService
}

// NewTenancyHandler creates a new TenancyHandler
func NewTenancyHandler(tenancyService *rentapp.TenancyService) *TenancyHandler {
	return &TenancyHandler{tenancyService: tenancyService}
}

// Create handles POST /tenancies
func (h *TenancyHandler) Create(c *gin.Context) {
	var req dto.CreateTenancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		h.BadRequest(c, "Invalid start_date")
		return
	}

	tenancy, err := h.tenancyService.Create(c.Request.Context(), rentapp.CreateTenancyCommand{
		UnitID:           uuid.MustParse(req.UnitID),
		TenantID:         uuid.MustParse(req.TenantID),
		StartDate:        start,
		MonthlyRentMinor: req.MonthlyRentMinor,
		DepositPaidMinor: req.DepositPaidMinor,
		Currency:         req.Currency,
		Note:             req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, tenancy)
}

// List handles GET /tenancies
func (h *TenancyHandler) List(c *gin.Context) {
	var q dto.ListTenanciesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.tenancyService.List(c.Request.Context(), rentapp.TenancyListFilter{
		UnitID:   optionalUUID(q.UnitID),
		TenantID: optionalUUID(q.TenantID),
		Status:   q.Status,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByID handles GET /tenancies/:id
func (h *TenancyHandler) GetByID(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	tenancy, err := h.tenancyService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenancy)
}

// Terminate handles POST /tenancies/:id/terminate
func (h *TenancyHandler) Terminate(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.TerminateTenancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		h.BadRequest(c, "Invalid end_date")
		return
	}

	tenancy, err := h.tenancyService.Terminate(c.Request.Context(), rentapp.TerminateTenancyCommand{
		TenancyID: id,
		EndDate:   end,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenancy)
}

package handler

import (
	"net/http"

	"metvil/internal/middleware"
	"metvil/internal/model"
	"metvil/internal/service"
	"metvil/pkg/pagination"
	"metvil/pkg/response"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService service.SaleService
}

func NewSaleHandler(saleService service.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	sales := router.Group("/api/sales", middleware.RequireAuth(), middleware.RequireRole(model.RoleApprover))
	{
		sales.POST("", h.Create)
		sales.GET("", h.List)
		sales.GET("/summary", h.Summary)
		sales.GET("/:id", h.Get)
		sales.PUT("/:id", h.Update)
		sales.DELETE("/:id", h.Delete)
	}
}

// Create records a new direct sale
// @Summary      Record direct sale
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSaleDTO  true  "Sale Payload"
// @Success      201      {object}  response.Response{data=service.SaleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.CreateSaleDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.saleService.CreateDirect(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// List returns sales, optionally filtered by origin
// @Summary      List sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        origin  query     string  false  "Filter by origin (DIRECT, FROM_REQUEST)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)
	params := pagination.Parse(c)

	filter := service.SaleFilter{
		Origin: c.Query("origin"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	sales, total, err := h.saleService.List(c.Request.Context(), p, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"sales":      sales,
		"pagination": pagination.NewMeta(params, total),
	}))
}

// Summary returns revenue aggregates for the ledger
func (h *SaleHandler) Summary(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	summary, err := h.saleService.Summary(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// Get returns a single sale
func (h *SaleHandler) Get(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	result, err := h.saleService.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Update modifies a direct sale; sales spawned from approvals are immutable
func (h *SaleHandler) Update(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.UpdateSaleDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.saleService.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Delete removes a direct sale; sales spawned from approvals are immutable
func (h *SaleHandler) Delete(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	if err := h.saleService.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

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

type SupplierHandler struct {
	supplierService service.SupplierService
}

func NewSupplierHandler(supplierService service.SupplierService) *SupplierHandler {
	return &SupplierHandler{supplierService: supplierService}
}

func (h *SupplierHandler) RegisterRoutes(router *gin.RouterGroup) {
	suppliers := router.Group("/api/suppliers", middleware.RequireAuth())
	{
		suppliers.GET("", h.List)
		suppliers.GET("/:id", h.Get)
		suppliers.POST("", middleware.RequireRole(model.RoleApprover), h.Create)
		suppliers.PUT("/:id", middleware.RequireRole(model.RoleApprover), h.Update)
		suppliers.DELETE("/:id", middleware.RequireRole(model.RoleApprover), h.Delete)
	}
}

func (h *SupplierHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	suppliers, total, err := h.supplierService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"suppliers":  suppliers,
		"pagination": pagination.NewMeta(params, total),
	}))
}

func (h *SupplierHandler) Get(c *gin.Context) {
	supplier, err := h.supplierService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, supplier))
}

func (h *SupplierHandler) Create(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.CreateSupplierDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supplier, err := h.supplierService.Create(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, supplier))
}

func (h *SupplierHandler) Update(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.UpdateSupplierDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supplier, err := h.supplierService.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, supplier))
}

func (h *SupplierHandler) Delete(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	if err := h.supplierService.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

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

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products", middleware.RequireAuth())
	{
		products.GET("", h.List)
		products.GET("/:id", h.Get)
		products.POST("", middleware.RequireRole(model.RoleApprover), h.Create)
		products.PUT("/:id", middleware.RequireRole(model.RoleApprover), h.Update)
		products.DELETE("/:id", middleware.RequireRole(model.RoleApprover), h.Delete)
	}
}

// List returns catalog products with optional name search
func (h *ProductHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	products, total, err := h.productService.List(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"products":   products,
		"pagination": pagination.NewMeta(params, total),
	}))
}

func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.productService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

func (h *ProductHandler) Create(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.CreateProductDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.Create(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

func (h *ProductHandler) Update(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.UpdateProductDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

func (h *ProductHandler) Delete(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	if err := h.productService.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

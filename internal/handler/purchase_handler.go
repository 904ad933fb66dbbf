package handler

import (
	"errors"
	"net/http"

	"metvil/internal/middleware"
	"metvil/internal/model"
	"metvil/internal/service"
	"metvil/pkg/pagination"
	"metvil/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	purchaseService service.PurchaseService
}

func NewPurchaseHandler(purchaseService service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

func (h *PurchaseHandler) RegisterRoutes(router *gin.RouterGroup) {
	purchases := router.Group("/api/purchases", middleware.RequireAuth())
	{
		purchases.POST("", middleware.RequireRole(model.RoleRequester), h.Submit)
		purchases.GET("", h.List)
		purchases.PUT("/:id", middleware.RequireRole(model.RoleRequester), h.Edit)
		purchases.DELETE("/:id", middleware.RequireRole(model.RoleRequester), h.Withdraw)
		purchases.PUT("/:id/approve", middleware.RequireRole(model.RoleApprover), h.Approve)
		purchases.PUT("/:id/reject", middleware.RequireRole(model.RoleApprover), h.Reject)
		purchases.GET("/:id/invoice", h.Invoice)
	}
}

// Submit creates a new pending purchase request
// @Summary      Submit purchase request
// @Description  Creates a new purchase request in PENDING state
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitPurchaseDTO  true  "Purchase Request Payload"
// @Success      201      {object}  response.Response{data=service.PurchaseResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/purchases [post]
func (h *PurchaseHandler) Submit(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.SubmitPurchaseDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.purchaseService.Submit(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// List returns purchase requests, optionally filtered by status
// @Summary      List purchase requests
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status (PENDING, APPROVED, REJECTED)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response
// @Router       /api/purchases [get]
func (h *PurchaseHandler) List(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)
	params := pagination.Parse(c)

	filter := service.PurchaseFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	purchases, total, err := h.purchaseService.List(c.Request.Context(), p, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"purchases":  purchases,
		"pagination": pagination.NewMeta(params, total),
	}))
}

// Edit updates a pending purchase request owned by the caller
func (h *PurchaseHandler) Edit(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.EditPurchaseDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.purchaseService.Edit(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Withdraw deletes a pending purchase request owned by the caller
func (h *PurchaseHandler) Withdraw(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	if err := h.purchaseService.Withdraw(c.Request.Context(), p, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// Approve transitions a pending purchase request to APPROVED and spawns the
// linked sale. If the sale fails to spawn, the approval still stands and the
// response carries a warning.
// @Summary      Approve purchase request
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true   "Purchase Request ID"
// @Param        payload  body      service.DecisionDTO  false  "Optional approval comments"
// @Success      200      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/purchases/{id}/approve [put]
func (h *PurchaseHandler) Approve(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.DecisionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		// comments are optional, an empty body is fine
		req.Comments = ""
	}

	purchase, sale, err := h.purchaseService.Approve(c.Request.Context(), p, c.Param("id"), req.Comments)
	if err != nil {
		if errors.Is(err, service.ErrDownstreamFailure) {
			// The approval committed; only the sale spawn failed.
			c.JSON(http.StatusOK, response.SuccessWithWarning(http.StatusOK,
				gin.H{"purchase": purchase},
				"request approved, but the sale record could not be created"))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"purchase": purchase,
		"sale":     sale,
	}))
}

// Reject transitions a pending purchase request to REJECTED
// @Summary      Reject purchase request
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true   "Purchase Request ID"
// @Param        payload  body      service.DecisionDTO  false  "Optional rejection comments"
// @Success      200      {object}  response.Response{data=service.PurchaseResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/purchases/{id}/reject [put]
func (h *PurchaseHandler) Reject(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	var req service.DecisionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Comments = ""
	}

	result, err := h.purchaseService.Reject(c.Request.Context(), p, c.Param("id"), req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Invoice streams the PDF invoice for an approved purchase request
func (h *PurchaseHandler) Invoice(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	doc, err := h.purchaseService.IssueInvoice(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

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

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/api/audit", middleware.RequireAuth(), middleware.RequireRole(model.RoleApprover))
	{
		audit.GET("", h.List)
	}
}

// List returns audit trail entries, optionally filtered by action
func (h *AuditHandler) List(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)
	params := pagination.Parse(c)

	entries, total, err := h.auditService.List(c.Request.Context(), p, c.Query("action"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"entries":    entries,
		"pagination": pagination.NewMeta(params, total),
	}))
}

package handler

import (
	"net/http"
	"time"

	"metvil/internal/middleware"
	"metvil/internal/model"
	"metvil/internal/service"
	"metvil/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService     service.ReportService
	statisticsService service.StatisticsService
}

func NewReportHandler(reportService service.ReportService, statisticsService service.StatisticsService) *ReportHandler {
	return &ReportHandler{
		reportService:     reportService,
		statisticsService: statisticsService,
	}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports", middleware.RequireAuth(), middleware.RequireRole(model.RoleApprover))
	{
		reports.GET("/sales", h.SalesReport)
		reports.GET("/inventory", h.InventoryReport)
	}

	stats := router.Group("/api/statistics", middleware.RequireAuth(), middleware.RequireRole(model.RoleApprover))
	{
		stats.GET("/dashboard", h.Dashboard)
	}
}

// SalesReport streams the PDF sales report for a date range
// @Summary      Sales report PDF
// @Tags         reports
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        start_date  query  string  false  "Start date (RFC3339, default: start of current month)"
// @Param        end_date    query  string  false  "End date (RFC3339, default: now)"
// @Success      200  {file}  binary
// @Router       /api/reports/sales [get]
func (h *ReportHandler) SalesReport(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	to := now

	if v := c.Query("start_date"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid start_date, expected RFC3339"))
			return
		}
		from = parsed
	}
	if v := c.Query("end_date"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid end_date, expected RFC3339"))
			return
		}
		to = parsed
	}

	doc, err := h.reportService.SalesReport(c.Request.Context(), p, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// InventoryReport streams the PDF inventory report
func (h *ReportHandler) InventoryReport(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	doc, err := h.reportService.InventoryReport(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// Dashboard returns workflow counters and revenue aggregates
func (h *ReportHandler) Dashboard(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	stats, err := h.statisticsService.Dashboard(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

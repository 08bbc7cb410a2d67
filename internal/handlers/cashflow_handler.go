package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-cashflow/internal/middleware"
	"github.com/sjperalta/fintera-cashflow/internal/services"
)

type CashflowHandler struct {
	cashflowService *services.CashflowService
	overdueService  *services.OverdueService
	exportService   *services.ExportService
}

func NewCashflowHandler(cashflowSvc *services.CashflowService, overdueSvc *services.OverdueService, exportSvc *services.ExportService) *CashflowHandler {
	return &CashflowHandler{cashflowService: cashflowSvc, overdueService: overdueSvc, exportService: exportSvc}
}

// @Summary Bucket Report
// @Description Pending entries grouped into every time window
// @Tags Cashflow
// @Produce json
// @Param window query string false "Single window, e.g. overdue or next_7_days"
// @Success 200 {object} services.BucketReport
// @Security BearerAuth
// @Router /cashflow/buckets [get]
func (h *CashflowHandler) Buckets(c *gin.Context) {
	report, err := h.cashflowService.Buckets(c.Request.Context(), middleware.GetOrganizationID(c), c.Query("window"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Aggregates
// @Description Pending and realized sums grouped by month, cost_center or commitment_group
// @Tags Cashflow
// @Produce json
// @Param group_by query string false "month | cost_center | commitment_group"
// @Success 200 {object} services.AggregateReport
// @Security BearerAuth
// @Router /cashflow/aggregates [get]
func (h *CashflowHandler) Aggregates(c *gin.Context) {
	report, err := h.cashflowService.Aggregates(c.Request.Context(), middleware.GetOrganizationID(c), c.Query("group_by"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Forecast
// @Description Projected balance per month, newest first
// @Tags Cashflow
// @Produce json
// @Param from query string false "YYYY-MM"
// @Param to query string false "YYYY-MM"
// @Success 200 {object} services.ForecastReport
// @Security BearerAuth
// @Router /cashflow/forecast [get]
func (h *CashflowHandler) Forecast(c *gin.Context) {
	from, to, err := queryMonthRange(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	report, err := h.cashflowService.Forecast(c.Request.Context(), middleware.GetOrganizationID(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Cost Center Pivot
// @Description Net amounts per cost center and month; shared centers are split first
// @Tags Cashflow
// @Produce json
// @Param from query string false "YYYY-MM"
// @Param to query string false "YYYY-MM"
// @Success 200 {object} services.PivotReport
// @Security BearerAuth
// @Router /cashflow/pivot [get]
func (h *CashflowHandler) Pivot(c *gin.Context) {
	from, to, err := queryMonthRange(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	report, err := h.cashflowService.Pivot(c.Request.Context(), middleware.GetOrganizationID(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Overdue returns the overdue digest of the caller's organization
func (h *CashflowHandler) Overdue(c *gin.Context) {
	digest, err := h.overdueService.Digest(c.Request.Context(), middleware.GetOrganizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, digest)
}

// @Summary Export Report
// @Description Download the forecast or pivot report as csv, xlsx or pdf
// @Tags Cashflow
// @Produce octet-stream
// @Param report query string true "forecast | pivot"
// @Param format query string false "csv | xlsx | pdf" default(csv)
// @Param from query string false "YYYY-MM"
// @Param to query string false "YYYY-MM"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /cashflow/export [get]
func (h *CashflowHandler) Export(c *gin.Context) {
	from, to, err := queryMonthRange(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	report := c.DefaultQuery("report", services.ReportForecast)
	format := c.DefaultQuery("format", services.FormatCSV)

	result, err := h.exportService.Export(c.Request.Context(), actorOf(c), report, format, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	if result.ArchivePath != "" {
		c.Header("X-Archive-Path", result.ArchivePath)
	}
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// @Summary Download Archived Report
// @Description Streams a report archived by a previous export
// @Tags Cashflow
// @Produce octet-stream
// @Param path query string true "Archive path returned in X-Archive-Path"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /cashflow/exports [get]
func (h *CashflowHandler) DownloadArchive(c *gin.Context) {
	archive, err := h.exportService.OpenArchive(actorOf(c), c.Query("path"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer archive.File.Close()

	c.DataFromReader(http.StatusOK, archive.Size, archive.ContentType, archive.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", archive.Filename),
	})
}

// @Summary Delete Archived Report
// @Tags Cashflow
// @Param path query string true "Archive path returned in X-Archive-Path"
// @Success 204
// @Security BearerAuth
// @Router /cashflow/exports [delete]
func (h *CashflowHandler) DeleteArchive(c *gin.Context) {
	if err := h.exportService.DeleteArchive(actorOf(c), c.Query("path")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

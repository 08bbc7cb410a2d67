package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-cashflow/internal/middleware"
)

// RegisterRoutes mounts the API v1 routes on router
func RegisterRoutes(router *gin.Engine, h *Handlers, jwtSecret string) {
	v1 := router.Group("/api/v1")

	// Health check (public)
	v1.GET("/health", h.Health.Index)

	protected := v1.Group("")
	protected.Use(middleware.Auth(jwtSecret))
	{
		// Read access for every role
		entries := protected.Group("/entries")
		{
			entries.GET("", h.Entry.Index)
			entries.GET("/:entry_id", h.Entry.Show)
		}

		cashflow := protected.Group("/cashflow")
		{
			cashflow.GET("/buckets", h.Cashflow.Buckets)
			cashflow.GET("/aggregates", h.Cashflow.Aggregates)
			cashflow.GET("/forecast", h.Cashflow.Forecast)
			cashflow.GET("/pivot", h.Cashflow.Pivot)
			cashflow.GET("/overdue", h.Cashflow.Overdue)
			cashflow.GET("/export", h.Cashflow.Export)
			cashflow.GET("/exports", h.Cashflow.DownloadArchive)
		}

		// Ledger changes (admin and finance)
		finance := protected.Group("/entries")
		finance.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleFinance))
		{
			// Static routes first so they are not matched as :entry_id
			finance.POST("", h.Entry.Create)
			finance.POST("/import", h.Entry.Import)
			finance.POST("/confirm", h.Entry.BulkConfirm)

			finance.PATCH("/:entry_id", h.Entry.Update)
			finance.DELETE("/:entry_id", h.Entry.Delete)
			finance.POST("/:entry_id/confirm", h.Entry.Confirm)
			finance.POST("/:entry_id/reverse", h.Entry.Reverse)
			finance.POST("/:entry_id/skip", h.Entry.Skip)
			finance.POST("/:entry_id/unskip", h.Entry.Unskip)
		}

		// Admin only
		admin := protected.Group("")
		admin.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.GET("/audits", h.Audit.Index)
			admin.GET("/jobs/status", h.Job.Status)
			admin.DELETE("/cashflow/exports", h.Cashflow.DeleteArchive)
		}
	}
}

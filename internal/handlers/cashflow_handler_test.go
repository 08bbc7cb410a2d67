package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/sjperalta/fintera-cashflow/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecastEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.entry(api.today.AddDays(1))

	w := api.request(t, http.MethodGet, "/api/v1/cashflow/forecast", middleware.RoleViewer, 1, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "1000", out["start_balance"])
	assert.Equal(t, "900", out["end_balance"])

	w = api.request(t, http.MethodGet, "/api/v1/cashflow/forecast?from=2025-13", middleware.RoleViewer, 1, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.request(t, http.MethodGet, "/api/v1/cashflow/forecast?from=2025-05&to=2025-01", middleware.RoleViewer, 1, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBucketsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.entry(api.today.AddDays(-1))

	w := api.request(t, http.MethodGet, "/api/v1/cashflow/buckets", middleware.RoleViewer, 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	buckets := decode(t, w)["buckets"].([]any)
	require.Len(t, buckets, 8)

	overdue := buckets[0].(map[string]any)
	assert.Equal(t, "overdue", overdue["window"])
	assert.EqualValues(t, 1, overdue["count"])

	w = api.request(t, http.MethodGet, "/api/v1/cashflow/buckets?window=next_7_days", middleware.RoleViewer, 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	buckets = decode(t, w)["buckets"].([]any)
	require.Len(t, buckets, 1)
	assert.EqualValues(t, 0, buckets[0].(map[string]any)["count"])

	w = api.request(t, http.MethodGet, "/api/v1/cashflow/buckets?window=someday", middleware.RoleViewer, 1, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAggregatesEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.entry(api.today)

	w := api.request(t, http.MethodGet, "/api/v1/cashflow/aggregates?group_by=cost_center", middleware.RoleViewer, 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cost_center", decode(t, w)["group_by"])

	w = api.request(t, http.MethodGet, "/api/v1/cashflow/aggregates?group_by=weekday", middleware.RoleViewer, 1, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPivotEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.entry(api.today)

	month := api.today.YearMonth()
	w := api.request(t, http.MethodGet, fmt.Sprintf("/api/v1/cashflow/pivot?from=%s&to=%s", month, month), middleware.RoleViewer, 1, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, []any{month.String()}, out["months"])
	assert.Equal(t, "-100", out["grand_total"])
	assert.EqualValues(t, 0, out["missing_references"])
}

func TestOverdueEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.entry(api.today.AddDays(-3))

	w := api.request(t, http.MethodGet, "/api/v1/cashflow/overdue", middleware.RoleViewer, 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.EqualValues(t, 1, out["count"])
	assert.EqualValues(t, 3, out["max_days_late"])
}

func TestExportEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.entry(api.today.AddDays(5))

	w := api.request(t, http.MethodGet, "/api/v1/cashflow/export?report=forecast&format=csv", middleware.RoleViewer, 1, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "forecast_")
	assert.NotEmpty(t, w.Header().Get("X-Archive-Path"))
	assert.True(t, strings.Contains(w.Body.String(), "900.00"))

	w = api.request(t, http.MethodGet, "/api/v1/cashflow/export?report=pivot&format=docx", middleware.RoleViewer, 1, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArchivedExportEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.entry(api.today.AddDays(5))

	w := api.request(t, http.MethodGet, "/api/v1/cashflow/export?format=csv", middleware.RoleViewer, 1, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	exported := w.Body.String()
	path := "/api/v1/cashflow/exports?path=" + url.QueryEscape(w.Header().Get("X-Archive-Path"))

	w = api.request(t, http.MethodGet, path, middleware.RoleViewer, 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, exported, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "forecast_")

	w = api.request(t, http.MethodGet, path, middleware.RoleViewer, 2, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.request(t, http.MethodDelete, path, middleware.RoleFinance, 1, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.request(t, http.MethodDelete, path, middleware.RoleAdmin, 1, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.request(t, http.MethodGet, path, middleware.RoleViewer, 1, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	api := newTestAPI(t)

	w := api.request(t, http.MethodGet, "/api/v1/audits", middleware.RoleFinance, 1, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.request(t, http.MethodGet, "/api/v1/audits", middleware.RoleAdmin, 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "pagination")

	w = api.request(t, http.MethodGet, "/api/v1/jobs/status", middleware.RoleAdmin, 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "max_concurrent")
}

package analytics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pathoreport/pathoreport/internal/domain/report"
)

// Source supplies the report collection snapshot the dashboard is computed
// from.
type Source interface {
	All(ctx context.Context) ([]report.Report, error)
}

type Handler struct {
	reports Source
	now     func() time.Time
}

func NewHandler(reports Source) *Handler {
	return &Handler{reports: reports, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.Dashboard)
	api.GET("/dashboard/export.csv", h.ExportCSV)
	api.GET("/dashboard/chart", h.RevenueChart)
}

type dashboardResponse struct {
	Summary
	Daily   []DayCount     `json:"daily"`
	Monthly []MonthRevenue `json:"monthly"`
}

func (h *Handler) Dashboard(c echo.Context) error {
	month := c.QueryParam("month")
	if month != "" && !ValidMonth(month) {
		return echo.NewHTTPError(http.StatusBadRequest, "month must be in YYYY-MM form")
	}
	reports, err := h.reports.All(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dashboardResponse{
		Summary: Compute(reports, h.now(), month),
		Daily:   DailyCounts(reports),
		Monthly: RevenueByMonth(reports),
	})
}

func (h *Handler) ExportCSV(c echo.Context) error {
	reports, err := h.reports.All(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, reports); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", CSVFileName))
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *Handler) RevenueChart(c echo.Context) error {
	reports, err := h.reports.All(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	var buf bytes.Buffer
	if err := RenderRevenueChart(&buf, RevenueByMonth(reports)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

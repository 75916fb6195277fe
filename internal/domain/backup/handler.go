package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pathoreport/pathoreport/internal/domain/report"
)

// Collection is the report collection a backup is taken from and restored
// into.
type Collection interface {
	All(ctx context.Context) ([]report.Report, error)
	Restore(ctx context.Context, reports []report.Report) error
}

type Handler struct {
	reports Collection
	now     func() time.Time
}

func NewHandler(reports Collection) *Handler {
	return &Handler{reports: reports, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/backup", h.Download)
	api.POST("/restore", h.Restore)
}

// Download serves the full collection as a backup attachment.
func (h *Handler) Download(c echo.Context) error {
	reports, err := h.reports.All(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	doc, err := Export(reports)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", FileName(h.now())))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, doc)
}

type restoreResponse struct {
	Current   int  `json:"current"`
	Incoming  int  `json:"incoming"`
	Committed bool `json:"committed"`
}

// Restore validates an uploaded backup document. The collection is only
// replaced when the request carries confirm=true; otherwise the response
// reports how many reports would replace how many.
func (h *Handler) Restore(c echo.Context) error {
	ctx := c.Request().Context()
	doc, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	incoming, err := Import(doc)
	if err != nil {
		if errors.Is(err, ErrMalformedDocument) || errors.Is(err, ErrUnexpectedShape) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	current, err := h.reports.All(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := restoreResponse{Current: len(current), Incoming: len(incoming)}
	if c.QueryParam("confirm") == "true" {
		if err := h.reports.Restore(ctx, incoming); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		resp.Committed = true
	}
	return c.JSON(http.StatusOK, resp)
}

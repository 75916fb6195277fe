package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/catalog", h.ListTemplates)
	api.GET("/catalog/:id", h.GetTemplate)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, All())
}

func (h *Handler) GetTemplate(c echo.Context) error {
	t, ok := Lookup(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "test template not found")
	}
	return c.JSON(http.StatusOK, t)
}

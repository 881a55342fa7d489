package documents

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
	"github.com/clinic/clinic/pkg/params"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("physician", "billing"))
	g.GET("/reports", h.ListReports)
	g.GET("/reports/:id", h.GetReport)
	g.POST("/reports", h.CreateReport)
	g.PUT("/reports/:id", h.UpdateReport)
	g.DELETE("/reports/:id", h.DeleteReport)
}

func (h *Handler) CreateReport(c echo.Context) error {
	var r Report
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateReport(c.Request().Context(), &r); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.GetReport(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListReports(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListReports(c.Request().Context(), ListFilter{ReportType: c.QueryParam("report_type")}, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateReport(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	var r Report
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = id
	if err := h.svc.UpdateReport(c.Request().Context(), &r); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteReport(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteReport(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

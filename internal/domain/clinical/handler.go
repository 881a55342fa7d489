package clinical

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
	read := api.Group("", auth.RequireRole("physician", "nurse"))
	read.GET("/clinical-histories", h.ListEntries)
	read.GET("/clinical-histories/:id", h.GetEntry)

	write := api.Group("", auth.RequireRole("physician"))
	write.POST("/clinical-histories", h.CreateEntry)
	write.PUT("/clinical-histories/:id", h.UpdateEntry)
	write.DELETE("/clinical-histories/:id", h.DeleteEntry)
}

func (h *Handler) CreateEntry(c echo.Context) error {
	var entry HistoryEntry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateEntry(c.Request().Context(), &entry); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) GetEntry(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	entry, err := h.svc.GetEntry(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) ListEntries(c echo.Context) error {
	patientID, err := params.OptionalID(c, "patient_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEntries(c.Request().Context(), ListFilter{PatientID: patientID}, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateEntry(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	var entry HistoryEntry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry.ID = id
	if err := h.svc.UpdateEntry(c.Request().Context(), &entry); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteEntry(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

package diagnostics

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
	read := api.Group("", auth.RequireRole("physician", "nurse", "lab_technician"))
	read.GET("/exams", h.ListExams)
	read.GET("/exams/:id", h.GetExam)

	write := api.Group("", auth.RequireRole("physician", "lab_technician"))
	write.POST("/exams", h.CreateExam)
	write.PUT("/exams/:id", h.UpdateExam)
	write.DELETE("/exams/:id", h.DeleteExam)
}

func (h *Handler) CreateExam(c echo.Context) error {
	var e Exam
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateExam(c.Request().Context(), &e); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetExam(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	e, err := h.svc.GetExam(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListExams(c echo.Context) error {
	patientID, err := params.OptionalID(c, "patient_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := ListFilter{PatientID: patientID, Status: c.QueryParam("status")}
	items, total, err := h.svc.ListExams(c.Request().Context(), f, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateExam(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	var e Exam
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = id
	if err := h.svc.UpdateExam(c.Request().Context(), &e); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteExam(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteExam(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

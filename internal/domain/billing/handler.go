package billing

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
	read := api.Group("", auth.RequireRole("billing", "registrar", "physician"))
	read.GET("/invoices", h.ListInvoices)
	read.GET("/invoices/:id", h.GetInvoice)
	read.GET("/payments", h.ListPayments)
	read.GET("/payments/:id", h.GetPayment)

	write := api.Group("", auth.RequireRole("billing"))
	write.POST("/invoices", h.CreateInvoice)
	write.PUT("/invoices/:id", h.UpdateInvoice)
	write.DELETE("/invoices/:id", h.DeleteInvoice)
	write.POST("/invoices/:id/reconcile", h.ReconcileInvoice)
	write.POST("/payments", h.CreatePayment)
	write.PUT("/payments/:id", h.UpdatePayment)
	write.DELETE("/payments/:id", h.DeletePayment)
}

// -- invoices --

func (h *Handler) CreateInvoice(c echo.Context) error {
	var in InvoiceInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.CreateInvoice(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	patientID, err := params.OptionalID(c, "patient_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInvoices(c.Request().Context(),
		InvoiceFilter{PatientID: patientID, Status: c.QueryParam("status")}, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateInvoice(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	var in InvoiceInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.UpdateInvoice(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) DeleteInvoice(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInvoice(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ReconcileInvoice(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	rec, err := h.svc.Reconcile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// -- payments --

func (h *Handler) CreatePayment(c echo.Context) error {
	var in PaymentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.CreatePayment(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetPayment(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPayment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPayments(c echo.Context) error {
	invoiceID, err := params.OptionalID(c, "invoice_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPayments(c.Request().Context(), PaymentFilter{InvoiceID: invoiceID}, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdatePayment(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	var in PaymentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.UpdatePayment(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DeletePayment(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.svc.DeletePayment(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

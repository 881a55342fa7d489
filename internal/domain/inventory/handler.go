package inventory

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
	g := api.Group("", auth.RequireRole("nurse", "inventory"))
	g.GET("/inventory", h.ListItems)
	g.GET("/inventory/low-stock", h.ListLowStock)
	g.GET("/inventory/:id", h.GetItem)
	g.GET("/inventory/:id/verify", h.VerifyStock)
	g.POST("/inventory", h.CreateItem)
	g.PUT("/inventory/:id", h.UpdateItem)
	g.DELETE("/inventory/:id", h.DeleteItem)

	g.GET("/inventory-movements", h.ListMovements)
	g.GET("/inventory-movements/:id", h.GetMovement)
	g.POST("/inventory-movements", h.RecordMovement)
}

func (h *Handler) CreateItem(c echo.Context) error {
	var in ItemInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it, err := h.svc.CreateItem(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	it, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) ListItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListItems(c.Request().Context(), pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListLowStock(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLowStock(c.Request().Context(), pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateItem(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	var in ItemInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it, err := h.svc.UpdateItem(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteItem(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) VerifyStock(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	check, err := h.svc.VerifyStock(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, check)
}

func (h *Handler) RecordMovement(c echo.Context) error {
	var in MovementInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.RecordMovement(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetMovement(c echo.Context) error {
	id, err := params.ID(c, "id")
	if err != nil {
		return err
	}
	m, err := h.svc.GetMovement(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMovements(c echo.Context) error {
	itemID, err := params.OptionalID(c, "inventory_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMovements(c.Request().Context(), MovementFilter{InventoryID: itemID}, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

// Package reporting computes the dashboard counters and runs the predefined
// reporting measures. Nothing is cached; every call reads the store.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Stats struct {
	Patients struct {
		Total int `json:"total"`
	} `json:"patients"`
	Appointments struct {
		Total int `json:"total"`
		Today int `json:"today"`
	} `json:"appointments"`
	Invoices struct {
		Total int `json:"total"`
		// Revenue sums the totals of paid invoices.
		Revenue decimal.Decimal `json:"revenue"`
	} `json:"invoices"`
	Inventory struct {
		Total    int `json:"total"`
		LowStock int `json:"low_stock"`
	} `json:"inventory"`
}

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"sql"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

// PredefinedMeasures is the list of available reporting measures. Amounts
// are cast to text so they keep their two decimals in JSON.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "appointments-by-status",
		Name:        "Appointments by Status",
		Description: "Number of appointments in each status",
		SQL:         `SELECT status, COUNT(*) AS total FROM appointments GROUP BY status ORDER BY total DESC, status`,
	},
	{
		ID:          "revenue-by-month",
		Name:        "Revenue by Month",
		Description: "Paid invoices and their summed totals per month of issue",
		SQL: `SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
			COUNT(*) AS paid_invoices, SUM(total_amount)::text AS revenue
			FROM invoices WHERE status = 'paid' GROUP BY 1 ORDER BY 1`,
	},
	{
		ID:          "low-stock-items",
		Name:        "Low Stock Items",
		Description: "Inventory items at or below their minimum stock",
		SQL: `SELECT id, name, current_stock, min_stock FROM inventory_items
			WHERE current_stock <= min_stock ORDER BY name, id`,
	},
	{
		ID:          "exams-by-status",
		Name:        "Exams by Status",
		Description: "Number of exams in each status",
		SQL:         `SELECT status, COUNT(*) AS total FROM exams GROUP BY status ORDER BY total DESC, status`,
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

type Store interface {
	// Stats reads every counter in one snapshot. today is YYYY-MM-DD.
	Stats(ctx context.Context, today string) (*Stats, error)
	// Query runs a read-only measure query.
	Query(ctx context.Context, sql string) ([]map[string]interface{}, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock replaces the clock that decides which appointments are today.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.store.Stats(ctx, s.now().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("compute stats: %w", err)
	}
	return st, nil
}

func (s *Service) EvaluateMeasure(ctx context.Context, id string) (*MeasureReport, error) {
	m := FindMeasure(id)
	if m == nil {
		return nil, &apperr.Error{Kind: apperr.KindNotFound, Code: "measure_not_found",
			Message: fmt.Sprintf("measure %q not found", id)}
	}
	results, err := s.store.Query(ctx, m.SQL)
	if err != nil {
		return nil, fmt.Errorf("evaluate measure %s: %w", id, err)
	}
	return &MeasureReport{
		MeasureID:   m.ID,
		MeasureName: m.Name,
		GeneratedAt: s.now(),
		Results:     results,
	}, nil
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/stats", auth.RequireRole("physician", "billing", "registrar"))
	g.GET("", h.GetStats)
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id", h.EvaluateMeasure)
}

func (h *Handler) GetStats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	report, err := h.svc.EvaluateMeasure(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

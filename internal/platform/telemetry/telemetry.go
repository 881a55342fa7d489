// Package telemetry exposes Prometheus metrics for the clinic server: HTTP
// request metrics collected by an Echo middleware and counters for the
// consistency rules (payments, invoices turning paid, stock movements and
// rejected movements). Every method is safe on a nil *Provider, so services
// can be built without metrics.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type Config struct {
	ServiceName string
	// Enabled is nil for the default (true).
	Enabled *bool
}

func (c *Config) enabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "clinic-server"
	}
}

// BoolPtr is a helper to create a *bool for Config fields.
func BoolPtr(b bool) *bool {
	return &b
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// Provider owns a private registry so tests and multiple servers in one
// process never collide on the global one.
type Provider struct {
	cfg      Config
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	activeRequests prometheus.Gauge

	payments        *prometheus.CounterVec
	invoicesPaid    prometheus.Counter
	stockMovements  *prometheus.CounterVec
	stockRejections prometheus.Counter
}

// New returns nil when metrics are disabled.
func New(cfg Config) *Provider {
	cfg.applyDefaults()
	if !cfg.enabled() {
		return nil
	}
	constLabels := prometheus.Labels{"service": cfg.ServiceName}
	p := &Provider{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_server_active_requests",
			Help:        "Number of in-flight HTTP requests",
			ConstLabels: constLabels,
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "payments_total",
			Help:        "Payments recorded, by status",
			ConstLabels: constLabels,
		}, []string{"status"}),
		invoicesPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "invoices_paid_total",
			Help:        "Invoices moved to paid by reconciliation",
			ConstLabels: constLabels,
		}),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stock_movements_total",
			Help:        "Inventory movements recorded, by type",
			ConstLabels: constLabels,
		}, []string{"movement_type"}),
		stockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stock_rejections_total",
			Help:        "Movements rejected for insufficient stock",
			ConstLabels: constLabels,
		}),
	}
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.httpRequests, p.httpDuration, p.activeRequests,
		p.payments, p.invoicesPaid, p.stockMovements, p.stockRejections,
	)
	return p
}

// Registry returns the provider's registry, or nil.
func (p *Provider) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// ---------------------------------------------------------------------------
// Domain counters
// ---------------------------------------------------------------------------

func (p *Provider) PaymentRecorded(status string) {
	if p == nil {
		return
	}
	p.payments.WithLabelValues(status).Inc()
}

func (p *Provider) InvoicePaid() {
	if p == nil {
		return
	}
	p.invoicesPaid.Inc()
}

func (p *Provider) StockMovement(movementType string) {
	if p == nil {
		return
	}
	p.stockMovements.WithLabelValues(movementType).Inc()
}

func (p *Provider) StockRejected() {
	if p == nil {
		return
	}
	p.stockRejections.Inc()
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

// Middleware records request count, duration and in-flight requests per
// route pattern.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p == nil {
				return next(c)
			}
			p.activeRequests.Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			p.activeRequests.Dec()
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)
			p.httpRequests.WithLabelValues(method, route, status).Inc()
			p.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Provider) Handler() echo.HandlerFunc {
	if p == nil {
		return func(c echo.Context) error {
			return echo.ErrNotFound
		}
	}
	return echo.WrapHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry}))
}

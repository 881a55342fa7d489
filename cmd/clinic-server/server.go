package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/billing"
	"github.com/clinic/clinic/internal/domain/clinical"
	"github.com/clinic/clinic/internal/domain/diagnostics"
	"github.com/clinic/clinic/internal/domain/documents"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/inventory"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/events"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/internal/platform/reporting"
	"github.com/clinic/clinic/internal/platform/telemetry"
)

type services struct {
	patients     *identity.Service
	appointments *scheduling.Service
	histories    *clinical.Service
	exams        *diagnostics.Service
	billing      *billing.Service
	inventory    *inventory.Service
	reports      *documents.Service
	stats        *reporting.Service
}

func buildServices(pool *pgxpool.Pool, cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Provider, pub events.Publisher) *services {
	tx := db.NewTxRunner(pool)
	policy := cfg.Policy()

	patients := identity.NewService(identity.NewPatientRepoPG(pool), tx)

	appointments := scheduling.NewService(scheduling.NewAppointmentRepoPG(pool), patients, tx)
	appointments.SetPolicy(policy)

	histories := clinical.NewService(clinical.NewHistoryRepoPG(pool), patients, appointments)

	exams := diagnostics.NewService(diagnostics.NewExamRepoPG(pool), patients, tx)
	exams.SetPolicy(policy)

	bill := billing.NewService(billing.NewInvoiceRepoPG(pool), billing.NewPaymentRepoPG(pool), patients, appointments, tx)
	bill.SetPolicy(policy)
	bill.SetPublisher(pub)
	bill.SetMetrics(metrics)
	bill.SetLogger(logger)

	inv := inventory.NewService(inventory.NewItemRepoPG(pool), inventory.NewMovementRepoPG(pool), tx)
	inv.SetPublisher(pub)
	inv.SetMetrics(metrics)
	inv.SetLogger(logger)

	return &services{
		patients:     patients,
		appointments: appointments,
		histories:    histories,
		exams:        exams,
		billing:      bill,
		inventory:    inv,
		reports:      documents.NewService(documents.NewReportRepoPG(pool)),
		stats:        reporting.NewService(reporting.NewPGStore(pool)),
	}
}

func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, svcs *services, metrics *telemetry.Provider) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	if cfg.AuthEnabled() {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSecret),
			Skipper:    auth.AuthSkipper,
		}))
	} else {
		e.Use(auth.DevAuthMiddleware())
	}

	e.GET("/health", db.HealthHandler(db.PoolHealth(pool)))
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api", db.ConnMiddleware(pool))
	identity.NewHandler(svcs.patients).RegisterRoutes(api)
	scheduling.NewHandler(svcs.appointments).RegisterRoutes(api)
	clinical.NewHandler(svcs.histories).RegisterRoutes(api)
	diagnostics.NewHandler(svcs.exams).RegisterRoutes(api)
	billing.NewHandler(svcs.billing).RegisterRoutes(api)
	inventory.NewHandler(svcs.inventory).RegisterRoutes(api)
	documents.NewHandler(svcs.reports).RegisterRoutes(api)
	reporting.NewHandler(svcs.stats).RegisterRoutes(api)

	return e
}

// newPublisher returns a Kafka publisher when brokers are configured and a
// log publisher otherwise. The returned func closes the writer.
func newPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logger), func() {}
	}
	kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	return kp, func() {
		if err := kp.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close event writer")
		}
	}
}

func runServer(migrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	if migrate {
		n, err := db.NewMigrator(pool, migrationFS(cfg), cfg.DBSchema).Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Int("applied", n).Msg("migrations applied")
	}

	if !cfg.AuthEnabled() {
		logger.Warn().Msg("AUTH_SECRET is empty: every request runs as admin; do not use outside development")
	}

	metrics := telemetry.New(telemetry.Config{Enabled: telemetry.BoolPtr(cfg.MetricsEnabled)})
	pub, closePub := newPublisher(cfg, logger)
	defer closePub()

	svcs := buildServices(pool, cfg, logger, metrics, pub)
	e := newServer(cfg, logger, pool, svcs, metrics)

	logger.Info().
		Str("status_policy", string(cfg.Policy())).
		Bool("metrics", metrics != nil).
		Strs("kafka_brokers", cfg.KafkaBrokers).
		Msg("services wired")

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

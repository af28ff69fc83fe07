package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/config"
	appointmenthandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	dashboardhandler "github.com/jwalitptl/clinic-api/internal/handler/dashboard"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	prom "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	soapnotehandler "github.com/jwalitptl/clinic-api/internal/handler/soapnote"
	vitalhandler "github.com/jwalitptl/clinic-api/internal/handler/vital"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/router"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	"github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/service/soapnote"
	"github.com/jwalitptl/clinic-api/internal/service/vital"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Console:    cfg.Log.Console,
	})
	log.Logger = *appLog.Zerolog()

	if err := run(cfg, appLog); err != nil {
		appLog.Fatal(err, "api server stopped")
	}
}

func run(cfg *config.Config, appLog *logger.Logger) error {
	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	tx := postgres.NewTransactor(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	vitalRepo := postgres.NewVitalRepository(db)
	soapNoteRepo := postgres.NewSoapNoteRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	providerRepo := postgres.NewProviderRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	events := event.NewEventService(eventRepo, outboxRepo)
	appointmentSvc := appointment.NewService(tx, appointmentRepo, patientRepo, providerRepo, events, appLog)
	vitalSvc := vital.NewService(tx, appointmentRepo, vitalRepo, events, appLog)
	soapNoteSvc := soapnote.NewService(tx, appointmentRepo, soapNoteRepo, events, appLog)
	dashboardSvc := dashboard.NewService(appointmentRepo, eventRepo, vitalRepo, soapNoteRepo, dashboard.Config{
		Location: loc,
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	if err := middleware.RegisterValidators(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	jwt := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	r := router.NewRouter(middleware.NewAuthMiddleware(jwt), router.Handlers{
		Appointment: appointmenthandler.NewHandler(appointmentSvc),
		Vital:       vitalhandler.NewHandler(vitalSvc),
		SoapNote:    soapnotehandler.NewHandler(soapNoteSvc),
		Dashboard:   dashboardhandler.NewHandler(dashboardSvc),
		Health:      health.NewHandler(map[string]health.Pinger{"database": db}),
		Metrics:     prom.New(prometheus.DefaultGatherer),
	}, router.RouterConfig{
		RateLimit:      rateLimit(cfg.RateLimit),
		RateBurst:      cfg.RateLimit.Burst,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins: cfg.CORS.AllowedOrigins,
			AllowMethods: cfg.CORS.AllowedMethods,
			AllowHeaders: cfg.CORS.AllowedHeaders,
		},
		MetricsPrefix: "clinic_api",
		Registerer:    prometheus.DefaultRegisterer,
		Logger:        appLog,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting api server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	appLog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLog.Info("server exited")
	return nil
}

func rateLimit(cfg config.RateLimitConfig) float64 {
	if !cfg.Enabled {
		return 0
	}
	return cfg.RequestsPerSecond
}

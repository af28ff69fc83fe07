package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/calendar"
	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	prom "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	cleanup "github.com/jwalitptl/clinic-api/internal/worker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Console:    cfg.Log.Console,
	})
	log.Logger = *appLog.Zerolog()

	if err := run(cfg, appLog); err != nil {
		appLog.Fatal(err, "worker stopped")
	}
}

func run(cfg *config.Config, appLog *logger.Logger) error {
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	// The broker only fans processed events out to subscribers, so the
	// worker keeps delivering notifications without it.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		b, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), appLog.Zerolog())
		if err != nil {
			appLog.Warn("redis unavailable, event fan-out disabled", "error", err.Error())
		} else {
			broker = b
			defer b.Close()
		}
	}

	outboxRepo := postgres.NewOutboxRepository(db)
	m := metrics.NewMetrics("clinic", "worker", prometheus.DefaultRegisterer)

	var (
		cal      calendar.Client
		tokenEnc security.Encryptor
	)
	if cfg.Calendar.Enabled {
		tokenEnc, err = security.NewAESEncryptorFromSecret(cfg.Calendar.TokenKey)
		if err != nil {
			return fmt.Errorf("failed to init token encryption: %w", err)
		}
		cal = calendar.NewGoogleClient(calendar.Config{
			ClientID:     cfg.Calendar.ClientID,
			ClientSecret: cfg.Calendar.ClientSecret,
			RedirectURL:  cfg.Calendar.RedirectURL,
			CalendarID:   cfg.Calendar.CalendarID,
		})
	}

	dispatcher := notification.NewService(
		postgres.NewPatientRepository(db),
		postgres.NewCalendarTokenRepository(db, tokenEnc),
		email.NewSMTPSender(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, appLog),
		cal,
		notification.Config{
			AppName:   cfg.App.Name,
			OriginURL: cfg.App.OriginURL,
		},
		appLog,
	)

	processor, err := worker.NewOutboxProcessor(
		outboxRepo,
		dispatcher,
		broker,
		cfg.Outbox.ToWorkerConfig(cfg.Redis.Channel),
		appLog,
		m,
	)
	if err != nil {
		return err
	}
	retention := cleanup.NewOutboxCleanupWorker(outboxRepo, cfg.Retention.ProcessedOutbox, cfg.Retention.CleanupInterval, appLog, m)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	health.NewHandler(map[string]health.Pinger{"database": db}).RegisterRoutes(engine)
	prom.New(prometheus.DefaultGatherer).RegisterRoutes(engine)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HealthPort),
		Handler: engine,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		retention.Start(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigChan:
		appLog.Info("Shutting down...")
	case err := <-errCh:
		runErr = fmt.Errorf("health check server failed: %w", err)
	}

	cancel()
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/handler"
	activityHandler "github.com/jwalitptl/clinic-api/internal/handler/activity"
	apikeyHandler "github.com/jwalitptl/clinic-api/internal/handler/apikey"
	appointmentHandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	checkinHandler "github.com/jwalitptl/clinic-api/internal/handler/checkin"
	consultationHandler "github.com/jwalitptl/clinic-api/internal/handler/consultation"
	dashboardHandler "github.com/jwalitptl/clinic-api/internal/handler/dashboard"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	paymentHandler "github.com/jwalitptl/clinic-api/internal/handler/payment"
	prometheusHandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	queueHandler "github.com/jwalitptl/clinic-api/internal/handler/queue"
	userHandler "github.com/jwalitptl/clinic-api/internal/handler/user"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/router"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apikeyService "github.com/jwalitptl/clinic-api/internal/service/apikey"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	checkinService "github.com/jwalitptl/clinic-api/internal/service/checkin"
	consultationService "github.com/jwalitptl/clinic-api/internal/service/consultation"
	dashboardService "github.com/jwalitptl/clinic-api/internal/service/dashboard"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	paymentService "github.com/jwalitptl/clinic-api/internal/service/payment"
	queueService "github.com/jwalitptl/clinic-api/internal/service/queue"
	userService "github.com/jwalitptl/clinic-api/internal/service/user"
	"github.com/jwalitptl/clinic-api/internal/worker"
	"github.com/jwalitptl/clinic-api/migrations"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server exited properly")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := postgres.Migrate(ctx, db, migrations.FS)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info().Int("applied", applied).Msg("database migrations complete")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry, "clinic")

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.Redis.Enabled {
		broker, err := redis.NewRedisBroker(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: 10,
		}, log.Logger)
		if err != nil {
			return err
		}
		defer broker.Close()
		publisher = broker
	}

	loc, err := cfg.Server.Location()
	if err != nil {
		return err
	}

	repos := postgres.NewRepositories(db)
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry())

	activitySvc := activity.NewService(repos.Activity)
	userSvc := userService.NewService(repos.Users, hasher, activitySvc)
	authSvc := authService.NewService(repos.Users, repos.ResetTokens, tokens, hasher, email.NewSMTPService(cfg.Email), activitySvc)
	apikeySvc := apikeyService.NewService(repos.APIKeys, repos.Users, activitySvc)
	patientSvc := patientService.NewService(repos.Patients, repos.Appointments, repos.Consultations, repos.Payments, activitySvc)
	appointmentSvc := appointmentService.NewService(repos.Appointments, repos.Patients, repos.Users, activitySvc)
	queueSvc := queueService.NewService(repos.Queue, repos.CheckIns, repos.Users, activitySvc, publisher, m)
	checkinSvc := checkinService.NewService(repos.CheckIns, repos.Patients, repos.Appointments, repos.Users, queueSvc, activitySvc)
	consultationSvc := consultationService.NewService(repos.Consultations, repos.Patients, repos.Queue, activitySvc)
	paymentSvc := paymentService.NewService(repos.Payments, repos.Patients, repos.CheckIns, activitySvc)
	dashboardSvc := dashboardService.NewService(repos.Dashboard, loc)

	if cfg.Bootstrap.AdminEmail != "" && cfg.Bootstrap.AdminPassword != "" {
		created, err := userSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("email", cfg.Bootstrap.AdminEmail).Msg("bootstrap admin created")
		}
	}

	go worker.NewTokenCleanupWorker(repos.ResetTokens, 24*time.Hour, time.Hour).Start(ctx)

	if err := handler.RegisterValidators(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	gate := middleware.NewAuthMiddleware(authSvc, apikeySvc, m)
	r := router.NewRouter(
		router.RouterConfig{
			Mode:       cfg.Server.Mode,
			RateLimit:  rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:  cfg.Server.RateLimitBurst,
			Timeout:    cfg.Server.Timeout(),
			CORSConfig: middleware.DefaultCORSConfig(cfg.Server.CORSOrigins),
		},
		m,
		gate,
		authHandler.NewHandler(authSvc),
		[]router.Handler{
			userHandler.NewHandler(userSvc),
			apikeyHandler.NewHandler(apikeySvc),
			patientHandler.NewHandler(patientSvc),
			appointmentHandler.NewHandler(appointmentSvc),
			checkinHandler.NewHandler(checkinSvc),
			queueHandler.NewHandler(queueSvc),
			consultationHandler.NewHandler(consultationSvc),
			paymentHandler.NewHandler(paymentSvc),
			activityHandler.NewHandler(activitySvc),
			dashboardHandler.NewHandler(dashboardSvc),
		},
		health.NewHandler(&repos.Base, version),
		prometheusHandler.New(registry),
		handler.NewSPA(cfg.Server.StaticDir, version),
	)
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("version", version).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/config"
	"github.com/ipes/ipes-go-api/internal/database"
	"github.com/ipes/ipes-go-api/internal/handler"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/repository"
	"github.com/ipes/ipes-go-api/internal/router"
	"github.com/ipes/ipes-go-api/internal/service"
	"github.com/ipes/ipes-go-api/internal/utils"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "ipes-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "development" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL, "ipes-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn == nil {
		logger.Info().Msg("nats url not set; events go to redis only")
	}

	validate := utils.NewValidator()

	repos := service.Repositories{
		Students:     repository.NewStudentRepository(db),
		Curriculum:   repository.NewCurriculumRepository(db),
		Regularities: repository.NewRegularityRepository(db),
		Exams:        repository.NewExamRepository(db),
		Enrollments:  repository.NewEnrollmentRepository(db),
		Equivalences: repository.NewEquivalenceRepository(db),
		Decisions:    repository.NewDecisionRepository(db),
	}

	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	events := service.NewEventPublisher(redisClient, natsConn, cfg.EventsChannel, logger)
	standingService := service.NewStandingService(repos, redisClient, cfg.StandingTTL, logger)
	eligibilityService := service.NewEligibilityService(repos, cfg.VersionPolicy, logger)
	enrollmentService := service.NewEnrollmentService(eligibilityService, repos.Enrollments, standingService, activityService, events, validate, logger)
	examService := service.NewExamRegistrationService(eligibilityService, repos.Exams, standingService, activityService, events, validate, logger)
	importService := service.NewRegularityImportService(repos, standingService, activityService, events, logger)
	equivalenceService := service.NewEquivalenceService(repos, standingService, activityService, events, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    4 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		EligibilityHandler:      handler.NewEligibilityHandler(eligibilityService, validate, logger),
		EnrollmentHandler:       handler.NewEnrollmentHandler(enrollmentService, validate, logger),
		ExamRegistrationHandler: handler.NewExamRegistrationHandler(examService, validate, logger),
		StandingHandler:         handler.NewStandingHandler(standingService, validate, logger),
		RegularityImportHandler: handler.NewRegularityImportHandler(importService, validate, logger),
		EquivalenceHandler:      handler.NewEquivalenceHandler(equivalenceService, validate, logger),
		ActivityHandler:         handler.NewActivityHandler(activityService, validate, logger),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		RateLimiter:             middleware.RateLimit("api", cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Str("version_policy", string(cfg.VersionPolicy)).Msg("starting server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, natsConn, logger)
}

func waitForShutdown(app *fiber.App, natsConn *nats.Conn, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}

	logger.Info().Msg("server stopped")
}

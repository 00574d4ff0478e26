package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dojo-go-api/internal/config"
	"github.com/noah-isme/dojo-go-api/internal/database"
	"github.com/noah-isme/dojo-go-api/internal/handler"
	"github.com/noah-isme/dojo-go-api/internal/middleware"
	"github.com/noah-isme/dojo-go-api/internal/models"
	"github.com/noah-isme/dojo-go-api/internal/observability"
	"github.com/noah-isme/dojo-go-api/internal/repository"
	"github.com/noah-isme/dojo-go-api/internal/router"
	"github.com/noah-isme/dojo-go-api/internal/service"
	"github.com/noah-isme/dojo-go-api/internal/session"
	"github.com/noah-isme/dojo-go-api/pkg/ai"
	"github.com/noah-isme/dojo-go-api/pkg/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.Topic{},
		&models.Task{},
		&models.Submission{},
		&models.PointsTransaction{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, notification fanout degraded")
		} else {
			defer natsConn.Close()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	codeRunner := runner.New(runner.Config{
		PythonBin: cfg.PythonBin,
		GoBin:     cfg.GoBin,
		Timeout:   cfg.RunTimeout,
		Logger:    logger,
	})

	sessionStore := session.NewStore()

	economyService := service.NewEconomyService(studentRepo, transactionRepo, logger)
	sessionService := service.NewSessionService(sessionStore, taskRepo, economyService, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, "dojo", natsConn, validate, logger)
	submissionService := service.NewSubmissionService(
		submissionRepo,
		taskRepo,
		studentRepo,
		sessionStore,
		codeRunner,
		economyService,
		notificationService,
		logger,
		service.SubmissionConfig{
			TimedWindow:        cfg.TimedWindow,
			StoredOutputLimit:  cfg.StoredOutputLimit,
			DisplayOutputLimit: cfg.DisplayOutputLimit,
		},
	)
	taskService := service.NewTaskService(taskRepo, validate, service.DefaultTopicPrefixes, logger)
	reviewService := service.NewReviewService(submissionRepo, economyService, buildAssistant(cfg, logger), notificationService, validate, logger)
	leaderboardService := service.NewLeaderboardService(studentRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	redactionService := service.NewRedactionService(submissionRepo, cfg.RedactionRetention, cfg.RedactionInterval, logger)

	taskHandler := handler.NewTaskHandler(taskService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate, logger)
	sessionHandler := handler.NewSessionHandler(sessionService, validate, logger)
	economyHandler := handler.NewEconomyHandler(economyService, validate, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, logger)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/metrics", observability.MetricsHandler())

	router.Register(app, cfg, router.Dependencies{
		TaskHandler:         taskHandler,
		SubmissionHandler:   submissionHandler,
		SessionHandler:      sessionHandler,
		EconomyHandler:      economyHandler,
		ReviewHandler:       reviewHandler,
		LeaderboardHandler:  leaderboardHandler,
		NotificationHandler: notificationHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	notificationService.Start(backgroundCtx)
	go redactionService.Start(backgroundCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildAssistant(cfg config.Config, logger zerolog.Logger) ai.Assistant {
	switch cfg.AIProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil
		}
		assistant, err := ai.NewOpenAIAssistant(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Logger: logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("openai assistant disabled")
			return nil
		}
		return assistant
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil
		}
		assistant, err := ai.NewAnthropicAssistant(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
		if err != nil {
			logger.Warn().Err(err).Msg("anthropic assistant disabled")
			return nil
		}
		return assistant
	default:
		return nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

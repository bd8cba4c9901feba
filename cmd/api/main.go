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
	"github.com/rs/zerolog"

	"github.com/studiora/studiora-api/internal/config"
	"github.com/studiora/studiora-api/internal/database"
	"github.com/studiora/studiora-api/internal/handler"
	"github.com/studiora/studiora-api/internal/middleware"
	"github.com/studiora/studiora-api/internal/models"
	"github.com/studiora/studiora-api/internal/repository"
	"github.com/studiora/studiora-api/internal/router"
	"github.com/studiora/studiora-api/internal/service"
	"github.com/studiora/studiora-api/pkg/ai"
	cloud "github.com/studiora/studiora-api/pkg/cloudinary"
	"github.com/studiora/studiora-api/pkg/extract"
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
		&models.Course{},
		&models.Material{},
		&models.Module{},
		&models.Quiz{},
		&models.QuizAttempt{},
		&models.QuizReport{},
		&models.RecommendationTopic{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, report events disabled")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	generator, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{
		APIKey:    cfg.AIAPIKey,
		BaseURL:   cfg.AIBaseURL,
		Model:     cfg.AIModel,
		MaxTokens: cfg.AIMaxTokens,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("failed to create ai generator: %v", err)
	}

	extractor := extract.NewLinkExtractor(cfg.ExtractTimeout, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	reportRepo := repository.NewReportRepository(db)

	aggregator := service.NewGradeAggregator(quizRepo, moduleRepo, courseRepo, redisClient, logger)
	reportService := service.NewReportService(reportRepo, quizRepo, generator, natsConn, cfg.ReportTimeout, logger)
	courseService := service.NewCourseService(courseRepo, materialRepo, uploader, validate, redisClient, cfg.CourseCacheTTL, logger)
	moduleService := service.NewModuleService(moduleRepo, courseRepo, materialRepo, generator, extractor, aggregator, validate, logger)
	quizService := service.NewQuizService(quizRepo, moduleRepo, courseRepo, reportRepo, generator, reportService, aggregator, validate, logger)

	courseHandler := handler.NewCourseHandler(courseService, logger)
	moduleHandler := handler.NewModuleHandler(moduleService, logger)
	quizHandler := handler.NewQuizHandler(quizService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler: courseHandler,
		ModuleHandler: moduleHandler,
		QuizHandler:   quizHandler,
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, reportService)
}

func waitForShutdown(app *fiber.App, reports service.ReportService) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	// Let in-flight report narratives finish before the process exits.
	reports.Wait()

	log.Println("server stopped")
}

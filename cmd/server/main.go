package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/reallygood83/counselingautomation/internal/cache"
	"github.com/reallygood83/counselingautomation/internal/config"
	"github.com/reallygood83/counselingautomation/internal/forms"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/repository"
	"github.com/reallygood83/counselingautomation/internal/service"
	"github.com/reallygood83/counselingautomation/internal/transport/rest"
	"github.com/reallygood83/counselingautomation/internal/transport/ws"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	envErr := godotenv.Load(".env")

	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if envErr != nil {
		log.Debug("no .env file loaded", "error", envErr)
	}

	ctx := context.Background()

	aiConfig := config.DefaultAIConfig()
	log.Info("ai config",
		"analysis_model", aiConfig.Models.Analysis,
		"generate_model", aiConfig.Models.Generate,
		"api_key_configured", aiConfig.IsEnabled(),
	)

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("failed to ping MongoDB", "error", err)
	}
	log.Info("connected to MongoDB", "db", cfg.MongoDB)

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("failed to ping Redis", "addr", cfg.RedisAddr, "error", err)
	}
	log.Info("connected to Redis", "addr", cfg.RedisAddr)

	// Initialize WebSocket hub
	wsHub := ws.NewHub(log.With("component", "ws"))

	// Initialize repositories
	surveyRepo := repository.NewSurveyRepo(db, log)
	responseRepo := repository.NewResponseRepo(db, log)
	studentRepo := repository.NewStudentRepo(db, log)

	// Initialize caches
	analysisCache := cache.NewAnalysisCache(rdb)

	// External collaborators
	formsClient := forms.NewClient(cfg.FormsBaseURL, log.With("component", "forms"))
	gemini := service.NewGeminiAnalyzer(aiConfig, log.With("component", "gemini"))

	// Initialize services
	policy := service.BatchPolicy{Size: cfg.AnalysisBatchSize, Delay: cfg.AnalysisBatchDelay}
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.TeacherPassword)
	surveySvc := service.NewSurveyService(surveyRepo, gemini, formsClient, log)
	analysisSvc := service.NewAnalysisService(responseRepo, surveyRepo, gemini, policy, log.With("component", "analysis"))
	collectionSvc := service.NewCollectionService(surveyRepo, responseRepo, studentRepo, formsClient, analysisSvc, log.With("component", "collection"))
	studentSvc := service.NewStudentService(studentRepo, log)
	reportSvc := service.NewReportService(surveyRepo, responseRepo, log)

	// Progress snapshots go to Redis, live events to the hub
	analysisSvc.SetProgressTracker(analysisCache)
	analysisSvc.SetBroadcaster(wsHub)

	log.Info("analysis batch policy", "size", analysisSvc.Policy().Size, "delay", analysisSvc.Policy().Delay)

	container := &rest.Container{
		AuthService:       authSvc,
		SurveyService:     surveySvc,
		CollectionService: collectionSvc,
		AnalysisService:   analysisSvc,
		StudentService:    studentSvc,
		ReportService:     reportSvc,
		WSHub:             wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen failed", "error", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

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

	"tutorly-backend/internal/config"
	"tutorly-backend/internal/conversation"
	"tutorly-backend/internal/database"
	"tutorly-backend/internal/handlers"
	"tutorly-backend/internal/logger"
	"tutorly-backend/internal/middleware"
	"tutorly-backend/internal/planner"
	"tutorly-backend/internal/progress"
	"tutorly-backend/internal/repository"
	"tutorly-backend/internal/router"
	"tutorly-backend/internal/services"
	"tutorly-backend/internal/tutor"
	"tutorly-backend/internal/websocket"
	"tutorly-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Starting Tutorly backend", "env", cfg.Env)

	ctx := context.Background()
	loc := cfg.ScheduleLocation()
	if loc.String() != cfg.ScheduleTimezone {
		log.Warn("Unknown schedule timezone, using UTC", "timezone", cfg.ScheduleTimezone)
	}

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("PostgreSQL connection failed", "error", err)
	}
	defer pool.Close()
	log.Info("PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("Redis connection failed", "error", err)
	}
	defer redisClients.Close()
	log.Info("Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("Database migration failed", "error", err)
	}
	log.Info("Database migrations applied")

	// ──── Initialize Repositories ────
	profileRepo := repository.NewProfileRepo(pool)
	planRepo := repository.NewPlanRepo(pool)
	progressRepo := repository.NewProgressRepo(pool)
	conversationStore := conversation.NewRedisStore(redisClients.Store, cfg.ConversationTTL, log)

	// ──── Step 5: Initialize Gemini Clients ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiTextModel, cfg.GeminiConcurrentReqs, log)
	if err != nil {
		log.Fatal("Gemini client initialization failed", "error", err)
	}
	defer geminiService.Close()

	speechService, err := services.NewSpeechService(ctx, cfg.GeminiAPIKey, cfg.GeminiTTSModel, cfg.GeminiTTSVoice)
	if err != nil {
		log.Fatal("Gemini speech client initialization failed", "error", err)
	}
	log.Info("Gemini clients initialized", "text_model", cfg.GeminiTextModel, "tts_model", cfg.GeminiTTSModel)

	// ──── Step 6: Start Progress Worker Pool ────
	failures := progress.NewFailures(log, progress.NewRedisNotifier(redisClients.Store))
	workerPool := worker.NewPool(progressRepo, failures, log, cfg.ProgressWorkers, cfg.ProgressQueueSize)
	workerPool.Start()
	log.Info("Progress worker pool started", "workers", cfg.ProgressWorkers)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	planBuilder := planner.NewBuilder(geminiService, loc)
	orchestrator := tutor.NewOrchestrator(geminiService, speechService)
	recorder := progress.NewRecorder(workerPool, failures)
	tutorService := tutor.NewService(
		profileRepo,
		planRepo,
		conversationStore,
		services.NewAttachmentService(),
		orchestrator,
		recorder,
		loc,
	)

	// ──── Initialize Handlers ────
	h := router.Handlers{
		Profile:   handlers.NewProfileHandler(profileRepo),
		Plan:      handlers.NewPlanHandler(profileRepo, planRepo, planBuilder, loc),
		Tutor:     handlers.NewTutorHandler(tutorService),
		Dashboard: handlers.NewDashboardHandler(profileRepo, planRepo, progressRepo, loc),
	}

	generationLimiter := middleware.NewRateLimiter(cfg.GenerationRateLimit, time.Minute)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, cfg.FrontendURL, log)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(jwtAuth, h, generationLimiter, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// a tutor turn waits on text generation and two audio renderings
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("HTTP shutdown failed", "error", err)
		}

		// in-flight turns may still queue records until the server has drained
		wsHub.Close()
		generationLimiter.Stop()
		workerPool.Stop()
	}()

	log.Info("Tutorly backend ready", "port", cfg.Port, "api", "/api/v1", "ws", "/api/v1/ws")

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server error", "error", err)
	}
	<-shutdownDone
}

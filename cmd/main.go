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

	"golang.org/x/sync/errgroup"

	redisclient "github.com/devBarbar/smart-study-notes-sub002/internal/clients/redis"
	"github.com/devBarbar/smart-study-notes-sub002/internal/db"
	"github.com/devBarbar/smart-study-notes-sub002/internal/handlers"
	"github.com/devBarbar/smart-study-notes-sub002/internal/jobs"
	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/mastery"
	"github.com/devBarbar/smart-study-notes-sub002/internal/middleware"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/server"
	"github.com/devBarbar/smart-study-notes-sub002/internal/services"
	"github.com/devBarbar/smart-study-notes-sub002/internal/sse"
	"github.com/devBarbar/smart-study-notes-sub002/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	lectureRepo := repos.NewLectureRepo(thePG, log)
	lectureChunkRepo := repos.NewLectureChunkRepo(thePG, log)
	jobRepo := repos.NewJobRepo(thePG, log)
	studyPlanRepo := repos.NewStudyPlanEntryRepo(thePG, log)
	reviewEventRepo := repos.NewReviewEventRepo(thePG, log)
	examRepo := repos.NewPracticeExamRepo(thePG, log)
	streakRepo := repos.NewStreakRepo(thePG, log)
	callLogRepo := repos.NewAICallLogRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewHub(log)
	var sseBus redisclient.SSEBus
	if os.Getenv("REDIS_ADDR") != "" {
		sseBus, err = redisclient.NewSSEBus(log)
		if err != nil {
			log.Warn("Could not init redis SSE bus; running single-instance", "error", err)
			sseBus = nil
		} else {
			if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
				log.Warn("Could not start redis SSE forwarder", "error", err)
			}
		}
	}

	// Services
	log.Info("Setting up services from main...")
	notifier := services.NewJobNotifier(sseHub, sseBus)
	llmClient, err := llm.NewClient(log, llm.WithRecorder(services.NewUsageRecorder(log, callLogRepo)))
	if err != nil {
		log.Error("Could not init LLM client", "error", err)
		os.Exit(1)
	}
	masteryCfg := mastery.DefaultConfig()
	masteryCfg.DecayPerDay = utils.GetEnvAsFloat("MASTERY_DECAY_PER_DAY", masteryCfg.DecayPerDay, log)
	masteryCfg.WeakThreshold = utils.GetEnvAsFloat("MASTERY_WEAK_THRESHOLD", masteryCfg.WeakThreshold, log)
	masteryCfg.HistoryWindow = utils.GetEnvAsInt("MASTERY_HISTORY_WINDOW", masteryCfg.HistoryWindow, log)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo)
	reviewService := services.NewReviewService(log, studyPlanRepo, reviewEventRepo, streakRepo, masteryCfg)
	jobService := services.NewJobService(thePG, log, jobRepo, jobs.ValidatePayload, notifier)

	// Worker
	log.Info("Setting up job worker from main...")
	registry := jobs.NewRegistry()
	for _, h := range []jobs.Handler{
		jobs.NewPlanHandler(lectureRepo, lectureChunkRepo, studyPlanRepo, llmClient),
		jobs.NewPracticeExamHandler(lectureRepo, studyPlanRepo, examRepo, llmClient, masteryCfg),
		jobs.NewGradeHandler(examRepo, reviewService, llmClient),
		jobs.NewTranscribeHandler(lectureRepo, llmClient),
		jobs.NewMetadataHandler(lectureRepo, llmClient),
		jobs.NewEmbedHandler(lectureRepo, lectureChunkRepo, llmClient),
		jobs.NewChatHandler(lectureRepo, llmClient, notifier),
	} {
		if err := registry.Register(h); err != nil {
			log.Error("Could not register job handler", "error", err)
			os.Exit(1)
		}
	}
	worker := jobs.NewWorker(thePG, log, jobRepo, registry, notifier)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(log, authService)
	jobsHandler := handlers.NewJobsHandler(log, jobService)
	lectureHandler := handlers.NewLectureHandler(log, lectureRepo, studyPlanRepo)
	examHandler := handlers.NewExamHandler(log, examRepo)
	reviewHandler := handlers.NewReviewHandler(log, reviewService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		ExamHandler:    examHandler,
		JobsHandler:    jobsHandler,
		LectureHandler: lectureHandler,
		ReviewHandler:  reviewHandler,
		SSEHandler:     sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{Addr: ":" + port, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("Server listening on :%s\n", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("Server failed", "error", err)
	}
}

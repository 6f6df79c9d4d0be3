package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vnkhanh/e-learning-backend/config"
	"github.com/vnkhanh/e-learning-backend/controllers"
	"github.com/vnkhanh/e-learning-backend/llm"
	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/repository"
	"github.com/vnkhanh/e-learning-backend/routes"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	cfg := config.Load()

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLog.Sync()

	if cfg.JWTSecret == "" {
		appLog.Fatal("JWT_SECRET is required")
	}

	db, err := config.InitDB(cfg, appLog)
	if err != nil {
		appLog.Fatal("init database", "error", err)
	}

	ctx := context.Background()
	providers, err := llm.NewProviders(ctx, cfg.AI, appLog)
	if err != nil {
		appLog.Fatal("init AI providers",
			"generation_provider", cfg.AI.GenerationProvider,
			"embedding_provider", cfg.AI.EmbeddingProvider,
			"error", err)
	}
	defer providers.Close()
	generator, embedder := providers.Generator, providers.Embedder

	repos := repository.NewRepos(db, appLog)
	hub := ws.NewHub(appLog)

	quizSvc := services.NewQuizService(db, appLog, repos.Quizzes, repos.Questions, repos.Submissions)
	indexSvc := services.NewIndexService(appLog, repos.Lessons, repos.Embeddings, embedder, hub, cfg.AI.ChunkSize)
	chatSvc := services.NewChatService(appLog, repos.Lessons, repos.Embeddings, repos.Conversations, embedder, generator,
		services.ChatOptions{
			TopK:      cfg.AI.ChatTopK,
			Timeout:   cfg.AI.Timeout,
			MaxTokens: cfg.AI.MaxTokens,
		})

	if cfg.LogMode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(appLog))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Auth-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	routes.SetupRouter(r, routes.Deps{
		JWTSecret: cfg.JWTSecret,
		Health:    controllers.NewHealthController(db, hub),
		Quiz:      controllers.NewQuizController(appLog, quizSvc),
		AI:        controllers.NewAIController(appLog, chatSvc, indexSvc),
		WS:        ws.NewHandler(hub, cfg.JWTSecret, cfg.CORSOrigins),
	})

	stop, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		appLog.Info("server starting",
			"port", cfg.Port,
			"generation_provider", cfg.AI.GenerationProvider,
			"embedding_provider", cfg.AI.EmbeddingProvider,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("server stopped", "error", err)
			cancel()
		}
	}()
	<-stop.Done()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("graceful shutdown failed", "error", err)
	}
	appLog.Info("server stopped")
}

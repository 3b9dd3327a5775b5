package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"treeAnalysis/api/cache"
	"treeAnalysis/api/config"
	"treeAnalysis/api/database"
	"treeAnalysis/api/handlers"
	"treeAnalysis/api/kafka"
	"treeAnalysis/api/middleware"
	"treeAnalysis/api/repository"
	"treeAnalysis/api/service"
	"treeAnalysis/api/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("API service starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisCache, err := database.ConnectCache(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisCache.Close()

	producer, err := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
	if err != nil {
		logger.Fatal("Failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("Failed to init file store", zap.Error(err))
	}

	repo := repository.NewPostgresRepo(db)
	statusCache := cache.NewStatusCache(redisCache)
	taskService := service.NewTaskService(repo, statusCache, producer, cfg.KafkaTopic)
	handler := handlers.NewTaskHandler(taskService, files, logger, cfg.MaxFileSize, cfg.WebhookSecret)

	session := middleware.Session(repo, cfg.CookieName, cfg.CookieMaxAge, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handlers.Health)
	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/get-session", session(http.HandlerFunc(handler.Session)))
	mux.Handle("/api/newTask", session(http.HandlerFunc(handler.Upload)))
	mux.Handle("/api/newTasks", session(http.HandlerFunc(handler.UploadBatch)))
	mux.Handle("/api/tasks", session(http.HandlerFunc(handler.List)))
	mux.Handle("/api/isReady/", session(http.HandlerFunc(handler.IsReady)))
	mux.HandleFunc("/api/webhook/task-complete", handler.Webhook)

	chain := middleware.TraceID(
		middleware.Logging(logger)(
			middleware.Recovery(logger)(mux),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      chain,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

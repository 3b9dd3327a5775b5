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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"treeAnalysis/worker/analyzer"
	"treeAnalysis/worker/cache"
	"treeAnalysis/worker/config"
	"treeAnalysis/worker/kafka"
	"treeAnalysis/worker/normalizer"
	"treeAnalysis/worker/pool"
	"treeAnalysis/worker/repository"
	"treeAnalysis/worker/service"
	"treeAnalysis/worker/webhook"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("Worker service starting",
		zap.String("topic", cfg.KafkaTopic),
		zap.Int("worker_count", cfg.WorkerCount),
	)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connectCancel()

	db, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(connectCtx); err != nil {
		logger.Fatal("Failed to ping postgres", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(connectCtx).Err(); err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	workers := pool.NewWorkerPool(cfg.WorkerCount)

	consumer, err := kafka.NewConsumer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaGroupID, workers)
	if err != nil {
		logger.Fatal("Failed to create kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	analyzerCfg := analyzer.DefaultConfig()
	analyzerCfg.MinDelay = cfg.MinDelay
	analyzerCfg.MaxDelay = cfg.MaxDelay

	var notifier service.Reporter
	if cfg.WebhookURL != "" {
		notifier = webhook.NewNotifier(cfg.WebhookURL, cfg.WebhookSecret)
		logger.Info("Reporting completions via webhook", zap.String("url", cfg.WebhookURL))
	}

	processor := service.NewProcessor(
		repository.NewPostgresRepo(db),
		cache.NewStatusCache(redisClient),
		normalizer.NewNormalizer(logger),
		analyzer.NewMockAnalyzer(analyzerCfg),
		notifier,
		cfg.UploadDir,
		logger,
	)

	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			if err := consumer.Consume(ctx, cfg.KafkaTopic, processor.Process); err != nil {
				logger.Error("Consumer error", zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
			time.Sleep(time.Second)
		}
	}()

	logger.Info("Worker service is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")
	cancel()
	workers.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsServer.Shutdown(shutdownCtx)

	logger.Info("Worker service stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enrollment-portal/config"
	"enrollment-portal/internal/api"
	"enrollment-portal/internal/apiclient"
	"enrollment-portal/internal/broker"
	"enrollment-portal/internal/mutation"
	"enrollment-portal/internal/notify"
	"enrollment-portal/internal/querycache"
	"enrollment-portal/internal/redisclient"
	"enrollment-portal/internal/service"
	"enrollment-portal/internal/util"
	"enrollment-portal/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, "enrollment-portal", cfg.Server.InstanceID); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting enrollment portal",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.Duration("stale_time", cfg.Cache.StaleTime),
		zap.Duration("gc_time", cfg.Cache.GCTime))

	tp, err := util.InitTracer("enrollment-portal", cfg.Server.InstanceID, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	store := querycache.NewStore(querycache.Config{
		StaleTime: cfg.Cache.StaleTime,
		GCTime:    cfg.Cache.GCTime,
	})
	backend := apiclient.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	toasts := notify.NewCenter(cfg.Notify.History)

	opts := []mutation.Option{mutation.WithOrigin(cfg.Server.InstanceID)}
	var checks []namedCheck

	switch {
	case !cfg.Mutation.Serialize:
		opts = append(opts, mutation.WithLocker(mutation.NopLocker{}))
		logger.Warn("Mutation serialization disabled")
	case cfg.Mutation.LockBackend == config.LockBackendRedis:
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		opts = append(opts, mutation.WithLocker(redisclient.NewMutationLocker(redisClient, cfg.Mutation.LockTTL)))
		checks = append(checks, namedCheck{"redis", redisClient.Ping})
		logger.Info("Redis mutation lock enabled", zap.String("addr", cfg.Redis.Addr))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var syncWorker *worker.SyncWorker
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEnrollments)
		defer producer.Close()
		opts = append(opts, mutation.WithPublisher(broker.NewEventPublisher(producer)))
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	orch := mutation.NewOrchestrator(store, toasts, opts...)
	enrollments := service.NewEnrollmentService(backend, orch)
	badges := service.NewBadgeService(backend, orch)

	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEnrollments, cfg.Kafka.ConsumerGroup)
		syncWorker = worker.NewSyncWorker(consumer, orch.Coordinator(), cfg.Server.InstanceID)
		go func() {
			if err := syncWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Sync worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(enrollments, badges, toasts)
	for _, c := range checks {
		handler.AddReadinessCheck(c.name, c.check)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if syncWorker != nil {
		if err := syncWorker.Stop(); err != nil {
			logger.Warn("Error stopping sync worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

type namedCheck struct {
	name  string
	check api.ReadinessCheck
}

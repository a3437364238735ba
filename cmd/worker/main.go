package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tutorcenter/internal/config"
	"tutorcenter/internal/logging"
	"tutorcenter/internal/metrics"
	"tutorcenter/internal/queue"
	"tutorcenter/internal/store"
	"tutorcenter/internal/tutoring"
	"tutorcenter/internal/worker"
)

// Worker consumes absentee jobs from the queue and runs the nightly sweep.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.StoreBackend != "postgres" || cfg.QueueBackend != "redis" {
		logger.Fatal("worker needs STORE_BACKEND=postgres and QUEUE_BACKEND=redis; memory backends run jobs inside the api",
			zap.String("store", cfg.StoreBackend), zap.String("queue", cfg.QueueBackend))
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("timezone", zap.Error(err))
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.DBPingTimeout)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable yet, consumer will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := tutoring.NewService(tutoring.NewPostgresStore(db.Client),
		tutoring.WithLocation(loc),
		tutoring.WithLogger(logger),
		tutoring.WithObserver(m),
	)
	w := worker.New(svc, logger, m)

	sched, err := w.Schedule(cfg.AbsenteeCron, loc)
	if err != nil {
		logger.Fatal("absentee schedule", zap.Error(err))
	}
	sched.Start()
	logger.Info("absentee sweep scheduled", zap.String("cron", cfg.AbsenteeCron), zap.String("tz", loc.String()))
	defer func() { <-sched.Stop().Done() }()

	metricsSrv := &http.Server{Addr: ":" + cfg.WorkerMetricsPort, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	defer metricsSrv.Close()

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	if err := w.Run(ctx, q); err != nil {
		logger.Error("worker failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"tutorcenter/internal/auth"
	"tutorcenter/internal/cache"
	"tutorcenter/internal/config"
	"tutorcenter/internal/httpapi"
	"tutorcenter/internal/logging"
	"tutorcenter/internal/media"
	"tutorcenter/internal/metrics"
	"tutorcenter/internal/queue"
	"tutorcenter/internal/store"
	"tutorcenter/internal/tutoring"
	"tutorcenter/internal/worker"
)

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

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	health := map[string]httpapi.HealthCheck{}

	var st tutoring.Store
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		st = tutoring.NewMemoryStore()
	} else {
		db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.DBPingTimeout)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Migrate(ctx, db.Client); err != nil {
			return err
		}
		st = tutoring.NewPostgresStore(db.Client)
		health["db"] = db.Healthy
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()
	if redisClient != nil {
		health["redis"] = redisClient.Healthy
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []tutoring.Option{
		tutoring.WithLocation(loc),
		tutoring.WithLogger(logger),
		tutoring.WithObserver(m),
	}
	if redisClient != nil {
		opts = append(opts, tutoring.WithLookupCache(cache.NewLookup(redisClient.Client, cfg.LookupCacheTTL, logger)))
	}
	svc := tutoring.NewService(st, opts...)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		// nothing else can read an in-process queue
		go func() { _ = worker.New(svc, logger.Named("worker"), m).Run(ctx, mem) }()
		q = mem
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	mediaStore, err := newMediaStore(cfg)
	if err != nil {
		return err
	}
	uploadDir := ""
	if cfg.MediaBackend == "local" {
		uploadDir = cfg.UploadDir
	}

	r := httpapi.NewRouter(httpapi.Config{
		Service:  svc,
		Media:    mediaStore,
		Queue:    q,
		Logger:   logger,
		Requests: m,
		Gatherer: reg,
		Staff: auth.StaffOptions{
			SigningKey:   cfg.JWTSigningKey,
			Issuer:       cfg.JWTIssuer,
			Required:     cfg.AuthRequired,
			DefaultActor: auth.Actor{ID: cfg.DefaultStaffID, Role: auth.RoleStaff},
		},
		RateLimitPerMin: cfg.RateLimitPerMin,
		UploadDir:       uploadDir,
		UploadMaxBytes:  cfg.UploadMaxBytes,
		Health:          health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

func newMediaStore(cfg config.App) (media.Store, error) {
	if cfg.MediaBackend == "cloudinary" {
		return media.NewCloudinary(cfg.CloudinaryCloud, cfg.CloudinaryKey, cfg.CloudinarySecret, cfg.CloudinaryFolder), nil
	}
	return media.NewLocal(cfg.UploadDir)
}

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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-substitution-api/api/swagger"
	"github.com/noah-isme/sma-substitution-api/internal/handler"
	"github.com/noah-isme/sma-substitution-api/internal/middleware"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
	"github.com/noah-isme/sma-substitution-api/internal/service"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	"github.com/noah-isme/sma-substitution-api/pkg/database"
	"github.com/noah-isme/sma-substitution-api/pkg/jobs"
	"github.com/noah-isme/sma-substitution-api/pkg/kvstore"
	"github.com/noah-isme/sma-substitution-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-substitution-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-substitution-api/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// @title SMA Substitution API
// @version 1.0.0
// @description Substitution requests, teacher presence and profiles for the SMA scheduling app
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	baseStore, ready, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()
	store := kvstore.Instrumented(kvstore.Prefixed(baseStore, cfg.Store.KeyPrefix), metrics.ObserveStoreOperation)
	logr.Info("store ready", zap.String("driver", cfg.Store.Driver), zap.String("prefix", cfg.Store.KeyPrefix))

	substitutionRepo := repository.NewSubstitutionRepository(store, logr)
	attendanceRepo := repository.NewAttendanceRepository(store, logr)
	profileRepo := repository.NewProfileRepository(store, logr)

	inbox := service.NewInbox(cfg.Notifications.InboxSize)
	notifier, queue := service.NewNotificationService(jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	}, metrics, logr, service.NewLogDeliverer(logr), inbox)
	queue.Start(ctx)
	defer queue.Stop()

	validate := validator.New()
	authService := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	substitutionService := service.NewSubstitutionService(substitutionRepo, notifier, validate, logr,
		service.WithSubstitutionProfiles(profileRepo),
		service.WithSubstitutionMetrics(metrics),
	)
	attendanceService := service.NewAttendanceService(attendanceRepo, notifier, cfg.Attendance.LecturesPerDay, logr)
	profileService := service.NewProfileService(profileRepo, notifier, validate, logr)
	exportService := service.NewExportService(substitutionService, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics.Handler(), ready)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), middleware.JWT(authService), handler.Handlers{
		Substitutions: handler.NewSubstitutionHandler(substitutionService, exportService),
		Attendance:    handler.NewAttendanceHandler(attendanceService, time.Local),
		Profile:       handler.NewProfileHandler(profileService),
		Notifications: handler.NewNotificationHandler(inbox),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// openStore connects the configured key-value backend.
func openStore(ctx context.Context, cfg *config.Config) (kvstore.Store, handler.ReadinessCheck, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		client, err := kvstore.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		store := kvstore.NewRedis(client)
		ready := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return store, ready, func() { _ = store.Close() }, nil
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		store := kvstore.NewPostgres(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return store, db.PingContext, func() { _ = db.Close() }, nil
	default:
		return kvstore.NewMemory(), nil, func() {}, nil
	}
}

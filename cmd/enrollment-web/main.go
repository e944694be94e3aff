package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-enrollment/api/swagger"
	"github.com/noah-isme/course-enrollment/internal/handler"
	"github.com/noah-isme/course-enrollment/internal/middleware"
	"github.com/noah-isme/course-enrollment/internal/repository"
	"github.com/noah-isme/course-enrollment/internal/service"
	"github.com/noah-isme/course-enrollment/pkg/cache"
	"github.com/noah-isme/course-enrollment/pkg/config"
	"github.com/noah-isme/course-enrollment/pkg/database"
	"github.com/noah-isme/course-enrollment/pkg/events"
	"github.com/noah-isme/course-enrollment/pkg/jobs"
	"github.com/noah-isme/course-enrollment/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-enrollment/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-enrollment/pkg/middleware/requestid"
)

// @title Course Enrollment API
// @version 1.0.0
// @description Course offerings, student self-enrollment and admin create-and-enroll.
// @BasePath /
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.String("server", cfg.Database.Server), zap.String("database", cfg.Database.Name), zap.Error(err))
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without it", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Queue, logr)
		if err != nil {
			logr.Warn("event broker unavailable, enrollment events disabled", zap.Error(err))
		} else {
			publisher = events.NewAsyncPublisher(amqpPublisher, jobs.QueueConfig{
				Workers:    cfg.Events.Workers,
				BufferSize: cfg.Events.BufferSize,
				MaxRetries: cfg.Events.MaxRetries,
				RetryDelay: cfg.Events.RetryDelay,
				Logger:     logr,
			}, 5*time.Second)
		}
	}
	defer publisher.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var flashes service.FlashStore
	if rdb != nil {
		flashes = repository.NewRedisFlashRepository(rdb, cfg.Session.FlashTTL)
	} else {
		flashes = repository.NewMemoryFlashRepository(cfg.Session.FlashTTL)
	}

	studentRepo := repository.NewStudentRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(rdb, "enrollment", logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Progress.CacheTTL, logr, cfg.Progress.CacheEnabled && rdb != nil)
	sessionSvc := service.NewSessionService(flashes, logr, service.SessionConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: "course-enrollment",
	})
	identitySvc := service.NewIdentityService(studentRepo, adminRepo, logr)
	offeringSvc := service.NewOfferingService(offeringRepo, metrics, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)
	progressSvc := service.NewProgressService(progressRepo, cacheSvc, cfg.Progress.CacheTTL, metrics, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, publisher, progressSvc, metrics, validator.New(), logr, service.EnrollmentConfig{
		EmailDomain:        cfg.Enrollment.EmailDomain,
		DefaultDateOfBirth: cfg.Enrollment.DefaultDateOfBirth,
	})

	enrollmentHandler := handler.NewEnrollmentHandler(sessionSvc, identitySvc, offeringSvc, enrollmentSvc, studentSvc)
	courseHandler := handler.NewCourseHandler(sessionSvc, offeringSvc)
	studentHandler := handler.NewStudentHandler(sessionSvc, studentSvc)
	progressHandler := handler.NewProgressHandler(sessionSvc, progressSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.NoStore())
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	pages := r.Group("/")
	pages.Use(middleware.Session(sessionSvc, middleware.CookieConfig{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.TTL,
		Secure: cfg.Session.Secure,
	}, logr))
	pages.GET("/", enrollmentHandler.Index)
	pages.GET("/logout", enrollmentHandler.Logout)
	pages.GET("/enroll", enrollmentHandler.Show)
	pages.POST("/enroll", middleware.RateLimit(cfg.RateLimit, rdb, metrics, logr), enrollmentHandler.Submit)
	pages.GET("/courses", courseHandler.List)
	pages.GET("/balance/:student_id", studentHandler.Balance)
	pages.GET("/student_progress", progressHandler.Report)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		serverErrors <- srv.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	case sig := <-signals:
		logr.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

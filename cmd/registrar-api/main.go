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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/galleon/clash-of-courses/api/swagger"
	"github.com/galleon/clash-of-courses/internal/handler"
	"github.com/galleon/clash-of-courses/internal/middleware"
	"github.com/galleon/clash-of-courses/internal/models"
	"github.com/galleon/clash-of-courses/internal/repository"
	"github.com/galleon/clash-of-courses/internal/service"
	"github.com/galleon/clash-of-courses/pkg/cache"
	"github.com/galleon/clash-of-courses/pkg/config"
	"github.com/galleon/clash-of-courses/pkg/database"
	"github.com/galleon/clash-of-courses/pkg/jobs"
	"github.com/galleon/clash-of-courses/pkg/logger"
	corsmiddleware "github.com/galleon/clash-of-courses/pkg/middleware/cors"
	reqidmiddleware "github.com/galleon/clash-of-courses/pkg/middleware/requestid"
	"github.com/galleon/clash-of-courses/pkg/storage"
)

// @title Clash of Courses API
// @version 1.0.0
// @description Course registration eligibility and conflict resolution engine
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	termRepo := repository.NewTermRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	authSvc := service.NewAuthService(userRepo, auditRepo, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "clash-of-courses",
	})

	notifyQueue := jobs.NewQueue("notifications", service.NotificationHandler(logr), jobs.QueueConfig{
		Workers: cfg.Registration.NotifyConcurrency,
		Logger:  logr,
	})
	notifyQueue.Start(ctx)
	defer notifyQueue.Stop()

	registrationOpts := []service.RegistrationServiceOption{service.WithNotifier(notifyQueue)}
	if metricsSvc != nil {
		registrationOpts = append(registrationOpts, service.WithEngineObserver(metricsSvc))
	}
	registrationSvc := service.NewRegistrationService(
		studentRepo, courseRepo, sectionRepo, enrollmentRepo, requestRepo, auditRepo,
		cfg.Registration, logr, registrationOpts...,
	)

	catalogSvc := service.NewCatalogService(courseRepo, sectionRepo, termRepo, cacheRepo, cfg.Catalog.CacheTTL, logr)
	scheduleSvc := service.NewScheduleService(studentRepo, enrollmentRepo, logr)
	sectionSvc := service.NewSectionService(sectionRepo, auditRepo, catalogSvc, logr)

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("report storage init failed", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportSvc = service.NewReportService(reportRepo, requestRepo, sectionRepo, nil, store, signer, logr)
		reportQueue := jobs.NewQueue("reports", reportSvc.Handler(), jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		reportSvc.SetQueue(reportQueue)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
	}

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		auth:         handler.NewAuthHandler(authSvc),
		registration: handler.NewRegistrationHandler(registrationSvc),
		catalog:      handler.NewCatalogHandler(catalogSvc),
		schedule:     handler.NewScheduleHandler(scheduleSvc),
		section:      handler.NewSectionHandler(sectionSvc),
		reports:      reportSvc,
		authSvc:      authSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}

type routeDeps struct {
	auth         *handler.AuthHandler
	registration *handler.RegistrationHandler
	catalog      *handler.CatalogHandler
	schedule     *handler.ScheduleHandler
	section      *handler.SectionHandler
	reports      *service.ReportService
	authSvc      *service.AuthService
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.auth.Login)
		auth.POST("/refresh", deps.auth.Refresh)
		auth.POST("/logout", middleware.JWT(deps.authSvc), deps.auth.Logout)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(deps.authSvc))

	catalog := protected.Group("/catalog")
	{
		catalog.GET("/courses", deps.catalog.Search)
		catalog.GET("/courses/:id", deps.catalog.GetCourse)
		catalog.GET("/sections/:id", deps.catalog.GetSection)
	}

	terms := protected.Group("/terms")
	{
		terms.GET("/active", deps.catalog.ActiveTerm)
		terms.GET("/:id", deps.catalog.GetTerm)
	}

	registration := protected.Group("/registration")
	{
		registration.POST("/evaluate", deps.registration.Evaluate)
		registration.POST("/requests", deps.registration.Submit)
		registration.GET("/requests", deps.registration.List)
		registration.GET("/requests/:id", deps.registration.Get)
		registration.POST("/requests/:id/decision",
			middleware.RequireRoles(models.RoleStudent, models.RoleAdvisor, models.RoleDepartmentHead),
			deps.registration.Decide)
	}

	protected.GET("/students/:studentID/schedule",
		middleware.RBAC("SELF", string(models.RoleAdvisor), string(models.RoleDepartmentHead), string(models.RoleAdmin)),
		deps.schedule.Current)

	protected.PUT("/sections/:id/capacity",
		middleware.RequireRoles(models.RoleDepartmentHead, models.RoleAdmin),
		deps.section.OverrideCapacity)
	protected.GET("/rules/:code", deps.section.ExplainRule)

	if deps.reports != nil {
		reportHandler := handler.NewReportHandler(deps.reports)
		reports := protected.Group("/reports")
		reports.POST("",
			middleware.RequireRoles(models.RoleAdvisor, models.RoleDepartmentHead, models.RoleAdmin),
			reportHandler.Create)
		reports.GET("/:id",
			middleware.RequireRoles(models.RoleAdvisor, models.RoleDepartmentHead, models.RoleAdmin),
			reportHandler.Status)
		// Download authenticates with the signed token itself.
		api.GET("/reports/download", reportHandler.Download)
	}
}

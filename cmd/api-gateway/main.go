package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushub/events-api/api/swagger"
	"github.com/campushub/events-api/internal/handler"
	"github.com/campushub/events-api/internal/middleware"
	"github.com/campushub/events-api/internal/models"
	"github.com/campushub/events-api/internal/repository"
	"github.com/campushub/events-api/internal/service"
	"github.com/campushub/events-api/pkg/cache"
	"github.com/campushub/events-api/pkg/config"
	"github.com/campushub/events-api/pkg/database"
	"github.com/campushub/events-api/pkg/export"
	"github.com/campushub/events-api/pkg/logger"
	corsmiddleware "github.com/campushub/events-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushub/events-api/pkg/middleware/requestid"
	"github.com/campushub/events-api/pkg/storage"
)

// @title Campus Events API
// @version 1.0.0
// @description Event participation lifecycle service: registration, attendance, feedback and certificates.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()

	eventRepo := repository.NewEventRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, status cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheSvc = service.NewCacheService(repository.NewRedisCacheRepository(redisClient), cfg.Cache.TTL, metricsSvc, logr)
		}
	}

	files, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init certificate storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)
	renderer := export.NewCertificateRenderer("CampusHub")

	notifications := service.NewNotificationService(cfg.Notifications, logr)
	notifications.Start(context.Background())
	defer notifications.Stop()

	strategySvc := service.NewStrategyService(logr)
	eventSvc := service.NewEventService(eventRepo, strategySvc, validate, logr)
	registrationSvc := service.NewRegistrationService(participationRepo, eventRepo, studentRepo, eventSvc, cacheSvc, validate, logr)
	lifecycleSvc := service.NewLifecycleService(participationRepo, eventRepo, studentRepo, eventSvc,
		renderer, files, signer, notifications, cacheSvc, validate, logr)
	teamSvc := service.NewTeamService(teamRepo, participationRepo, eventRepo, studentRepo, eventSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	exportSvc := service.NewExportService(participationRepo, eventRepo, export.NewCSVExporter(), logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	eventHandler := handler.NewEventHandler(eventSvc, exportSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, metricsSvc)
	lifecycleHandler := handler.NewLifecycleHandler(lifecycleSvc, metricsSvc)
	teamHandler := handler.NewTeamHandler(teamSvc, metricsSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	certificateHandler := handler.NewCertificateHandler(files, signer)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/certificates/download", certificateHandler.Download)

	// Event browsing is public; claims are attached when a token is sent so
	// handlers can tailor responses later without a second route set.
	browse := api.Group("", middleware.OptionalJWT(authSvc))
	browse.GET("/events", eventHandler.List)
	browse.GET("/events/:id", eventHandler.Get)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer)

	authed.POST("/events", staff, eventHandler.Create)
	authed.PUT("/events/:id", staff, eventHandler.Update)
	authed.POST("/events/:id/open", staff, eventHandler.Open)
	authed.POST("/events/:id/close", staff, eventHandler.Close)
	authed.POST("/events/:id/complete", staff, eventHandler.Complete)
	authed.GET("/events/:id/registrations", staff, registrationHandler.ListByEvent)
	authed.GET("/events/:id/participants/export", staff, eventHandler.ExportParticipants)
	authed.GET("/events/:id/teams/validate", staff, teamHandler.Validate)

	authed.POST("/registrations", registrationHandler.Register)
	authed.GET("/registrations/:id", registrationHandler.Status)
	authed.POST("/registrations/:id/cancel", registrationHandler.Cancel)
	authed.POST("/registrations/:id/attendance", staff, lifecycleHandler.MarkAttendance)
	authed.POST("/registrations/attendance/bulk", staff, lifecycleHandler.BulkMarkAttendance)
	authed.POST("/registrations/:id/feedback", lifecycleHandler.SubmitFeedback)
	authed.POST("/registrations/:id/certificate", staff, lifecycleHandler.IssueCertificate)

	authed.POST("/teams", teamHandler.Register)
	authed.POST("/teams/:id/members", teamHandler.AddMember)
	authed.DELETE("/teams/:id/members/:enrollmentId", teamHandler.RemoveMember)

	authed.GET("/students", staff, studentHandler.List)
	authed.GET("/students/:enrollmentId", middleware.RBAC("ADMIN", "ORGANIZER", "SELF"), studentHandler.Get)
	authed.POST("/students", staff, studentHandler.Create)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

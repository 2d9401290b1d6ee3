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

	"github.com/trainops/staffing-api/internal/handler"
	"github.com/trainops/staffing-api/internal/middleware"
	"github.com/trainops/staffing-api/internal/repository"
	"github.com/trainops/staffing-api/internal/service"
	"github.com/trainops/staffing-api/pkg/cache"
	"github.com/trainops/staffing-api/pkg/config"
	"github.com/trainops/staffing-api/pkg/database"
	"github.com/trainops/staffing-api/pkg/logger"
	"github.com/trainops/staffing-api/pkg/mailer"
	corsmiddleware "github.com/trainops/staffing-api/pkg/middleware/cors"
	reqidmiddleware "github.com/trainops/staffing-api/pkg/middleware/requestid"
)

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, fairness cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	instructorRepo := repository.NewInstructorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	emailRepo := repository.NewEmailRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close()

	// Services.
	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditService(auditRepo, logr)

	sender := mailer.FromConfig(cfg.Mail, logr)
	outboxSvc := service.NewOutboxService(emailRepo, sender, metricsSvc, cfg.Mail, logr)

	authSvc := service.NewAuthService(instructorRepo, otpRepo, outboxSvc, auditSvc, cfg.JWT, cfg.OTP, validate, logr)
	catalogSvc := service.NewCatalogService(courseRepo, instructorRepo, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, instanceRepo, auditSvc, validate, logr)
	eligibilitySvc := service.NewEligibilityService(activityRepo, instructorRepo, logr)
	availabilitySvc := service.NewAvailabilityService(instanceRepo, availabilityRepo, assignmentRepo, logr)
	fairnessSvc := service.NewFairnessService(instanceRepo, assignmentRepo, cacheRepo, cfg.Fairness, logr)
	approvalSvc := service.NewApprovalService(instanceRepo, assignmentRepo, fairnessSvc, auditSvc, metricsSvc, validate, logr)
	reminderSvc := service.NewReminderService(instanceRepo, activityRepo, courseRepo, instructorRepo, availabilityRepo, outboxSvc, auditSvc, cfg.App, logr)
	rosterSvc := service.NewRosterService(instanceRepo, activityRepo, courseRepo, assignmentRepo, cfg.App, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc, catalogSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	leadHandler := handler.NewLeadHandler(activitySvc, eligibilitySvc, availabilitySvc, fairnessSvc, approvalSvc, reminderSvc, rosterSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/otp/request", authHandler.RequestOTP)
		auth.POST("/otp/verify", authHandler.VerifyOTP)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.PUT("/instances/:instanceId/availability", availabilityHandler.Submit)
		protected.DELETE("/instances/:instanceId/availability", availabilityHandler.Cancel)
		protected.GET("/instances/:instanceId/availability/status", availabilityHandler.Status)

		protected.GET("/lead/activities/:activityId", leadHandler.Activity)
		protected.GET("/lead/activities/:activityId/eligible", leadHandler.Eligible)
		protected.GET("/lead/instances/:instanceId/availability", leadHandler.Availability)
		protected.GET("/lead/instances/:instanceId/fairness", leadHandler.Fairness)
		protected.POST("/lead/instances/:instanceId/approve", leadHandler.Approve)
		protected.POST("/lead/instances/:instanceId/reminders", leadHandler.Remind)
		protected.GET("/lead/instances/:instanceId/roster", leadHandler.Roster)

		protected.GET("/courses", catalogHandler.Courses)
		protected.GET("/instructors", catalogHandler.Instructors)
		protected.GET("/activity-types", catalogHandler.ActivityTypes)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authSvc), middleware.RequireAdmin())
	{
		admin.POST("/activities", activityHandler.Create)
		admin.GET("/activities", activityHandler.Search)
		admin.GET("/activities/:activityId", activityHandler.Get)
		admin.PUT("/activities/:activityId", activityHandler.Update)
		admin.PATCH("/activities/:activityId", activityHandler.UpdateHeader)
		admin.POST("/activities/:activityId/cancel", activityHandler.Cancel)
		admin.DELETE("/activities/:activityId", activityHandler.Delete)
		admin.POST("/activities/:activityId/instances", activityHandler.CreateInstance)
		admin.PUT("/instances/:instanceId", activityHandler.UpdateInstance)
		admin.POST("/instances/:instanceId/cancel", activityHandler.CancelInstance)
		admin.DELETE("/instances/:instanceId", activityHandler.DeleteInstance)
		admin.GET("/calendar", activityHandler.Calendar)

		admin.GET("/courses/:courseId/certified", catalogHandler.Certified)
		admin.PUT("/courses/:courseId/certified", catalogHandler.ReplaceCertifications)
		admin.POST("/activity-types", catalogHandler.CreateActivityType)
		admin.PUT("/activity-types/:typeId", catalogHandler.RenameActivityType)
		admin.DELETE("/activity-types/:typeId", catalogHandler.DeleteActivityType)

		admin.GET("/audit", auditHandler.List)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outboxSvc.Start(rootCtx)
	defer outboxSvc.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

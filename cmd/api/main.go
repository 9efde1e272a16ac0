package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unishare/unishare-api/api/swagger"
	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/handler"
	"github.com/unishare/unishare-api/internal/middleware"
	"github.com/unishare/unishare-api/internal/models"
	"github.com/unishare/unishare-api/internal/repository"
	"github.com/unishare/unishare-api/internal/service"
	"github.com/unishare/unishare-api/pkg/cache"
	"github.com/unishare/unishare-api/pkg/config"
	"github.com/unishare/unishare-api/pkg/database"
	"github.com/unishare/unishare-api/pkg/jobs"
	"github.com/unishare/unishare-api/pkg/logger"
	corsmiddleware "github.com/unishare/unishare-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unishare/unishare-api/pkg/middleware/requestid"
)

// @title UniShare API
// @version 0.1.0
// @description University collaboration platform backend
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	contentRepo := repository.NewContentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	newsRepo := repository.NewNewsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	guard := access.NewGuard(enrollmentRepo, groupRepo)

	// Audit pipeline. Handlers enqueue; a worker pool persists.
	auditWorker := service.NewAuditWorker(userRepo, logr)
	var auditQueue *jobs.Queue
	if cfg.Audit.Enabled {
		auditQueue = jobs.NewQueue("audit", auditWorker.Handle, jobs.QueueConfig{
			Workers:    cfg.Audit.Workers,
			BufferSize: cfg.Audit.BufferSize,
			Logger:     logr,
		})
		auditQueue.Start(context.Background())
		defer auditQueue.Stop()
	}
	var auditSvc *service.AuditService
	if auditQueue != nil {
		auditSvc = service.NewAuditService(auditQueue, logr)
	} else {
		auditSvc = service.NewAuditService(nil, logr)
	}

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "unishare-api",
	})
	catalogSvc := service.NewCatalogService(courseRepo, subjectRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, subjectRepo, userRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, messageRepo, guard, userRepo, cfg.Groups.DefaultCapacity, validate, logr)
	contentSvc := service.NewContentService(contentRepo, guard, validate, logr)

	var eventSvc *service.EventService
	if cfg.Events.CacheEnabled && redisClient != nil {
		eventSvc = service.NewEventService(eventRepo, guard, cacheRepo, cfg.Events.CacheTTL, validate, logr)
	} else {
		eventSvc = service.NewEventService(eventRepo, guard, nil, 0, validate, logr)
	}

	calendarSvc := service.NewCalendarService(calendarRepo, eventRepo, enrollmentRepo, userRepo, validate, logr)
	newsSvc := service.NewNewsService(newsRepo, guard, validate, logr)
	dashboardSvc := service.NewDashboardService(enrollmentRepo, newsRepo, cacheRepo, logr)
	userSvc := service.NewUserService(userRepo, guard, auditSvc, logr)
	metricsSvc := service.NewMetricsService()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	contentHandler := handler.NewContentHandler(contentSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	newsHandler := handler.NewNewsHandler(newsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	userHandler := handler.NewUserHandler(userSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/courses", catalogHandler.ListCourses)
		protected.GET("/courses/:id", catalogHandler.GetCourse)
		protected.GET("/courses/:id/subjects", catalogHandler.ListSubjects)
		protected.GET("/subjects/:id", catalogHandler.GetSubject)

		protected.POST("/subjects/:id/enroll",
			middleware.Audit(auditSvc, models.AuditActionEnroll, "subject"),
			enrollmentHandler.Enroll)
		protected.DELETE("/subjects/:id/enroll",
			middleware.Audit(auditSvc, models.AuditActionUnenroll, "subject"),
			enrollmentHandler.Unenroll)
		protected.POST("/enrollments/:id/complete", enrollmentHandler.Complete)
		protected.GET("/me/enrollments", enrollmentHandler.ListMine)

		protected.GET("/subjects/:id/posts", contentHandler.ListPosts)
		protected.POST("/subjects/:id/posts", contentHandler.CreatePost)
		protected.POST("/posts/:id/comments", contentHandler.CreateComment)
		protected.DELETE("/posts/:id", contentHandler.DeletePost)

		protected.GET("/subjects/:id/groups", groupHandler.ListBySubject)
		protected.POST("/subjects/:id/groups",
			middleware.Audit(auditSvc, models.AuditActionGroupCreate, "subject"),
			groupHandler.Create)
		protected.POST("/groups/:id/join",
			middleware.Audit(auditSvc, models.AuditActionGroupJoin, "group"),
			groupHandler.Join)
		protected.POST("/groups/:id/leave",
			middleware.Audit(auditSvc, models.AuditActionGroupLeave, "group"),
			groupHandler.Leave)
		protected.POST("/groups/:id/members", groupHandler.AddMember)
		protected.GET("/groups/:id/members", groupHandler.ListMembers)
		protected.GET("/groups/:id/messages", groupHandler.ListMessages)
		protected.POST("/groups/:id/messages", groupHandler.SendMessage)
		protected.POST("/groups/:id/calls", groupHandler.StartCall)
		protected.GET("/me/groups", groupHandler.MyGroups)

		protected.GET("/events", eventHandler.Feed)
		protected.POST("/events", eventHandler.Submit)
		protected.GET("/events/:id", eventHandler.Get)
		protected.POST("/events/:id/rsvp", eventHandler.RSVP)

		protected.GET("/calendar", calendarHandler.Upcoming)
		protected.POST("/calendar/entries", calendarHandler.CreateEntry)
		protected.PUT("/calendar/entries/:id", calendarHandler.UpdateEntry)
		protected.DELETE("/calendar/entries/:id", calendarHandler.DeleteEntry)

		protected.GET("/news", newsHandler.List)
		protected.POST("/news", newsHandler.Publish)
		protected.DELETE("/news/:id", newsHandler.Unpublish)

		protected.GET("/dashboard", dashboardHandler.Overview)
		protected.GET("/users/:id", userHandler.Get)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/events/pending", eventHandler.Pending)
		admin.POST("/events/:id/approve",
			middleware.Audit(auditSvc, models.AuditActionEventApprove, "event"),
			eventHandler.Approve)
		admin.POST("/events/:id/reject",
			middleware.Audit(auditSvc, models.AuditActionEventReject, "event"),
			eventHandler.Reject)

		admin.GET("/users", userHandler.List)
		admin.POST("/users/:id/disable", userHandler.Disable)
		admin.POST("/users/:id/enable", userHandler.Enable)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

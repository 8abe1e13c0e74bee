package main

import (
	"context"
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

	_ "github.com/academico-sys/siu-api/api/swagger"
	"github.com/academico-sys/siu-api/internal/handler"
	"github.com/academico-sys/siu-api/internal/middleware"
	"github.com/academico-sys/siu-api/internal/models"
	"github.com/academico-sys/siu-api/internal/repository"
	"github.com/academico-sys/siu-api/internal/service"
	"github.com/academico-sys/siu-api/pkg/cache"
	"github.com/academico-sys/siu-api/pkg/config"
	"github.com/academico-sys/siu-api/pkg/database"
	"github.com/academico-sys/siu-api/pkg/jobs"
	"github.com/academico-sys/siu-api/pkg/logger"
	corsmiddleware "github.com/academico-sys/siu-api/pkg/middleware/cors"
	reqidmiddleware "github.com/academico-sys/siu-api/pkg/middleware/requestid"
)

// @title SIU Academico API
// @version 1.0.0
// @description Academic records and enrollment service
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	instituteRepo := repository.NewInstituteRepository(db)
	careerRepo := repository.NewCareerRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	careerCourseRepo := repository.NewCareerCourseRepository(db)
	termRepo := repository.NewTermRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	slotRepo := repository.NewScheduleSlotRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentCareerRepo := repository.NewStudentCareerRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	approvedRepo := repository.NewApprovedCourseRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	recordRepo := repository.NewAcademicRecordRepository(db)

	// Services.
	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Catalog.CacheTTL, logr, true)
	}

	validate := validator.New()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "siu-api",
		Audience:           []string{"siu-clients"},
		SingleSession:      false,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	instituteService := service.NewInstituteService(instituteRepo, validate, logr)
	careerService := service.NewCareerService(careerRepo, instituteRepo, cacheService, validate, logr)
	courseService := service.NewCourseService(courseRepo, cacheService, validate, logr)
	careerCourseService := service.NewCareerCourseService(careerCourseRepo, careerRepo, courseRepo, validate, logr)
	termService := service.NewTermService(termRepo, validate, logr)
	sectionService := service.NewSectionService(sectionRepo, careerCourseRepo, termRepo, teacherRepo, slotRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, userRepo, validate, logr)
	teacherService := service.NewTeacherService(teacherRepo, userRepo, validate, logr)
	studentCareerService := service.NewStudentCareerService(studentCareerRepo, studentRepo, careerRepo, validate, logr)
	recordService := service.NewAcademicRecordService(approvedRepo, studentCareerRepo, courseRepo, validate, logr)
	gradeService := service.NewGradeService(gradeRepo, enrollmentRepo, validate, logr)

	checker := service.NewPrerequisiteChecker(approvedRepo, careerCourseRepo)
	enrollmentService := service.NewEnrollmentService(
		db,
		sectionRepo,
		enrollmentRepo,
		studentCareerRepo,
		studentRepo,
		checker,
		userRepo,
		cfg.Enrollment.LockTimeout,
		validate,
		logr,
	).WithRecorder(metricsService)

	exportService := service.NewExportService(recordRepo, sectionRepo, studentCareerRepo, cfg.Exports.Enabled, logr, nil, nil)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	instituteHandler := handler.NewInstituteHandler(instituteService)
	careerHandler := handler.NewCareerHandler(careerService)
	courseHandler := handler.NewCourseHandler(courseService)
	careerCourseHandler := handler.NewCareerCourseHandler(careerCourseService)
	termHandler := handler.NewTermHandler(termService)
	sectionHandler := handler.NewSectionHandler(sectionService)
	studentHandler := handler.NewStudentHandler(studentService)
	teacherHandler := handler.NewTeacherHandler(teacherService)
	studentCareerHandler := handler.NewStudentCareerHandler(studentCareerService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	recordHandler := handler.NewAcademicRecordHandler(recordService)
	gradeHandler := handler.NewGradeHandler(gradeService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	users := protected.Group("/users")
	{
		users.GET("", admin, userHandler.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
		users.POST("", admin, userHandler.Create)
		users.PUT("/:id", admin, userHandler.Update)
		users.DELETE("/:id", admin, userHandler.Delete)
	}

	institutes := protected.Group("/institutes")
	{
		institutes.GET("", instituteHandler.List)
		institutes.GET("/:id", instituteHandler.Get)
		institutes.POST("", admin, instituteHandler.Create)
		institutes.PUT("/:id", admin, instituteHandler.Update)
		institutes.DELETE("/:id", admin, instituteHandler.Delete)
	}

	careers := protected.Group("/careers")
	{
		careers.GET("", careerHandler.List)
		careers.GET("/:id", careerHandler.Get)
		careers.POST("", admin, careerHandler.Create)
		careers.PUT("/:id", admin, careerHandler.Update)
		careers.DELETE("/:id", admin, careerHandler.Delete)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", admin, courseHandler.Create)
		courses.PUT("/:id", admin, courseHandler.Update)
		courses.DELETE("/:id", admin, courseHandler.Delete)
	}

	careerCourses := protected.Group("/career-courses")
	{
		careerCourses.GET("", careerCourseHandler.List)
		careerCourses.GET("/:id", careerCourseHandler.Get)
		careerCourses.POST("", admin, careerCourseHandler.Create)
		careerCourses.PUT("/:id", admin, careerCourseHandler.Update)
		careerCourses.DELETE("/:id", admin, careerCourseHandler.Delete)
		careerCourses.GET("/:id/prerequisites", careerCourseHandler.ListPrerequisites)
		careerCourses.POST("/:id/prerequisites", admin, careerCourseHandler.AddPrerequisite)
		careerCourses.DELETE("/:id/prerequisites/:requiresId", admin, careerCourseHandler.RemovePrerequisite)
	}

	terms := protected.Group("/terms")
	{
		terms.GET("", termHandler.List)
		terms.GET("/:id", termHandler.Get)
		terms.POST("", admin, termHandler.Create)
		terms.PUT("/:id", admin, termHandler.Update)
		terms.DELETE("/:id", admin, termHandler.Delete)
	}

	sections := protected.Group("/sections")
	{
		sections.GET("", sectionHandler.List)
		sections.GET("/:id", sectionHandler.Get)
		sections.POST("", admin, sectionHandler.Create)
		sections.PUT("/:id", admin, sectionHandler.Update)
		sections.GET("/:id/schedule", sectionHandler.Schedule)
		sections.PUT("/:id/schedule", admin, sectionHandler.ReplaceSchedule)
		sections.GET("/:id/roster", staff, exportHandler.Roster)
	}

	students := protected.Group("/students")
	{
		students.GET("", staff, studentHandler.List)
		students.GET("/:id", staff, studentHandler.Get)
		students.POST("", admin, studentHandler.Create)
		students.PUT("/:id", admin, studentHandler.Update)
	}

	teachers := protected.Group("/teachers")
	{
		teachers.GET("", staff, teacherHandler.List)
		teachers.GET("/:id", staff, teacherHandler.Get)
		teachers.POST("", admin, teacherHandler.Create)
		teachers.PUT("/:id", admin, teacherHandler.Update)
	}

	studentCareers := protected.Group("/student-careers")
	{
		studentCareers.GET("", staff, studentCareerHandler.List)
		studentCareers.GET("/:id", studentCareerHandler.Get)
		studentCareers.POST("", admin, studentCareerHandler.Create)
		studentCareers.DELETE("/:id", admin, studentCareerHandler.Deactivate)
		studentCareers.POST("/:id/reactivate", admin, studentCareerHandler.Reactivate)
		studentCareers.GET("/:id/transcript", staff, exportHandler.Transcript)
	}

	enrollments := protected.Group("/enrollments")
	{
		enrollments.GET("", enrollmentHandler.List)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.POST("", enrollmentHandler.Admit)
		enrollments.DELETE("/:id", enrollmentHandler.Withdraw)
		enrollments.POST("/reconcile", admin, enrollmentHandler.Reconcile)
	}

	approved := protected.Group("/approved-courses")
	{
		approved.GET("", staff, recordHandler.List)
		approved.POST("", staff, recordHandler.RecordApproval)
		approved.DELETE("/:id", admin, recordHandler.RevokeApproval)
	}

	grades := protected.Group("/grades")
	{
		grades.GET("", gradeHandler.List)
		grades.GET("/:id", gradeHandler.Get)
		grades.POST("", staff, gradeHandler.Record)
		grades.PUT("/:id", staff, gradeHandler.Update)
		grades.DELETE("/:id", staff, gradeHandler.Delete)
	}

	protected.GET("/metrics/summary", admin, metricsHandler.Snapshot)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic occupancy reconciliation.
	reconcileQueue := jobs.NewQueue("occupancy-reconcile", func(ctx context.Context, _ jobs.Job) error {
		_, err := enrollmentService.Reconcile(ctx)
		return err
	}, jobs.QueueConfig{
		Workers: cfg.Enrollment.ReconcileWorkers,
		Logger:  logr,
	})
	reconcileQueue.Start(rootCtx)
	defer reconcileQueue.Stop()

	go func() {
		ticker := time.NewTicker(cfg.Enrollment.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				if err := reconcileQueue.Enqueue(jobs.Job{Type: "reconcile", Enqueued: time.Now().UTC()}); err != nil {
					logr.Sugar().Warnw("failed to enqueue reconcile job", "error", err)
				}
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

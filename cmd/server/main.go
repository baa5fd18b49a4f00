// Package main runs the learning portal HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vidya-portal/backend/config"
	"github.com/vidya-portal/backend/internal/auth"
	"github.com/vidya-portal/backend/internal/liveclasses"
	"github.com/vidya-portal/backend/internal/materials"
	"github.com/vidya-portal/backend/internal/middleware"
	"github.com/vidya-portal/backend/internal/timetables"
	"github.com/vidya-portal/backend/internal/videos"
	"github.com/vidya-portal/backend/internal/worker"
	"github.com/vidya-portal/backend/pkg/database"
	"github.com/vidya-portal/backend/pkg/queue"
	"github.com/vidya-portal/backend/pkg/redis"
	"github.com/vidya-portal/backend/pkg/response"
	"github.com/vidya-portal/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			VideosBucket:    cfg.AWS.VideosBucket,
			MaterialsBucket: cfg.AWS.MaterialsBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// File uploads are disabled when S3 is not configured; URL-referencing
	// endpoints still work. Typed nil must not reach the handlers as a
	// non-nil interface.
	var videoBlobs videos.BlobStore
	var materialBlobs materials.BlobStore
	if s3Client != nil {
		videoBlobs = s3Client
		materialBlobs = s3Client
	}

	// Live classes
	liveClassRepo := liveclasses.NewPostgresRepository(pool)
	liveClassHandler := liveclasses.NewHandler(liveClassRepo, logger)

	// Recorded videos
	videoRepo := videos.NewPostgresRepository(pool)
	videoHandler := videos.NewHandler(videoRepo, videoBlobs, jobQueue, logger)

	// Materials
	materialRepo := materials.NewRepository(pool)
	materialHandler := materials.NewHandler(materialRepo, materialBlobs, jobQueue, logger)

	// Timetables
	timetableStore := timetables.NewFileStore(cfg.Timetable.FilePath, logger)
	timetableHandler := timetables.NewHandler(timetableStore, logger)

	cleanupProcessor := worker.NewBlobCleanupProcessor(s3Client, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public student/read endpoints (no auth; the frontend fetches these
	// before login)
	router.GET("/live-classes/student/:class", liveClassHandler.ListForStudents)
	router.GET("/live-classes/student/:class/:stream", liveClassHandler.ListForStudents)
	router.GET("/recorded-videos/student/:class", videoHandler.ListForStudents)
	router.GET("/recorded-videos/student/:class/:stream", videoHandler.ListForStudents)
	router.GET("/recorded-videos/student/:class/:stream/:subject", videoHandler.ListForStudents)
	router.GET("/materials/student/:class", materialHandler.ListForStudents)
	router.GET("/materials/student/:class/:subject", materialHandler.ListForStudents)
	router.GET("/timetables", timetableHandler.ListAll)
	router.GET("/timetables/:class", timetableHandler.Get)
	router.GET("/timetables/:class/:stream", timetableHandler.Get)

	// Protected API (JWT issued by the identity service)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		teacherOnly := middleware.RequireRole("teacher", "admin")

		// Live classes
		api.POST("/live-classes", teacherOnly, liveClassHandler.Create)
		api.GET("/live-classes/teacher/:teacherId", liveClassHandler.ListByTeacher)
		api.GET("/live-classes/:id", liveClassHandler.GetByID)
		api.PUT("/live-classes/:id/status", teacherOnly, liveClassHandler.UpdateStatus)
		api.DELETE("/live-classes/:id", teacherOnly, liveClassHandler.Delete)
		api.POST("/live-classes/:id/attendee", liveClassHandler.AddAttendee)
		api.DELETE("/live-classes/:id/attendee", liveClassHandler.RemoveAttendee)

		// Recorded videos
		api.POST("/recorded-videos/upload", teacherOnly, videoHandler.Upload)
		api.GET("/recorded-videos/teacher/:teacherId", videoHandler.ListByTeacher)
		api.PUT("/recorded-videos/:id", teacherOnly, videoHandler.Update)
		api.DELETE("/recorded-videos/:id", teacherOnly, videoHandler.Delete)
		api.POST("/recorded-videos/:id/watch", videoHandler.Watch)
		api.GET("/recorded-videos/:id/stats", videoHandler.Stats)

		// Materials
		api.POST("/materials/upload", teacherOnly, materialHandler.Upload)
		api.GET("/materials", middleware.RequireRole("admin"), materialHandler.ListAll)
		api.GET("/materials/course/:courseId", materialHandler.ListByCourse)
		api.GET("/materials/teacher/:teacherId", materialHandler.ListByTeacher)
		api.PUT("/materials/:id", teacherOnly, materialHandler.Update)
		api.DELETE("/materials/:id", teacherOnly, materialHandler.Delete)

		// Timetables
		api.POST("/timetables", teacherOnly, timetableHandler.Post)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (blob cleanup after deletes)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		go cleanupProcessor.Run(workerCtx)
		logger.Info("blob cleanup worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

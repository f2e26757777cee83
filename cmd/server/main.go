// Package main runs the seminar admission and check-in HTTP server with
// graceful shutdown.
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

	"github.com/seminarly/backend/config"
	"github.com/seminarly/backend/internal/admission"
	"github.com/seminarly/backend/internal/auth"
	"github.com/seminarly/backend/internal/middleware"
	"github.com/seminarly/backend/internal/presence"
	"github.com/seminarly/backend/internal/seminars"
	"github.com/seminarly/backend/pkg/database"
	"github.com/seminarly/backend/pkg/queue"
	"github.com/seminarly/backend/pkg/redis"
	"github.com/seminarly/backend/pkg/response"
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

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	alertQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Seminars & locations (read model for admission and presence)
	seminarRepo := seminars.NewRepository(pool)

	// Admission
	registrationRepo := admission.NewRepository(pool)
	guard := admission.NewGuard(registrationRepo)
	occupancyCache := admission.NewOccupancyCache(rdb.Client)
	admissionService := admission.NewService(seminarRepo, registrationRepo, guard, alertQueue, occupancyCache, logger)
	admissionHandler := admission.NewHandler(admissionService, registrationRepo, logger)

	seminarHandler := seminars.NewHandler(seminarRepo, guard, occupancyCache, logger)

	// Presence links & check-in
	linkRepo := presence.NewRepository(pool)
	window := time.Duration(cfg.Presence.WindowHours) * time.Hour
	lifecycle := presence.NewLifecycle(linkRepo, seminarRepo, window, logger)
	protocol := presence.NewProtocol(linkRepo, registrationRepo, seminarRepo, logger)
	presenceHandler := presence.NewHandler(lifecycle, protocol, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public browse
	router.GET("/seminars", seminarHandler.List)
	router.GET("/seminars/:id", seminarHandler.GetByID)
	router.GET("/locations", seminarHandler.ListLocations)

	// Check-in and status (identity optional: anonymous callers get a typed
	// auth_required / not-registered answer, not a transport-level reject)
	optional := router.Group("")
	optional.Use(middleware.OptionalJWT(jwtService))
	{
		optional.POST("/checkin/:token", presenceHandler.CheckIn)
		optional.GET("/seminars/:id/admission", admissionHandler.Status)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Self-service admission
		api.POST("/seminars/:id/admission", admissionHandler.Admit)
		api.DELETE("/seminars/:id/admission", admissionHandler.Cancel)

		// Organizer surface
		organizer := api.Group("")
		organizer.Use(middleware.RequireRole("organizer", "admin"))
		{
			organizer.POST("/seminars", seminarHandler.Create)
			organizer.PATCH("/seminars/:id", seminarHandler.Update)
			organizer.POST("/locations", seminarHandler.CreateLocation)
			organizer.GET("/seminars/:id/attendees", admissionHandler.ListAttendees)
			organizer.POST("/seminars/:id/presence-link", presenceHandler.CreateLink)
			organizer.PATCH("/seminars/:id/presence-link", presenceHandler.ToggleLink)
			organizer.GET("/seminars/:id/presence-link", presenceHandler.DescribeLink)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
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

// Package main runs the event platform HTTP server with graceful shutdown.
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

	"github.com/esn-portal/backend/config"
	"github.com/esn-portal/backend/internal/analytics"
	"github.com/esn-portal/backend/internal/attendance"
	"github.com/esn-portal/backend/internal/auth"
	"github.com/esn-portal/backend/internal/events"
	"github.com/esn-portal/backend/internal/middleware"
	"github.com/esn-portal/backend/internal/registrations"
	"github.com/esn-portal/backend/pkg/database"
	"github.com/esn-portal/backend/pkg/queue"
	"github.com/esn-portal/backend/pkg/redis"
	"github.com/esn-portal/backend/pkg/response"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	emailQueue := queue.NewQueue(rdb.Client, logger)

	// Users / auth
	userRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, logger)

	// Stats (aggregate queries + redis cache)
	statsRepo := analytics.NewRepository(pool)
	statsCache := analytics.NewCache(rdb.Client, 30*time.Second, logger)
	statsHandler := analytics.NewHandler(statsRepo, eventRepo, statsCache)

	// Registrations (the engine owns the capacity/window invariants)
	regStore := registrations.NewRepository(pool)
	engine := registrations.NewEngine(regStore, userRepo, emailQueue, logger)
	regHandler := registrations.NewHandler(engine, statsCache, logger)

	// Attendance validation
	attendanceSvc := attendance.NewService(regStore, userRepo, logger)
	attendanceHandler := attendance.NewHandler(attendanceSvc, statsCache, logger)

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

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)
		api.PATCH("/users/:id/esn-member", middleware.RequireRole("admin"), authHandler.SetESNMember)

		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", middleware.RequireRole("admin", "organizer"), eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PATCH("/events/:id", middleware.RequireRole("admin", "organizer"), eventHandler.Update)
		api.DELETE("/events/:id", middleware.RequireRole("admin", "organizer"), eventHandler.Delete)

		// Registration
		api.POST("/events/:id/register", regHandler.Register)
		api.DELETE("/events/:id/register", regHandler.Unregister)
		api.GET("/events/:id/registrations", middleware.RequireRole("admin", "organizer"), regHandler.ListByEvent)

		// Attendance validation (route gate on the token, authoritative
		// check against the user directory inside the service)
		api.POST("/events/:id/registrations/:regId/attendance", middleware.RequireValidator(), attendanceHandler.Validate)
		api.DELETE("/events/:id/registrations/:regId/attendance", middleware.RequireValidator(), attendanceHandler.Reset)
		api.POST("/events/:id/attendance/bulk", middleware.RequireValidator(), attendanceHandler.Bulk)

		// Stats
		api.GET("/events/:id/stats", middleware.RequireRole("admin", "organizer"), statsHandler.GetByEvent)
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

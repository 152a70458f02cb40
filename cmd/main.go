package main

import (
	"campusmatch/backend/internal/api/handler"
	"campusmatch/backend/internal/chathub"
	"campusmatch/backend/internal/config"
	"campusmatch/backend/internal/localization"
	"campusmatch/backend/internal/storage/backend"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Warn("Invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func main() {
	logrus.Info("Starting CampusMatch Backend...")

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file loaded, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	s, closeStorage, err := backend.Open(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to open storage: %v", err)
	}
	defer closeStorage()

	loc, err := localization.Default()
	if err != nil {
		logrus.Fatalf("Failed to load localization catalogs: %v", err)
	}

	// 2. Ініціалізація сервісів чату
	profiles := chathub.NewProfileService(s)
	matcher := chathub.NewMatcherService(s)
	groups := chathub.NewGroupMatcherService(s, loc)
	groups.Lang = cfg.Language
	rooms := chathub.NewManagerService(s, loc)
	rooms.Lang = cfg.Language

	if _, err := rooms.RecoverActiveRooms(ctx); err != nil {
		logrus.WithError(err).Warn("Could not count active rooms at startup")
	}

	// 3. Налаштування Gin та роутингу
	if level, _ := logrus.ParseLevel(cfg.LogLevel); level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	h := handler.NewHandler(cfg, loc, profiles, matcher, groups, rooms)
	h.Routes(r)

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsOptions.AllowedOrigins = []string{"*"}
		corsOptions.AllowCredentials = false
	}

	// Запуск HTTP-сервера
	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        cors.New(corsOptions).Handler(r),
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
}

// requestLogger logs one line per request through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
			"user_id": c.GetString("user_id"),
		}).Debug("request")
	}
}

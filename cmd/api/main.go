package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"retail-erp-backend/internal/config"
	"retail-erp-backend/internal/database"
	"retail-erp-backend/internal/server"
	"retail-erp-backend/internal/service"
)

func main() {
	// 1. Configuration (.env first, then the process environment)
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}
	setupLogging(&cfg.App)

	// 2. Database
	db, err := database.Connect(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	// 3. Services and the initial operator
	svc := service.New(db, cfg.Auth.JWTSecret)
	if err := svc.Auth.EnsureOperator(context.Background(), cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.WithError(err).Fatal("seed operator account")
	}

	// 4. HTTP server
	app := server.New(&cfg.App, svc)

	go func() {
		log.WithField("port", cfg.App.Port).Info("server listening")
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
}

func setupLogging(cfg *config.AppConfig) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"retail-erp-backend/internal/config"
	"retail-erp-backend/internal/database"
	"retail-erp-backend/internal/service"
)

func main() {
	// 1. Load env
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}

	// 2. Connect Database
	db, err := database.Connect(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer database.Close(db)

	// 3. Run migrations and seed the operator
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}
	auth := service.NewAuthService(db, cfg.Auth.JWTSecret)
	if err := auth.EnsureOperator(context.Background(), cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.WithError(err).Fatal("seed operator account")
	}
}

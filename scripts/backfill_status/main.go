// Command backfill_status recomputes the fee status of every active and
// fees_due student against today's date. Intended for one-off runs after
// imports or after the scheduler has been down.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mess-fee-api/internal/repository"
	"github.com/noah-isme/mess-fee-api/internal/service"
	"github.com/noah-isme/mess-fee-api/pkg/config"
	"github.com/noah-isme/mess-fee-api/pkg/database"
	"github.com/noah-isme/mess-fee-api/pkg/logger"
)

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall run timeout")
	flag.Parse()

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
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	validate := validator.New()
	settings := service.NewSettingsService(settingsRepo, userRepo, nil, validate, logr).
		WithDefaultWindow(cfg.Fees.PendingWindowDays)
	students := service.NewStudentService(studentRepo, userRepo, validate, logr, cfg.Fees.PendingWindowDays).
		WithSettings(settings)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	updated, err := students.RefreshStatuses(ctx)
	if err != nil {
		log.Fatalf("status refresh failed: %v", err)
	}

	log.Printf("status refresh complete: %d student(s) updated", updated)
}

// Команда seed-admin создаёт начального администратора, если его ещё нет.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/migrations"
	"github.com/magabrotheeeer/account-service/internal/services/users"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }

func (noopCache) Set(context.Context, string, any, time.Duration) error { return nil }

func (noopCache) Invalidate(context.Context, string) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string) error { return nil }

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to database", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		logger.Error("failed to apply migrations", sl.Err(err))
		os.Exit(1)
	}

	svc := users.New(db, noopCache{}, noopNotifier{}, logger, 0)
	admin, created, err := svc.SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		logger.Error("failed to seed admin", sl.Err(err))
		os.Exit(1)
	}

	if created {
		logger.Info("admin account created", slog.String("email", admin.Email), slog.String("id", admin.ID))
		return
	}
	logger.Info("admin account already exists", slog.String("email", admin.Email))
}

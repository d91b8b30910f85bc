// Package api собирает HTTP API сервиса учётных записей: хранилище, кеш,
// очередь писем, сервисы, маршруты и сервер здоровья gRPC.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/config"
	grpcserver "github.com/magabrotheeeer/account-service/internal/grpc/server"
	"github.com/magabrotheeeer/account-service/internal/health"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/migrations"
	"github.com/magabrotheeeer/account-service/internal/queue"
	authservice "github.com/magabrotheeeer/account-service/internal/services/auth"
	postservice "github.com/magabrotheeeer/account-service/internal/services/posts"
	userservice "github.com/magabrotheeeer/account-service/internal/services/users"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API и сервер здоровья gRPC.
type App struct {
	server   *http.Server
	grpcAddr string
	health   *grpcserver.HealthServer
	logger   *slog.Logger
	db       *repository.Storage
	cache    *cache.Cache
	conn     *amqp.Connection
	ch       *amqp.Channel
}

// New подключается к зависимостям, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.MailTopology(), 0)
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	revocations := cache.NewBlacklist(cacheRedis.Db, cfg.RevocationTTL)
	mailQueue := queue.NewMailQueue(rabbitmq.NewSyncPublisher(ch), cfg.EnqueueTimeout)
	notifier := queue.NewWelcomeNotifier(mailQueue, logger, m)

	authService := authservice.New(db, tokens, revocations, cacheRedis, notifier, logger,
		authservice.WithPolicy(authservice.Policy{
			MaxFailedLogins: cfg.MaxFailedLogins,
			LockDuration:    cfg.LockDuration,
			RevocationTTL:   cfg.RevocationTTL,
		}),
		authservice.WithMetrics(m),
	)
	checker := health.NewChecker(db.DB, cacheRedis.Db, 3*time.Second)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Log:           logger,
		Auth:          authService,
		Users:         userservice.New(db, cacheRedis, notifier, logger, cfg.UsersCacheTTL),
		Posts:         postservice.New(db, logger),
		Mail:          mailQueue,
		Tokens:        tokens,
		Revocations:   revocations,
		Health:        checker,
		Limiter:       middlewarectx.NewRateLimiter(cacheRedis.Db, cfg.RateLimitRequests, cfg.RateLimitWindow, logger, m),
		Metrics:       m,
		ExposeDetails: !cfg.IsProd(),
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		grpcAddr: cfg.GRPCHealthAddress,
		health:   grpcserver.NewHealthServer(checker, logger),
		logger:   logger,
		db:       db,
		cache:    cacheRedis,
		conn:     conn,
		ch:       ch,
	}, nil
}

// Run обслуживает запросы до отмены ctx и затем плавно останавливается.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	})

	if a.grpcAddr != "" {
		g.Go(func() error {
			return grpcserver.Serve(gctx, a.grpcAddr, a.health, a.logger)
		})
	}

	err := g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}

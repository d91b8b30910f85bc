// Package worker собирает фоновый процесс: потребитель очереди
// приветственных писем и периодическое снятие истёкших блокировок.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/lib/smtp"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/services/mailer"
	"github.com/magabrotheeeer/account-service/internal/services/sweeper"
	"github.com/magabrotheeeer/account-service/internal/services/users"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

// App воркер писем и блокировок.
type App struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	db          *repository.Storage
	cache       *cache.Cache
	mailer      *mailer.Service
	sweeper     *sweeper.Sweeper
	schedule    string
	concurrency int
	metricsSrv  *http.Server
	logger      *slog.Logger
}

// New подключается к брокеру, базе и Redis.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.worker.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
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
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.MailTopology(), cfg.ConsumerPrefetch)
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sender := smtp.NewMailer(smtp.NewTransport(cfg.SMTP, logger))
	mailService := mailer.New(sender, rabbitmq.NewSyncPublisher(ch), cfg.SendPerSecond, logger, m)

	a := &App{
		conn:        conn,
		ch:          ch,
		db:          db,
		cache:       cacheRedis,
		mailer:      mailService,
		sweeper:     sweeper.New(db, cacheRedis, users.ListCacheKey, logger, m),
		schedule:    cfg.SweeperSchedule,
		concurrency: cfg.ConsumerPrefetch,
		logger:      logger,
	}
	if cfg.WorkerMetricsAddress != "" {
		a.metricsSrv = &http.Server{
			Addr:              cfg.WorkerMetricsAddress,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return a, nil
}

// Run работает до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("consuming welcome emails", slog.String("queue", rabbitmq.WelcomeQueue))
		err := rabbitmq.ConsumerMessage(gctx, a.ch, rabbitmq.WelcomeQueue, a.concurrency, a.logger, a.mailer.HandleWelcome)
		if err != nil {
			a.logger.Error("welcome consumer stopped", sl.Err(err))
		}
		return err
	})

	g.Go(func() error {
		return a.sweeper.Run(gctx, a.schedule)
	})

	if a.metricsSrv != nil {
		g.Go(func() error {
			a.logger.Info("worker metrics server starting on", slog.String("address", a.metricsSrv.Addr))
			if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.metricsSrv.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Wait()
	a.logger.Info("worker shutting down gracefully")

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
	return runErr
}

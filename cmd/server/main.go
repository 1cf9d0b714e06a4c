package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/familykit/migrations"
	"github.com/dmitrymomot/familykit/pkg/config"
	"github.com/dmitrymomot/familykit/pkg/email"
	"github.com/dmitrymomot/familykit/pkg/httpserver"
	"github.com/dmitrymomot/familykit/pkg/logger"
	"github.com/dmitrymomot/familykit/pkg/paddle"
	"github.com/dmitrymomot/familykit/pkg/pg"
	"github.com/dmitrymomot/familykit/pkg/redis"
	"github.com/dmitrymomot/familykit/pkg/requestid"
	"github.com/dmitrymomot/familykit/pkg/subscription"
	"github.com/dmitrymomot/familykit/svc/billing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load[billing.Config]()
	if err != nil {
		slog.Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}

	log := logger.New(
		logger.WithEnvironment(cfg.AppEnv, cfg.ServiceName),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(requestid.LoggerExtractor(), billing.UserIDExtractor()),
	)
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg billing.Config, log *slog.Logger) error {
	pgCfg, err := config.Load[pg.Config]()
	if err != nil {
		return err
	}
	redisCfg, err := config.Load[redis.Config]()
	if err != nil {
		return err
	}
	paddleCfg, err := config.Load[paddle.Config]()
	if err != nil {
		return err
	}
	emailCfg, err := config.Load[email.Config]()
	if err != nil {
		return err
	}
	httpCfg, err := config.Load[httpserver.Config]()
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, migrations.FS, log.With(logger.Component("migrate"))); err != nil {
		return err
	}

	catalogue, err := billing.LoadPlansFile(cfg.PlansFile)
	if err != nil {
		return err
	}
	if err := billing.SeedPlans(ctx, pool, catalogue); err != nil {
		return err
	}
	log.InfoContext(ctx, "plan catalogue loaded", slog.Int("plans", len(catalogue)))

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("failed to close redis client", logger.Error(err))
		}
	}()

	processor, err := paddle.New(paddleCfg)
	if err != nil {
		return err
	}

	sender, err := newSender(emailCfg, log)
	if err != nil {
		return err
	}

	metrics := billing.NewMetrics(prometheus.DefaultRegisterer)
	plans := billing.NewPlanStore(pool)
	users := billing.NewUserStore(pool)

	opts := []subscription.ServiceOption{
		subscription.WithFreePlan(cfg.FreePlanID),
		subscription.WithJournal(billing.NewRedisJournal(rdb, cfg.JournalPrefix, cfg.JournalTTL)),
		subscription.WithCheckoutLocker(billing.NewCheckoutLocker(redis.NewLock(rdb, cfg.CheckoutLockPrefix, cfg.CheckoutLockTTL))),
		subscription.WithNotifier(billing.NewEmailNotifier(sender, users, plans, log)),
		subscription.WithLogger(log.With(logger.Component("subscription"))),
	}
	opts = append(opts, users.UsageCounters()...)

	svc := subscription.NewService(
		plans,
		billing.NewSubscriptionStore(pool),
		users,
		billing.InstrumentProcessor(processor, metrics),
		opts...,
	)

	api := billing.NewAPI(svc, cfg, billing.WithAPILogger(log), billing.WithAPIMetrics(metrics))

	r := chi.NewRouter()
	r.Use(requestid.Middleware, middleware.Recoverer)
	r.Get("/health/live", httpserver.Liveness())
	r.Get("/health/ready", httpserver.Readiness(log, pg.Healthcheck(pool), redis.Healthcheck(rdb)))
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/v1", api.Routes)

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newSender uses Postmark when a server token is configured and writes
// messages to disk otherwise.
func newSender(cfg email.Config, log *slog.Logger) (email.Sender, error) {
	if cfg.PostmarkServerToken == "" {
		log.Warn("POSTMARK_SERVER_TOKEN not set, writing emails to disk", slog.String("dir", cfg.DevOutputDir))
		return email.NewDevSender(cfg.DevOutputDir), nil
	}
	return email.NewPostmarkSender(cfg)
}

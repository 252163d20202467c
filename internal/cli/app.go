package cli

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"titan/internal/clock"
	"titan/internal/coach"
	"titan/internal/events"
	"titan/internal/identity"
	"titan/internal/persistence"
	"titan/internal/repository"
	"titan/internal/service/auth"
	"titan/internal/service/tracker"
	"titan/pkg/circuitbreaker"
	"titan/pkg/config"
	"titan/pkg/db"
	"titan/pkg/logger"
	"titan/pkg/mq"
	"titan/pkg/otel"
	"titan/pkg/redis"
)

// app holds every wired component for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	clock   clock.Provider
	local   *repository.LocalStore
	pool    *pgxpool.Pool
	broker  *mq.Publisher
	redis   *goredis.Client
	gate    *identity.Gate
	store   *persistence.Mediator
	tracker *tracker.Tracker
	events  events.Publisher
	advisor *coach.Advisor
	auth    *auth.Service

	shutdownOtel func()
}

// newApp loads config and wires components. Optional backends that fail to
// connect are logged and skipped; only the local store is required.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.env, opts.configDir)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	} else if opts.quiet {
		cfg.Log.Level = "warn"
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, shutdownOtel: func() {}}

	shutdown, err := otel.Init(cfg.Otel, version, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
	} else {
		a.shutdownOtel = shutdown
	}

	clk, err := clock.NewSystem(cfg.Clock.Timezone)
	if err != nil {
		log.Warn("Unknown timezone, using UTC", zap.String("timezone", cfg.Clock.Timezone), zap.Error(err))
		clk = clock.System{}
	}
	a.clock = clk

	a.local, err = repository.NewLocalStore(cfg.Store.Path, log)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	log.Debug("Local store opened", zap.String("path", a.local.Path()))
	a.gate = identity.NewGate(cfg, a.local, log)

	var remote persistence.Remote
	if cfg.RemoteConfigured() {
		pool, err := db.NewConnection(ctx, cfg.Remote.DB, cfg.Remote.SlowQuery, log)
		if err != nil {
			log.Warn("Remote store unavailable, running local-only", zap.Error(err))
		} else {
			a.pool = pool
			remote = repository.NewRemoteStore(pool, newBreaker(cfg.Remote.Breaker, log), log)
			a.auth = auth.NewService(repository.NewUserRepository(pool), a.gate, log)
		}
	}
	a.store = persistence.NewMediator(a.local, remote, a.gate, log)

	a.events = events.Noop{}
	if cfg.MQ.URL != "" {
		broker, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Warn("Event publishing disabled", zap.Error(err))
		} else {
			a.broker = broker
			a.events = events.NewAsyncPublisher(broker, log)
		}
	}

	a.tracker = tracker.New(a.store, a.clock, a.events, log, tracker.Options{
		SeedDefaults: cfg.Store.SeedDefaults,
		LoadTimeout:  cfg.Remote.LoadTimeout,
	})

	a.advisor = a.newAdvisor(ctx)
	return a, nil
}

func newBreaker(cfg config.BreakerConfig, log *zap.Logger) *circuitbreaker.CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.FailureThreshold,
		SuccessThreshold: cfg.SuccessThreshold,
		Timeout:          cfg.Timeout,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("Remote circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func (a *app) newAdvisor(ctx context.Context) *coach.Advisor {
	var gen coach.Generator
	if a.cfg.Coach.APIKey != "" {
		g, err := coach.NewGemini(ctx, a.cfg.Coach)
		if err != nil {
			a.logger.Warn("Coach unavailable", zap.Error(err))
		} else {
			a.logger.Debug("Coach enabled", zap.String("engine", g.Name()))
			gen = g
		}
	}

	var cache coach.Cache
	client, err := redis.NewRedisClient(ctx, a.cfg.Redis)
	if err != nil {
		a.logger.Warn("Insight cache disabled", zap.Error(err))
	} else if client != nil {
		a.redis = client
		cache = coach.NewRedisCache(client, a.cfg.Redis.InsightTTL, a.logger)
	}

	return coach.NewAdvisor(gen, cache, a.cfg.Coach.Timeout, a.logger)
}

// start loads state and waits for the remote reconcile to settle.
func (a *app) start(ctx context.Context) error {
	if err := a.tracker.Start(ctx); err != nil {
		return err
	}
	wait := a.cfg.Remote.LoadTimeout + time.Second
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := a.tracker.WaitReady(waitCtx); err != nil {
		a.logger.Warn("Remote load still pending, continuing with local state", zap.Error(err))
	}
	return nil
}

// close drains pending remote writes and releases resources.
func (a *app) close(ctx context.Context) {
	if a.store != nil {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Remote.DrainTimeout)
		if err := a.store.Drain(drainCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("Pending remote writes abandoned", zap.Error(err))
		}
		cancel()
	}
	if a.events != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Remote.DrainTimeout)
		if err := a.events.Close(closeCtx); err != nil {
			a.logger.Warn("Pending events abandoned", zap.Error(err))
		}
		cancel()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.local != nil {
		if err := a.local.Close(); err != nil {
			a.logger.Error("Failed to close local store", zap.Error(err))
		}
	}
	a.shutdownOtel()
	_ = a.logger.Sync()
}

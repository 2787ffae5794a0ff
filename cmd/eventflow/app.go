package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"eventflow/internal/admin"
	"eventflow/internal/aging"
	"eventflow/internal/config"
	"eventflow/internal/constants"
	"eventflow/internal/dedup"
	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/internal/registry"
	"eventflow/internal/runner"
	"eventflow/pkg/bootstrap"
	"eventflow/pkg/circuitbreaker"
	"eventflow/pkg/health"
	"eventflow/pkg/metrics"
	"eventflow/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	serviceName string

	conns     *bootstrap.Connections
	registry  *registry.Registry
	builder   *registry.Builder
	services  *engine.Services
	pipelines engine.PipelineSet
	aging     []*aging.Aging
	group     *runner.Group
	health    *health.CheckerRegistry
	admin     *admin.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = tracing.DefaultServiceName
	}
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		serviceName: serviceName,
		registry:    registry.Default(),
		services:    engine.NewServices(),
		group:       runner.NewGroup(),
		health:      health.NewCheckerRegistry(),
	}
}

// Initialize opens connections and builds every configured component. On
// failure the caller still runs Shutdown to release what was opened.
func (a *App) Initialize(ctx context.Context) error {
	if err := config.ValidateStatic(a.Config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.OnShutdown("tracing", tp.Shutdown)

	metrics.RegisterAll()

	conns, err := bootstrap.NewDatabaseConnector(a.Config.Database, a.Logger).Connect(ctx, a.Base)
	if err != nil {
		return fmt.Errorf("failed to connect databases: %w", err)
	}
	a.conns = conns

	if err := a.initBuilder(); err != nil {
		return err
	}
	if err := a.initSinks(ctx); err != nil {
		return err
	}
	if err := a.initProviders(); err != nil {
		return err
	}
	if err := a.initDedup(); err != nil {
		return err
	}
	a.initAging()

	pipelines, err := a.builder.Pipelines(a.Config.Pipelines)
	if err != nil {
		return fmt.Errorf("failed to build pipelines: %w", err)
	}
	a.pipelines = pipelines

	if err := a.initStreams(); err != nil {
		return err
	}

	a.initHealth()
	if a.Config.Server.Enabled {
		a.admin = admin.NewServer(admin.Options{
			Server:      a.Config.Server,
			ServiceName: a.serviceName,
			Group:       a.group,
			Pipelines:   a.pipelines,
			Aging:       a.aging,
			Health:      a.health,
			Registry:    a.registry,
			Logger:      a.Logger,
		})
		a.OnShutdown("admin", a.admin.Shutdown)
	}
	return nil
}

func (a *App) initBuilder() error {
	deps := registry.Deps{
		Logger:         a.Logger,
		Kafka:          a.Config.Broker.Kafka,
		CircuitBreaker: a.Config.CircuitBreaker,
		Engine:         a.Config.Engine,
	}
	// A typed nil client must not leak into the Cmdable interface.
	if a.conns.Redis != nil {
		deps.Redis = a.conns.Redis
	}
	deps.Postgres = a.conns.Postgres
	deps.Mongo = a.conns.MongoDB

	b, err := registry.NewBuilder(a.registry, deps)
	if err != nil {
		return fmt.Errorf("failed to create component builder: %w", err)
	}
	a.builder = b
	return nil
}

func (a *App) initSinks(ctx context.Context) error {
	if err := a.builder.Sinks(a.Config.Sinks); err != nil {
		return fmt.Errorf("failed to build sinks: %w", err)
	}
	for _, name := range a.builder.SinkNames() {
		s, _ := a.builder.Sink(name)
		a.services.Register(constants.ServicePrefixSink+name, s)
	}

	roots := a.builder.RootSinks()
	for _, s := range roots {
		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize sinks: %w", err)
		}
	}
	a.OnShutdown("sinks", func(ctx context.Context) error {
		var errs []error
		for _, s := range roots {
			if err := s.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := s.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	return nil
}

func (a *App) initProviders() error {
	if err := a.builder.Providers(a.Config.Providers); err != nil {
		return fmt.Errorf("failed to build providers: %w", err)
	}
	for _, pc := range a.Config.Providers {
		p, _ := a.builder.Provider(pc.Name)
		a.services.Register(constants.ServicePrefixProvider+pc.Name, p)
	}
	return nil
}

// initDedup registers the dedup service when Redis is configured. Without
// it, dedup processors warn and stop the messages they see.
func (a *App) initDedup() error {
	if a.conns.Redis == nil {
		return nil
	}

	var repo dedup.Repository = dedup.NewRedisRepository(a.conns.Redis)
	if a.Config.CircuitBreaker.Enabled {
		repo = dedup.NewCircuitBreakerRepository(repo, circuitbreaker.FromSettings(constants.ServiceDedup, a.Config.CircuitBreaker))
	}

	svc, err := dedup.NewService(repo, a.Config.Dedup, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create dedup service: %w", err)
	}
	a.services.Register(constants.ServiceDedup, svc)
	return nil
}

func (a *App) initAging() {
	for _, ac := range a.Config.Aging {
		q := aging.New(aging.Config{
			Name:         ac.Name,
			OnComplete:   ac.OnComplete,
			PollInterval: ac.PollInterval,
		}, a.Logger)
		a.aging = append(a.aging, q)
		a.services.Register(constants.ServicePrefixAging+ac.Name, q)
		a.OnShutdown("aging."+ac.Name, q.Stop)
	}
}

func (a *App) initStreams() error {
	for _, sc := range a.Config.Streams {
		if sc.Disabled {
			a.Logger.Infow("Stream disabled", "stream", sc.Name)
			continue
		}

		src, err := a.builder.Source(sc.Source)
		if err != nil {
			return fmt.Errorf("stream %s: %w", sc.Name, err)
		}

		log := a.Logger.With("stream", sc.Name)
		stream := engine.NewStream(engine.StreamConfig{
			Name:      sc.Name,
			Operator:  a.Config.Engine.Operator,
			Source:    src,
			Pipelines: a.pipelines,
			Services:  a.services,
			Metrics:   metrics.NewPathMetrics(sc.Name),
			Logger:    log,
		})

		wait := sc.WaitAtMost
		if wait <= 0 {
			wait = a.Config.Engine.WaitAtMost
		}
		a.group.Add(runner.New(stream, wait, log))
	}
	return nil
}

func (a *App) initHealth() {
	a.health.Register(health.NewCheckerFunc("streams", a.checkStreams))
	if a.conns.Redis != nil {
		a.health.Register(health.NewRedisChecker(a.conns.Redis))
	}
	if a.conns.Postgres != nil {
		a.health.Register(health.NewPostgreSQLChecker(a.conns.Postgres))
	}
	if a.conns.Mongo != nil {
		a.health.Register(health.NewMongoDBChecker(a.conns.Mongo))
	}
	if a.Config.Broker.Kafka.Configured() {
		a.health.RegisterOptional(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}
}

// checkStreams reports every stream that has failed.
func (a *App) checkStreams(context.Context) error {
	var errs []error
	for _, r := range a.group.Runners() {
		if err := r.Stream().Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run drives every stream until they finish or ctx is done. With the admin
// server enabled the process keeps serving after bounded streams finish.
func (a *App) Run(ctx context.Context) error {
	for _, q := range a.aging {
		q.Start()
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.group.Run(gCtx); err != nil {
			return fmt.Errorf("stream error: %w", err)
		}
		a.Logger.InfowCtx(gCtx, "All streams stopped")
		return nil
	})

	if a.admin != nil {
		g.Go(func() error {
			return a.admin.Run(gCtx)
		})
	}

	return g.Wait()
}

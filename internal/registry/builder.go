package registry

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"eventflow/internal/config"
	"eventflow/internal/engine"
	"eventflow/internal/enrich"
	"eventflow/internal/logger"
	"eventflow/pkg/cel"
)

// Deps are the shared connections and settings factories may draw on. Nil
// connections make the components that need them fail to build.
type Deps struct {
	Logger         logger.Logger
	Evaluator      *cel.Evaluator
	Redis          redis.Cmdable
	Postgres       *sql.DB
	Mongo          *mongo.Database
	Kafka          config.KafkaConfig
	CircuitBreaker config.CircuitBreakerConfig
	Engine         config.EngineConfig
}

// Builder turns configuration sections into engine components. Sinks and
// providers are remembered by name so later components can refer to them.
type Builder struct {
	reg  *Registry
	deps Deps

	sinks     map[string]engine.Sink
	sinkOrder []string
	owned     map[string]bool
	providers map[string]enrich.Provider
}

func NewBuilder(reg *Registry, deps Deps) (*Builder, error) {
	if deps.Logger == nil {
		deps.Logger = logger.NopLogger()
	}
	if deps.Evaluator == nil {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return nil, err
		}
		deps.Evaluator = evaluator
	}
	return &Builder{
		reg:       reg,
		deps:      deps,
		sinks:     make(map[string]engine.Sink),
		owned:     make(map[string]bool),
		providers: make(map[string]enrich.Provider),
	}, nil
}

func (b *Builder) Deps() Deps {
	return b.deps
}

func (b *Builder) Filter(cfg config.FilterConfig) (engine.Filter, error) {
	factory, err := lookup(b.reg.filters, "filter", cfg.Type)
	if err != nil {
		return nil, err
	}
	f, err := factory(b, cfg)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", cfg.Type, err)
	}
	return f, nil
}

func (b *Builder) Processor(cfg config.ComponentConfig) (engine.Processor, error) {
	factory, err := lookup(b.reg.processors, "processor", cfg.Type)
	if err != nil {
		return nil, err
	}
	p, err := factory(b, cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("processor %s: %w", cfg.Type, err)
	}
	return p, nil
}

func (b *Builder) Source(cfg config.ComponentConfig) (engine.Source, error) {
	factory, err := lookup(b.reg.sources, "source", cfg.Type)
	if err != nil {
		return nil, err
	}
	s, err := factory(b, cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", cfg.Type, err)
	}
	return s, nil
}

// Sinks builds the named sinks in order. Composite sinks may only refer to
// sinks declared before them.
func (b *Builder) Sinks(cfgs []config.ComponentConfig) error {
	for _, cfg := range cfgs {
		if _, dup := b.sinks[cfg.Name]; dup {
			return fmt.Errorf("sink %q declared twice", cfg.Name)
		}
		factory, err := lookup(b.reg.sinks, "sink", cfg.Type)
		if err != nil {
			return fmt.Errorf("sink %s: %w", cfg.Name, err)
		}
		s, err := factory(b, cfg.Name, cfg.Settings)
		if err != nil {
			return fmt.Errorf("sink %s: %w", cfg.Name, err)
		}
		b.sinks[cfg.Name] = s
		b.sinkOrder = append(b.sinkOrder, cfg.Name)
	}
	return nil
}

func (b *Builder) Sink(name string) (engine.Sink, bool) {
	s, ok := b.sinks[name]
	return s, ok
}

// SinkNames lists built sinks in declaration order.
func (b *Builder) SinkNames() []string {
	return append([]string(nil), b.sinkOrder...)
}

// RootSinks lists the built sinks no composite sink owns. Their lifecycle
// (Init, Flush, Close) covers every sink exactly once.
func (b *Builder) RootSinks() []engine.Sink {
	var out []engine.Sink
	for _, name := range b.sinkOrder {
		if !b.owned[name] {
			out = append(out, b.sinks[name])
		}
	}
	return out
}

func (b *Builder) Providers(cfgs []config.ComponentConfig) error {
	for _, cfg := range cfgs {
		if _, dup := b.providers[cfg.Name]; dup {
			return fmt.Errorf("provider %q declared twice", cfg.Name)
		}
		factory, err := lookup(b.reg.providers, "provider", cfg.Type)
		if err != nil {
			return fmt.Errorf("provider %s: %w", cfg.Name, err)
		}
		p, err := factory(b, cfg.Name, cfg.Settings)
		if err != nil {
			return fmt.Errorf("provider %s: %w", cfg.Name, err)
		}
		b.providers[cfg.Name] = p
	}
	return nil
}

func (b *Builder) Provider(name string) (enrich.Provider, bool) {
	p, ok := b.providers[name]
	return p, ok
}

func (b *Builder) Rule(cfg config.RuleConfig) (engine.Rule, error) {
	rule := engine.Rule{Name: cfg.Name}
	if cfg.Filter != nil {
		f, err := b.Filter(*cfg.Filter)
		if err != nil {
			return rule, err
		}
		rule.Filter = f
	}

	var err error
	if rule.Then, err = b.processors(cfg.Then); err != nil {
		return rule, err
	}
	if rule.Else, err = b.processors(cfg.Else); err != nil {
		return rule, err
	}
	return rule, nil
}

func (b *Builder) processors(cfgs []config.ComponentConfig) ([]engine.Processor, error) {
	out := make([]engine.Processor, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := b.Processor(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Pipelines builds every configured pipeline into one dispatch set.
func (b *Builder) Pipelines(cfgs []config.PipelineConfig) (engine.PipelineSet, error) {
	pipelines := make([]*engine.Pipeline, 0, len(cfgs))
	for _, pc := range cfgs {
		p := engine.NewPipeline(pc.Name)
		for i, rc := range pc.Rules {
			rule, err := b.Rule(rc)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s rule %d: %w", pc.Name, i, err)
			}
			p.Append(rule)
		}
		pipelines = append(pipelines, p)
	}
	return engine.NewPipelineSet(pipelines...), nil
}

func (b *Builder) requireRedis(what string) (redis.Cmdable, error) {
	if b.deps.Redis == nil {
		return nil, fmt.Errorf("%s needs database.redis", what)
	}
	return b.deps.Redis, nil
}

func (b *Builder) requirePostgres(what string) (*sql.DB, error) {
	if b.deps.Postgres == nil {
		return nil, fmt.Errorf("%s needs database.postgres", what)
	}
	return b.deps.Postgres, nil
}

func (b *Builder) requireMongo(what string) (*mongo.Database, error) {
	if b.deps.Mongo == nil {
		return nil, fmt.Errorf("%s needs database.mongodb", what)
	}
	return b.deps.Mongo, nil
}

func (b *Builder) requireKafka(what string) error {
	if !b.deps.Kafka.Configured() {
		return fmt.Errorf("%s needs broker.kafka.brokers", what)
	}
	return nil
}

package registry

import (
	"fmt"

	"eventflow/internal/broker"
	"eventflow/internal/engine"
	"eventflow/internal/sink"
	"eventflow/pkg/circuitbreaker"
)

func registerSinks(r *Registry) {
	r.RegisterSink("memory", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var s struct {
			Limit int `mapstructure:"limit"`
		}
		if err := decode(settings, &s); err != nil {
			return nil, err
		}
		return sink.NewMemory(s.Limit), nil
	})
	r.RegisterSink("log", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var cfg sink.LogConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		return sink.NewLog(b.deps.Logger.With("sink", name), cfg), nil
	})
	r.RegisterSink("kafka", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var cfg sink.KafkaConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		if err := b.requireKafka("kafka sink"); err != nil {
			return nil, err
		}
		writer, err := broker.NewWriter(b.deps.Kafka)
		if err != nil {
			return nil, err
		}
		producer := broker.NewProducer(writer, broker.RetryPolicy(b.deps.Kafka.Retry), "sink."+name, b.deps.Logger)
		s, err := sink.NewKafka(name, producer, cfg, b.deps.Logger)
		if err != nil {
			_ = producer.Close()
			return nil, err
		}
		return s, nil
	})
	r.RegisterSink("redis_list", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var cfg sink.RedisListConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		client, err := b.requireRedis("redis_list sink")
		if err != nil {
			return nil, err
		}
		return sink.NewRedisList(name, client, cfg, b.deps.Logger)
	})
	r.RegisterSink("redis_key", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var cfg sink.RedisKeyConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		client, err := b.requireRedis("redis_key sink")
		if err != nil {
			return nil, err
		}
		return sink.NewRedisKey(name, client, cfg, b.deps.Logger)
	})
	r.RegisterSink("postgres", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var cfg sink.PostgresConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		if cfg.Table == "" {
			return nil, fmt.Errorf("table is required")
		}
		db, err := b.requirePostgres("postgres sink")
		if err != nil {
			return nil, err
		}
		return sink.NewPostgres(name, db, cfg, b.deps.Logger), nil
	})
	r.RegisterSink("mongo", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var cfg sink.MongoConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		db, err := b.requireMongo("mongo sink")
		if err != nil {
			return nil, err
		}
		return sink.NewMongo(name, db, cfg, b.deps.Logger)
	})
	r.RegisterSink("http", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var cfg sink.HTTPConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		breaker := circuitbreaker.FromSettings("sink."+name, b.deps.CircuitBreaker)
		return sink.NewHTTP(name, cfg, breaker, b.deps.Logger)
	})
	r.RegisterSink("fan_out", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var s struct {
			Sinks []string `mapstructure:"sinks"`
		}
		if err := decode(settings, &s); err != nil {
			return nil, err
		}
		children := make([]engine.Sink, 0, len(s.Sinks))
		for _, child := range s.Sinks {
			c, err := b.sinkRef(child)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return sink.NewFanOut(b.deps.Logger.With("sink", name), children...), nil
	})
	r.RegisterSink("skip_first", func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error) {
		var s struct {
			Sink string `mapstructure:"sink"`
		}
		if err := decode(settings, &s); err != nil {
			return nil, err
		}
		inner, err := b.sinkRef(s.Sink)
		if err != nil {
			return nil, err
		}
		return sink.NewSkipFirst(inner), nil
	})
}

func (b *Builder) sinkRef(name string) (engine.Sink, error) {
	s, ok := b.sinks[name]
	if !ok {
		return nil, fmt.Errorf("sink %q is not declared before its use", name)
	}
	if b.owned[name] {
		return nil, fmt.Errorf("sink %q already belongs to another composite sink", name)
	}
	b.owned[name] = true
	return s, nil
}

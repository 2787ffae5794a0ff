package registry

import (
	"eventflow/internal/broker"
	"eventflow/internal/engine"
	"eventflow/internal/source"
)

func registerSources(r *Registry) {
	r.RegisterSource("memory", func(b *Builder, settings map[string]interface{}) (engine.Source, error) {
		var routing source.Routing
		if err := decode(settings, &routing); err != nil {
			return nil, err
		}
		if err := routing.Validate(); err != nil {
			return nil, err
		}
		return source.NewMemory(routing), nil
	})
	r.RegisterSource("kafka", func(b *Builder, settings map[string]interface{}) (engine.Source, error) {
		var cfg source.KafkaConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		if err := b.requireKafka("kafka source"); err != nil {
			return nil, err
		}
		reader, err := broker.NewReader(b.deps.Kafka, cfg.Topic, cfg.GroupID)
		if err != nil {
			return nil, err
		}
		src, err := source.NewKafka(reader, cfg)
		if err != nil {
			_ = reader.Close()
			return nil, err
		}
		return src, nil
	})
	r.RegisterSource("redis_list", func(b *Builder, settings map[string]interface{}) (engine.Source, error) {
		var cfg source.RedisListConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		client, err := b.requireRedis("redis_list source")
		if err != nil {
			return nil, err
		}
		return source.NewRedisList(client, cfg)
	})
	r.RegisterSource("postgres", func(b *Builder, settings map[string]interface{}) (engine.Source, error) {
		var cfg source.PostgresConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		db, err := b.requirePostgres("postgres source")
		if err != nil {
			return nil, err
		}
		return source.NewPostgres(db, cfg)
	})
	r.RegisterSource("mongo", func(b *Builder, settings map[string]interface{}) (engine.Source, error) {
		var cfg source.MongoConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		db, err := b.requireMongo("mongo source")
		if err != nil {
			return nil, err
		}
		return source.NewMongo(db, cfg)
	})
}

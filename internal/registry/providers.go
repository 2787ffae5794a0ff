package registry

import (
	"time"

	"eventflow/internal/constants"
	"eventflow/internal/enrich"
	"eventflow/pkg/circuitbreaker"
)

const settingCacheTTL = "cache_ttl"

// provider wraps a raw provider factory with the shared decorations: a
// circuit breaker when enabled, a Redis result cache when cache_ttl is set,
// and request metrics.
func provider(build func(b *Builder, settings map[string]interface{}) (enrich.Provider, error)) ProviderFactory {
	return func(b *Builder, name string, settings map[string]interface{}) (enrich.Provider, error) {
		var common struct {
			CacheTTL time.Duration `mapstructure:"cache_ttl"`
		}
		_, hasTTL := settings[settingCacheTTL]
		if hasTTL {
			if err := decode(map[string]interface{}{settingCacheTTL: settings[settingCacheTTL]}, &common); err != nil {
				return nil, err
			}
		}

		p, err := build(b, without(settings, settingCacheTTL))
		if err != nil {
			return nil, err
		}

		if b.deps.CircuitBreaker.Enabled {
			p = enrich.NewCircuitBreakerProvider(p, circuitbreaker.FromSettings(constants.ServicePrefixProvider+name, b.deps.CircuitBreaker))
		}
		if common.CacheTTL > 0 {
			client, err := b.requireRedis("provider cache_ttl")
			if err != nil {
				return nil, err
			}
			p = enrich.NewCachedProvider(p, client, name, common.CacheTTL, b.deps.Logger)
		}
		return enrich.Instrument(name, p), nil
	}
}

func registerProviders(r *Registry) {
	r.RegisterProvider(constants.ProviderNameAPI, provider(func(b *Builder, settings map[string]interface{}) (enrich.Provider, error) {
		var cfg enrich.APIConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		return enrich.NewAPIProvider(cfg)
	}))

	redisProvider := provider(func(b *Builder, settings map[string]interface{}) (enrich.Provider, error) {
		var cfg enrich.RedisConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		client, err := b.requireRedis("redis provider")
		if err != nil {
			return nil, err
		}
		return enrich.NewRedisProvider(client, cfg)
	})
	r.RegisterProvider(constants.ProviderNameCache, redisProvider)
	r.RegisterProvider("redis", redisProvider)

	r.RegisterProvider(constants.ProviderNameMongoDB, provider(func(b *Builder, settings map[string]interface{}) (enrich.Provider, error) {
		var cfg enrich.MongoConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		db, err := b.requireMongo("mongodb provider")
		if err != nil {
			return nil, err
		}
		return enrich.NewMongoProvider(db, cfg)
	}))
	r.RegisterProvider(constants.ProviderNamePostgreSQL, provider(func(b *Builder, settings map[string]interface{}) (enrich.Provider, error) {
		var cfg enrich.PostgresConfig
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		db, err := b.requirePostgres("postgresql provider")
		if err != nil {
			return nil, err
		}
		return enrich.NewPostgresProvider(db, cfg)
	}))
}

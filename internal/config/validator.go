package config

import (
	"errors"
	"fmt"
	"strings"

	"eventflow/internal/constants"
	"eventflow/pkg/cel"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic checks everything that can be checked without opening a
// connection. Component settings are validated later by their factories.
func ValidateStatic(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(cfg.Server)...)
	errs = append(errs, validateKafka(cfg.Broker.Kafka)...)
	errs = append(errs, validateDatabase(cfg.Database)...)
	errs = append(errs, validateEngine(cfg.Engine)...)
	errs = append(errs, validateDedup(cfg.Dedup)...)

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return err
	}

	pipelines := make(map[string]bool, len(cfg.Pipelines))
	for i, p := range cfg.Pipelines {
		field := fmt.Sprintf("pipelines[%d]", i)
		if p.Name == "" {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: "pipeline name is required"})
			continue
		}
		if pipelines[p.Name] {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate pipeline %q", p.Name)})
		}
		pipelines[p.Name] = true
		errs = append(errs, validateRules(evaluator, field, p.Rules)...)
	}

	errs = append(errs, validateAging(cfg.Aging, pipelines)...)
	errs = append(errs, validateComponents("sinks", cfg.Sinks)...)
	errs = append(errs, validateComponents("providers", cfg.Providers)...)
	errs = append(errs, validateStreams(cfg.Streams, pipelines)...)

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) []error {
	if !cfg.Enabled {
		return nil
	}

	var errs []error
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		})
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, &ValidationError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, &ValidationError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0) {
		errs = append(errs, &ValidationError{Field: "server.rate_limit", Message: "rps and burst must be positive when rate limiting is enabled"})
	}
	return errs
}

func validateKafka(cfg KafkaConfig) []error {
	if !cfg.Configured() {
		return nil
	}

	var errs []error
	for i, broker := range cfg.Brokers {
		if broker == "" {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			})
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		errs = append(errs, &ValidationError{Field: "broker.kafka.retry.max_attempts", Message: "max_attempts must be non-negative"})
	}
	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		errs = append(errs, &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		})
	}
	if cfg.Retry.Multiplier < 0 {
		errs = append(errs, &ValidationError{Field: "broker.kafka.retry.multiplier", Message: "multiplier must be positive"})
	}
	return errs
}

func validateDatabase(cfg DatabaseConfig) []error {
	var errs []error

	if cfg.Postgres.Configured() {
		if cfg.Postgres.Host == "" {
			errs = append(errs, &ValidationError{Field: "database.postgres.host", Message: "PostgreSQL host is required"})
		}
		if cfg.Postgres.Port < 1 || cfg.Postgres.Port > 65535 {
			errs = append(errs, &ValidationError{
				Field:   "database.postgres.port",
				Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Postgres.Port),
			})
		}
		if cfg.Postgres.User == "" {
			errs = append(errs, &ValidationError{Field: "database.postgres.user", Message: "PostgreSQL user is required"})
		}
		if cfg.Postgres.DBName == "" {
			errs = append(errs, &ValidationError{Field: "database.postgres.dbname", Message: "PostgreSQL database name is required"})
		}
		validSSLModes := map[string]bool{
			"disable": true, "allow": true, "prefer": true,
			"require": true, "verify-ca": true, "verify-full": true,
		}
		if cfg.Postgres.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.Postgres.SSLMode)] {
			errs = append(errs, &ValidationError{
				Field:   "database.postgres.sslmode",
				Message: fmt.Sprintf("invalid SSL mode: %s", cfg.Postgres.SSLMode),
			})
		}
	}

	if cfg.Redis.Configured() {
		if cfg.Redis.Host == "" {
			errs = append(errs, &ValidationError{Field: "database.redis.host", Message: "Redis host is required"})
		}
		if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
			errs = append(errs, &ValidationError{
				Field:   "database.redis.port",
				Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Redis.Port),
			})
		}
	}

	if cfg.MongoDB.Configured() {
		if !strings.HasPrefix(cfg.MongoDB.URI, "mongodb://") && !strings.HasPrefix(cfg.MongoDB.URI, "mongodb+srv://") {
			errs = append(errs, &ValidationError{
				Field:   "database.mongodb.uri",
				Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
			})
		}
		if cfg.MongoDB.Database == "" {
			errs = append(errs, &ValidationError{Field: "database.mongodb.database", Message: "MongoDB database name is required"})
		}
	}

	return errs
}

func validateEngine(cfg EngineConfig) []error {
	var errs []error
	if cfg.WaitAtMost < 0 {
		errs = append(errs, &ValidationError{Field: "engine.wait_at_most", Message: "wait_at_most must be non-negative"})
	}
	if cfg.MaxRouteDepth < 0 {
		errs = append(errs, &ValidationError{Field: "engine.max_route_depth", Message: "max_route_depth must be non-negative"})
	}
	return errs
}

func validateDedup(cfg DedupConfig) []error {
	var errs []error
	validAlgorithms := map[string]bool{"md5": true, "sha256": true}
	if cfg.HashAlgorithm != "" && !validAlgorithms[cfg.HashAlgorithm] {
		errs = append(errs, &ValidationError{
			Field:   "dedup.hash_algorithm",
			Message: fmt.Sprintf("invalid hash algorithm: %s (valid: md5, sha256)", cfg.HashAlgorithm),
		})
	}
	if cfg.TTLSeconds < 0 {
		errs = append(errs, &ValidationError{Field: "dedup.ttl_seconds", Message: "TTL must be non-negative"})
	}
	switch cfg.OnError {
	case "", constants.FallbackAllow, constants.FallbackDeny:
	default:
		errs = append(errs, &ValidationError{
			Field:   "dedup.on_error",
			Message: fmt.Sprintf("invalid fallback: %s (valid: allow, deny)", cfg.OnError),
		})
	}
	return errs
}

func validateAging(queues []AgingConfig, pipelines map[string]bool) []error {
	var errs []error
	seen := make(map[string]bool, len(queues))
	for i, q := range queues {
		field := fmt.Sprintf("aging[%d]", i)
		if q.Name == "" {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: "aging queue name is required"})
		} else if seen[q.Name] {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate aging queue %q", q.Name)})
		}
		seen[q.Name] = true

		if !pipelines[q.OnComplete] {
			errs = append(errs, &ValidationError{
				Field:   field + ".on_complete",
				Message: fmt.Sprintf("pipeline %q is not defined", q.OnComplete),
			})
		}
		if q.PollInterval < 0 {
			errs = append(errs, &ValidationError{Field: field + ".poll_interval", Message: "poll_interval must be non-negative"})
		}
	}
	return errs
}

func validateRules(evaluator *cel.Evaluator, prefix string, rules []RuleConfig) []error {
	var errs []error
	for i, r := range rules {
		field := fmt.Sprintf("%s.rules[%d]", prefix, i)
		if r.Filter != nil {
			errs = append(errs, validateFilter(evaluator, field+".filter", *r.Filter)...)
		}
		for j, p := range r.Then {
			if p.Type == "" {
				errs = append(errs, &ValidationError{Field: fmt.Sprintf("%s.then[%d].type", field, j), Message: "processor type is required"})
			}
		}
		for j, p := range r.Else {
			if p.Type == "" {
				errs = append(errs, &ValidationError{Field: fmt.Sprintf("%s.else[%d].type", field, j), Message: "processor type is required"})
			}
		}
	}
	return errs
}

func validateFilter(evaluator *cel.Evaluator, field string, f FilterConfig) []error {
	if f.Type == "" {
		return []error{&ValidationError{Field: field + ".type", Message: "filter type is required"}}
	}
	var errs []error
	if f.Type == "expression" {
		expression, _ := f.Settings["expression"].(string)
		if expression == "" {
			errs = append(errs, &ValidationError{Field: field + ".settings.expression", Message: "expression is required"})
		} else if err := evaluator.ValidateExpression(expression); err != nil {
			errs = append(errs, &ValidationError{Field: field + ".settings.expression", Message: err.Error()})
		}
	}
	for i, child := range f.Filters {
		errs = append(errs, validateFilter(evaluator, fmt.Sprintf("%s.filters[%d]", field, i), child)...)
	}
	return errs
}

func validateComponents(section string, components []ComponentConfig) []error {
	var errs []error
	seen := make(map[string]bool, len(components))
	for i, c := range components {
		field := fmt.Sprintf("%s[%d]", section, i)
		if c.Name == "" {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: "name is required"})
		} else if seen[c.Name] {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate name %q", c.Name)})
		}
		seen[c.Name] = true

		if c.Type == "" {
			errs = append(errs, &ValidationError{Field: field + ".type", Message: "type is required"})
		}
	}
	return errs
}

func validateStreams(streams []StreamConfig, pipelines map[string]bool) []error {
	var errs []error
	seen := make(map[string]bool, len(streams))
	for i, s := range streams {
		field := fmt.Sprintf("streams[%d]", i)
		if s.Name == "" {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: "stream name is required"})
		} else if seen[s.Name] {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate stream %q", s.Name)})
		}
		seen[s.Name] = true

		if s.Source.Type == "" {
			errs = append(errs, &ValidationError{Field: field + ".source.type", Message: "source type is required"})
		}
		pipeline, _ := s.Source.Settings["pipeline"].(string)
		if !pipelines[pipeline] {
			errs = append(errs, &ValidationError{
				Field:   field + ".source.settings.pipeline",
				Message: fmt.Sprintf("pipeline %q is not defined", pipeline),
			})
		}
		if s.WaitAtMost < 0 {
			errs = append(errs, &ValidationError{Field: field + ".wait_at_most", Message: "wait_at_most must be non-negative"})
		}
	}
	return errs
}

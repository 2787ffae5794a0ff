package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Engine         EngineConfig         `mapstructure:"engine"`
	Dedup          DedupConfig          `mapstructure:"dedup"`
	Aging          []AgingConfig        `mapstructure:"aging"`
	Providers      []ComponentConfig    `mapstructure:"providers"`
	Sinks          []ComponentConfig    `mapstructure:"sinks"`
	Pipelines      []PipelineConfig     `mapstructure:"pipelines"`
	Streams        []StreamConfig       `mapstructure:"streams"`
}

type ServerConfig struct {
	Enabled      bool            `mapstructure:"enabled"`
	Port         int             `mapstructure:"port"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c PostgresConfig) Configured() bool {
	return c.Host != "" || c.Port > 0
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Configured() bool {
	return c.Host != "" || c.Port > 0
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

func (c MongoDBConfig) Configured() bool {
	return c.URI != ""
}

type BrokerConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string    `mapstructure:"brokers"`
	GroupID string      `mapstructure:"group_id"`
	Retry   RetryConfig `mapstructure:"retry"`
}

func (c KafkaConfig) Configured() bool {
	return len(c.Brokers) > 0
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type EngineConfig struct {
	Operator      string        `mapstructure:"operator"`
	WaitAtMost    time.Duration `mapstructure:"wait_at_most"`
	MaxRouteDepth int           `mapstructure:"max_route_depth"`
}

type DedupConfig struct {
	HashAlgorithm string   `mapstructure:"hash_algorithm"`
	TTLSeconds    int      `mapstructure:"ttl_seconds"`
	FieldsToHash  []string `mapstructure:"fields_to_hash"`
	OnError       string   `mapstructure:"on_error"`
}

// AgingConfig declares one delayed-redelivery queue. Messages aged on it are
// requeued into OnComplete once their delay has elapsed.
type AgingConfig struct {
	Name         string        `mapstructure:"name"`
	OnComplete   string        `mapstructure:"on_complete"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ComponentConfig names a registered component type and carries its
// type-specific settings, decoded by the component factory.
type ComponentConfig struct {
	Name     string                 `mapstructure:"name"`
	Type     string                 `mapstructure:"type"`
	Settings map[string]interface{} `mapstructure:"settings"`
}

type FilterConfig struct {
	Type     string                 `mapstructure:"type"`
	Settings map[string]interface{} `mapstructure:"settings"`
	Filters  []FilterConfig         `mapstructure:"filters"`
}

type RuleConfig struct {
	Name   string            `mapstructure:"name"`
	Filter *FilterConfig     `mapstructure:"filter"`
	Then   []ComponentConfig `mapstructure:"then"`
	Else   []ComponentConfig `mapstructure:"else"`
}

type PipelineConfig struct {
	Name  string       `mapstructure:"name"`
	Rules []RuleConfig `mapstructure:"rules"`
}

type StreamConfig struct {
	Name       string          `mapstructure:"name"`
	Disabled   bool            `mapstructure:"disabled"`
	Source     ComponentConfig `mapstructure:"source"`
	WaitAtMost time.Duration   `mapstructure:"wait_at_most"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}

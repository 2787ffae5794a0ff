package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
	KafkaMinBytes     = 1
	KafkaMaxBytes     = 10e6
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixDedup  = "dedup:"
	CacheKeyPrefixEnrich = "enrich:"
)

const (
	DefaultMongoDBName = "eventflow"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultWaitAtMost        = time.Second
	DefaultAgingPollInterval = 500 * time.Millisecond
	DefaultMaxRouteDepth     = 16
	DefaultBulkLoadTimeout   = 30 * time.Second
	DefaultSinkBatchSize     = 100
	DefaultOperator          = "eventflow"
)

const (
	DefaultTTLSeconds = 3600
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

// Commit policies of queue-backed sources.
const (
	CommitOnDraw       = "draw"
	CommitOnCompletion = "completion"
)

// Service registry names.
const (
	ServiceDedup          = "dedup"
	ServicePrefixAging    = "aging."
	ServicePrefixSink     = "sink."
	ServicePrefixProvider = "provider."
)

const (
	ProviderNameMongoDB    = "mongodb"
	ProviderNamePostgreSQL = "postgresql"
	ProviderNameCache      = "cache"
	ProviderNameAPI        = "api"
)

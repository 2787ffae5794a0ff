package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PipelineMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_total",
			Help: "Total number of messages traversed through a pipeline (count)",
		},
		[]string{"stream", "pipeline", "status"},
	)

	PipelineProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_processing_duration_ms",
			Help:    "Duration of one pipeline traversal in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"stream", "pipeline"},
	)

	SourcePollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_polls_total",
			Help: "Total number of source polls by result (count)",
		},
		[]string{"stream", "result"},
	)

	SourceCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_commits_total",
			Help: "Total number of acknowledgements sent upstream by sources (count)",
		},
		[]string{"source", "policy", "status"},
	)

	ComponentEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "component_events_total",
			Help: "Counters reported by filters, processors and sinks, keyed by dotted path (count)",
		},
		[]string{"stream", "path"},
	)

	ComponentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "component_duration_ms",
			Help:    "Timers reported by filters, processors and sinks, keyed by dotted path, in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"stream", "path"},
	)

	AgingPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aging_pending",
			Help: "Number of messages waiting in each aging queue (count)",
		},
		[]string{"queue"},
	)

	AgingRequeuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aging_requeued_total",
			Help: "Total number of aged messages handed back to their stream (count)",
		},
		[]string{"status"},
	)

	SinkDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_deliveries_total",
			Help: "Total number of deliveries attempted by connector sinks (count)",
		},
		[]string{"sink", "status"},
	)

	DedupMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_messages_total",
			Help: "Total number of messages checked for duplicates (count)",
		},
		[]string{"status"},
	)

	DedupProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dedup_processing_duration_ms",
			Help:    "Duplicate check duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	EnrichmentProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_provider_requests_total",
			Help: "Total number of requests to enrichment providers (count)",
		},
		[]string{"provider", "status"},
	)

	EnrichmentProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrichment_provider_duration_ms",
			Help:    "Duration of enrichment provider requests in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"provider"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "target"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"scope", "status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag reported by the reader (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

var registerOnce sync.Once

// RegisterAll registers every collector with the default registry. Calling
// it more than once is harmless.
func RegisterAll() {
	registerOnce.Do(func() {
		RegisterEngineMetrics()
		RegisterConnectorMetrics()
		RegisterCircuitBreakerMetrics()
		RegisterAdminMetrics()
	})
}

func RegisterEngineMetrics() {
	prometheus.MustRegister(PipelineMessagesTotal)
	prometheus.MustRegister(PipelineProcessingDuration)
	prometheus.MustRegister(SourcePollsTotal)
	prometheus.MustRegister(ComponentEventsTotal)
	prometheus.MustRegister(ComponentDuration)
	prometheus.MustRegister(AgingPending)
	prometheus.MustRegister(AgingRequeuedTotal)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterConnectorMetrics() {
	prometheus.MustRegister(SourceCommitsTotal)
	prometheus.MustRegister(SinkDeliveriesTotal)
	prometheus.MustRegister(DedupMessagesTotal)
	prometheus.MustRegister(DedupProcessingDuration)
	prometheus.MustRegister(EnrichmentProviderRequestsTotal)
	prometheus.MustRegister(EnrichmentProviderDuration)
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaConsumerLag)
	prometheus.MustRegister(KafkaWriteDuration)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterAdminMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func IncPipelineMessages(stream, pipeline, status string) {
	PipelineMessagesTotal.WithLabelValues(stream, pipeline, status).Inc()
}

func ObservePipelineDuration(stream, pipeline string, duration time.Duration) {
	PipelineProcessingDuration.WithLabelValues(stream, pipeline).Observe(float64(duration.Milliseconds()))
}

func IncSourcePoll(stream, result string) {
	SourcePollsTotal.WithLabelValues(stream, result).Inc()
}

func IncSourceCommit(source, policy, status string) {
	SourceCommitsTotal.WithLabelValues(source, policy, status).Inc()
}

func SetAgingPending(queue string, n int) {
	AgingPending.WithLabelValues(queue).Set(float64(n))
}

func IncAgingRequeued(status string) {
	AgingRequeuedTotal.WithLabelValues(status).Inc()
}

func IncSinkDelivery(sink, status string) {
	SinkDeliveriesTotal.WithLabelValues(sink, status).Inc()
}

func ObserveDedupDuration(duration time.Duration, status string) {
	DedupProcessingDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncEnrichmentProviderRequest(provider, status string) {
	EnrichmentProviderRequestsTotal.WithLabelValues(provider, status).Inc()
}

func ObserveEnrichmentProviderDuration(provider string, duration time.Duration) {
	EnrichmentProviderDuration.WithLabelValues(provider).Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}

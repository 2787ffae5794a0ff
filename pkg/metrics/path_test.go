package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPathMetrics_Counter(t *testing.T) {
	m := NewPathMetrics("path-test")

	m.Counter("sink", "orders", "written").Inc()
	m.Counter("sink", "orders", "written").Add(2)

	got := testutil.ToFloat64(ComponentEventsTotal.WithLabelValues("path-test", "sink.orders.written"))
	assert.Equal(t, float64(3), got)
}

func TestPathMetrics_Timer(t *testing.T) {
	m := NewPathMetrics("timer-test")

	m.Timer("processor", "enrich").Observe(15 * time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(ComponentDuration, "component_duration_ms"))
}

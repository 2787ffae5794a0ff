package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Counter interface {
	Inc()
	Add(delta float64)
}

type Timer interface {
	Observe(d time.Duration)
}

// PathMetrics maps hierarchical component metrics onto the
// component_events_total and component_duration_ms vectors. Path segments
// are joined with "." and the stream name becomes a label.
type PathMetrics struct {
	stream string
}

func NewPathMetrics(stream string) *PathMetrics {
	return &PathMetrics{stream: stream}
}

func (m *PathMetrics) Counter(path ...string) Counter {
	return ComponentEventsTotal.WithLabelValues(m.stream, strings.Join(path, "."))
}

func (m *PathMetrics) Timer(path ...string) Timer {
	return millisTimer{observer: ComponentDuration.WithLabelValues(m.stream, strings.Join(path, "."))}
}

type millisTimer struct {
	observer prometheus.Observer
}

func (t millisTimer) Observe(d time.Duration) {
	t.observer.Observe(float64(d.Milliseconds()))
}

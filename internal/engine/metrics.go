package engine

import (
	"time"

	"eventflow/pkg/metrics"
)

// Metrics is a hierarchical registry addressed by path segments, for example
// Counter("sink", "orders-db", "written").
type Metrics interface {
	Counter(path ...string) Counter
	Timer(path ...string) Timer
}

type (
	Counter = metrics.Counter
	Timer   = metrics.Timer
)

// Since observes the time elapsed since start.
func Since(t Timer, start time.Time) {
	t.Observe(time.Since(start))
}

type nopMetrics struct{}

type nopCounter struct{}

type nopTimer struct{}

func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) Counter(...string) Counter { return nopCounter{} }
func (nopMetrics) Timer(...string) Timer     { return nopTimer{} }

func (nopCounter) Inc()                {}
func (nopCounter) Add(float64)         {}
func (nopTimer) Observe(time.Duration) {}

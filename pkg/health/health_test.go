package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckerRegistry(t *testing.T) {
	ok := NewCheckerFunc("ok", func(context.Context) error { return nil })
	broken := NewCheckerFunc("broken", func(context.Context) error { return errors.New("down") })

	tests := []struct {
		name     string
		setup    func(r *CheckerRegistry)
		want     Status
		failures map[string]Status
	}{
		{
			name:  "empty",
			setup: func(*CheckerRegistry) {},
			want:  StatusHealthy,
		},
		{
			name:  "all pass",
			setup: func(r *CheckerRegistry) { r.Register(ok) },
			want:  StatusHealthy,
		},
		{
			name: "optional failure degrades",
			setup: func(r *CheckerRegistry) {
				r.Register(ok)
				r.RegisterOptional(broken)
			},
			want:     StatusDegraded,
			failures: map[string]Status{"broken": StatusDegraded},
		},
		{
			name: "required failure wins",
			setup: func(r *CheckerRegistry) {
				r.RegisterOptional(NewCheckerFunc("flaky", func(context.Context) error { return errors.New("slow") }))
				r.Register(broken)
			},
			want:     StatusUnhealthy,
			failures: map[string]Status{"broken": StatusUnhealthy, "flaky": StatusDegraded},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			tt.setup(r)
			h := r.Check(context.Background())

			assert.Equal(t, tt.want, h.Status)
			for name, status := range tt.failures {
				assert.Equal(t, status, h.Checks[name].Status)
				assert.NotEmpty(t, h.Checks[name].Message)
			}
		})
	}
}

func TestKafkaChecker_NoBrokers(t *testing.T) {
	err := NewKafkaChecker(nil).Check(context.Background())
	assert.Error(t, err)
}
